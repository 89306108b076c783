// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/varlens/pileup/support"
	"v.io/x/lib/cmdline"
)

type variantSupportFlags struct {
	reads         *readFlags
	variants      *variantFlags
	ignoreMissing *bool
	out           *string
}

func newCmdVariantSupport() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "variant-support",
		Short: "Summarize ref, alt and other read support for each variant",
		Long: `
Counts allele support at the locus of every variant, then writes one row per
(variant, source, count column) with num_alt, num_ref, num_other, total_depth,
alt_fraction and any_alt_fraction.`,
	}
	flags := registerVariantSupportFlags(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("variant-support takes no arguments, but got %v", argv)
		}
		return variantSupport(vcontext.Background(), flags)
	})
	return cmd
}

func registerVariantSupportFlags(fs *flag.FlagSet) variantSupportFlags {
	return variantSupportFlags{
		reads:         registerReadFlags(fs),
		variants:      registerVariantFlags(fs),
		ignoreMissing: fs.Bool("ignore-missing", false, "Report zero depth instead of failing when a source has no counts for a variant"),
		out:           fs.String("out", "", "Output TSV path (bgzipped if .gz)"),
	}
}

func variantSupport(ctx context.Context, flags variantSupportFlags) (err error) {
	if *flags.out == "" {
		return fmt.Errorf("-out not set")
	}
	if flags.variants.empty() {
		return fmt.Errorf("no variants given (see -variants, -single-variant)")
	}
	opts, err := flags.reads.opts()
	if err != nil {
		return err
	}
	vs, err := flags.variants.load(ctx)
	if err != nil {
		return err
	}
	loci := support.VariantLoci(vs)
	sources, err := flags.reads.sources(loci)
	if err != nil {
		return err
	}
	defer closeSources(sources, &err)
	res, err := compute(ctx, sources, loci, opts)
	if err != nil {
		return err
	}
	rows, err := support.VariantSupport(vs, res, *flags.ignoreMissing)
	if err != nil {
		return err
	}
	return support.WriteVariantSupportTSV(ctx, *flags.out, rows)
}
