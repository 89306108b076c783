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
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/varlens/locus"
	"github.com/grailbio/varlens/pileup/support"
	"v.io/x/lib/cmdline"
)

type alleleSupportFlags struct {
	reads     *readFlags
	variants  *variantFlags
	loci      listFlag
	bed       *string
	neighbors *string
	out       *string
}

func newCmdAlleleSupport() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "allele-support",
		Short: "Count the reads supporting each allele at given loci",
		Long: `
Writes one row per (source, locus, allele) observed, with the number of reads
carrying the allele and one extra column per -count-group.

Loci come from -locus, -loci-bed and the variants of -variants and
-single-variant. Loci that fail to parse are reported and skipped.`,
	}
	flags := registerAlleleSupportFlags(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("allele-support takes no arguments, but got %v", argv)
		}
		return alleleSupport(vcontext.Background(), flags)
	})
	return cmd
}

func registerAlleleSupportFlags(fs *flag.FlagSet) *alleleSupportFlags {
	flags := &alleleSupportFlags{
		reads:    registerReadFlags(fs),
		variants: registerVariantFlags(fs),
		loci:     listFlag{split: true},
	}
	fs.Var(&flags.loci, "locus", `Comma-separated loci, e.g. "chr1:100", "chr1:100-102" (1-based, inclusive)
or "chr1/99-102", "chr1/100-100" (0-based, half-open). May be repeated.`)
	flags.bed = fs.String("loci-bed", "", "BED file of loci")
	flags.neighbors = fs.String("neighbor-offsets", "", `Comma-separated offsets, e.g. "-1,1". Every locus is also queried shifted
by each offset.`)
	flags.out = fs.String("out", "", "Output path. A .arrow suffix writes an Arrow IPC file, otherwise TSV (bgzipped if .gz)")
	return flags
}

// collectLoci gathers the loci of every source flag.  Malformed -locus values
// are logged and skipped.
func collectLoci(ctx context.Context, flags *alleleSupportFlags) (locus.Loci, error) {
	var ls []locus.Locus
	for _, text := range flags.loci.values {
		l, err := locus.Parse(text)
		if err != nil {
			var malformed *locus.MalformedLocusError
			if errors.As(err, &malformed) {
				log.Error.Printf("skipping locus: %v", err)
				continue
			}
			return locus.Loci{}, err
		}
		ls = append(ls, l)
	}
	if *flags.bed != "" {
		bed, err := locus.LoadBED(ctx, *flags.bed)
		if err != nil {
			return locus.Loci{}, err
		}
		ls = append(ls, bed...)
	}
	loci := locus.NewLoci(ls...)
	if !flags.variants.empty() {
		vs, err := flags.variants.load(ctx)
		if err != nil {
			return locus.Loci{}, err
		}
		loci = loci.Union(support.VariantLoci(vs))
	}
	offsets, err := parseOffsets(*flags.neighbors)
	if err != nil {
		return locus.Loci{}, err
	}
	if len(offsets) > 0 {
		loci = locus.ExpandNeighbors(loci, offsets)
	}
	return loci, nil
}

func alleleSupport(ctx context.Context, flags *alleleSupportFlags) (err error) {
	if *flags.out == "" {
		return fmt.Errorf("-out not set")
	}
	opts, err := flags.reads.opts()
	if err != nil {
		return err
	}
	loci, err := collectLoci(ctx, flags)
	if err != nil {
		return err
	}
	if loci.Len() == 0 {
		return fmt.Errorf("no loci given (see -locus, -loci-bed, -variants, -single-variant)")
	}
	sources, err := flags.reads.sources(loci)
	if err != nil {
		return err
	}
	defer closeSources(sources, &err)
	res, err := compute(ctx, sources, loci, opts)
	if err != nil {
		return err
	}
	if strings.HasSuffix(*flags.out, ".arrow") {
		err = support.WriteArrow(ctx, *flags.out, res)
	} else {
		err = support.WriteTSV(ctx, *flags.out, res)
	}
	if err != nil {
		return err
	}
	log.Printf("wrote %d rows to %s, digest %016x", len(res.Groups), *flags.out, support.Digest(res.Groups))
	return nil
}

// compute runs support.Compute and fails if no source could be read.
func compute(ctx context.Context, sources []support.Source, loci locus.Loci, opts support.Opts) (support.Result, error) {
	res, err := support.Compute(ctx, sources, loci, opts)
	if err != nil {
		return res, err
	}
	log.Printf("%d reads, %d filtered, %d malformed", res.Reads, res.Filtered, res.Malformed)
	if n := len(res.FailedSources); n > 0 && n == len(sources) {
		return res, fmt.Errorf("no readable sources: %v", res.FailedSources[0].Err)
	}
	return res, nil
}
