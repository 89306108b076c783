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
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/varlens/encoding/fasta"
	"github.com/grailbio/varlens/variant"
	"v.io/x/lib/cmdline"
)

type variantsFlags struct {
	variants  *variantFlags
	reference *string
	width     *int
	out       *string
}

func newCmdVariants() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "variants",
		Short: "List the loaded variants, optionally with their reference context",
		Long: `
Writes one row per variant after normalization, filtering and deduplication.
With -reference, each row also gets the flanking reference bases, oriented so
that the first reference base of the variant is a pyrimidine, and whether the
reference agrees with the variant's REF allele.`,
	}
	flags := registerVariantsFlags(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("variants takes no arguments, but got %v", argv)
		}
		return listVariants(vcontext.Background(), flags)
	})
	return cmd
}

func registerVariantsFlags(fs *flag.FlagSet) variantsFlags {
	return variantsFlags{
		variants:  registerVariantFlags(fs),
		reference: fs.String("reference", "", "Reference FASTA. Its .fai index is used if present"),
		width:     fs.Int("context-width", 3, "Number of reference bases on either side of each variant, with -reference"),
		out:       fs.String("out", "", "Output TSV path"),
	}
}

func listVariants(ctx context.Context, flags variantsFlags) (err error) {
	if *flags.out == "" {
		return fmt.Errorf("-out not set")
	}
	if flags.variants.empty() {
		return fmt.Errorf("no variants given (see -variants, -single-variant)")
	}
	vs, err := flags.variants.load(ctx)
	if err != nil {
		return err
	}
	var ref *fasta.File
	if *flags.reference != "" {
		if ref, err = fasta.Open(ctx, *flags.reference); err != nil {
			return err
		}
		defer func() {
			if e := ref.Close(ctx); e != nil && err == nil {
				err = e
			}
		}()
	}
	out, err := file.Create(ctx, *flags.out)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	header := []string{"contig", "interbase_start", "interbase_end", "ref", "alt"}
	if ref != nil {
		header = append(header, "ref_matches", "context_5prime", "mutation", "context_3prime")
	}
	for _, col := range header {
		w.WriteString(col)
	}
	if err = w.EndLine(); err != nil {
		return err
	}
	mismatches := 0
	for _, v := range vs {
		w.WriteString(v.Contig)
		w.WriteUint32(uint32(v.Start))
		w.WriteUint32(uint32(v.End))
		w.WriteString(dash(v.Ref))
		w.WriteString(dash(v.Alt))
		if ref != nil {
			c, err := variant.Context(ref, v, *flags.width)
			if err != nil {
				return err
			}
			if !c.RefMatches {
				mismatches++
			}
			w.WriteString(fmt.Sprint(c.RefMatches))
			w.WriteString(c.FivePrime)
			w.WriteString(c.Mutation())
			w.WriteString(c.ThreePrime)
		}
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	if mismatches > 0 {
		log.Error.Printf("%d of %d variants disagree with the reference", mismatches, len(vs))
	}
	return w.Flush()
}

func dash(allele string) string {
	if allele == "" {
		return "-"
	}
	return allele
}
