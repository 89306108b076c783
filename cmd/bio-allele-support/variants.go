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
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/varlens/variant"
)

type variantFlags struct {
	vcfs           listFlag
	single         listFlag
	filter         *string
	includeFailing *bool
	maxVariants    *int
}

func registerVariantFlags(fs *flag.FlagSet) *variantFlags {
	f := &variantFlags{vcfs: listFlag{split: true}}
	fs.Var(&f.vcfs, "variants", "Comma-separated list of VCF files (optionally gzipped). May be repeated.")
	fs.Var(&f.single, "single-variant", `A variant given as LOCUS:REF:ALT, e.g. "chr1:1000:A:T" or "chr1/999:A:-".
May be repeated.`)
	f.filter = fs.String("variant-filter", "", `Only keep variants satisfying this expression, e.g. "snv && contig=chr1".
Known names: `+strings.Join(variant.Predicates().Names(), ", "))
	f.includeFailing = fs.Bool("include-failing-variants", false, "Keep VCF records whose FILTER is neither PASS nor missing")
	f.maxVariants = fs.Int("max-variants-per-source", 0, "If positive, load at most this many variants from each VCF")
	return f
}

func (f *variantFlags) empty() bool {
	return len(f.vcfs.values) == 0 && len(f.single.values) == 0
}

// load returns the deduplicated variants of every -variants file and
// -single-variant value, in input order.
func (f *variantFlags) load(ctx context.Context) ([]variant.Variant, error) {
	filter, err := variant.Predicates().Parse(*f.filter)
	if err != nil {
		return nil, err
	}
	opts := variant.LoadOpts{
		IncludeFailing: *f.includeFailing,
		MaxVariants:    *f.maxVariants,
		Filter:         filter,
	}
	var vs []variant.Variant
	for _, path := range f.vcfs.values {
		loaded, err := variant.LoadVCF(ctx, path, opts)
		if err != nil {
			return nil, err
		}
		vs = append(vs, loaded...)
	}
	for _, text := range f.single.values {
		v, err := parseSingleVariant(text)
		if err != nil {
			return nil, err
		}
		if !filter(v) {
			log.Printf("variant %v rejected by -variant-filter", v)
			continue
		}
		vs = append(vs, v)
	}
	vs = variant.Dedup(vs)
	log.Printf("loaded %d variants", len(vs))
	return vs, nil
}

// parseSingleVariant parses LOCUS:REF:ALT.  The locus itself may contain a
// colon, so the text is split at its last two colons.
func parseSingleVariant(text string) (variant.Variant, error) {
	i := strings.LastIndexByte(text, ':')
	if i < 0 {
		return variant.Variant{}, fmt.Errorf("-single-variant %q: want LOCUS:REF:ALT", text)
	}
	j := strings.LastIndexByte(text[:i], ':')
	if j < 0 {
		return variant.Variant{}, fmt.Errorf("-single-variant %q: want LOCUS:REF:ALT", text)
	}
	return variant.Literal(text[:j], text[j+1:i], text[i+1:])
}
