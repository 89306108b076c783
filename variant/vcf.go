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

package variant

import (
	"context"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/varlens/predicate"
	"github.com/pkg/errors"
	"github.com/vertgenlab/gonomics/vcf"
)

// LoadOpts controls LoadVCF.
type LoadOpts struct {
	// IncludeFailing keeps records whose FILTER is neither PASS nor missing.
	IncludeFailing bool
	// MaxVariants, if positive, stops loading after that many variants.
	MaxVariants int
	// Filter, if non-nil, drops variants for which it returns false.  It is
	// applied before MaxVariants.
	Filter predicate.Func[Variant]
}

// DefaultLoadOpts keeps passing variants only.
var DefaultLoadOpts = LoadOpts{}

// LoadVCF reads the variants in a (possibly gzipped) VCF file.  Multi-allelic
// records yield one Variant per ALT allele.  Symbolic and breakend ALTs
// ("<DEL>", "*", "N[chr2:123[") are skipped.
func LoadVCF(ctx context.Context, path string, opts LoadOpts) (variants []Variant, err error) {
	// The VCF parser panics on I/O and format errors; stat first so that the
	// common failure is an ordinary error.
	if _, err := file.Stat(ctx, path); err != nil {
		return nil, errors.Wrapf(err, "variant.LoadVCF %s", path)
	}
	defer func() {
		if r := recover(); r != nil {
			variants = nil
			err = errors.Errorf("variant.LoadVCF %s: %v", path, r)
		}
	}()
	records, _ := vcf.GoReadToChan(path)
	defer func() {
		// Let the reader goroutine run to completion so it closes the file.
		go func() {
			for range records {
			}
		}()
	}()
	var nRecords, nFailing, nSkipped int
	for rec := range records {
		nRecords++
		if !opts.IncludeFailing && !passing(rec.Filter) {
			nFailing++
			continue
		}
		for _, alt := range rec.Alt {
			if symbolic(alt) {
				nSkipped++
				continue
			}
			v, err := New(rec.Chr, rec.Pos, rec.Ref, alt)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: record %d", path, nRecords)
			}
			if opts.Filter != nil && !opts.Filter(v) {
				continue
			}
			variants = append(variants, v)
			if opts.MaxVariants > 0 && len(variants) >= opts.MaxVariants {
				log.Printf("%s: stopped after %d variants", path, len(variants))
				return variants, nil
			}
		}
	}
	log.Printf("%s: %d records, %d variants, %d failing filters, %d symbolic alleles skipped",
		path, nRecords, len(variants), nFailing, nSkipped)
	return variants, nil
}

func passing(filter string) bool {
	return filter == "PASS" || filter == "." || filter == ""
}

func symbolic(alt string) bool {
	return alt == "*" || alt == "." || strings.ContainsAny(alt, "<>[]")
}

// Dedup removes repeated variants, keeping the first occurrence of each.
func Dedup(vs []Variant) []Variant {
	seen := make(map[Variant]struct{}, len(vs))
	out := vs[:0:0]
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

