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

package support

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/varlens/locus"
	"github.com/grailbio/varlens/variant"
)

// VariantSupportRow summarizes the reads of one source at one variant, for
// one count column.
type VariantSupportRow struct {
	Variant variant.Variant
	Source  string
	// Label is the count column: "count" or a count-group label.
	Label string

	NumAlt, NumRef, NumOther, TotalDepth int
	// AltFraction is NumAlt / max(1, TotalDepth).
	AltFraction float64
	// AnyAltFraction is (NumAlt + NumOther) / max(1, TotalDepth).
	AnyAltFraction float64
}

type groupKey struct {
	source string
	locus  locus.Locus
}

// VariantLoci returns the loci at which support must be computed for vs.
func VariantLoci(vs []variant.Variant) locus.Loci {
	ls := make([]locus.Locus, len(vs))
	for i, v := range vs {
		ls[i] = v.Locus()
	}
	return locus.NewLoci(ls...)
}

// VariantSupport reduces res to per-variant ref/alt/other counts.  Rows are
// ordered by variant, then source (in res.Sources order, failed sources
// excluded), then count column.
//
// If res has no groups for some (source, variant locus), VariantSupport
// fails unless ignoreMissing is set, in which case the variant is reported
// with zero depth.
func VariantSupport(vs []variant.Variant, res Result, ignoreMissing bool) ([]VariantSupportRow, error) {
	byKey := make(map[groupKey][]Group)
	for _, g := range res.Groups {
		k := groupKey{g.Source, g.Locus}
		byKey[k] = append(byKey[k], g)
	}
	failed := make(map[string]bool)
	for _, f := range res.FailedSources {
		failed[f.Source] = true
	}
	var rows []VariantSupportRow
	for _, v := range vs {
		for _, src := range res.Sources {
			if failed[src] {
				continue
			}
			groups, ok := byKey[groupKey{src, v.Locus()}]
			if !ok {
				msg := fmt.Sprintf("no allele counts in source %s for variant %v", src, v)
				if !ignoreMissing {
					return nil, errors.E(errors.NotExist, msg)
				}
				log.Error.Printf("support: %s", msg)
			}
			for li, label := range res.Labels {
				row := VariantSupportRow{Variant: v, Source: src, Label: label}
				for _, g := range groups {
					n := g.Count
					if li > 0 {
						n = g.Sub[li-1]
					}
					switch g.Allele {
					case v.Alt:
						row.NumAlt += n
					case v.Ref:
						row.NumRef += n
					}
					row.TotalDepth += n
				}
				row.NumOther = row.TotalDepth - row.NumAlt - row.NumRef
				denom := row.TotalDepth
				if denom < 1 {
					denom = 1
				}
				row.AltFraction = float64(row.NumAlt) / float64(denom)
				row.AnyAltFraction = float64(row.NumAlt+row.NumOther) / float64(denom)
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}
