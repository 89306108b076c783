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
package locus

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Spanner is implemented by variant records.  It returns the record's
// reference span in interbase coordinates.
type Spanner interface {
	Span() (contig string, start, end int)
}

// FromVariant returns the locus covering v's reference span.  The span is
// used as is; no coordinate conversion happens here.
func FromVariant(v Spanner) (Locus, error) {
	contig, start, end := v.Span()
	return New(contig, start, end)
}

// NormalizeContig maps common spellings of a contig name to one canonical
// form: "chr" prefixes are dropped, X/Y are upper-cased and the mitochondrial
// contig becomes "MT".  It is only meant for matching names across files;
// loci keep the spelling they were given.
func NormalizeContig(name string) string {
	if len(name) > 3 && strings.EqualFold(name[:3], "chr") {
		name = name[3:]
	}
	switch strings.ToUpper(name) {
	case "X", "Y":
		return strings.ToUpper(name)
	case "M", "MT":
		return "MT"
	}
	return name
}

// Loci is an ordered set of loci.  Iteration order is (contig, start, end),
// which makes every downstream pass deterministic.  The zero value is an
// empty set.
type Loci struct {
	loci []Locus
}

// NewLoci returns the set of distinct loci in ls.  Overlapping loci are not
// merged: each one is its own unit of aggregation.
func NewLoci(ls ...Locus) Loci {
	sorted := append([]Locus(nil), ls...)
	slices.SortFunc(sorted, compare)
	return Loci{loci: slices.Compact(sorted)}
}

func compare(a, b Locus) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// Len returns the number of distinct loci.
func (s Loci) Len() int { return len(s.loci) }

// Slice returns the loci in order.  The caller must not modify the result.
func (s Loci) Slice() []Locus { return s.loci }

// Union returns the set containing loci from both s and o.
func (s Loci) Union(o Loci) Loci {
	return NewLoci(append(append([]Locus(nil), s.loci...), o.loci...)...)
}

// Contains checks whether l is one of the members of s.
func (s Loci) Contains(l Locus) bool {
	_, found := slices.BinarySearchFunc(s.loci, l, compare)
	return found
}

// Intersects checks whether any member of s overlaps l.  Zero-width members
// and queries are treated as touching the two bases around them.
func (s Loci) Intersects(l Locus) bool {
	for _, m := range s.loci {
		if m.Contig != l.Contig {
			continue
		}
		if m.Start == m.End || l.Start == l.End {
			if m.Start <= l.End && l.Start <= m.End {
				return true
			}
			continue
		}
		if m.Start < l.End && l.Start < m.End {
			return true
		}
	}
	return false
}

// Contigs returns the distinct contig names in s, in order.
func (s Loci) Contigs() []string {
	var contigs []string
	for _, l := range s.loci {
		if len(contigs) == 0 || contigs[len(contigs)-1] != l.Contig {
			contigs = append(contigs, l.Contig)
		}
	}
	return contigs
}

// ExpandNeighbors adds, for every locus in s and every offset, a copy of the
// locus shifted by offset bases.  Shifts that would move a locus before
// position 0 are dropped.  The original loci are always kept.
func ExpandNeighbors(s Loci, offsets []int) Loci {
	out := make([]Locus, 0, s.Len()*(len(offsets)+1))
	for _, l := range s.loci {
		out = append(out, l)
		for _, off := range offsets {
			if off == 0 || l.Start+off < 0 {
				continue
			}
			out = append(out, Locus{Contig: l.Contig, Start: l.Start + off, End: l.End + off})
		}
	}
	return NewLoci(out...)
}
