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

// Package variant represents small variants (SNVs, indels, MNVs) in interbase
// coordinates, loads them from VCF files, and filters them with named
// predicates.
package variant

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/varlens/locus"
)

// Variant is a single ref>alt change.  Ref and Alt are minimal: bases shared
// by both at either end have been trimmed, so an insertion has Ref == "" and
// Start == End (the interbase position after the anchor base), and a deletion
// has Alt == "".
type Variant struct {
	Contig     string
	Start, End int
	Ref, Alt   string
}

// New creates a Variant from a 1-based position and the ref and alt alleles
// as they appear in a VCF record.  "-" or "." stands for an empty allele.
func New(contig string, pos int, ref, alt string) (Variant, error) {
	ref, alt = emptyAllele(ref), emptyAllele(alt)
	if contig == "" {
		return Variant{}, errors.E(errors.Invalid, "variant: empty contig")
	}
	if pos < 1 {
		return Variant{}, errors.E(errors.Invalid, fmt.Sprintf("variant %s:%d: position must be positive", contig, pos))
	}
	for _, allele := range []string{ref, alt} {
		if !isBases(allele) {
			return Variant{}, errors.E(errors.Invalid, fmt.Sprintf("variant %s:%d: bad allele %q", contig, pos, allele))
		}
	}
	if ref == alt {
		return Variant{}, errors.E(errors.Invalid, fmt.Sprintf("variant %s:%d: ref and alt are both %q", contig, pos, ref))
	}
	n := 0
	for n < len(ref) && n < len(alt) && ref[n] == alt[n] {
		n++
	}
	ref, alt = ref[n:], alt[n:]
	m := 0
	for m < len(ref) && m < len(alt) && ref[len(ref)-1-m] == alt[len(alt)-1-m] {
		m++
	}
	ref, alt = ref[:len(ref)-m], alt[:len(alt)-m]
	start := pos - 1 + n
	return Variant{Contig: contig, Start: start, End: start + len(ref), Ref: ref, Alt: alt}, nil
}

// Literal parses a variant given as locus text plus ref and alt.  The locus
// start is where ref begins; its end is ignored.
func Literal(text, ref, alt string) (Variant, error) {
	l, err := locus.Parse(text)
	if err != nil {
		return Variant{}, err
	}
	return New(l.Contig, l.Start+1, ref, alt)
}

func emptyAllele(s string) string {
	if s == "-" || s == "." {
		return ""
	}
	return strings.ToUpper(s)
}

// isBases accepts IUPAC nucleotide codes.
func isBases(s string) bool {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte("ACGTNRYKMSWBDHV", s[i]) < 0 {
			return false
		}
	}
	return true
}

// Span implements locus.Spanner.
func (v Variant) Span() (contig string, start, end int) {
	return v.Contig, v.Start, v.End
}

// Locus returns the reference interval the variant replaces.
func (v Variant) Locus() locus.Locus {
	return locus.Locus{Contig: v.Contig, Start: v.Start, End: v.End}
}

// IsSNV checks whether v replaces exactly one base with one base.
func (v Variant) IsSNV() bool { return len(v.Ref) == 1 && len(v.Alt) == 1 }

// IsInsertion checks whether v only adds bases.
func (v Variant) IsInsertion() bool { return v.Ref == "" }

// IsDeletion checks whether v only removes bases.
func (v Variant) IsDeletion() bool { return v.Alt == "" }

// IsIndel checks whether v changes the sequence length.
func (v Variant) IsIndel() bool { return len(v.Ref) != len(v.Alt) }

// String returns e.g. "chr1/99-100 A>T".  Empty alleles print as "-".
func (v Variant) String() string {
	ref, alt := v.Ref, v.Alt
	if ref == "" {
		ref = "-"
	}
	if alt == "" {
		alt = "-"
	}
	return fmt.Sprintf("%s/%d-%d %s>%s", v.Contig, v.Start, v.End, ref, alt)
}

// Less orders variants by position, then alleles.
func (v Variant) Less(o Variant) bool {
	if v.Locus() != o.Locus() {
		return v.Locus().Less(o.Locus())
	}
	if v.Ref != o.Ref {
		return v.Ref < o.Ref
	}
	return v.Alt < o.Alt
}
