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
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/varlens/encoding/fasta"
)

// SeqContext is a variant together with its flanking reference bases.
type SeqContext struct {
	// FivePrime and ThreePrime are up to width bases on either side.
	FivePrime, ThreePrime string
	// Ref and Alt are the alleles, in the same orientation as the flanks.
	Ref, Alt string
	// Reversed is set if the context was reverse-complemented so that its
	// first reference base is a pyrimidine.
	Reversed bool
	// RefMatches reports whether the reference bases under the variant equal
	// its Ref allele.
	RefMatches bool
}

// Mutation returns e.g. "C>T".  Empty alleles print as "-".
func (c SeqContext) Mutation() string {
	ref, alt := c.Ref, c.Alt
	if ref == "" {
		ref = "-"
	}
	if alt == "" {
		alt = "-"
	}
	return ref + ">" + alt
}

// Context returns up to width reference bases on either side of v.  If the
// first reference base under v is a purine (A or G) the whole context is
// reverse-complemented, so that SNVs are always reported from the pyrimidine
// strand.  Indels are reversed by the same rule, which does not guarantee
// their first base is a pyrimidine.
func Context(ref fasta.Fasta, v Variant, width int) (SeqContext, error) {
	contig, ok := fasta.ResolveName(ref, v.Contig)
	if !ok {
		return SeqContext{}, errors.E(errors.NotExist, fmt.Sprintf("variant %v: contig not in reference", v))
	}
	n, err := ref.Len(contig)
	if err != nil {
		return SeqContext{}, err
	}
	if uint64(v.End) > n {
		return SeqContext{}, errors.E(errors.Invalid, fmt.Sprintf("variant %v: past end of %s (%d bases)", v, contig, n))
	}
	get := func(start, end int) (string, error) {
		if start < 0 {
			start = 0
		}
		if uint64(end) > n {
			end = int(n)
		}
		if start >= end {
			return "", nil
		}
		s, err := ref.Get(contig, uint64(start), uint64(end))
		return strings.ToUpper(s), err
	}
	c := SeqContext{Ref: v.Ref, Alt: v.Alt}
	var under string
	if c.FivePrime, err = get(v.Start-width, v.Start); err != nil {
		return SeqContext{}, err
	}
	if under, err = get(v.Start, v.End); err != nil {
		return SeqContext{}, err
	}
	if c.ThreePrime, err = get(v.End, v.End+width); err != nil {
		return SeqContext{}, err
	}
	c.RefMatches = under == v.Ref
	if under != "" && (under[0] == 'A' || under[0] == 'G') {
		c = SeqContext{
			FivePrime:  ReverseComplement(c.ThreePrime),
			ThreePrime: ReverseComplement(c.FivePrime),
			Ref:        ReverseComplement(c.Ref),
			Alt:        ReverseComplement(c.Alt),
			Reversed:   true,
			RefMatches: c.RefMatches,
		}
	}
	return c, nil
}

var complement = [256]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'R': 'Y', 'Y': 'R', 'K': 'M', 'M': 'K', 'S': 'S', 'W': 'W',
	'B': 'V', 'V': 'B', 'D': 'H', 'H': 'D',
}

// ReverseComplement returns the reverse complement of an upper-case IUPAC
// sequence.  Other bytes map to 'N'.
func ReverseComplement(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := complement[s[i]]
		if c == 0 {
			c = 'N'
		}
		b[len(s)-1-i] = c
	}
	return string(b)
}
