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

package pileup

import (
	"fmt"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/varlens/locus"
)

// MalformedRecordError is returned when an alignment record's CIGAR cannot be
// walked against its sequence.
type MalformedRecordError struct {
	// Name is the read name.
	Name   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed alignment record %q: %s", e.Name, e.Reason)
}

func malformed(rec *sam.Record, format string, args ...interface{}) error {
	return &MalformedRecordError{Name: rec.Name, Reason: fmt.Sprintf(format, args...)}
}

// sameContig checks whether ref names the locus contig, up to chr-prefix
// spelling.
func sameContig(ref *sam.Reference, contig string) bool {
	return ref.Name() == contig || locus.NormalizeContig(ref.Name()) == locus.NormalizeContig(contig)
}

// Allele returns the read bases that rec contributes to l.
//
// The CIGAR is walked with a reference cursor and a query cursor:
//   - M, = and X emit the query bases aligned to [l.Start, l.End).
//   - I emits its bases when it sits at a reference position in
//     [l.Start, l.End), or, for a zero-width locus, exactly at l.Start.
//   - S emits its bases only for a zero-width locus, only when anchored at
//     l.Start, and only if nothing else has been emitted.
//   - D and N emit nothing; a locus that falls entirely in a deletion yields
//     the empty allele.
//   - H and P are ignored.
//
// ok is false if rec does not touch l: it is unmapped, on another contig, or
// its aligned span misses l.  A zero-width locus at p is touched when the
// alignment spans both p-1 and p, or when an insertion or clip is emitted at
// p.  A read that covers only part of a wider locus yields the partial
// allele; see Spans.
//
// err is a *MalformedRecordError when the CIGAR cannot be interpreted.
func Allele(rec *sam.Record, l locus.Locus) (allele string, ok bool, err error) {
	if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil || len(rec.Cigar) == 0 {
		return "", false, nil
	}
	if !sameContig(rec.Ref, l.Contig) {
		return "", false, nil
	}
	var (
		seq      = rec.Seq.Expand()
		zero     = l.Start == l.End
		refPos   = rec.Pos
		qPos     = 0
		buf      []byte
		captured bool
	)
	for _, co := range rec.Cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			lo, hi := refPos, refPos+n
			if lo < l.Start {
				lo = l.Start
			}
			if hi > l.End {
				hi = l.End
			}
			if lo < hi && qPos+n <= len(seq) {
				buf = append(buf, seq[qPos+lo-refPos:qPos+hi-refPos]...)
				captured = true
			}
			refPos += n
			qPos += n
		case sam.CigarInsertion:
			inside := l.Start <= refPos && refPos < l.End
			if zero {
				inside = refPos == l.Start
			}
			if inside && qPos+n <= len(seq) {
				buf = append(buf, seq[qPos:qPos+n]...)
				captured = true
			}
			qPos += n
		case sam.CigarSoftClipped:
			if zero && refPos == l.Start && !captured && qPos+n <= len(seq) {
				buf = append(buf, seq[qPos:qPos+n]...)
				captured = true
			}
			qPos += n
		case sam.CigarDeletion, sam.CigarSkipped:
			refPos += n
		case sam.CigarHardClipped, sam.CigarPadded:
		default:
			return "", false, malformed(rec, "unsupported CIGAR operation %v", co.Type())
		}
	}
	if qPos != len(seq) {
		return "", false, malformed(rec, "CIGAR %v consumes %d query bases, sequence has %d", rec.Cigar, qPos, len(seq))
	}
	if zero {
		ok = captured || (rec.Pos < l.Start && l.Start < refPos)
	} else {
		ok = rec.Pos < l.End && l.Start < refPos
	}
	if !ok {
		return "", false, nil
	}
	return string(buf), true, nil
}

// Spans checks whether rec's aligned reference span covers all of l.  For a
// zero-width locus at p, the span must include both p-1 and p.
func Spans(rec *sam.Record, l locus.Locus) bool {
	if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil || !sameContig(rec.Ref, l.Contig) {
		return false
	}
	end := rec.End()
	if l.Start == l.End {
		return rec.Pos < l.Start && l.Start < end
	}
	return rec.Pos <= l.Start && l.End <= end
}
