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

// Package locus converts user-facing genomic position strings and variant
// records into canonical 0-based, half-open (interbase) intervals.
//
// Two text conventions are accepted:
//   chr5:3332 or chr5:3332-5555   1-based, inclusive on both ends
//   chr5/3331 or chr5/3331-5555   0-based, half-open
// Both are resolved at parse time; every Locus is interbase.
package locus

import (
	"fmt"
	"regexp"
	"strconv"
)

// Locus is a genomic interval in 0-based interbase coordinates.  Start == End
// denotes a zero-width locus, i.e. the point between reference bases Start-1
// and Start; it is used to look for insertions.
type Locus struct {
	Contig string
	Start  int
	End    int
}

// New returns a validated Locus.
func New(contig string, start, end int) (Locus, error) {
	if contig == "" {
		return Locus{}, &MalformedLocusError{Text: fmt.Sprintf("%s/%d-%d", contig, start, end), Reason: "empty contig"}
	}
	if start < 0 {
		return Locus{}, &MalformedLocusError{Text: fmt.Sprintf("%s/%d-%d", contig, start, end), Reason: "negative start"}
	}
	if end < start {
		return Locus{}, &MalformedLocusError{Text: fmt.Sprintf("%s/%d-%d", contig, start, end), Reason: "end before start"}
	}
	return Locus{Contig: contig, Start: start, End: end}, nil
}

// Width returns the number of reference bases covered by l.
func (l Locus) Width() int { return l.End - l.Start }

// InclusiveStart returns the 1-based position of the first base.
func (l Locus) InclusiveStart() int { return l.Start + 1 }

// InclusiveEnd returns the 1-based position of the last base.
func (l Locus) InclusiveEnd() int { return l.End }

// Overlaps checks whether the half-open reference interval [start, end) on
// contig shares at least one base with l.  A zero-width locus overlaps an
// interval that contains bases on both of its sides.
func (l Locus) Overlaps(contig string, start, end int) bool {
	if contig != l.Contig {
		return false
	}
	if l.Start == l.End {
		return start < l.Start && l.Start < end
	}
	return start < l.End && l.Start < end
}

// Less orders loci by (contig, start, end).
func (l Locus) Less(o Locus) bool {
	if l.Contig != o.Contig {
		return l.Contig < o.Contig
	}
	if l.Start != o.Start {
		return l.Start < o.Start
	}
	return l.End < o.End
}

// String renders l in the text syntax accepted by Parse.  Loci of width >= 1
// use the 1-based inclusive form; zero-width loci can only be expressed in
// the interbase form.
func (l Locus) String() string {
	switch l.Width() {
	case 0:
		return fmt.Sprintf("%s/%d-%d", l.Contig, l.Start, l.End)
	case 1:
		return fmt.Sprintf("%s:%d", l.Contig, l.InclusiveStart())
	}
	return fmt.Sprintf("%s:%d-%d", l.Contig, l.InclusiveStart(), l.InclusiveEnd())
}

// CoordSystem identifies the convention a locus string was written in.
type CoordSystem int

const (
	// Inclusive1Based is the "contig:start[-end]" form.
	Inclusive1Based CoordSystem = iota
	// HalfOpen0Based is the "contig/start[-end]" form.
	HalfOpen0Based
)

func (c CoordSystem) String() string {
	switch c {
	case Inclusive1Based:
		return "inclusive-1-based"
	case HalfOpen0Based:
		return "half-open-0-based"
	}
	return fmt.Sprintf("CoordSystem(%d)", int(c))
}

// Spec is a parsed, not yet normalized, locus string.
type Spec struct {
	Contig string
	System CoordSystem
	Start  int
	// End is meaningful only when HasEnd is set.
	End    int
	HasEnd bool
}

var specRE = regexp.MustCompile(`^([^\s:/]+)([:/])(\d+)(?:-(\d+))?$`)

// ParseSpec splits text into its components without converting coordinates.
func ParseSpec(text string) (Spec, error) {
	m := specRE.FindStringSubmatch(text)
	if m == nil {
		return Spec{}, &MalformedLocusError{Text: text, Reason: "expected chr5:3332, chr5:3332-5555, chr5/3331 or chr5/3331-5555"}
	}
	spec := Spec{Contig: m[1], System: Inclusive1Based}
	if m[2] == "/" {
		spec.System = HalfOpen0Based
	}
	var err error
	if spec.Start, err = strconv.Atoi(m[3]); err != nil {
		return Spec{}, &MalformedLocusError{Text: text, Reason: "bad start", Err: err}
	}
	if m[4] != "" {
		if spec.End, err = strconv.Atoi(m[4]); err != nil {
			return Spec{}, &MalformedLocusError{Text: text, Reason: "bad end", Err: err}
		}
		spec.HasEnd = true
	}
	return spec, nil
}

// Locus resolves s into interbase coordinates.
func (s Spec) Locus() (Locus, error) {
	var start, end int
	switch s.System {
	case Inclusive1Based:
		if s.Start < 1 {
			return Locus{}, &MalformedLocusError{Text: s.text(), Reason: "1-based start must be >= 1"}
		}
		start = s.Start - 1
		end = s.Start
		if s.HasEnd {
			end = s.End
		}
	case HalfOpen0Based:
		if s.Start < 0 {
			return Locus{}, &MalformedLocusError{Text: s.text(), Reason: "0-based start must be >= 0"}
		}
		start = s.Start
		end = s.Start + 1
		if s.HasEnd {
			end = s.End
		}
	default:
		return Locus{}, &MalformedLocusError{Text: s.text(), Reason: "unknown coordinate system " + s.System.String()}
	}
	if end < start {
		return Locus{}, &MalformedLocusError{Text: s.text(), Reason: "end before start"}
	}
	return Locus{Contig: s.Contig, Start: start, End: end}, nil
}

func (s Spec) text() string {
	sep := ":"
	if s.System == HalfOpen0Based {
		sep = "/"
	}
	if !s.HasEnd {
		return fmt.Sprintf("%s%s%d", s.Contig, sep, s.Start)
	}
	return fmt.Sprintf("%s%s%d-%d", s.Contig, sep, s.Start, s.End)
}

// Parse parses a locus string in either the colon (1-based inclusive) or the
// slash (0-based half-open) syntax.  Errors are *MalformedLocusError.
func Parse(text string) (Locus, error) {
	spec, err := ParseSpec(text)
	if err != nil {
		return Locus{}, err
	}
	return spec.Locus()
}

// MustParse is Parse, but panics on error.  Intended for tests and literals.
func MustParse(text string) Locus {
	l, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return l
}

// MalformedLocusError is returned when a locus string or coordinate pair
// cannot be interpreted.
type MalformedLocusError struct {
	Text   string
	Reason string
	Err    error
}

func (e *MalformedLocusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed locus %q: %s: %v", e.Text, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed locus %q: %s", e.Text, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *MalformedLocusError) Unwrap() error { return e.Err }
