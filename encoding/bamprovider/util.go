package bamprovider

import (
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/varlens/locus"
)

// RefByName finds a sam.Reference with the given name.  If no reference has
// exactly that name, references are compared after locus.NormalizeContig, so
// "chr1" finds "1" and vice versa.  It returns nil if a reference is not
// found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	norm := locus.NormalizeContig(refName)
	for _, ref := range h.Refs() {
		if locus.NormalizeContig(ref.Name()) == norm {
			return ref
		}
	}
	return nil
}

// queryRange returns the reference range a provider must search to find every
// record that may touch l.
func queryRange(l locus.Locus) (start, end int) {
	start, end = l.Start, l.End
	if start == end {
		start, end = start-1, end+1
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

// recordEnd returns the exclusive reference end of rec.  A record that
// consumes no reference bases is treated as covering one base so that it
// still sorts and overlaps like a point.
func recordEnd(rec *sam.Record) int {
	end := rec.End()
	if end <= rec.Pos {
		end = rec.Pos + 1
	}
	return end
}

// mayTouch checks whether rec lies on ref and overlaps [start, end).
func mayTouch(rec *sam.Record, ref *sam.Reference, start, end int) bool {
	if rec.Ref == nil || rec.Ref.Name() != ref.Name() {
		return false
	}
	return rec.Pos < end && recordEnd(rec) > start
}
