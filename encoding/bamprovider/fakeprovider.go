package bamprovider

import (
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/varlens/locus"
)

// fakeProvider is only for unittests. It yields the given records.
type fakeProvider struct {
	header *sam.Header
	recs   []*sam.Record
}

type fakeIterator struct {
	recs       []*sam.Record
	rec        *sam.Record
	ref        *sam.Reference
	start, end int
}

// NewFakeProvider creates a provider that returns "header" in response to a
// GetHeader() call, and those of recs that touch the queried locus from
// NewLocusIterator.  Recs must be in coordinate order.
func NewFakeProvider(header *sam.Header, recs []*sam.Record) Provider {
	return &fakeProvider{header, recs}
}

// GetHeader implements the Provider interface. It returns the header passed to
// the constructor.
func (b *fakeProvider) GetHeader() (*sam.Header, error) {
	return b.header, nil
}

// Close implements the Provider interface.
func (b *fakeProvider) Close() error {
	return nil
}

// NewLocusIterator implements the Provider interface.
func (b *fakeProvider) NewLocusIterator(l locus.Locus) Iterator {
	ref := RefByName(b.header, l.Contig)
	if ref == nil {
		return NewErrorIterator(nil)
	}
	start, end := queryRange(l)
	return &fakeIterator{recs: b.recs, ref: ref, start: start, end: end}
}

// Err implements the Iterator interface.
func (i *fakeIterator) Err() error {
	return nil
}

// Close implements the Iterator interface.
func (i *fakeIterator) Close() error {
	return nil
}

func (i *fakeIterator) Scan() bool {
	for len(i.recs) > 0 {
		i.rec = i.recs[0]
		i.recs = i.recs[1:]
		if mayTouch(i.rec, i.ref, i.start, i.end) {
			return true
		}
	}
	return false
}

func (i *fakeIterator) Record() *sam.Record {
	// Return a copy so that the code under test cannot alter the
	// original test input data.
	copy := sam.GetFromFreePool()
	*copy = *i.rec
	return copy
}
