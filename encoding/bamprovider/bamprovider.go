package bamprovider

import (
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/varlens/locus"
	"v.io/x/lib/vlog"
)

// BAMProvider implements Provider for BAM files.  Both BAM and the index
// filenames are allowed to be S3 URLs, in which case the data will be read from
// S3. Otherwise the data will be read from the local filesystem.
type BAMProvider struct {
	// Path of the *.bam file. Must be nonempty.
	Path string
	// Index is the pathname of *.bam.bai file. If "", Path + ".bai"
	Index string
	err   errors.Once

	mu        sync.Mutex
	nActive   int
	freeIters []*bamIterator
	header    *sam.Header
}

type bamIterator struct {
	provider *BAMProvider
	in       file.File
	reader   *bam.Reader
	index    *bam.Index

	// Reference and half-open position range to read.
	ref        *sam.Reference
	start, end int

	active bool
	err    error
	next   *sam.Record
}

func (b *BAMProvider) indexPath() string {
	index := b.Index
	if index == "" {
		index = b.Path + ".bai"
	}
	return index
}

// GetHeader implements the Provider interface.
func (b *BAMProvider) GetHeader() (*sam.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.header != nil {
		return b.header, nil
	}

	ctx := vcontext.Background()
	reader, err := file.Open(ctx, b.Path)
	if err != nil {
		err = unreadable(b.Path, err)
		b.err.Set(err)
		return nil, err
	}
	defer reader.Close(ctx) // nolint: errcheck
	bamReader, err := bam.NewReader(reader.Reader(ctx), 1)
	if err != nil {
		err = unreadable(b.Path, err)
		b.err.Set(err)
		return nil, err
	}
	defer bamReader.Close() // nolint: errcheck
	b.header = bamReader.Header()
	return b.header, nil
}

// Close implements the Provider interface.
func (b *BAMProvider) Close() error {
	if b.nActive > 0 {
		vlog.Fatalf("%d iterators still active for %+v", b.nActive, b)
	}
	for _, iter := range b.freeIters {
		iter.internalClose()
	}
	b.freeIters = nil
	return b.err.Err()
}

func (b *BAMProvider) freeIterator(i *bamIterator) {
	if !i.active {
		vlog.Fatal(i)
	}
	i.active = false
	if i.Err() != nil {
		// The iter may be invalid. Don't reuse it.
		i.internalClose() // Will set b.err
		i = nil
	}
	b.mu.Lock()
	if i != nil {
		b.freeIters = append(b.freeIters, i)
	}
	b.nActive--
	if b.nActive < 0 {
		vlog.Fatalf("Negative active count for %+v", b)
	}
	b.mu.Unlock()
}

// Return an unused iterator. If b.freeIters is nonempty, this function returns
// one from freeIters. Else, it opens the BAM file, reads the index, creates a
// BAM reader and returns an iterator containing them. On error, returns an
// iterator with non-nil err field.
func (b *BAMProvider) allocateIterator() *bamIterator {
	b.mu.Lock()
	b.nActive++
	if len(b.freeIters) > 0 {
		iter := b.freeIters[len(b.freeIters)-1]
		iter.active = true
		iter.err = nil
		iter.next = nil
		b.freeIters = b.freeIters[:len(b.freeIters)-1]
		b.mu.Unlock()
		return iter
	}
	b.mu.Unlock()

	iter := bamIterator{
		provider: b,
		active:   true,
	}
	ctx := vcontext.Background()
	if iter.in, iter.err = file.Open(ctx, b.Path); iter.err != nil {
		iter.err = unreadable(b.Path, iter.err)
		return &iter
	}

	var indexIn file.File
	if indexIn, iter.err = file.Open(ctx, b.indexPath()); iter.err != nil {
		iter.err = unreadable(b.indexPath(), iter.err)
		return &iter
	}
	defer indexIn.Close(ctx) // nolint: errcheck
	if iter.index, iter.err = bam.ReadIndex(indexIn.Reader(ctx)); iter.err != nil {
		iter.err = unreadable(b.indexPath(), iter.err)
		return &iter
	}
	if iter.reader, iter.err = bam.NewReader(iter.in.Reader(ctx), 1); iter.err != nil {
		iter.err = unreadable(b.Path, iter.err)
		return &iter
	}
	return &iter
}

// NewLocusIterator implements the Provider interface.
func (b *BAMProvider) NewLocusIterator(l locus.Locus) Iterator {
	header, err := b.GetHeader()
	if err != nil {
		return NewErrorIterator(err)
	}
	ref := RefByName(header, l.Contig)
	if ref == nil {
		log.Printf("%s: contig %q not found; no reads for %v", b.Path, l.Contig, l)
		return NewErrorIterator(nil)
	}
	iter := b.allocateIterator()
	if iter.err != nil {
		return iter
	}
	start, end := queryRange(l)
	iter.reset(ref, start, end)
	return iter
}

// Reset the iterator to read records on ref that overlap [start, end).
func (i *bamIterator) reset(ref *sam.Reference, start, end int) {
	i.ref, i.start, i.end = ref, start, end
	if end > ref.Len() {
		end = ref.Len()
	}
	if start >= end {
		i.err = io.EOF
		return
	}
	// Read the index and find the file offset of the first record that may
	// overlap the range.
	offset, found, err := i.findRecordOffset(ref, start, end)
	if err != nil {
		i.err = unreadable(i.provider.indexPath(), err)
		return
	}
	if !found {
		i.err = io.EOF
		return
	}
	vlog.VI(2).Infof("%s: seek %v for %s:%d-%d", i.provider.Path, offset, ref.Name(), start, end)
	i.err = i.reader.Seek(offset)
}

// Find the the file offset at which the first record overlapping
// <ref,[startPos,endPos)> is stored. This function is conservative; it may
// return an offset that's smaller than absolutely necessary.
func (i *bamIterator) findRecordOffset(ref *sam.Reference, startPos, endPos int) (bgzf.Offset, bool, error) {
	chunks, err := i.index.Chunks(ref, startPos, endPos)
	if err == index.ErrInvalid || (err == nil && len(chunks) == 0) {
		// No reads for this interval: return an empty iterator.
		return bgzf.Offset{}, false, nil
	}
	if err != nil {
		return bgzf.Offset{}, false, err
	}
	return chunks[0].Begin, true, nil
}

// Err implements the Iterator interface.
func (i *bamIterator) Err() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Close implements the Iterator interface.
func (i *bamIterator) Close() error {
	err := i.Err()
	i.provider.freeIterator(i)
	return err
}

// Scan implements the Iterator interface.
func (i *bamIterator) Scan() bool {
	if !i.active {
		vlog.Fatal("Reusing iterator")
	}
	if i.err != nil {
		return false
	}
	for {
		i.next, i.err = i.reader.Read()
		if i.err != nil {
			return false
		}
		if i.next.Ref == nil || i.next.Ref.ID() != i.ref.ID() || i.next.Pos >= i.end {
			// Coordinate-sorted input; nothing further can overlap.
			i.err = io.EOF
			return false
		}
		if recordEnd(i.next) > i.start {
			return true
		}
	}
}

// Record implements the Iterator interface.
func (i *bamIterator) Record() *sam.Record {
	return i.next
}

func (i *bamIterator) internalClose() {
	if i.reader != nil {
		if err := i.reader.Close(); err != nil && i.err == nil {
			i.err = err
		}
		i.reader = nil
	}
	if i.in != nil {
		if err := i.in.Close(vcontext.Background()); err != nil && i.err == nil {
			i.err = err
		}
		i.in = nil
	}
	i.provider.err.Set(i.Err())
}
