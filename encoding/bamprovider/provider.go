package bamprovider

import (
	"fmt"
	"strings"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/varlens/locus"
	"v.io/x/lib/vlog"
)

// ProviderOpts defines options for NewProvider.
type ProviderOpts struct {
	// Index specifies the name of the BAM index file. This field is meaningful
	// only for BAM files. If Index=="", it defaults to path + ".bai".
	Index string

	// Restrict, if nonempty, lets providers that must read the whole source
	// (SAM) drop records that cannot touch any of these loci.  Queries for
	// loci outside Restrict then return nothing.
	Restrict locus.Loci
}

// Provider answers locus queries against one alignment source. Thread safe.
type Provider interface {
	// GetHeader returns the header of the source.  The callee must not modify
	// the returned header object.
	//
	// REQUIRES: Close has not been called.
	GetHeader() (*sam.Header, error)

	// NewLocusIterator returns an iterator over the records whose alignment
	// may touch l, in coordinate order.  For a zero-width locus at p the
	// query covers the flanking bases [p-1, p+1).  Records are a superset of
	// the ones that actually contribute to l; the caller decides exactly.
	//
	// A contig that the source doesn't know yields an empty iterator.
	//
	// REQUIRES: Close has not been called.
	NewLocusIterator(l locus.Locus) Iterator

	// Close must be called exactly once. It returns any error encountered
	// by the provider, or any iterator created by the provider.
	//
	// REQUIRES: All the iterators created by NewLocusIterator have been closed.
	Close() error
}

// Iterator iterates over sam.Records in a particular genomic range, in
// coordinate order. Thread compatible.
type Iterator interface {
	// Scan returns where there are any records remaining in the iterator,
	// and if so, advances the iterator to the next record. If the iterator
	// reaches the end of its range, Scan() returns false.  If an error
	// occurs, Scan() returns false and the error can be retrieved by
	// calling Err().
	//
	// REQUIRES: Close has not been called.
	Scan() bool

	// Record returns the current record in the iterator. This must be
	// called only after a call to Scan() returns true.  The record is owned
	// by the iterator and is valid until the next call to Scan.
	//
	// REQUIRES: Close has not been called.
	Record() *sam.Record

	// Err returns the error encoutered during iteration, or nil if no error
	// occurred.  An io.EOF error will be translated to nil.
	Err() error

	// Close must be called exactly once. It returns the value of Err().
	Close() error
}

// FileType represents the type of an alignment file.
type FileType int

const (
	// Unknown is a sentinel.
	Unknown FileType = iota
	// BAM file, with an index.
	BAM
	// SAM file, plain text or gzipped.
	SAM
)

// String implements fmt.Stringer.
func (t FileType) String() string {
	switch t {
	case BAM:
		return "bam"
	case SAM:
		return "sam"
	}
	return "unknown"
}

// ParseFileType parses the file type string. "bam" returns bamprovider.BAM, for
// example. On error, it returns Unknown.
func ParseFileType(name string) FileType {
	switch name {
	case "bam":
		return BAM
	case "sam":
		return SAM
	default:
		return Unknown
	}
}

// GuessFileType returns the file type from the pathname. Returns Unknown if
// the suffix is not recognized.
func GuessFileType(path string) FileType {
	switch {
	case strings.HasSuffix(path, ".bam"):
		return BAM
	case strings.HasSuffix(path, ".sam"), strings.HasSuffix(path, ".sam.gz"):
		return SAM
	}
	vlog.VI(1).Infof("%v: could not detect file type.", path)
	return Unknown
}

func mergeOpts(optList []ProviderOpts) ProviderOpts {
	opts := ProviderOpts{}
	for _, o := range optList {
		if o.Index != "" {
			opts.Index = o.Index
		}
		opts.Restrict = opts.Restrict.Union(o.Restrict)
	}
	return opts
}

// NewProvider creates a Provider object that can handle the BAM or SAM file
// at "path". The file type is autodetected from the path; an unrecognized
// suffix is treated as BAM.
func NewProvider(path string, optList ...ProviderOpts) Provider {
	opts := mergeOpts(optList)
	switch GuessFileType(path) {
	case BAM, Unknown:
		return &BAMProvider{Path: path, Index: opts.Index}
	case SAM:
		return &SAMProvider{Path: path, Restrict: opts.Restrict}
	}
	panic("shouldn't reach here")
}

// UnreadableSourceError is reported when an alignment source (or its index)
// cannot be opened or decoded.
type UnreadableSourceError struct {
	Path string
	Err  error
}

func (e *UnreadableSourceError) Error() string {
	return fmt.Sprintf("unreadable alignment source %s: %v", e.Path, e.Err)
}

func (e *UnreadableSourceError) Unwrap() error { return e.Err }

func unreadable(path string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*UnreadableSourceError); ok {
		return err
	}
	return &UnreadableSourceError{Path: path, Err: err}
}
