// Package fasta reads reference sequences from faidx-indexed FASTA files.
// See http://www.htslib.org/doc/faidx.html.  Briefly, FASTA files consist of a
// number of named sequences that may be interrupted by newlines.  For example:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// Sequence names are the characters after '>' up to the first space, so
// '>chr1 A viral sequence' becomes 'chr1'.
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/grailbio/varlens/locus"
	"github.com/pkg/errors"
)

// Fasta is a set of named reference sequences.
type Fasta interface {
	// Get returns the bases of seqName in the 0-based half-open interval
	// [start, end).  Get is thread-safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns the names of all sequences, in file order.
	SeqNames() []string
}

// indexEntry is one line of a .fai file.
type indexEntry struct {
	name string
	// length is the number of bases.
	length uint64
	// offset is the file offset of the first base.
	offset uint64
	// lineBases is the number of bases per full line, lineBytes the same
	// plus the line terminator.
	lineBases, lineBytes uint64
}

type indexed struct {
	mu      sync.Mutex
	r       io.ReadSeeker
	entries map[string]indexEntry
	names   []string
	buf     []byte
}

// parseIndex parses a .fai file.  Each line is "<sequence name>\t<length>\t<byte
// offset>\t<bases per line>\t<bytes per line>", e.g. "chr3\t12345\t9000\t80\t81".
func parseIndex(index io.Reader) ([]indexEntry, error) {
	var entries []indexEntry
	scanner := bufio.NewScanner(index)
	for lineno := 1; scanner.Scan(); lineno++ {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 5 {
			return nil, errors.Errorf("fasta index line %d: got %d fields, want 5", lineno, len(fields))
		}
		e := indexEntry{name: fields[0]}
		for i, dst := range []*uint64{&e.length, &e.offset, &e.lineBases, &e.lineBytes} {
			n, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "fasta index line %d", lineno)
			}
			*dst = n
		}
		if e.lineBases == 0 || e.lineBytes < e.lineBases {
			return nil, errors.Errorf("fasta index line %d: bad line geometry %d/%d", lineno, e.lineBases, e.lineBytes)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read fasta index")
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })
	return entries, nil
}

// NewIndexed returns a Fasta that seeks into fasta for every Get, using the
// given .fai index.  Only the index is held in memory.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexed{r: fasta, entries: make(map[string]indexEntry, len(entries))}
	for _, e := range entries {
		f.entries[e.name] = e
		f.names = append(f.names, e.name)
	}
	return f, nil
}

func (f *indexed) entry(seqName string) (indexEntry, error) {
	e, ok := f.entries[seqName]
	if !ok {
		return e, fmt.Errorf("sequence not found in index: %s", seqName)
	}
	return e, nil
}

// Len implements Fasta.Len().
func (f *indexed) Len(seqName string) (uint64, error) {
	e, err := f.entry(seqName)
	return e.length, err
}

// SeqNames implements Fasta.SeqNames().
func (f *indexed) SeqNames() []string { return f.names }

// byteOffset returns the file offset of base pos of e.
func (e indexEntry) byteOffset(pos uint64) uint64 {
	return e.offset + (pos/e.lineBases)*e.lineBytes + pos%e.lineBases
}

// Get implements Fasta.Get().
func (f *indexed) Get(seqName string, start, end uint64) (string, error) {
	if end <= start {
		return "", fmt.Errorf("start must be less than end")
	}
	e, err := f.entry(seqName)
	if err != nil {
		return "", err
	}
	if end > e.length {
		return "", fmt.Errorf("end is past end of sequence %s: %d", seqName, e.length)
	}
	first, last := e.byteOffset(start), e.byteOffset(end-1)

	f.mu.Lock()
	defer f.mu.Unlock()
	n := int(last - first + 1)
	if cap(f.buf) < n {
		f.buf = make([]byte, n)
	}
	f.buf = f.buf[:n]
	if _, err := f.r.Seek(int64(first), io.SeekStart); err != nil {
		return "", errors.Wrapf(err, "fasta: seek %s:%d", seqName, start)
	}
	if _, err := io.ReadFull(f.r, f.buf); err != nil {
		return "", errors.Wrapf(err, "fasta: read %s:%d-%d (bad index?)", seqName, start, end)
	}
	bases := make([]byte, 0, end-start)
	col := (first - e.offset) % e.lineBytes
	for _, b := range f.buf {
		if col < e.lineBases {
			bases = append(bases, b)
		}
		if col++; col == e.lineBytes {
			col = 0
		}
	}
	return string(bases), nil
}

// ResolveName maps a contig name to the spelling used in f: an exact match
// if there is one, otherwise the sequence whose normalized name matches.
func ResolveName(f Fasta, contig string) (string, bool) {
	names := f.SeqNames()
	for _, name := range names {
		if name == contig {
			return name, true
		}
	}
	want := locus.NormalizeContig(contig)
	for _, name := range names {
		if locus.NormalizeContig(name) == want {
			return name, true
		}
	}
	return "", false
}
