package bamprovider

import (
	"io"
	"sync"

	"github.com/biogo/store/interval"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	vinterval "github.com/grailbio/varlens/interval"
	"github.com/grailbio/varlens/locus"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/exp/slices"
	"v.io/x/lib/vlog"
)

// SAMProvider implements Provider for SAM files, plain or gzipped.  SAM has no
// index, so the first query reads the whole file and keeps every mapped
// record (or, with Restrict, every record that may touch a restricted locus)
// in a per-reference interval tree.
type SAMProvider struct {
	// Path of the *.sam or *.sam.gz file. Must be nonempty.
	Path string
	// Restrict optionally limits which records are retained.
	Restrict locus.Loci

	once      sync.Once
	err       error
	header    *sam.Header
	trees     map[string]*interval.IntTree
	malformed int64
}

// Malformed returns the number of SAM lines that could not be parsed and were
// skipped.  It is zero until the file has been loaded.
func (p *SAMProvider) Malformed() int64 {
	if p.load() != nil {
		return 0
	}
	return p.malformed
}

// streamReader remembers the first non-EOF error returned by r, so that
// stream failures can be told apart from unparseable lines.
type streamReader struct {
	r   io.Reader
	err error
}

func (s *streamReader) Read(b []byte) (int, error) {
	n, err := s.r.Read(b)
	if err != nil && err != io.EOF && s.err == nil {
		s.err = err
	}
	return n, err
}

// samRecord adapts a record for storage in an interval.IntTree.
type samRecord struct {
	rec        *sam.Record
	start, end int
	// Ordinal position in the file; breaks ties between equal starts.
	id uintptr
}

func (r samRecord) Overlap(b interval.IntRange) bool {
	return r.end > b.Start && r.start < b.End
}
func (r samRecord) ID() uintptr { return r.id }
func (r samRecord) Range() interval.IntRange {
	return interval.IntRange{Start: r.start, End: r.end}
}

// samQuery is an interval.IntOverlapper for [start, end).
type samQuery struct{ start, end int }

func (q samQuery) Overlap(b interval.IntRange) bool {
	return b.End > q.start && b.Start < q.end
}

func (p *SAMProvider) load() error {
	p.once.Do(func() {
		p.err = unreadable(p.Path, p.doLoad())
	})
	return p.err
}

func (p *SAMProvider) doLoad() (err error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, p.Path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if fileio.DetermineType(p.Path) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return err
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	sr := &streamReader{r: r}
	reader, err := sam.NewReader(sr)
	if err != nil {
		return err
	}
	p.header = reader.Header()

	var union vinterval.Union
	restricted := p.Restrict.Len() > 0
	if restricted {
		// One base of padding covers the flanks of zero-width loci.
		union = vinterval.NewUnion(p.Restrict, 1)
	}
	p.trees = make(map[string]*interval.IntTree)
	var nRead, nKept int
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if sr.err != nil {
				return sr.err
			}
			p.malformed++
			log.Error.Printf("%s: skipping malformed record: %v", p.Path, err)
			continue
		}
		nRead++
		if rec.Ref == nil || rec.Pos < 0 {
			continue
		}
		end := recordEnd(rec)
		if restricted && !union.IntersectsByName(rec.Ref.Name(), rec.Pos, end) {
			continue
		}
		tree := p.trees[rec.Ref.Name()]
		if tree == nil {
			tree = &interval.IntTree{}
			p.trees[rec.Ref.Name()] = tree
		}
		if err := tree.Insert(samRecord{rec: rec, start: rec.Pos, end: end, id: uintptr(nRead)}, true); err != nil {
			return err
		}
		nKept++
	}
	for _, tree := range p.trees {
		tree.AdjustRanges()
	}
	log.Debug.Printf("%s: read %d records, kept %d, skipped %d malformed", p.Path, nRead, nKept, p.malformed)
	return nil
}

// GetHeader implements the Provider interface.
func (p *SAMProvider) GetHeader() (*sam.Header, error) {
	if err := p.load(); err != nil {
		return nil, err
	}
	return p.header, nil
}

// NewLocusIterator implements the Provider interface.
func (p *SAMProvider) NewLocusIterator(l locus.Locus) Iterator {
	if err := p.load(); err != nil {
		return NewErrorIterator(err)
	}
	ref := RefByName(p.header, l.Contig)
	if ref == nil {
		log.Printf("%s: contig %q not found; no reads for %v", p.Path, l.Contig, l)
		return NewErrorIterator(nil)
	}
	tree := p.trees[ref.Name()]
	if tree == nil {
		return NewErrorIterator(nil)
	}
	start, end := queryRange(l)
	hits := tree.Get(samQuery{start, end})
	recs := make([]samRecord, len(hits))
	for i, h := range hits {
		recs[i] = h.(samRecord)
	}
	slices.SortFunc(recs, func(a, b samRecord) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return int(a.id) - int(b.id)
	})
	vlog.VI(2).Infof("%s: %d records for %v", p.Path, len(recs), l)
	return &sliceIterator{recs: recs}
}

// Close implements the Provider interface.
func (p *SAMProvider) Close() error {
	p.trees = nil
	return p.err
}

type sliceIterator struct {
	recs []samRecord
	rec  *sam.Record
}

func (i *sliceIterator) Scan() bool {
	if len(i.recs) == 0 {
		return false
	}
	i.rec = i.recs[0].rec
	i.recs = i.recs[1:]
	return true
}

func (i *sliceIterator) Record() *sam.Record { return i.rec }
func (i *sliceIterator) Err() error          { return nil }
func (i *sliceIterator) Close() error        { return nil }
