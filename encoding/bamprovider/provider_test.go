package bamprovider_test

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/varlens/encoding/bamprovider"
	"github.com/grailbio/varlens/locus"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const testSAM = `@HD	VN:1.5	SO:coordinate
@SQ	SN:chr1	LN:1000
@SQ	SN:chr2	LN:1000
r1	0	chr1	10	60	10M	*	0	0	ACGTACGTAC	**********
r2	16	chr1	15	60	5M	*	0	0	ACGTA	*****
r3	0	chr1	100	60	5M	*	0	0	TTTTT	*****
r4	4	*	0	0	*	*	0	0	ACGT	****
r5	0	chr2	1	60	3M	*	0	0	GGG	***
`

func names(t *testing.T, iter bamprovider.Iterator) []string {
	var got []string
	for iter.Scan() {
		got = append(got, iter.Record().Name)
	}
	require.NoError(t, iter.Err())
	require.NoError(t, iter.Close())
	return got
}

func writeFile(t *testing.T, path, data string) {
	if strings.HasSuffix(path, ".gz") {
		var sb strings.Builder
		w := gzip.NewWriter(&sb)
		_, err := w.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		data = sb.String()
	}
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
}

func TestSAMProvider(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	for _, name := range []string{"reads.sam", "reads.sam.gz"} {
		path := filepath.Join(tmpdir, name)
		writeFile(t, path, testSAM)
		p := bamprovider.NewProvider(path)
		_, ok := p.(*bamprovider.SAMProvider)
		require.True(t, ok, name)

		header, err := p.GetHeader()
		assert.NoError(t, err)
		expect.EQ(t, len(header.Refs()), 2)

		// r1 covers [9,19), r2 covers [14,19).
		expect.EQ(t, names(t, p.NewLocusIterator(locus.Locus{"chr1", 15, 16})), []string{"r1", "r2"})
		expect.EQ(t, names(t, p.NewLocusIterator(locus.Locus{"chr1", 9, 10})), []string{"r1"})
		expect.EQ(t, len(names(t, p.NewLocusIterator(locus.Locus{"chr1", 19, 99}))), 0)
		// Zero-width loci include the flanking bases.
		expect.EQ(t, names(t, p.NewLocusIterator(locus.Locus{"chr1", 19, 19})), []string{"r1", "r2"})
		expect.EQ(t, names(t, p.NewLocusIterator(locus.Locus{"chr1", 0, 1000})), []string{"r1", "r2", "r3"})
		// Contig spelling is normalized.
		expect.EQ(t, names(t, p.NewLocusIterator(locus.Locus{"2", 0, 1})), []string{"r5"})
		// Unknown contigs are empty, not errors.
		expect.EQ(t, len(names(t, p.NewLocusIterator(locus.Locus{"chr7", 0, 10}))), 0)
		assert.NoError(t, p.Close())
	}
}

func TestSAMProviderRestrict(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "reads.sam")
	writeFile(t, path, testSAM)
	p := bamprovider.NewProvider(path, bamprovider.ProviderOpts{
		Restrict: locus.NewLoci(locus.Locus{"chr1", 101, 102}),
	})
	expect.EQ(t, names(t, p.NewLocusIterator(locus.Locus{"chr1", 0, 1000})), []string{"r3"})
	assert.NoError(t, p.Close())
}

func TestSAMProviderMalformedLine(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	const data = `@HD	VN:1.5	SO:coordinate
@SQ	SN:chr1	LN:1000
r1	0	chr1	10	60	5M	*	0	0	ACGTA	*****
bad	0	chr1
r2	0	chr1	12	60	5M	*	0	0	GTACG	*****
`
	for _, name := range []string{"reads.sam", "reads.sam.gz"} {
		path := filepath.Join(tmpdir, name)
		writeFile(t, path, data)
		p := bamprovider.NewProvider(path)
		expect.EQ(t, names(t, p.NewLocusIterator(locus.Locus{"chr1", 0, 1000})), []string{"r1", "r2"})
		sp := p.(*bamprovider.SAMProvider)
		expect.EQ(t, sp.Malformed(), int64(1))
		assert.NoError(t, p.Close())
	}
}

func TestMissingSource(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	for _, name := range []string{"missing.bam", "missing.sam"} {
		p := bamprovider.NewProvider(filepath.Join(tmpdir, name))
		iter := p.NewLocusIterator(locus.Locus{"chr1", 0, 10})
		expect.False(t, iter.Scan())
		err := iter.Close()
		require.Error(t, err, name)
		var use *bamprovider.UnreadableSourceError
		expect.True(t, errors.As(err, &use), "%s: %v", name, err)
		expect.HasSubstr(t, err.Error(), name)
		require.Error(t, p.Close())
	}
}

func TestCorruptSource(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "reads.bam")
	writeFile(t, path, "not a bam file")
	p := bamprovider.NewProvider(path)
	_, err := p.GetHeader()
	var use *bamprovider.UnreadableSourceError
	expect.True(t, errors.As(err, &use), "%v", err)
	expect.EQ(t, use.Path, path)
}

func newRecord(t *testing.T, name string, ref *sam.Reference, pos, n int) *sam.Record {
	cigar := []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, n)}
	seq := []byte(strings.Repeat("A", n))
	r, err := sam.NewRecord(name, ref, nil, pos, -1, 0, 60, cigar, seq, nil, nil)
	require.NoError(t, err)
	return r
}

func TestFakeProvider(t *testing.T) {
	chr1, err := sam.NewReference("1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1})
	require.NoError(t, err)
	p := bamprovider.NewFakeProvider(header, []*sam.Record{
		newRecord(t, "a", chr1, 10, 5),
		newRecord(t, "b", chr1, 12, 5),
		newRecord(t, "c", chr1, 20, 5),
	})
	expect.EQ(t, names(t, p.NewLocusIterator(locus.Locus{"chr1", 14, 15})), []string{"a", "b"})
	expect.EQ(t, names(t, p.NewLocusIterator(locus.Locus{"1", 17, 17})), []string{"b"})
	expect.EQ(t, len(names(t, p.NewLocusIterator(locus.Locus{"X", 0, 1}))), 0)
}

func TestGuessFileType(t *testing.T) {
	expect.EQ(t, bamprovider.GuessFileType("a.bam"), bamprovider.BAM)
	expect.EQ(t, bamprovider.GuessFileType("s3://b/a.sam.gz"), bamprovider.SAM)
	expect.EQ(t, bamprovider.GuessFileType("a.cram"), bamprovider.Unknown)
	expect.EQ(t, bamprovider.ParseFileType("sam"), bamprovider.SAM)
	expect.EQ(t, bamprovider.SAM.String(), "sam")
}

func TestRefByName(t *testing.T) {
	chr1, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	require.NoError(t, err)
	one, err := sam.NewReference("X", "", "", 1000, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1, one})
	require.NoError(t, err)
	expect.EQ(t, bamprovider.RefByName(header, "chr1").Name(), "chr1")
	expect.EQ(t, bamprovider.RefByName(header, "1").Name(), "chr1")
	expect.EQ(t, bamprovider.RefByName(header, "chrX").Name(), "X")
	expect.True(t, bamprovider.RefByName(header, "2") == nil)
}
