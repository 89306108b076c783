package locus

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want Locus
	}{
		{"chr22:10-20", Locus{"chr22", 9, 20}},
		{"chr22/11-20", Locus{"chr22", 11, 20}},
		{"chr22:46929963", Locus{"chr22", 46929962, 46929963}},
		{"22/46931061", Locus{"22", 46931061, 46931062}},
		{"chr1/100-100", Locus{"chr1", 100, 100}},
		{"chr1:100-99", Locus{"chr1", 99, 99}},
		{"GL000220.1:5", Locus{"GL000220.1", 4, 5}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.text)
		assert.NoError(t, err, tt.text)
		expect.EQ(t, got, tt.want, tt.text)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, text := range []string{
		"",
		"chr1",
		"chr1:",
		"chr1:0",
		"chr1:x-10",
		"chr1:10-5",
		"chr1/10-9",
		"chr1:10-",
		":10",
		"chr1:10 ",
		"chr1-10",
	} {
		_, err := Parse(text)
		require.Error(t, err, text)
		var mle *MalformedLocusError
		require.True(t, errors.As(err, &mle), "%q: %v", text, err)
	}
}

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec("chr5:3332-5555")
	assert.NoError(t, err)
	expect.EQ(t, spec, Spec{Contig: "chr5", System: Inclusive1Based, Start: 3332, End: 5555, HasEnd: true})
	spec, err = ParseSpec("chr5/3331")
	assert.NoError(t, err)
	expect.EQ(t, spec, Spec{Contig: "chr5", System: HalfOpen0Based, Start: 3331})

	// The two conventions resolve to the same interval.
	a, err := ParseSpec("chr5:3332-5555")
	assert.NoError(t, err)
	b, err := ParseSpec("chr5/3331-5555")
	assert.NoError(t, err)
	la, err := a.Locus()
	assert.NoError(t, err)
	lb, err := b.Locus()
	assert.NoError(t, err)
	expect.EQ(t, la, lb)
}

func TestString(t *testing.T) {
	for _, text := range []string{"chr1:5", "chr1:5-10", "chr1/7-7"} {
		l := MustParse(text)
		expect.EQ(t, l.String(), text)
		expect.EQ(t, MustParse(l.String()), l)
	}
	l := MustParse("chr1:5-10")
	expect.EQ(t, l.InclusiveStart(), 5)
	expect.EQ(t, l.InclusiveEnd(), 10)
	expect.EQ(t, l.Width(), 6)
}

func TestOverlaps(t *testing.T) {
	l := Locus{"chr1", 100, 110}
	expect.True(t, l.Overlaps("chr1", 109, 200))
	expect.True(t, l.Overlaps("chr1", 0, 101))
	expect.False(t, l.Overlaps("chr1", 110, 200))
	expect.False(t, l.Overlaps("chr1", 0, 100))
	expect.False(t, l.Overlaps("chr2", 0, 1000))

	z := Locus{"chr1", 100, 100}
	expect.True(t, z.Overlaps("chr1", 99, 101))
	expect.False(t, z.Overlaps("chr1", 100, 150))
	expect.False(t, z.Overlaps("chr1", 50, 100))
}

type span struct {
	contig     string
	start, end int
}

func (s span) Span() (string, int, int) { return s.contig, s.start, s.end }

func TestFromVariant(t *testing.T) {
	l, err := FromVariant(span{"22", 46931061, 46931062})
	assert.NoError(t, err)
	expect.EQ(t, l, Locus{"22", 46931061, 46931062})

	l, err = FromVariant(span{"22", 100, 100})
	assert.NoError(t, err)
	expect.EQ(t, l.Width(), 0)

	_, err = FromVariant(span{"22", 100, 99})
	expect.HasSubstr(t, err.Error(), "end before start")
}

func TestNormalizeContig(t *testing.T) {
	for in, want := range map[string]string{
		"chr22":      "22",
		"22":         "22",
		"chrX":       "X",
		"x":          "X",
		"chrM":       "MT",
		"MT":         "MT",
		"chr":        "chr",
		"GL000220.1": "GL000220.1",
	} {
		expect.EQ(t, NormalizeContig(in), want, in)
	}
}

func TestLoci(t *testing.T) {
	s := NewLoci(
		MustParse("chr2:10"),
		MustParse("chr1:20-30"),
		MustParse("chr1:5"),
		MustParse("chr1:5"),
	)
	expect.EQ(t, s.Len(), 3)
	expect.EQ(t, s.Slice(), []Locus{{"chr1", 4, 5}, {"chr1", 19, 30}, {"chr2", 9, 10}})
	expect.EQ(t, s.Contigs(), []string{"chr1", "chr2"})
	expect.True(t, s.Contains(Locus{"chr1", 19, 30}))
	expect.False(t, s.Contains(Locus{"chr1", 19, 31}))
	expect.True(t, s.Intersects(Locus{"chr1", 29, 40}))
	expect.True(t, s.Intersects(Locus{"chr1", 5, 5}))
	expect.False(t, s.Intersects(Locus{"chr1", 30, 40}))

	u := s.Union(NewLoci(MustParse("chr1:5"), MustParse("chr3:1")))
	expect.EQ(t, u.Len(), 4)

	var empty Loci
	expect.EQ(t, empty.Len(), 0)
	expect.EQ(t, empty.Union(s).Slice(), s.Slice())
}

func TestExpandNeighbors(t *testing.T) {
	s := ExpandNeighbors(NewLoci(Locus{"chr1", 1, 2}, Locus{"chr1", 100, 101}), []int{-2, 0, 1})
	expect.EQ(t, s.Slice(), []Locus{
		{"chr1", 1, 2},
		{"chr1", 2, 3},
		{"chr1", 98, 99},
		{"chr1", 100, 101},
		{"chr1", 101, 102},
	})
}

func TestReadBED(t *testing.T) {
	in := strings.Join([]string{
		"track name=test",
		"# comment",
		"chr1\t100\t200\tname",
		"",
		"chr2 5 5",
	}, "\n")
	loci, err := ReadBED(strings.NewReader(in))
	assert.NoError(t, err)
	expect.EQ(t, loci, []Locus{{"chr1", 100, 200}, {"chr2", 5, 5}})

	_, err = ReadBED(strings.NewReader("chr1\t100\n"))
	expect.HasSubstr(t, err.Error(), "need at least 3")
	_, err = ReadBED(strings.NewReader("chr1\t200\t100\n"))
	expect.HasSubstr(t, err.Error(), "end before start")
}

func TestLoadBED(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "loci.bed")
	assert.NoError(t, ioutil.WriteFile(path, []byte("chr22\t46929962\t46929964\n"), 0644))
	loci, err := LoadBED(vcontext.Background(), path)
	assert.NoError(t, err)
	expect.EQ(t, loci, []Locus{{"chr22", 46929962, 46929964}})

	_, err = LoadBED(vcontext.Background(), filepath.Join(tmpdir, "missing.bed"))
	expect.NotNil(t, err)
}
