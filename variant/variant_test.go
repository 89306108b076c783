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

package variant

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/varlens/locus"
)

func TestNew(t *testing.T) {
	tests := []struct {
		pos      int
		ref, alt string
		want     Variant
	}{
		{100, "A", "T", Variant{"chr1", 99, 100, "A", "T"}},
		{10, "ACGT", "ACCT", Variant{"chr1", 11, 12, "G", "C"}},
		{200, "AT", "A", Variant{"chr1", 200, 201, "T", ""}},
		{10, "TA", "A", Variant{"chr1", 9, 10, "T", ""}},
		{300, "A", "AGG", Variant{"chr1", 300, 300, "", "GG"}},
		{5, "-", "c", Variant{"chr1", 4, 4, "", "C"}},
		{7, "AC", "GT", Variant{"chr1", 6, 8, "AC", "GT"}},
	}
	for _, tt := range tests {
		got, err := New("chr1", tt.pos, tt.ref, tt.alt)
		assert.NoError(t, err, "%d %s>%s", tt.pos, tt.ref, tt.alt)
		expect.EQ(t, got, tt.want, "%d %s>%s", tt.pos, tt.ref, tt.alt)
	}

	for _, bad := range [][2]string{{"A", "A"}, {"A", "Z"}, {"-", "."}} {
		_, err := New("chr1", 10, bad[0], bad[1])
		expect.NotNil(t, err, "%v", bad)
	}
	_, err := New("chr1", 0, "A", "T")
	expect.HasSubstr(t, err.Error(), "must be positive")
	_, err = New("", 1, "A", "T")
	expect.NotNil(t, err)
}

func TestVariantAccessors(t *testing.T) {
	snv, err := Literal("chr1:100", "A", "T")
	assert.NoError(t, err)
	expect.EQ(t, snv, Variant{"chr1", 99, 100, "A", "T"})
	expect.EQ(t, snv.Locus(), locus.Locus{"chr1", 99, 100})
	expect.EQ(t, snv.String(), "chr1/99-100 A>T")
	expect.True(t, snv.IsSNV())
	expect.False(t, snv.IsIndel())

	ins, err := Literal("chr1/99", "A", "ATT")
	assert.NoError(t, err)
	expect.EQ(t, ins.String(), "chr1/100-100 ->TT")
	expect.True(t, ins.IsInsertion())
	expect.True(t, ins.IsIndel())
	l, err := locus.FromVariant(ins)
	assert.NoError(t, err)
	expect.EQ(t, l.Width(), 0)

	expect.True(t, snv.Less(ins))
	expect.False(t, ins.Less(snv))

	_, err = Literal("chr1", "A", "T")
	expect.NotNil(t, err)
}

const testVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
chr1	100	.	A	T	50	PASS	.	GT	0/1
chr1	200	.	AT	A	50	PASS	.	GT	0/1
chr1	300	.	A	AGG	50	.	.	GT	0/1
chr1	400	.	C	G,<DEL>	50	PASS	.	GT	0/1
chr1	500	.	G	A	50	LowQual	.	GT	0/1
chr2	600	.	CAT	CGT,CT	50	PASS	.	GT	1/2
`

func writeVCF(t *testing.T) (string, func()) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	path := filepath.Join(tmpdir, "test.vcf")
	assert.NoError(t, ioutil.WriteFile(path, []byte(testVCF), 0644))
	return path, cleanup
}

func TestLoadVCF(t *testing.T) {
	path, cleanup := writeVCF(t)
	defer cleanup()
	ctx := vcontext.Background()

	vs, err := LoadVCF(ctx, path, DefaultLoadOpts)
	assert.NoError(t, err)
	expect.EQ(t, vs, []Variant{
		{"chr1", 99, 100, "A", "T"},
		{"chr1", 200, 201, "T", ""},
		{"chr1", 300, 300, "", "GG"},
		{"chr1", 399, 400, "C", "G"},
		{"chr2", 600, 601, "A", "G"},
		{"chr2", 600, 601, "A", ""},
	})

	vs, err = LoadVCF(ctx, path, LoadOpts{IncludeFailing: true, MaxVariants: 5})
	assert.NoError(t, err)
	expect.EQ(t, len(vs), 5)
	expect.EQ(t, vs[4], Variant{"chr1", 499, 500, "G", "A"})

	snvs, err := Predicates().Parse("snv")
	assert.NoError(t, err)
	vs, err = LoadVCF(ctx, path, LoadOpts{Filter: snvs})
	assert.NoError(t, err)
	expect.EQ(t, len(vs), 3)

	_, err = LoadVCF(ctx, filepath.Join(filepath.Dir(path), "missing.vcf"), DefaultLoadOpts)
	expect.HasSubstr(t, err.Error(), "missing.vcf")
}

func TestPredicates(t *testing.T) {
	r := Predicates()
	snv := Variant{"chr1", 99, 100, "A", "T"}
	del := Variant{"chr1", 200, 202, "TC", ""}
	ins := Variant{"1", 300, 300, "", "GG"}
	mnv := Variant{"chr1", 6, 8, "AC", "GT"}
	tests := []struct {
		expr string
		v    Variant
		want bool
	}{
		{"snv", snv, true},
		{"snv", mnv, false},
		{"mnv", mnv, true},
		{"indel", del, true},
		{"indel && !deletion", ins, true},
		{"deletion", del, true},
		{"ref=A,G", snv, true},
		{"ref=C", snv, false},
		{"ref=-", ins, true},
		{"!ref=G", snv, true},
		{"snv && !alt=T", snv, false},
		{"alt=T", snv, true},
		{"contig=1", snv, true},
		{"contig=chr2", snv, false},
		{"overlaps=chr1:100-150", snv, true},
		{"overlaps=chr1:101-150", snv, false},
		{"overlaps=chr1:300", ins, true},
		{"overlaps=chr1:302", ins, false},
		{"overlaps=chr2:1-1000", snv, false},
	}
	for _, tt := range tests {
		fn, err := r.Parse(tt.expr)
		assert.NoError(t, err, tt.expr)
		expect.EQ(t, fn(tt.v), tt.want, "%s on %v", tt.expr, tt.v)
	}
	for _, bad := range []string{"ref>=A", "overlaps=chr1", "frameshift"} {
		_, err := r.Parse(bad)
		expect.NotNil(t, err, bad)
	}
}

func TestDedup(t *testing.T) {
	a := Variant{"chr1", 1, 2, "A", "T"}
	b := Variant{"chr1", 1, 2, "A", "G"}
	expect.EQ(t, Dedup([]Variant{a, b, a}), []Variant{a, b})
	expect.True(t, strings.HasPrefix(a.String(), "chr1/1-2"))
}
