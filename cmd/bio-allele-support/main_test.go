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

package main

import (
	"flag"
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

// Three reads covering chr1:101 (1-based).  r1 and r3 carry T, r2 carries A,
// r3 is a duplicate.
const testSAM = `@HD	VN:1.4	SO:coordinate
@SQ	SN:chr1	LN:1000
r1	0	chr1	96	60	10M	*	0	0	CCCCCTCCCC	*
r2	0	chr1	97	60	10M	*	0	0	CCCCACCCCC	*
r3	1024	chr1	98	60	10M	*	0	0	CCCTCCCCCC	*
`

func writeSAM(t *testing.T, dir string) string {
	path := filepath.Join(dir, "reads.sam")
	require.NoError(t, ioutil.WriteFile(path, []byte(testSAM), 0644))
	return path
}

func readLines(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestAlleleSupport(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	sam := writeSAM(t, tmpdir)
	out := filepath.Join(tmpdir, "out.tsv")

	fs := flag.NewFlagSet("allele-support", flag.ContinueOnError)
	flags := registerAlleleSupportFlags(fs)
	assert.NoError(t, fs.Parse([]string{
		"-reads", sam,
		"-locus", "chr1:101,chr1:bogus",
		"-count-group", "nodup:!is_duplicate",
		"-out", out,
	}))
	assert.NoError(t, alleleSupport(vcontext.Background(), flags))
	expect.EQ(t, readLines(t, out), []string{
		"source\tcontig\tinterbase_start\tinterbase_end\tallele\tcount\tnodup",
		"reads.sam\tchr1\t100\t101\tT\t2\t1",
		"reads.sam\tchr1\t100\t101\tA\t1\t1",
	})
}

func TestAlleleSupportNoLoci(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	fs := flag.NewFlagSet("allele-support", flag.ContinueOnError)
	flags := registerAlleleSupportFlags(fs)
	assert.NoError(t, fs.Parse([]string{
		"-reads", writeSAM(t, tmpdir),
		"-locus", "chr1:bogus",
		"-out", filepath.Join(tmpdir, "out.tsv"),
	}))
	err := alleleSupport(vcontext.Background(), flags)
	expect.HasSubstr(t, err.Error(), "no loci")
}

func TestVariantSupportCmd(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	out := filepath.Join(tmpdir, "out.tsv")
	fs := flag.NewFlagSet("variant-support", flag.ContinueOnError)
	flags := registerVariantSupportFlags(fs)
	assert.NoError(t, fs.Parse([]string{
		"-reads", writeSAM(t, tmpdir),
		"-read-source-name", "s1",
		"-single-variant", "chr1:101:C:T",
		"-out", out,
	}))
	assert.NoError(t, variantSupport(vcontext.Background(), flags))
	expect.EQ(t, readLines(t, out), []string{
		"source\tcontig\tinterbase_start\tinterbase_end\tref\talt\tcount_column\tnum_alt\tnum_ref\tnum_other\ttotal_depth\talt_fraction\tany_alt_fraction",
		"s1\tchr1\t100\t101\tC\tT\tcount\t2\t0\t1\t3\t0.666667\t1",
	})
}

func TestParseSingleVariant(t *testing.T) {
	v, err := parseSingleVariant("chr1/999:A:-")
	assert.NoError(t, err)
	expect.EQ(t, v.Start, 999)
	expect.EQ(t, v.End, 1000)
	expect.True(t, v.IsDeletion())

	_, err = parseSingleVariant("chr1:1000")
	expect.NotNil(t, err)
}

func TestSourceNames(t *testing.T) {
	expect.EQ(t, sourceNames([]string{"/data/x/a.bam"}), []string{"a.bam"})
	expect.EQ(t, sourceNames([]string{"/data/x/a.bam", "/data/y/b.bam"}), []string{"x/a.bam", "y/b.bam"})
	expect.EQ(t, sourceNames([]string{"a.bam", "d/b.bam"}), []string{"a.bam", "d/b.bam"})
}

func TestListFlag(t *testing.T) {
	f := listFlag{split: true}
	assert.NoError(t, f.Set("a, b"))
	assert.NoError(t, f.Set("c"))
	expect.EQ(t, f.values, []string{"a", "b", "c"})

	g := listFlag{}
	assert.NoError(t, g.Set("x && y, z"))
	expect.EQ(t, g.values, []string{"x && y, z"})
}

func TestVariantsCmd(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ref := filepath.Join(tmpdir, "ref.fa")
	require.NoError(t, ioutil.WriteFile(ref, []byte(">chr1\nACGTACGTAC\nGGATCCTTAA\n"), 0644))
	out := filepath.Join(tmpdir, "variants.tsv")
	fs := flag.NewFlagSet("variants", flag.ContinueOnError)
	flags := registerVariantsFlags(fs)
	assert.NoError(t, fs.Parse([]string{
		"-single-variant", "chr1:11:G:A",
		"-single-variant", "chr1:2:C:T",
		"-reference", ref,
		"-context-width", "2",
		"-out", out,
	}))
	assert.NoError(t, listVariants(vcontext.Background(), flags))
	expect.EQ(t, readLines(t, out), []string{
		"contig\tinterbase_start\tinterbase_end\tref\talt\tref_matches\tcontext_5prime\tmutation\tcontext_3prime",
		"chr1\t10\t11\tG\tA\ttrue\tTC\tC>T\tGT",
		"chr1\t1\t2\tC\tT\ttrue\tA\tC>T\tGT",
	})
}
