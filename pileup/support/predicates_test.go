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

package support

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestReadPredicates(t *testing.T) {
	r := ReadPredicates()
	_, chr1 := newHeader(t)
	rec := newRead(t, chr1, "r", 100, 'A', sam.Paired|sam.Read1|sam.MateReverse|sam.Duplicate)
	rec.MateRef = rec.Ref
	rec.MapQ = 30
	tests := []struct {
		expr string
		want bool
	}{
		{"is_paired", true},
		{"is_read1", true},
		{"is_read2", false},
		{"is_duplicate", true},
		{"!is_duplicate", false},
		{"mate_is_reverse && !is_reverse", true},
		{"mapq>=30", true},
		{"mapq>30", false},
		{"mapq!=0", true},
		{"!mapq>=20", false},
		{"!mapq>=40", true},
		{"!strand=-", true},
		{"strand=+", true},
		{"strand=-", false},
		{"is_secondary", false},
		{"is_supplementary", false},
		{"is_qcfail", false},
	}
	for _, tt := range tests {
		fn, err := r.Parse(tt.expr)
		assert.NoError(t, err, tt.expr)
		expect.EQ(t, fn(rec), tt.want, tt.expr)
	}
	for _, bad := range []string{"is_dup", "mapq>=x", "strand=x", "strand>+", "mapq"} {
		_, err := r.Parse(bad)
		expect.NotNil(t, err, bad)
	}
}

func TestParseReadFilter(t *testing.T) {
	fn, err := ParseReadFilter(nil)
	assert.NoError(t, err)
	expect.True(t, fn == nil)

	fn, err = ParseReadFilter([]string{"is_reverse", "mapq>=10"})
	assert.NoError(t, err)
	_, chr1 := newHeader(t)
	rec := newRead(t, chr1, "r", 100, 'A', sam.Reverse)
	expect.True(t, fn(rec))
	rec.MapQ = 5
	expect.False(t, fn(rec))

	_, err = ParseReadFilter([]string{"bogus"})
	expect.NotNil(t, err)
}

func TestParseCountGroups(t *testing.T) {
	groups, err := ParseCountGroups([]string{"fwd:!is_reverse", "is_duplicate && mapq>=20"})
	assert.NoError(t, err)
	expect.EQ(t, len(groups), 2)
	expect.EQ(t, groups[0].Label, "fwd")
	expect.EQ(t, groups[1].Label, "is_duplicate && mapq>=20")

	_, err = ParseCountGroups([]string{"count:is_reverse"})
	expect.HasSubstr(t, err.Error(), "duplicate label")
	_, err = ParseCountGroups([]string{"a:is_reverse", "a:is_read1"})
	expect.HasSubstr(t, err.Error(), "duplicate label")
}
