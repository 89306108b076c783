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
	"fmt"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/varlens/pileup"
	"github.com/grailbio/varlens/predicate"
)

var readFlags = []struct {
	name string
	flag sam.Flags
}{
	{"is_paired", sam.Paired},
	{"is_proper_pair", sam.ProperPair},
	{"is_unmapped", sam.Unmapped},
	{"mate_is_unmapped", sam.MateUnmapped},
	{"is_reverse", sam.Reverse},
	{"mate_is_reverse", sam.MateReverse},
	{"is_read1", sam.Read1},
	{"is_read2", sam.Read2},
	{"is_secondary", sam.Secondary},
	{"is_qcfail", sam.QCFail},
	{"is_duplicate", sam.Duplicate},
	{"is_supplementary", sam.Supplementary},
}

// ReadPredicates returns the registry of named read conditions: one per SAM
// flag (is_reverse, is_duplicate, ...), plus
//
//   mapq>=N      mapping quality comparison; any of >= <= > < = !=
//   strand=+     read-pair strand (see pileup.GetStrand); one of + - .
func ReadPredicates() *predicate.Registry[*sam.Record] {
	r := predicate.NewRegistry[*sam.Record]()
	for _, f := range readFlags {
		flag := f.flag
		r.Register(f.name, func(rec *sam.Record) bool { return rec.Flags&flag != 0 })
	}
	r.RegisterFactory("mapq", func(op, value string) (predicate.Func[*sam.Record], error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("mapq: %v", err)
		}
		if _, err := predicate.CompareInt(0, op, n); err != nil {
			return nil, err
		}
		return func(rec *sam.Record) bool {
			ok, _ := predicate.CompareInt(int(rec.MapQ), op, n)
			return ok
		}, nil
	})
	r.RegisterFactory("strand", func(op, value string) (predicate.Func[*sam.Record], error) {
		if op != "=" && op != "==" {
			return nil, fmt.Errorf("strand: only = is supported, got %q", op)
		}
		var want pileup.StrandType
		switch value {
		case "+":
			want = pileup.StrandFwd
		case "-":
			want = pileup.StrandRev
		case ".":
			want = pileup.StrandNone
		default:
			return nil, fmt.Errorf("strand: want one of + - ., got %q", value)
		}
		return func(rec *sam.Record) bool { return pileup.GetStrand(rec) == want }, nil
	})
	return r
}

// ParseReadFilter compiles the conjunction of exprs.  No expressions means
// accept-all (nil).
func ParseReadFilter(exprs []string) (predicate.Func[*sam.Record], error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	r := ReadPredicates()
	var fns []predicate.Func[*sam.Record]
	for _, expr := range exprs {
		fn, err := r.Parse(expr)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return predicate.And(fns...), nil
}

// ParseCountGroups parses "label:expr" count-group specifications.  Labels
// must be unique and may not be "count".
func ParseCountGroups(specs []string) ([]predicate.Labeled[*sam.Record], error) {
	r := ReadPredicates()
	seen := map[string]bool{"count": true}
	var groups []predicate.Labeled[*sam.Record]
	for _, spec := range specs {
		g, err := r.ParseLabeled(spec)
		if err != nil {
			return nil, err
		}
		if seen[g.Label] {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("count group %q: duplicate label %q", spec, g.Label))
		}
		seen[g.Label] = true
		groups = append(groups, g)
	}
	return groups, nil
}
