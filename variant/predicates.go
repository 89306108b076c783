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
	"fmt"
	"strings"

	"github.com/grailbio/varlens/locus"
	"github.com/grailbio/varlens/predicate"
)

// Predicates returns the registry of named variant conditions:
//
//   snv, indel, insertion, deletion, mnv
//   ref=A,C     ref allele is one of the listed values ("-" for empty)
//   alt=T       alt allele is one of the listed values
//   contig=chr1 contig, compared after chr-prefix normalization
//   overlaps=chr1:100-200  variant's reference span touches the locus
func Predicates() *predicate.Registry[Variant] {
	r := predicate.NewRegistry[Variant]()
	r.Register("snv", Variant.IsSNV)
	r.Register("indel", Variant.IsIndel)
	r.Register("insertion", Variant.IsInsertion)
	r.Register("deletion", Variant.IsDeletion)
	r.Register("mnv", func(v Variant) bool { return len(v.Ref) > 1 && len(v.Ref) == len(v.Alt) })
	r.RegisterFactory("ref", alleleFactory(func(v Variant) string { return v.Ref }))
	r.RegisterFactory("alt", alleleFactory(func(v Variant) string { return v.Alt }))
	r.RegisterFactory("contig", func(op, value string) (predicate.Func[Variant], error) {
		if err := requireEquals(op); err != nil {
			return nil, err
		}
		want := locus.NormalizeContig(value)
		return func(v Variant) bool { return locus.NormalizeContig(v.Contig) == want }, nil
	})
	r.RegisterFactory("overlaps", func(op, value string) (predicate.Func[Variant], error) {
		if err := requireEquals(op); err != nil {
			return nil, err
		}
		l, err := locus.Parse(value)
		if err != nil {
			return nil, err
		}
		loci := locus.NewLoci(l)
		return func(v Variant) bool {
			if locus.NormalizeContig(v.Contig) != locus.NormalizeContig(l.Contig) {
				return false
			}
			vl := v.Locus()
			vl.Contig = l.Contig
			return loci.Intersects(vl)
		}, nil
	})
	return r
}

func requireEquals(op string) error {
	if op != "=" && op != "==" {
		return fmt.Errorf("operator %q: only = is supported", op)
	}
	return nil
}

func alleleFactory(get func(Variant) string) predicate.Factory[Variant] {
	return func(op, value string) (predicate.Func[Variant], error) {
		if err := requireEquals(op); err != nil {
			return nil, err
		}
		want := map[string]bool{}
		for _, a := range strings.Split(value, ",") {
			want[emptyAllele(a)] = true
		}
		return func(v Variant) bool { return want[get(v)] }, nil
	}
}
