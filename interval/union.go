package interval

import (
	"sort"

	"github.com/grailbio/varlens/locus"
)

// Union is a per-contig set of disjoint, sorted half-open intervals.  Each
// contig's set is a length-2N slice: the start of interval #k is element
// [2k], its end is element [2k+1].  A position p is covered iff the index
// returned by searchPos(a, p+1) is odd.
type Union struct {
	// nameMap is keyed by contig name, as given.
	nameMap map[string][]int
	// normMap is keyed by locus.NormalizeContig(name); it lets alignment files
	// that spell contigs differently ("chr1" vs "1") hit the same intervals.
	normMap map[string][]int
}

// searchPos returns the index of x in a[], or the position where x would be
// inserted if x isn't in a (this could be len(a)).
func searchPos(a []int, x int) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// NewUnion builds a Union from loci.  Overlapping and adjacent loci are
// merged.  A zero-width locus at p is widened to [p-1, p+1), the two bases
// whose alignment determines whether something is inserted at p.
//
// Padding is added on both sides of every interval.
func NewUnion(loci locus.Loci, padding int) Union {
	u := Union{
		nameMap: make(map[string][]int),
		normMap: make(map[string][]int),
	}
	byContig := make(map[string][][2]int)
	var contigs []string
	for _, l := range loci.Slice() {
		start, end := l.Start, l.End
		if start == end {
			start--
			end++
		}
		start -= padding
		end += padding
		if start < 0 {
			start = 0
		}
		if _, ok := byContig[l.Contig]; !ok {
			contigs = append(contigs, l.Contig)
		}
		byContig[l.Contig] = append(byContig[l.Contig], [2]int{start, end})
	}
	for _, contig := range contigs {
		ivs := byContig[contig]
		sort.Slice(ivs, func(i, j int) bool { return ivs[i][0] < ivs[j][0] })
		var endpoints []int
		for _, iv := range ivs {
			n := len(endpoints)
			if n > 0 && iv[0] <= endpoints[n-1] {
				// Overlaps or abuts the previous interval; merge.
				if iv[1] > endpoints[n-1] {
					endpoints[n-1] = iv[1]
				}
				continue
			}
			endpoints = append(endpoints, iv[0], iv[1])
		}
		u.nameMap[contig] = endpoints
		norm := locus.NormalizeContig(contig)
		if prev, ok := u.normMap[norm]; ok {
			endpoints = mergeEndpoints(prev, endpoints)
		}
		u.normMap[norm] = endpoints
	}
	return u
}

func mergeEndpoints(a, b []int) []int {
	ivs := make([][2]int, 0, (len(a)+len(b))/2)
	for i := 0; i < len(a); i += 2 {
		ivs = append(ivs, [2]int{a[i], a[i+1]})
	}
	for i := 0; i < len(b); i += 2 {
		ivs = append(ivs, [2]int{b[i], b[i+1]})
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i][0] < ivs[j][0] })
	var out []int
	for _, iv := range ivs {
		n := len(out)
		if n > 0 && iv[0] <= out[n-1] {
			if iv[1] > out[n-1] {
				out[n-1] = iv[1]
			}
			continue
		}
		out = append(out, iv[0], iv[1])
	}
	return out
}

func (u *Union) endpoints(contig string) []int {
	if e, ok := u.nameMap[contig]; ok {
		return e
	}
	return u.normMap[locus.NormalizeContig(contig)]
}

// Empty checks whether u contains no intervals.
func (u *Union) Empty() bool { return len(u.nameMap) == 0 }

// ContainsByName checks whether position pos on contig is covered by u.
func (u *Union) ContainsByName(contig string, pos int) bool {
	return searchPos(u.endpoints(contig), pos+1)&1 == 1
}

// IntersectsByName checks whether [start, end) on contig shares at least one
// position with u.
func (u *Union) IntersectsByName(contig string, start, end int) bool {
	if end <= start {
		return false
	}
	endpoints := u.endpoints(contig)
	if len(endpoints) == 0 {
		return false
	}
	idx := searchPos(endpoints, start+1)
	if idx&1 == 1 {
		return true
	}
	// start is not covered; the next interval (if any) begins at
	// endpoints[idx].
	return idx < len(endpoints) && endpoints[idx] < end
}
