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
	"context"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/varlens/encoding/bamprovider"
	"github.com/grailbio/varlens/locus"
	"github.com/grailbio/varlens/pileup"
	"github.com/grailbio/varlens/predicate"
)

// Opts controls Compute.
type Opts struct {
	// Parallelism is the number of concurrent workers.  Values <= 0 mean
	// runtime.NumCPU().
	Parallelism int
	// ReadFilter drops reads for which it returns false.  nil accepts every
	// read.
	ReadFilter predicate.Func[*sam.Record]
	// CountGroups add one sub-count per group to every allele, in order.
	CountGroups []predicate.Labeled[*sam.Record]
	// RequireSpanning ignores reads whose alignment doesn't cover the whole
	// locus, instead of counting their partial allele.
	RequireSpanning bool
	// EmitEmpty makes a (source, locus) with no observations produce one
	// group with allele "N"*width and zero counts.
	EmitEmpty bool
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	EmitEmpty: true,
}

// Source is one alignment input.
type Source struct {
	// Name identifies the source in output rows.
	Name     string
	Provider bamprovider.Provider
}

// Group is the support for one allele at one locus in one source.
type Group struct {
	Source string
	Locus  locus.Locus
	Allele string
	// Count is the number of reads carrying Allele.
	Count int
	// Sub[i] is the number of those reads that also satisfy CountGroups[i].
	Sub []int
}

// SourceError records a source that could not be processed.
type SourceError struct {
	Source string
	Err    error
}

// Diagnostics summarizes what Compute skipped.
type Diagnostics struct {
	// Reads is the number of records returned by the providers, summed over
	// every (source, locus).
	Reads int64
	// Filtered counts reads rejected by ReadFilter or RequireSpanning.
	Filtered int64
	// Malformed counts records whose alignment could not be interpreted, plus
	// unparseable lines skipped by the providers.
	Malformed int64
	// FailedSources lists the sources whose results were dropped.
	FailedSources []SourceError
}

// Result is the output of Compute.
type Result struct {
	// Sources lists the source names, in input order.
	Sources []string
	// Labels are the count column names: "count", then the CountGroups labels.
	Labels []string
	Groups []Group
	Diagnostics
}

type unit struct {
	src, locus int
}

// Compute counts allele support for every source and every locus.  A source
// that cannot be read is reported in Diagnostics.FailedSources and contributes
// no groups; the other sources are unaffected.  Compute itself only fails if
// ctx is canceled.
func Compute(ctx context.Context, sources []Source, loci locus.Loci, opts Opts) (Result, error) {
	res := Result{Labels: []string{"count"}}
	for _, src := range sources {
		res.Sources = append(res.Sources, src.Name)
	}
	for _, cg := range opts.CountGroups {
		res.Labels = append(res.Labels, cg.Label)
	}
	ls := loci.Slice()
	units := make([]unit, 0, len(sources)*len(ls))
	for si := range sources {
		for li := range ls {
			units = append(units, unit{si, li})
		}
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(units) {
		parallelism = len(units)
	}

	var (
		out       = make([][]Group, len(units))
		srcErrs   = make([]errors.Once, len(sources))
		reads     int64
		filtered  int64
		malformed int64
	)
	for _, src := range sources {
		log.Printf("support: %s: %d loci", src.Name, len(ls))
	}
	err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * len(units)) / parallelism
		endIdx := ((jobIdx + 1) * len(units)) / parallelism
		for _, u := range units[startIdx:endIdx] {
			if err := ctx.Err(); err != nil {
				return err
			}
			if srcErrs[u.src].Err() != nil {
				continue
			}
			c := counter{opts: &opts, src: sources[u.src].Name, locus: ls[u.locus]}
			err := c.run(sources[u.src].Provider)
			atomic.AddInt64(&reads, c.reads)
			atomic.AddInt64(&filtered, c.filtered)
			atomic.AddInt64(&malformed, c.malformed)
			if err != nil {
				srcErrs[u.src].Set(err)
				continue
			}
			out[(u.src*len(ls))+u.locus] = c.groups
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	for _, src := range sources {
		// Providers that parse text, such as SAMProvider, skip unparseable lines.
		if m, ok := src.Provider.(interface{ Malformed() int64 }); ok {
			malformed += m.Malformed()
		}
	}
	res.Diagnostics = Diagnostics{Reads: reads, Filtered: filtered, Malformed: malformed}
	for si, src := range sources {
		if err := srcErrs[si].Err(); err != nil {
			log.Error.Printf("support: %s: dropping source: %v", src.Name, err)
			res.FailedSources = append(res.FailedSources, SourceError{Source: src.Name, Err: err})
			continue
		}
		n := 0
		for li := range ls {
			groups := out[si*len(ls)+li]
			res.Groups = append(res.Groups, groups...)
			n += len(groups)
		}
		log.Printf("support: %s: %d groups", src.Name, n)
	}
	if malformed > 0 {
		log.Error.Printf("support: skipped %d malformed records", malformed)
	}
	return res, nil
}

// counter accumulates the groups of one (source, locus).
type counter struct {
	opts   *Opts
	src    string
	locus  locus.Locus
	groups []Group
	// index maps an allele to its position in groups.
	index map[string]int

	reads, filtered, malformed int64
}

func (c *counter) run(p bamprovider.Provider) error {
	c.index = make(map[string]int)
	iter := p.NewLocusIterator(c.locus)
	for iter.Scan() {
		c.add(iter.Record())
	}
	if err := iter.Close(); err != nil {
		return err
	}
	if len(c.groups) == 0 && c.opts.EmitEmpty {
		c.groups = append(c.groups, c.newGroup(strings.Repeat("N", c.locus.Width())))
	}
	return nil
}

func (c *counter) newGroup(allele string) Group {
	return Group{
		Source: c.src,
		Locus:  c.locus,
		Allele: allele,
		Sub:    make([]int, len(c.opts.CountGroups)),
	}
}

func (c *counter) add(rec *sam.Record) {
	c.reads++
	if c.opts.ReadFilter != nil && !c.opts.ReadFilter(rec) {
		c.filtered++
		return
	}
	if c.opts.RequireSpanning && !pileup.Spans(rec, c.locus) {
		c.filtered++
		return
	}
	allele, ok, err := pileup.Allele(rec, c.locus)
	if err != nil {
		c.malformed++
		log.Error.Printf("support: %s: %v: skipping record: %v", c.src, c.locus, err)
		return
	}
	if !ok {
		return
	}
	i, found := c.index[allele]
	if !found {
		i = len(c.groups)
		c.index[allele] = i
		c.groups = append(c.groups, c.newGroup(allele))
	}
	g := &c.groups[i]
	g.Count++
	for j, cg := range c.opts.CountGroups {
		if cg.Func(rec) {
			g.Sub[j]++
		}
	}
}
