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
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/varlens/encoding/bamprovider"
	"github.com/grailbio/varlens/locus"
	"github.com/grailbio/varlens/pileup/support"
)

// listFlag collects a flag that may be repeated, each occurrence optionally
// holding a comma-separated list.
type listFlag struct {
	values []string
	// split enables comma splitting.
	split bool
}

func (f *listFlag) String() string { return strings.Join(f.values, ",") }

func (f *listFlag) Set(v string) error {
	if !f.split {
		f.values = append(f.values, v)
		return nil
	}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.values = append(f.values, s)
		}
	}
	return nil
}

// readFlags are the flags shared by every subcommand that scans alignments.
type readFlags struct {
	reads       listFlag
	sourceNames listFlag
	index       *string
	readFilter  listFlag
	countGroups listFlag
	spanning    *bool
	noEmpty     *bool
	parallelism *int
}

func registerReadFlags(fs *flag.FlagSet) *readFlags {
	f := &readFlags{
		reads:       listFlag{split: true},
		sourceNames: listFlag{split: true},
	}
	fs.Var(&f.reads, "reads", "Comma-separated list of BAM (.bam, indexed) or SAM (.sam, .sam.gz) files. May be repeated.")
	fs.Var(&f.sourceNames, "read-source-name", `Comma-separated names for the -reads files, in order. By default the
common directory prefix of the paths is dropped (or, for a single file, its
basename is used).`)
	f.index = fs.String("index", "", "BAM index filename. Only valid with a single -reads file. By default set to the BAM path + .bai")
	fs.Var(&f.readFilter, "read-filter", `Only count reads satisfying this expression. May be repeated; the
expressions are and-ed. For example "!is_duplicate && mapq>=20".`)
	fs.Var(&f.countGroups, "count-group", `Add a count column "label:expr" counting the reads of each allele that
also satisfy expr. The label defaults to the expression. May be repeated.`)
	f.spanning = fs.Bool("require-spanning", false, "Only count reads whose alignment covers the whole locus")
	f.noEmpty = fs.Bool("no-empty", false, "Omit the N-allele row for (source, locus) pairs without reads")
	f.parallelism = fs.Int("parallelism", 0, "Number of concurrent workers. 0 means the number of CPUs")
	return f
}

// opts builds the support options described by the flags.
func (f *readFlags) opts() (support.Opts, error) {
	opts := support.DefaultOpts
	opts.Parallelism = *f.parallelism
	opts.RequireSpanning = *f.spanning
	opts.EmitEmpty = !*f.noEmpty
	var err error
	if opts.ReadFilter, err = support.ParseReadFilter(f.readFilter.values); err != nil {
		return opts, err
	}
	if opts.CountGroups, err = support.ParseCountGroups(f.countGroups.values); err != nil {
		return opts, err
	}
	return opts, nil
}

// sources opens a provider per -reads file.  The caller must close them.
func (f *readFlags) sources(restrict locus.Loci) ([]support.Source, error) {
	paths := f.reads.values
	if len(paths) == 0 {
		return nil, fmt.Errorf("-reads not set")
	}
	if *f.index != "" && len(paths) > 1 {
		return nil, fmt.Errorf("-index requires a single -reads file, got %d", len(paths))
	}
	names := f.sourceNames.values
	if len(names) == 0 {
		names = sourceNames(paths)
	}
	if len(names) != len(paths) {
		return nil, fmt.Errorf("got %d -read-source-name values for %d -reads files", len(names), len(paths))
	}
	seen := map[string]bool{}
	sources := make([]support.Source, len(paths))
	for i, path := range paths {
		if seen[names[i]] {
			return nil, fmt.Errorf("duplicate source name %q", names[i])
		}
		seen[names[i]] = true
		sources[i] = support.Source{
			Name:     names[i],
			Provider: bamprovider.NewProvider(path, bamprovider.ProviderOpts{Index: *f.index, Restrict: restrict}),
		}
	}
	return sources, nil
}

func closeSources(sources []support.Source, err *error) {
	for _, src := range sources {
		if e := src.Provider.Close(); e != nil && *err == nil {
			*err = e
		}
	}
}

// sourceNames derives distinct names from paths by dropping their common
// directory prefix.
func sourceNames(paths []string) []string {
	if len(paths) == 1 {
		return []string{filepath.Base(paths[0])}
	}
	prefix := filepath.Dir(paths[0]) + "/"
	for _, p := range paths[1:] {
		for !strings.HasPrefix(p, prefix) {
			if prefix == "/" || prefix == "./" {
				prefix = ""
				break
			}
			prefix = filepath.Dir(strings.TrimSuffix(prefix, "/")) + "/"
		}
		if prefix == "" {
			break
		}
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = strings.TrimPrefix(p, prefix)
	}
	return names
}

// parseOffsets parses a comma-separated list of integers.
func parseOffsets(text string) ([]int, error) {
	if text == "" {
		return nil, nil
	}
	var offsets []int
	for _, s := range strings.Split(text, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("-neighbor-offsets: %v", err)
		}
		offsets = append(offsets, n)
	}
	return offsets, nil
}
