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

// Package support counts, for every (alignment source, locus) pair, which
// alleles the overlapping reads carry.
//
// Compute produces one Group per distinct allele; groups for a (source, locus)
// appear in the order their alleles were first observed.  Optional count
// groups (named read predicates) add per-allele sub-counts, e.g. "reads that
// are not duplicates".  VariantSupport reduces those groups to ref/alt/other
// counts for a list of variants.
package support
