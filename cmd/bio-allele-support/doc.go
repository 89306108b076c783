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

/*
bio-allele-support counts the reads supporting each allele at a set of loci,
in one or more BAM or SAM files.

Subcommands:

  allele-support   one row per (source, locus, allele): read counts, plus one
                   column per -count-group.
  variant-support  one row per (variant, source, count column): num_alt,
                   num_ref, num_other, total_depth, alt_fraction,
                   any_alt_fraction.
  variants         one row per loaded variant, optionally with its reference
                   sequence context (-reference).

Loci are written either 1-based inclusive ("chr1:100", "chr1:100-120") or
0-based half-open ("chr1/99", "chr1/99-120").  A zero-width locus such as
"chr1/100-100" asks what, if anything, is inserted between reference bases
99 and 100.

Example:

  bio-allele-support allele-support     -reads tumor.bam,normal.bam     -locus chr22:46929963,chr22/46931061     -count-group 'nodup:!is_duplicate'     -out support.tsv.gz
*/
package main
