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
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// GroupColumns are the leading columns of the allele-support table; the count
// columns (Result.Labels) follow.
var GroupColumns = []string{"source", "contig", "interbase_start", "interbase_end", "allele"}

// VariantSupportColumns are the columns of the variant-support table.
var VariantSupportColumns = []string{
	"source", "contig", "interbase_start", "interbase_end", "ref", "alt", "count_column",
	"num_alt", "num_ref", "num_other", "total_depth", "alt_fraction", "any_alt_fraction",
}

// tsvFile is a tsv.Writer on a local or S3 file, bgzipped when the path ends
// in ".gz".
type tsvFile struct {
	*tsv.Writer
	ctx  context.Context
	dst  file.File
	bgzf *bgzf.Writer
}

func createTSV(ctx context.Context, path string, header []string) (*tsvFile, error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	f := &tsvFile{ctx: ctx, dst: dst}
	if strings.HasSuffix(path, ".gz") {
		f.bgzf = bgzf.NewWriter(dst.Writer(ctx), 1)
		f.Writer = tsv.NewWriter(f.bgzf)
	} else {
		f.Writer = tsv.NewWriter(dst.Writer(ctx))
	}
	for _, col := range header {
		f.WriteString(col)
	}
	if err := f.EndLine(); err != nil {
		_ = f.close()
		return nil, err
	}
	return f, nil
}

func (f *tsvFile) close() (err error) {
	defer file.CloseAndReport(f.ctx, f.dst, &err)
	if err = f.Flush(); err != nil {
		return
	}
	if f.bgzf != nil {
		err = f.bgzf.Close()
	}
	return
}

// countLabels returns res.Labels, defaulting to a lone "count" column for a
// hand-built Result.
func countLabels(res Result) []string {
	if len(res.Labels) == 0 {
		return []string{"count"}
	}
	return res.Labels
}

// WriteTSV writes res.Groups as a tab-separated table with a header line.
func WriteTSV(ctx context.Context, path string, res Result) (err error) {
	f, err := createTSV(ctx, path, append(append([]string(nil), GroupColumns...), countLabels(res)...))
	if err != nil {
		return err
	}
	defer func() {
		if e := f.close(); e != nil && err == nil {
			err = e
		}
	}()
	for _, g := range res.Groups {
		f.WriteString(g.Source)
		f.WriteString(g.Locus.Contig)
		f.WriteUint32(uint32(g.Locus.Start))
		f.WriteUint32(uint32(g.Locus.End))
		f.WriteString(g.Allele)
		f.WriteUint32(uint32(g.Count))
		for _, n := range g.Sub {
			f.WriteUint32(uint32(n))
		}
		if err = f.EndLine(); err != nil {
			return err
		}
	}
	log.Printf("support: wrote %d groups to %s", len(res.Groups), path)
	return nil
}

func formatFraction(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}

// WriteVariantSupportTSV writes rows as a tab-separated table with a header
// line.  Empty alleles are written as "-".
func WriteVariantSupportTSV(ctx context.Context, path string, rows []VariantSupportRow) (err error) {
	f, err := createTSV(ctx, path, VariantSupportColumns)
	if err != nil {
		return err
	}
	defer func() {
		if e := f.close(); e != nil && err == nil {
			err = e
		}
	}()
	for _, r := range rows {
		f.WriteString(r.Source)
		f.WriteString(r.Variant.Contig)
		f.WriteUint32(uint32(r.Variant.Start))
		f.WriteUint32(uint32(r.Variant.End))
		f.WriteString(dash(r.Variant.Ref))
		f.WriteString(dash(r.Variant.Alt))
		f.WriteString(r.Label)
		f.WriteUint32(uint32(r.NumAlt))
		f.WriteUint32(uint32(r.NumRef))
		f.WriteUint32(uint32(r.NumOther))
		f.WriteUint32(uint32(r.TotalDepth))
		f.WriteString(formatFraction(r.AltFraction))
		f.WriteString(formatFraction(r.AnyAltFraction))
		if err = f.EndLine(); err != nil {
			return err
		}
	}
	log.Printf("support: wrote %d variant-support rows to %s", len(rows), path)
	return nil
}

func dash(allele string) string {
	if allele == "" {
		return "-"
	}
	return allele
}
