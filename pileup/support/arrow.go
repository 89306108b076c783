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

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// arrowChunkSize is the number of rows per Arrow record batch.
const arrowChunkSize = 1 << 16

// ArrowSchema returns the schema WriteArrow uses for labels: the
// GroupColumns (strings, with int64 coordinates) followed by one int64 column
// per count label.
func ArrowSchema(labels []string) *arrow.Schema {
	fields := []arrow.Field{
		{Name: "source", Type: arrow.BinaryTypes.String},
		{Name: "contig", Type: arrow.BinaryTypes.String},
		{Name: "interbase_start", Type: arrow.PrimitiveTypes.Int64},
		{Name: "interbase_end", Type: arrow.PrimitiveTypes.Int64},
		{Name: "allele", Type: arrow.BinaryTypes.String},
	}
	for _, label := range labels {
		fields = append(fields, arrow.Field{Name: label, Type: arrow.PrimitiveTypes.Int64})
	}
	return arrow.NewSchema(fields, nil)
}

type arrowWriter struct {
	schema   *arrow.Schema
	w        *ipc.FileWriter
	source   *array.StringBuilder
	contig   *array.StringBuilder
	start    *array.Int64Builder
	end      *array.Int64Builder
	allele   *array.StringBuilder
	counts   []*array.Int64Builder
	nPending int
}

func (aw *arrowWriter) append(g Group) error {
	aw.source.Append(g.Source)
	aw.contig.Append(g.Locus.Contig)
	aw.start.Append(int64(g.Locus.Start))
	aw.end.Append(int64(g.Locus.End))
	aw.allele.Append(g.Allele)
	aw.counts[0].Append(int64(g.Count))
	for i, n := range g.Sub {
		aw.counts[i+1].Append(int64(n))
	}
	aw.nPending++
	if aw.nPending == arrowChunkSize {
		return aw.flush()
	}
	return nil
}

func (aw *arrowWriter) flush() error {
	if aw.nPending == 0 {
		return nil
	}
	builders := []array.Builder{aw.source, aw.contig, aw.start, aw.end, aw.allele}
	for _, b := range aw.counts {
		builders = append(builders, b)
	}
	cols := make([]arrow.Array, len(builders))
	for i, b := range builders {
		// NewArray resets the builder.
		cols[i] = b.NewArray()
		defer cols[i].Release()
	}
	rec := array.NewRecord(aw.schema, cols, int64(aw.nPending))
	defer rec.Release()
	aw.nPending = 0
	return aw.w.Write(rec)
}

// WriteArrow writes res.Groups as an Arrow IPC file with schema
// ArrowSchema(res.Labels).
func WriteArrow(ctx context.Context, path string, res Result) (err error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)

	pool := memory.NewGoAllocator()
	aw := arrowWriter{
		schema: ArrowSchema(countLabels(res)),
		source: array.NewStringBuilder(pool),
		contig: array.NewStringBuilder(pool),
		start:  array.NewInt64Builder(pool),
		end:    array.NewInt64Builder(pool),
		allele: array.NewStringBuilder(pool),
	}
	for range countLabels(res) {
		aw.counts = append(aw.counts, array.NewInt64Builder(pool))
	}
	if aw.w, err = ipc.NewFileWriter(dst.Writer(ctx), ipc.WithSchema(aw.schema), ipc.WithAllocator(pool)); err != nil {
		return err
	}
	for _, g := range res.Groups {
		if err = aw.append(g); err != nil {
			return err
		}
	}
	if err = aw.flush(); err != nil {
		return err
	}
	if err = aw.w.Close(); err != nil {
		return err
	}
	log.Printf("support: wrote %d groups to %s", len(res.Groups), path)
	return nil
}
