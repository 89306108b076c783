package fasta

import (
	"bytes"
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// File is a Fasta backed by a local or S3 file.
type File struct {
	Fasta
	f file.File
}

// Open opens the FASTA file at path, which may be local or on S3.  The index
// is read from path + ".fai" if that exists; otherwise it is computed by
// scanning the file once.
func Open(ctx context.Context, path string) (*File, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	var index bytes.Buffer
	if _, err := file.Stat(ctx, path+".fai"); err == nil {
		if err := readIndex(ctx, path+".fai", &index); err != nil {
			_ = f.Close(ctx)
			return nil, err
		}
	} else {
		log.Printf("fasta: %s.fai: %v; indexing %s", path, err, path)
		if err := GenerateIndex(&index, f.Reader(ctx)); err != nil {
			_ = f.Close(ctx)
			return nil, errors.E(err, "index", path)
		}
	}
	fa, err := NewIndexed(f.Reader(ctx), &index)
	if err != nil {
		_ = f.Close(ctx)
		return nil, errors.E(err, path)
	}
	return &File{Fasta: fa, f: f}, nil
}

func readIndex(ctx context.Context, path string, dst *bytes.Buffer) (err error) {
	idx, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, idx, &err)
	_, err = dst.ReadFrom(idx.Reader(ctx))
	return err
}

// Close closes the underlying file.
func (f *File) Close(ctx context.Context) error {
	return f.f.Close(ctx)
}
