package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// GenerateIndex writes the .fai index of the FASTA data in in, in the format
// produced by "samtools faidx".  The index can be passed to NewIndexed.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w       = tsv.NewWriter(out)
		r       = bufio.NewReader(in)
		cur     indexEntry
		pending bool
		pos     int64
	)
	emit := func() error {
		if cur.name == "" {
			return errors.E(errors.Invalid, "malformed FASTA file: sequence without a name")
		}
		w.WriteString(cur.name)
		w.WriteInt64(int64(cur.length))
		w.WriteInt64(int64(cur.offset))
		w.WriteInt64(int64(cur.lineBases))
		w.WriteInt64(int64(cur.lineBytes))
		return w.EndLine()
	}
	for {
		line, e := r.ReadBytes('\n')
		if e != nil && e != io.EOF {
			return e
		}
		pos += int64(len(line))
		bases := bytes.TrimRight(line, "\r\n")
		switch {
		case len(bases) == 0:
		case bases[0] == '>':
			if pending {
				if err := emit(); err != nil {
					return err
				}
			}
			cur = indexEntry{name: strings.Split(string(bases[1:]), " ")[0], offset: uint64(pos)}
			pending = true
		default:
			if cur.lineBytes == 0 {
				cur.lineBytes = uint64(len(line))
				cur.lineBases = uint64(len(bases))
			}
			cur.length += uint64(len(bases))
		}
		if e == io.EOF {
			break
		}
	}
	if pos == 0 {
		return errors.E(errors.Invalid, "empty FASTA file")
	}
	if pending {
		if err := emit(); err != nil {
			return err
		}
	}
	return w.Flush()
}
