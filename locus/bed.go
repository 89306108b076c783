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
package locus

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// ReadBED parses BED3+ lines from r.  Header, track and comment lines are
// skipped.  Columns past the third are ignored.  BED intervals are already
// interbase, so they are used as is; zero-width intervals are kept.
func ReadBED(r io.Reader) ([]Locus, error) {
	var (
		loci   []Locus
		tokens [3][]byte
		lineNo int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		curLine := scanner.Bytes()
		if n := getTokens(tokens[:], curLine); n < 3 {
			if n == 0 {
				continue
			}
			if isBEDHeader(tokens[0]) {
				continue
			}
			return nil, errors.E(errors.Invalid, fmt.Sprintf("locus.ReadBED: line %d has %d column(s), need at least 3", lineNo, n))
		}
		if isBEDHeader(tokens[0]) {
			continue
		}
		start, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("locus.ReadBED: line %d", lineNo))
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("locus.ReadBED: line %d", lineNo))
		}
		l, err := New(string(tokens[0]), start, end)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("locus.ReadBED: line %d", lineNo))
		}
		loci = append(loci, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return loci, nil
}

func isBEDHeader(tok []byte) bool {
	return tok[0] == '#' || bytes.Equal(tok, []byte("track")) || bytes.Equal(tok, []byte("browser"))
}

// LoadBED reads the loci listed in a (possibly gzipped) BED file.
func LoadBED(ctx context.Context, path string) (loci []Locus, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return
		}
		defer gz.Close()
		reader = gz
	}
	if loci, err = ReadBED(reader); err != nil {
		err = errors.E(err, path)
	}
	return
}
