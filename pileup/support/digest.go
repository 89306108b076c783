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
	"strconv"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/unsafe"
)

// Digest returns a hash of groups that is stable across runs, platforms and
// parallelism settings.  Two results with the same digest have the same
// groups in the same order.
func Digest(groups []Group) uint64 {
	h := seahash.New()
	var buf []byte
	for _, g := range groups {
		h.Write(unsafe.StringToBytes(g.Source))       // nolint: errcheck
		h.Write([]byte{0})                            // nolint: errcheck
		h.Write(unsafe.StringToBytes(g.Locus.Contig)) // nolint: errcheck
		buf = append(buf[:0], 0)
		buf = strconv.AppendInt(buf, int64(g.Locus.Start), 10)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, int64(g.Locus.End), 10)
		buf = append(buf, 0)
		h.Write(buf)                            // nolint: errcheck
		h.Write(unsafe.StringToBytes(g.Allele)) // nolint: errcheck
		buf = buf[:0]
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, int64(g.Count), 10)
		for _, n := range g.Sub {
			buf = append(buf, 0)
			buf = strconv.AppendInt(buf, int64(n), 10)
		}
		buf = append(buf, '\n')
		h.Write(buf) // nolint: errcheck
	}
	return h.Sum64()
}
