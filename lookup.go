// Copyright 2025 The Turbo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flathash

import "unsafe"

// Equiv describes how to probe a Map[K, V] with a query of a different
// type Q, without first converting the query to K. Hash must produce
// the same value for a query as the map's hash function produces for
// any key Equal considers a match; in practice this means the map must
// be constructed with WithHash using a function compatible with
// Equiv.Hash (e.g. XXH3String on the map side and XXH3Bytes on the
// query side).
type Equiv[K comparable, Q any] struct {
	Hash  func(q *Q, seed uintptr) uintptr
	Equal func(q *Q, key K) bool
}

// GetEquiv retrieves the value for the key equivalent to the query,
// returning ok=false if no such key is present.
func GetEquiv[K comparable, V any, Q any](m *Map[K, V], eq Equiv[K, Q], q Q) (value V, ok bool) {
	t := &m.tbl
	if t.capacity == 0 {
		return value, false
	}
	h := eq.Hash(&q, t.seed)
	seq := makeProbeSeq(h1(h), t.capacity)
	for ; ; seq = seq.next() {
		g := t.ctrls.At(seq.offset)
		match := g.matchH2(h2(h))
		for match != 0 {
			i := seq.offsetAt(match.first())
			slot := t.slots.At(i)
			if eq.Equal(&q, slot.key) {
				return slot.value, true
			}
			match = match.removeFirst()
		}
		if g.matchEmpty() != 0 {
			return value, false
		}
	}
}

// ContainsEquiv reports whether a key equivalent to the query is
// present in the map.
func ContainsEquiv[K comparable, V any, Q any](m *Map[K, V], eq Equiv[K, Q], q Q) bool {
	t := &m.tbl
	if t.capacity == 0 {
		return false
	}
	h := eq.Hash(&q, t.seed)
	seq := makeProbeSeq(h1(h), t.capacity)
	for ; ; seq = seq.next() {
		g := t.ctrls.At(seq.offset)
		match := g.matchH2(h2(h))
		for match != 0 {
			i := seq.offsetAt(match.first())
			if eq.Equal(&q, t.slots.At(i).key) {
				return true
			}
			match = match.removeFirst()
		}
		if g.matchEmpty() != 0 {
			return false
		}
	}
}

// StringBytesEquiv probes a Map[string, V] with a []byte query without
// converting the bytes to a string. The map must be constructed with
// WithHash(XXH3String); XXH3Bytes and XXH3String agree on the hash of
// a string and its underlying bytes.
var StringBytesEquiv = Equiv[string, []byte]{
	Hash: func(q *[]byte, seed uintptr) uintptr {
		return XXH3Bytes(*q, seed)
	},
	Equal: func(q *[]byte, key string) bool {
		return string(*q) == key
	},
}

// GetBytes retrieves the value for a []byte key from a Map[string, V]
// without allocating. The byte slice is aliased as a string for the
// duration of the lookup only; the map never retains it.
func GetBytes[V any](m *Map[string, V], key []byte) (V, bool) {
	return m.Get(unsafe.String(unsafe.SliceData(key), len(key)))
}

// ContainsBytes reports whether a []byte key is present in a
// Map[string, V] without allocating.
func ContainsBytes[V any](m *Map[string, V], key []byte) bool {
	return m.Contains(unsafe.String(unsafe.SliceData(key), len(key)))
}

// DeleteBytes deletes the entry for a []byte key from a Map[string, V]
// without allocating, reporting whether an entry was present.
func DeleteBytes[V any](m *Map[string, V], key []byte) bool {
	return m.Delete(unsafe.String(unsafe.SliceData(key), len(key)))
}
