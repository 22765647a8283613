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

// Package flathash provides open-addressed hash containers in the
// Swiss table style: Map, Set, and NodeMap, all built on a single
// probing core.
//
// The containers store elements in a flat array of slots paired with a
// parallel array of control bytes, one per slot. A control byte is
// either empty, deleted (a tombstone), or holds the low 7 bits of the
// slot's hash (the H2 bits). Lookup splits hash(key) into H1 (the
// upper 57 bits) and H2, uses H1 to pick a starting group of
// groupWidth adjacent control bytes, and then compares H2 against the
// whole group at once: 16 bytes per SSE instruction on amd64, 8 bytes
// per word of bit arithmetic elsewhere. Candidates that match H2 are
// confirmed with a full key comparison; a group containing an empty
// control byte terminates the search. Groups are visited in a
// quadratic sequence i, i+1, i+3, i+6, ... (mod the number of groups)
// which visits every group exactly once per cycle.
//
// The table's size is always a power of two minus one so that the
// capacity can serve as a bit mask, and the control byte array carries
// groupWidth extra bytes: a sentinel at index capacity and a mirror of
// the first groupWidth-1 control bytes, so that a group loaded near
// the end of the array sees coherent state without wraparound
// arithmetic. The table grows by doubling when the load factor reaches
// 7/8, or drops its tombstones in place when they account for enough
// of the capacity to make the sweep worthwhile.
//
// Map stores key/value pairs inline in the slot array and is the
// general-purpose container. Set stores only keys. NodeMap stores
// pointers to heap-allocated entries, trading a pointer chase on every
// access for value addresses that remain stable across rehashes.
package flathash

// Map is a hash table of keys K and values V. Elements are stored
// inline in the slot array, so pointers to values returned by
// PutIfAbsent and friends are invalidated by the next operation that
// can rehash. Map is not safe for concurrent use by multiple
// goroutines.
type Map[K comparable, V any] struct {
	tbl table[K, V, Slot[K, V], mapPolicy[K, V]]
}

// New constructs a new Map with the specified initial capacity. If
// initialCapacity is 0 the map will start out with zero capacity and
// grow on first insertion. The zero value for a Map is not usable; use
// New or Init.
func New[K comparable, V any](initialCapacity int, options ...Option[K, V]) *Map[K, V] {
	m := &Map[K, V]{}
	m.Init(initialCapacity, options...)
	return m
}

// Init initializes a Map, reusing its memory for the struct itself.
// Panics if the map is already in use.
func (m *Map[K, V]) Init(initialCapacity int, options ...Option[K, V]) {
	if m.tbl.used != 0 {
		panic("flathash: Init on a non-empty Map")
	}
	m.tbl.init(getRuntimeHasher[K](), defaultAllocator[Slot[K, V]]{})
	for _, op := range options {
		op.apply(m)
	}
	m.tbl.reserveCapacity(initialCapacity)
}

// Close releases the memory held by the map. It is unnecessary when
// using the default allocator, but required when a custom Allocator
// manages the slot storage. The map must not be used after Close.
func (m *Map[K, V]) Close() {
	m.tbl.close()
}

// Put inserts an entry into the map, overwriting an existing value if
// an entry with the same key already exists.
func (m *Map[K, V]) Put(key K, value V) {
	m.tbl.put(key, value)
}

// PutIfAbsent inserts an entry if no entry with the same key exists,
// and otherwise leaves the map unchanged. It returns a pointer to the
// resident value, and true if the entry was inserted. The pointer is
// valid only until the next operation that can rehash the map.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (*V, bool) {
	return m.tbl.getOrInsert(key, value)
}

// PutIfAbsentFunc is PutIfAbsent with the value constructed on demand,
// only when the key is absent. If the constructor returns an error the
// map is unchanged and the error is returned.
func (m *Map[K, V]) PutIfAbsentFunc(key K, value func() (V, error)) (*V, bool, error) {
	return m.tbl.getOrInsertFunc(key, value)
}

// Get retrieves the value for the specified key, returning ok=false if
// the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	if slot, ok := m.tbl.get(key); ok {
		return slot.value, true
	}
	return value, false
}

// Contains reports whether the key is present in the map.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.tbl.get(key)
	return ok
}

// Delete deletes the entry corresponding to the specified key from the
// map, reporting whether an entry was present. Deleting even a large
// fraction of the elements does not shrink the table's memory; use
// Clear followed by Close, or let the map be garbage collected, to
// release it.
func (m *Map[K, V]) Delete(key K) bool {
	return m.tbl.deleteKey(key)
}

// Clear deletes all entries from the map, retaining its current
// capacity.
func (m *Map[K, V]) Clear() {
	m.tbl.clear()
}

// Reserve grows the map's capacity, if necessary, so that at least n
// elements can reside in the map without rehashing. A subsequent
// Reserve for a smaller n is a no-op.
func (m *Map[K, V]) Reserve(n int) {
	m.tbl.reserve(n)
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.tbl.used
}

// Cap returns the total number of slots in the map, including both
// occupied and unoccupied ones.
func (m *Map[K, V]) Cap() int {
	return int(m.tbl.capacity)
}

// All calls yield sequentially for each key and value present in the
// map. If yield returns false, All stops iteration. The iteration
// semantics are those documented on Iterator.
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	m.tbl.all(func(slot *Slot[K, V]) bool {
		return yield(slot.key, slot.value)
	})
}

// Iter returns an iterator positioned before the map's first element.
func (m *Map[K, V]) Iter() Iterator[K, V] {
	return Iterator[K, V]{it: makeTableIter(&m.tbl)}
}

// GoString implements the fmt.GoStringer interface, printing the
// internal table layout for debugging.
func (m *Map[K, V]) GoString() string {
	return m.tbl.debugString()
}
