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

// NodeMap is a hash table of keys K and values V in which each element
// is a separate heap allocation and the slot array holds only the
// pointers. Lookups pay an extra pointer indirection compared to Map,
// but the address of a value never changes for the lifetime of its
// entry: rehashes move the pointers, not the entries. Use NodeMap when
// callers hold long-lived references into the table or when the
// elements are large enough that moving them on resize is the dominant
// cost. NodeMap is not safe for concurrent use by multiple goroutines.
type NodeMap[K comparable, V any] struct {
	tbl table[K, V, *entry[K, V], nodePolicy[K, V]]
}

// NewNodeMap constructs a new NodeMap with the specified initial
// capacity. If initialCapacity is 0 the map will start out with zero
// capacity and grow on first insertion.
func NewNodeMap[K comparable, V any](initialCapacity int) *NodeMap[K, V] {
	m := &NodeMap[K, V]{}
	m.Init(initialCapacity)
	return m
}

// Init initializes a NodeMap. Panics if the map is already in use.
func (m *NodeMap[K, V]) Init(initialCapacity int) {
	if m.tbl.used != 0 {
		panic("flathash: Init on a non-empty NodeMap")
	}
	m.tbl.init(getRuntimeHasher[K](), defaultAllocator[*entry[K, V]]{})
	m.tbl.reserveCapacity(initialCapacity)
}

// Close releases the memory held by the map's slot and control arrays.
// The entries themselves are reclaimed by the garbage collector once
// no caller holds a reference to them.
func (m *NodeMap[K, V]) Close() {
	m.tbl.close()
}

// Put inserts an entry into the map, overwriting an existing value if
// an entry with the same key already exists. Overwriting updates the
// existing entry in place, so previously returned value pointers
// observe the new value.
func (m *NodeMap[K, V]) Put(key K, value V) {
	m.tbl.put(key, value)
}

// PutIfAbsent inserts an entry if no entry with the same key exists,
// and otherwise leaves the map unchanged. It returns a pointer to the
// resident value, and true if the entry was inserted. Unlike Map, the
// pointer remains valid until the entry is deleted.
func (m *NodeMap[K, V]) PutIfAbsent(key K, value V) (*V, bool) {
	return m.tbl.getOrInsert(key, value)
}

// Get retrieves the value for the specified key, returning ok=false if
// the key is not present.
func (m *NodeMap[K, V]) Get(key K) (value V, ok bool) {
	if slot, ok := m.tbl.get(key); ok {
		return (*slot).value, true
	}
	return value, false
}

// GetRef returns a pointer to the value for the specified key, or nil
// if the key is not present. The pointer remains valid across
// subsequent insertions and rehashes, until the entry is deleted.
func (m *NodeMap[K, V]) GetRef(key K) *V {
	if slot, ok := m.tbl.get(key); ok {
		return &(*slot).value
	}
	return nil
}

// Contains reports whether the key is present in the map.
func (m *NodeMap[K, V]) Contains(key K) bool {
	_, ok := m.tbl.get(key)
	return ok
}

// Delete deletes the entry corresponding to the specified key from the
// map, reporting whether an entry was present.
func (m *NodeMap[K, V]) Delete(key K) bool {
	return m.tbl.deleteKey(key)
}

// Clear deletes all entries from the map, retaining its current
// capacity.
func (m *NodeMap[K, V]) Clear() {
	m.tbl.clear()
}

// Reserve grows the map's capacity, if necessary, so that at least n
// elements can reside in the map without rehashing.
func (m *NodeMap[K, V]) Reserve(n int) {
	m.tbl.reserve(n)
}

// Len returns the number of entries in the map.
func (m *NodeMap[K, V]) Len() int {
	return m.tbl.used
}

// Cap returns the total number of slots in the map, including both
// occupied and unoccupied ones.
func (m *NodeMap[K, V]) Cap() int {
	return int(m.tbl.capacity)
}

// All calls yield sequentially for each key and value present in the
// map. If yield returns false, All stops iteration.
func (m *NodeMap[K, V]) All(yield func(key K, value V) bool) {
	m.tbl.all(func(slot **entry[K, V]) bool {
		e := *slot
		return yield(e.key, e.value)
	})
}

// Iter returns an iterator positioned before the map's first element.
func (m *NodeMap[K, V]) Iter() NodeIterator[K, V] {
	return NodeIterator[K, V]{it: makeTableIter(&m.tbl)}
}
