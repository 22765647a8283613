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

// Set is a hash set of elements K. The slot array holds the elements
// directly; there is no per-element value storage at all, so a
// Set[int64] costs 8 bytes per slot plus the control byte. Set is not
// safe for concurrent use by multiple goroutines.
type Set[K comparable] struct {
	tbl table[K, struct{}, K, setPolicy[K]]
}

// NewSet constructs a new Set with the specified initial capacity. If
// initialCapacity is 0 the set will start out with zero capacity and
// grow on first insertion.
func NewSet[K comparable](initialCapacity int) *Set[K] {
	s := &Set[K]{}
	s.Init(initialCapacity)
	return s
}

// Init initializes a Set. Panics if the set is already in use.
func (s *Set[K]) Init(initialCapacity int) {
	if s.tbl.used != 0 {
		panic("flathash: Init on a non-empty Set")
	}
	s.tbl.init(getRuntimeHasher[K](), defaultAllocator[K]{})
	s.tbl.reserveCapacity(initialCapacity)
}

// Close releases the memory held by the set. The set must not be used
// after Close.
func (s *Set[K]) Close() {
	s.tbl.close()
}

// Insert adds the element to the set, reporting whether it was absent.
func (s *Set[K]) Insert(elem K) bool {
	_, inserted := s.tbl.getOrInsert(elem, setValue)
	return inserted
}

// Contains reports whether the element is present in the set.
func (s *Set[K]) Contains(elem K) bool {
	_, ok := s.tbl.get(elem)
	return ok
}

// Delete removes the element from the set, reporting whether it was
// present.
func (s *Set[K]) Delete(elem K) bool {
	return s.tbl.deleteKey(elem)
}

// Clear deletes all elements from the set, retaining its current
// capacity.
func (s *Set[K]) Clear() {
	s.tbl.clear()
}

// Reserve grows the set's capacity, if necessary, so that at least n
// elements can reside in the set without rehashing.
func (s *Set[K]) Reserve(n int) {
	s.tbl.reserve(n)
}

// Len returns the number of elements in the set.
func (s *Set[K]) Len() int {
	return s.tbl.used
}

// Cap returns the total number of slots in the set, including both
// occupied and unoccupied ones.
func (s *Set[K]) Cap() int {
	return int(s.tbl.capacity)
}

// All calls yield sequentially for each element present in the set. If
// yield returns false, All stops iteration.
func (s *Set[K]) All(yield func(elem K) bool) {
	s.tbl.all(func(slot *K) bool {
		return yield(*slot)
	})
}

// Iter returns an iterator positioned before the set's first element.
func (s *Set[K]) Iter() SetIterator[K] {
	return SetIterator[K]{it: makeTableIter(&s.tbl)}
}
