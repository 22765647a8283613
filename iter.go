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

// tableIter walks the occupied slots of a table one group at a time,
// using the group scanner to skip empty and deleted slots in bulk.
//
// The iterator snapshots the control and slot arrays when created so
// that iteration remains memory-safe if the table grows mid-iteration
// (the snapshot keeps the old arrays alive). Elements inserted after
// the snapshot may or may not be visited, and an element moved by a
// rehash may be visited twice or not at all; the only guarantee is that
// an element present for the whole iteration and never moved is visited
// exactly once.
type tableIter[K comparable, V any, S any, P policy[K, V, S]] struct {
	t        *table[K, V, S, P]
	ctrls    unsafeSlice[ctrl]
	slots    unsafeSlice[S]
	capacity uintptr
	// base is the start of the next group to scan. Groups are scanned
	// at stride groupWidth starting from 0; since capacity+1 is a
	// multiple of groupWidth for any non-empty table, aligned groups
	// never wrap into the mirrored control bytes, and the sentinel at
	// index capacity never matches matchFull.
	base uintptr
	mask bitmask
	cur  *S
}

func makeTableIter[K comparable, V any, S any, P policy[K, V, S]](t *table[K, V, S, P]) tableIter[K, V, S, P] {
	return tableIter[K, V, S, P]{
		t:        t,
		ctrls:    t.ctrls,
		slots:    t.slots,
		capacity: t.capacity,
	}
}

// next advances to the next occupied slot, returning false when the
// table is exhausted.
func (it *tableIter[K, V, S, P]) next() bool {
	for it.mask == 0 {
		if it.base > it.capacity {
			return false
		}
		it.mask = it.ctrls.At(it.base).matchFull()
		it.base += groupWidth
	}
	i := it.base - groupWidth + it.mask.first()
	it.mask = it.mask.removeFirst()
	it.cur = it.slots.At(i)
	return true
}

// deleteCur removes the current element from the live table. The
// element is located by key rather than by position so that the
// deletion lands correctly even if the table was rehashed since the
// iterator was created.
func (it *tableIter[K, V, S, P]) deleteCur() {
	var p P
	k := p.slotKey(it.cur)
	it.t.deleteKey(k)
}

// Iterator provides iteration over a Map's elements with the semantics
// described on tableIter. Next must be called before the first use of
// Key or Value.
type Iterator[K comparable, V any] struct {
	it tableIter[K, V, Slot[K, V], mapPolicy[K, V]]
}

// Next advances to the next element, returning false if the iterator
// is exhausted.
func (i *Iterator[K, V]) Next() bool {
	return i.it.next()
}

// Key returns the key of the current element.
func (i *Iterator[K, V]) Key() K {
	return i.it.cur.key
}

// Value returns the value of the current element.
func (i *Iterator[K, V]) Value() V {
	return i.it.cur.value
}

// Delete removes the current element from the map. The iterator
// remains valid and positioned; Next continues with the following
// element.
func (i *Iterator[K, V]) Delete() {
	i.it.deleteCur()
}

// SetIterator provides iteration over a Set's elements with the
// semantics described on tableIter.
type SetIterator[K comparable] struct {
	it tableIter[K, struct{}, K, setPolicy[K]]
}

// Next advances to the next element, returning false if the iterator
// is exhausted.
func (i *SetIterator[K]) Next() bool {
	return i.it.next()
}

// Elem returns the current element.
func (i *SetIterator[K]) Elem() K {
	return *i.it.cur
}

// Delete removes the current element from the set.
func (i *SetIterator[K]) Delete() {
	i.it.deleteCur()
}

// NodeIterator provides iteration over a NodeMap's elements with the
// semantics described on tableIter.
type NodeIterator[K comparable, V any] struct {
	it tableIter[K, V, *entry[K, V], nodePolicy[K, V]]
}

// Next advances to the next element, returning false if the iterator
// is exhausted.
func (i *NodeIterator[K, V]) Next() bool {
	return i.it.next()
}

// Key returns the key of the current element.
func (i *NodeIterator[K, V]) Key() K {
	return (*i.it.cur).key
}

// Value returns a pointer to the value of the current element. The
// pointer remains valid for the lifetime of the entry regardless of
// subsequent rehashes.
func (i *NodeIterator[K, V]) Value() *V {
	return &(*i.it.cur).value
}

// Delete removes the current element from the map.
func (i *NodeIterator[K, V]) Delete() {
	i.it.deleteCur()
}
