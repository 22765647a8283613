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

import (
	"fmt"
	"math/bits"
	"math/rand/v2"
	"strings"
	"unsafe"
)

// table is the probing core shared by Map, Set, and NodeMap. It is
// generic over the slot type S and the policy P that constructs,
// destroys, and projects slots.
type table[K comparable, V any, S any, P policy[K, V, S]] struct {
	// The hash function applied to keys of type K.
	hash hashFn
	seed uintptr
	// The allocator used for the ctrls and slots arrays.
	allocator Allocator[S]
	// ctrls is capacity+groupWidth in length. ctrls[capacity] is always
	// ctrlSentinel which is used to stop probe iteration. A copy of the
	// first groupWidth-1 elements of ctrls is mirrored into the
	// remaining slots which is done so that a probe sequence which
	// picks a value near the end of ctrls will have valid control bytes
	// to look at.
	//
	// When the table is empty, ctrls points to emptyCtrls which will
	// never be modified and is used to simplify the insertion code
	// which doesn't have to check for a nil ctrls.
	ctrls unsafeSlice[ctrl]
	// slots is capacity in length. Slot i holds a constructed element
	// iff ctrls[i] is full.
	slots unsafeSlice[S]
	// The total number of slots (always 2^N-1). The capacity is used as
	// a mask to quickly compute i%N using a bitwise & operation.
	capacity uintptr
	// The number of filled slots (i.e. the number of elements in the
	// table).
	used int
	// The number of slots we can still fill without needing to rehash.
	//
	// This is stored separately from the tombstone count because we'd
	// like to rehash when the table is filled with tombstones as
	// otherwise probe sequences might get unacceptably long without
	// triggering a rehash.
	growthLeft int
	// The number of deleted slots still on some probe path. Always
	// used + tombstones + growthLeft == loadLimit(capacity) for tables
	// larger than a single group.
	tombstones int
}

// loadLimit returns the maximum number of occupied slots for a table of
// the given capacity. Tables that fit in a single group are allowed to
// fill every slot but one (an empty slot is needed to terminate find
// operations); larger tables rehash at 7/8 load.
func loadLimit(capacity uintptr) uintptr {
	if capacity < groupWidth {
		return capacity - 1
	}
	return capacity * maxAvgGroupLoad / groupWidth
}

func (t *table[K, V, S, P]) init(hash hashFn, allocator Allocator[S]) {
	*t = table[K, V, S, P]{
		hash:      hash,
		seed:      uintptr(rand.Uint64()),
		allocator: allocator,
		ctrls:     emptyCtrls,
	}
}

// reserveCapacity sizes a freshly initialized table for the requested
// capacity hint.
func (t *table[K, V, S, P]) reserveCapacity(initialCapacity int) {
	if initialCapacity > 0 {
		// The smallest value of the form 2^k-1 that is >= initialCapacity.
		targetCapacity := (uintptr(1) << bits.Len(uint(initialCapacity))) - 1
		t.resize(targetCapacity)
	}
	t.checkInvariants()
}

func (t *table[K, V, S, P]) close() {
	if t.capacity > 0 {
		t.allocator.FreeSlots(t.slots.Slice(0, t.capacity))
		t.allocator.FreeControls(unsafeConvertSlice[uint8](t.ctrls.Slice(0, t.capacity+groupWidth)))
		t.capacity = 0
		t.used = 0
	}
	t.ctrls = makeUnsafeSlice([]ctrl(nil))
	t.slots = makeUnsafeSlice([]S(nil))
	t.allocator = nil
}

// get returns the slot holding key, if present.
//
// To find the location of a key in the table, we compute hash(key).
// From h1(hash(key)) and the capacity, we construct a probeSeq that
// visits every group of slots in some interesting order. At each group
// we extract potential candidates: occupied slots with a control byte
// equal to h2(hash(key)). The h2 bits ensure that when we compare a key
// we are likely to have actually found the object; measurements on
// Abseil's implementation indicate fewer than 1/8 false positive
// comparisons per find even at high load. If a group contains an empty
// slot the key cannot be stored past it and the search stops.
// Tombstones effectively behave like full slots that never match the
// key we're looking for.
func (t *table[K, V, S, P]) get(key K) (*S, bool) {
	if t.capacity == 0 {
		// A zero-capacity table holds nothing and has no slot storage.
		// Answer from the capacity check without touching the shared
		// empty control block.
		return nil, false
	}
	var p P
	h := t.hash(noescape(unsafe.Pointer(&key)), t.seed)
	seq := makeProbeSeq(h1(h), t.capacity)
	for ; ; seq = seq.next() {
		g := t.ctrls.At(seq.offset)
		match := g.matchH2(h2(h))
		for match != 0 {
			i := seq.offsetAt(match.first())
			slot := t.slots.At(i)
			if key == p.slotKey(slot) {
				return slot, true
			}
			match = match.removeFirst()
		}
		if g.matchEmpty() != 0 {
			return nil, false
		}
	}
}

// put inserts an entry into the table, overwriting an existing value if
// an entry with the same key already exists.
func (t *table[K, V, S, P]) put(key K, value V) {
	if v, inserted := t.getOrInsert(key, value); !inserted {
		*v = value
	}
}

// getOrInsert inserts an entry if no entry with the same key exists,
// and otherwise leaves the table unchanged. It returns a pointer to the
// resident value, which remains valid until the next operation that can
// rehash.
func (t *table[K, V, S, P]) getOrInsert(key K, value V) (*V, bool) {
	var p P
	h := t.hash(noescape(unsafe.Pointer(&key)), t.seed)
	seq := makeProbeSeq(h1(h), t.capacity)
	for ; ; seq = seq.next() {
		g := t.ctrls.At(seq.offset)
		match := g.matchH2(h2(h))
		for match != 0 {
			i := seq.offsetAt(match.first())
			slot := t.slots.At(i)
			if key == p.slotKey(slot) {
				return p.slotValue(slot), false
			}
			match = match.removeFirst()
		}
		if g.matchEmpty() != 0 {
			// The key is absent. Before performing the insertion we may
			// decide the table is getting overcrowded (i.e. the load
			// factor is greater than 7/8 for big tables; small tables
			// use a max load factor of 1).
			if t.growthLeft == 0 {
				t.rehash()
			}
			i := t.insertSlot(h)
			slot := t.slots.At(i)
			p.initSlot(slot, key, value)
			t.used++
			t.checkInvariants()
			return p.slotValue(slot), true
		}
	}
}

// getOrInsertFunc is getOrInsert with the value produced on demand. The
// constructor runs before any table state is modified: if it returns an
// error the table is unchanged.
func (t *table[K, V, S, P]) getOrInsertFunc(key K, value func() (V, error)) (*V, bool, error) {
	var p P
	h := t.hash(noescape(unsafe.Pointer(&key)), t.seed)
	seq := makeProbeSeq(h1(h), t.capacity)
	for ; ; seq = seq.next() {
		g := t.ctrls.At(seq.offset)
		match := g.matchH2(h2(h))
		for match != 0 {
			i := seq.offsetAt(match.first())
			slot := t.slots.At(i)
			if key == p.slotKey(slot) {
				return p.slotValue(slot), false, nil
			}
			match = match.removeFirst()
		}
		if g.matchEmpty() != 0 {
			v, err := value()
			if err != nil {
				return nil, false, err
			}
			if t.growthLeft == 0 {
				t.rehash()
			}
			i := t.insertSlot(h)
			slot := t.slots.At(i)
			p.initSlot(slot, key, v)
			t.used++
			t.checkInvariants()
			return p.slotValue(slot), true, nil
		}
	}
}

// insertSlot claims the first empty or deleted slot on the probe
// sequence for h, marks it full, and updates the growth accounting. The
// caller must have verified that the key is not present and must
// construct the element in the returned slot.
func (t *table[K, V, S, P]) insertSlot(h uintptr) uintptr {
	i := t.findFirstNonFull(h)
	if *t.ctrls.At(i) == ctrlEmpty {
		t.growthLeft--
	} else {
		t.tombstones--
	}
	t.setCtrl(i, ctrl(h2(h)))
	return i
}

// findFirstNonFull returns the first empty or deleted slot on the probe
// sequence for h. The accounting performed by insertion and deletion
// guarantees at least one truly empty slot exists, so the probe always
// terminates.
func (t *table[K, V, S, P]) findFirstNonFull(h uintptr) uintptr {
	seq := makeProbeSeq(h1(h), t.capacity)
	for ; ; seq = seq.next() {
		g := t.ctrls.At(seq.offset)
		if match := g.matchEmptyOrDeleted(); match != 0 {
			return seq.offsetAt(match.first())
		}
	}
}

// deleteKey deletes the entry corresponding to the specified key from
// the table, reporting whether an entry was present.
func (t *table[K, V, S, P]) deleteKey(key K) bool {
	if t.capacity == 0 {
		return false
	}
	var p P
	h := t.hash(noescape(unsafe.Pointer(&key)), t.seed)
	seq := makeProbeSeq(h1(h), t.capacity)
	for ; ; seq = seq.next() {
		g := t.ctrls.At(seq.offset)
		match := g.matchH2(h2(h))
		for match != 0 {
			i := seq.offsetAt(match.first())
			slot := t.slots.At(i)
			if key == p.slotKey(slot) {
				t.eraseAt(i)
				t.checkInvariants()
				return true
			}
			match = match.removeFirst()
		}
		if g.matchEmpty() != 0 {
			return false
		}
	}
}

// eraseAt destroys the element in the full slot at index i.
//
// Given an index to delete we simply create a tombstone and destroy the
// slot's contents. If we can prove that the slot would never appear in
// a probe sequence for another present key we can mark the slot as
// empty instead, reclaiming growth capacity. We prove this by checking
// whether the slot was ever part of a group with no empty slots: if
// every group overlapping the slot contains an empty byte, a find for
// any key would have stopped at one of those groups without needing to
// probe past this slot.
func (t *table[K, V, S, P]) eraseAt(i uintptr) {
	var p P
	p.destroySlot(t.slots.At(i))
	t.used--
	if t.wasNeverFull(i) {
		t.setCtrl(i, ctrlEmpty)
		t.growthLeft++
	} else {
		t.setCtrl(i, ctrlDeleted)
		t.tombstones++
	}
}

// wasNeverFull returns true if index i was never part of a full group.
// See the comment on eraseAt for why this permits the deleted slot to
// become empty rather than a tombstone.
func (t *table[K, V, S, P]) wasNeverFull(i uintptr) bool {
	if t.capacity < groupWidth {
		// The table fits entirely in a single group so we will never
		// probe beyond this group.
		return true
	}
	indexBefore := (i - groupWidth) & t.capacity
	emptyAfter := t.ctrls.At(i).matchEmpty()
	emptyBefore := t.ctrls.At(indexBefore).matchEmpty()

	// We count how many consecutive non-empty bytes there are to the
	// right of i (the leading run of the group starting at i) and to
	// the left of i (the trailing run of the group starting at
	// indexBefore). If the runs sum to groupWidth or more then some
	// probe window overlapping i could have been completely full.
	if emptyBefore != 0 && emptyAfter != 0 &&
		emptyAfter.first()+(groupWidth-1-emptyBefore.last()) < groupWidth {
		return true
	}
	return false
}

// setCtrl sets the control byte at index i, taking care to mirror the
// byte to the end of the control bytes slice if i < groupWidth-1. We do
// this unconditionally which is faster than performing a comparison to
// do it only for the first groupWidth-1 slots. Note that the mirror
// index is the identity for slots in the range [groupWidth-1, capacity).
func (t *table[K, V, S, P]) setCtrl(i uintptr, v ctrl) {
	*t.ctrls.At(i) = v
	*t.ctrls.At(((i-(groupWidth-1))&t.capacity)+(groupWidth-1)) = v
}

// rehash restores growth capacity on an insertion miss, either by
// dropping tombstones in place or by doubling.
//
// Rehashing in place is significantly faster than resizing because the
// common case is that elements remain in their current location; its
// cost is dominated by recomputing the hash of every key. It recovers
// exactly the tombstone count (every tombstone is dropped), so we
// require at least a third of the capacity back to make the sweep worth
// repeating.
func (t *table[K, V, S, P]) rehash() {
	if t.capacity > groupWidth && uintptr(t.tombstones) >= t.capacity/3 {
		t.rehashInPlace()
	} else {
		t.resize(2*t.capacity + 1)
	}
}

// resize reallocates the table at newCapacity, moving each element to
// its probe-correct position in the new layout. The old arrays are
// released only after every element has been moved, so a failure while
// populating the new arrays (e.g. an allocator panic) leaves the old
// table intact.
func (t *table[K, V, S, P]) resize(newCapacity uintptr) {
	if newCapacity+1 < groupWidth {
		// A capacity of groupWidth-1 is the smallest for which the
		// mirrored control bytes form a coherent ring.
		newCapacity = groupWidth - 1
	}
	var p P

	oldCtrls, oldSlots := t.ctrls, t.slots
	oldCapacity := t.capacity

	t.slots = makeUnsafeSlice(t.allocator.AllocSlots(int(newCapacity)))
	t.ctrls = makeUnsafeSlice(unsafeConvertSlice[ctrl](
		t.allocator.AllocControls(int(newCapacity + groupWidth))))
	for i := uintptr(0); i < newCapacity+groupWidth; i++ {
		*t.ctrls.At(i) = ctrlEmpty
	}
	*t.ctrls.At(newCapacity) = ctrlSentinel

	t.capacity = newCapacity
	t.growthLeft = int(loadLimit(newCapacity))
	t.tombstones = 0

	for i := uintptr(0); i < oldCapacity; i++ {
		c := *oldCtrls.At(i)
		if !c.isFull() {
			continue
		}
		src := oldSlots.At(i)
		k := p.slotKey(src)
		h := t.hash(noescape(unsafe.Pointer(&k)), t.seed)
		j := t.insertSlot(h)
		p.moveSlot(t.slots.At(j), src)
	}

	if oldCapacity > 0 {
		t.allocator.FreeSlots(oldSlots.Slice(0, oldCapacity))
		t.allocator.FreeControls(unsafeConvertSlice[uint8](oldCtrls.Slice(0, oldCapacity+groupWidth)))
	}

	t.checkInvariants()
}

// rehashInPlace drops every tombstone at the current capacity. We first
// walk the control bytes marking every deleted slot as empty and every
// full slot as deleted. Marking the deleted slots as empty has
// effectively dropped the tombstones, but it fouled up the probe
// invariant; marking the full slots as deleted gives us a marker to
// locate the previously full slots and reinsert them.
func (t *table[K, V, S, P]) rehashInPlace() {
	var p P

	for i := uintptr(0); i < t.capacity; i += groupWidth {
		t.ctrls.At(i).convertNonFullToEmptyAndFullToDeleted()
	}

	// Fix up the cloned control bytes and the sentinel.
	for i, n := uintptr(0), uintptr(groupWidth-1); i < n; i++ {
		*t.ctrls.At(((i-(groupWidth-1))&t.capacity)+(groupWidth-1)) = *t.ctrls.At(i)
	}
	*t.ctrls.At(t.capacity) = ctrlSentinel

	// Now we walk over all of the deleted slots (a.k.a. the previously
	// full slots). For each slot we find the first probe group we can
	// place the element in, which reestablishes the probe invariant.
	// Note that as this loop proceeds there are no deleted slots in the
	// range [0, i). We may move the element at i into that range if
	// that is where the first group with a free slot on its probe chain
	// resides, but we never set a slot in [0, i) to deleted.
	for i := uintptr(0); i < t.capacity; i++ {
		if *t.ctrls.At(i) != ctrlDeleted {
			continue
		}

		s := t.slots.At(i)
		k := p.slotKey(s)
		h := t.hash(noescape(unsafe.Pointer(&k)), t.seed)
		seq := makeProbeSeq(h1(h), t.capacity)
		desired := seq

		probeIndex := func(pos uintptr) uintptr {
			return ((pos - desired.offset) & t.capacity) / groupWidth
		}

		var target uintptr
		for ; ; seq = seq.next() {
			g := t.ctrls.At(seq.offset)
			if match := g.matchEmptyOrDeleted(); match != 0 {
				target = seq.offsetAt(match.first())
				break
			}
		}

		if i == target || probeIndex(i) == probeIndex(target) {
			// The target index falls within the first probe group, so
			// the element doesn't need to move.
			t.setCtrl(i, ctrl(h2(h)))
			continue
		}

		if *t.ctrls.At(target) == ctrlEmpty {
			// Transfer the element to the empty slot and mark the slot
			// at index i as empty.
			t.setCtrl(target, ctrl(h2(h)))
			p.moveSlot(t.slots.At(target), s)
			t.setCtrl(i, ctrlEmpty)
			continue
		}

		if *t.ctrls.At(target) == ctrlDeleted {
			// The slot at target was previously full. Swap the current
			// element with that element and then repeat processing of
			// index i which now holds the element that was at target.
			t.setCtrl(target, ctrl(h2(h)))
			d := t.slots.At(target)
			*s, *d = *d, *s
			i--
			continue
		}

		panic(fmt.Sprintf("flathash: ctrl at position %d (%02x) should be empty or deleted",
			target, *t.ctrls.At(target)))
	}

	t.growthLeft = int(loadLimit(t.capacity)) - t.used
	t.tombstones = 0

	t.checkInvariants()
}

// reserve rehashes if necessary so that n elements can reside in the
// table without another rehash. A reserve for any smaller target is
// then a no-op until elements are deleted.
func (t *table[K, V, S, P]) reserve(n int) {
	if n <= 0 {
		return
	}
	need := uintptr(n)
	if t.capacity > 0 && loadLimit(t.capacity) >= need {
		if t.growthLeft < n-t.used {
			// Capacity is sufficient but tombstones have eaten the
			// growth headroom; recover it in place.
			t.rehashInPlace()
		}
		return
	}
	newCapacity := uintptr(groupWidth - 1)
	for loadLimit(newCapacity) < need {
		newCapacity = 2*newCapacity + 1
	}
	t.resize(newCapacity)
}

// clear destroys every element but retains the table's capacity.
func (t *table[K, V, S, P]) clear() {
	if t.capacity == 0 {
		return
	}
	var p P
	for i := uintptr(0); i < t.capacity; i++ {
		if (*t.ctrls.At(i)).isFull() {
			p.destroySlot(t.slots.At(i))
		}
		*t.ctrls.At(i) = ctrlEmpty
	}
	for i := t.capacity; i < t.capacity+groupWidth; i++ {
		*t.ctrls.At(i) = ctrlEmpty
	}
	*t.ctrls.At(t.capacity) = ctrlSentinel
	t.used = 0
	t.tombstones = 0
	t.growthLeft = int(loadLimit(t.capacity))
	t.checkInvariants()
}

// all calls yield for each occupied slot. A snapshot of the capacity,
// controls, and slots is taken so that iteration remains memory-safe if
// the table is resized during iteration, though there is no guarantee
// that mutations will be visible.
func (t *table[K, V, S, P]) all(yield func(slot *S) bool) {
	capacity := t.capacity
	ctrls := t.ctrls
	slots := t.slots
	for i := uintptr(0); i < capacity; i++ {
		if (*ctrls.At(i)).isFull() {
			if !yield(slots.At(i)) {
				return
			}
		}
	}
}

func (t *table[K, V, S, P]) checkInvariants() {
	if !invariants {
		return
	}
	var p P
	if t.capacity > 0 {
		// Verify the cloned control bytes are good.
		for i, n := uintptr(0), uintptr(groupWidth-1); i < n; i++ {
			j := ((i - (groupWidth - 1)) & t.capacity) + (groupWidth - 1)
			ci := *t.ctrls.At(i)
			cj := *t.ctrls.At(j)
			if ci != cj {
				panic(fmt.Sprintf("invariant failed: ctrl(%d)=%02x != ctrl(%d)=%02x\n%s",
					i, ci, j, cj, t.debugString()))
			}
		}
		// Verify the sentinel is good.
		if c := *t.ctrls.At(t.capacity); c != ctrlSentinel {
			panic(fmt.Sprintf("invariant failed: ctrl(%d): expected sentinel, but found %02x\n%s",
				t.capacity, c, t.debugString()))
		}
	}

	// For every occupied slot, verify we can retrieve the key using
	// get. Count the number of used and deleted slots.
	var used int
	var deleted int
	for i := uintptr(0); i < t.capacity; i++ {
		c := *t.ctrls.At(i)
		switch {
		case c == ctrlDeleted:
			deleted++
		case c == ctrlEmpty:
		case c == ctrlSentinel:
			panic(fmt.Sprintf("invariant failed: ctrl(%d): unexpected sentinel", i))
		default:
			k := p.slotKey(t.slots.At(i))
			if _, ok := t.get(k); !ok {
				h := t.hash(noescape(unsafe.Pointer(&k)), t.seed)
				panic(fmt.Sprintf("invariant failed: slot(%d): %v not found [h2=%02x h1=%07x]\n%s",
					i, k, h2(h), h1(h), t.debugString()))
			}
			used++
		}
	}

	if used != t.used {
		panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
			used, t.used, t.debugString()))
	}
	if deleted != t.tombstones {
		panic(fmt.Sprintf("invariant failed: found %d deleted slots, but tombstone count is %d\n%s",
			deleted, t.tombstones, t.debugString()))
	}
	if t.capacity > 0 {
		growthLeft := int(loadLimit(t.capacity)) - t.used - t.tombstones
		if growthLeft != t.growthLeft {
			panic(fmt.Sprintf("invariant failed: found %d growthLeft, but expected %d\n%s",
				t.growthLeft, growthLeft, t.debugString()))
		}
	}
}

func (t *table[K, V, S, P]) debugString() string {
	var p P
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  growth-left=%d  tombstones=%d\n",
		t.capacity, t.used, t.growthLeft, t.tombstones)
	for i := uintptr(0); i < t.capacity+groupWidth; i++ {
		switch c := *t.ctrls.At(i); c {
		case ctrlEmpty:
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		case ctrlDeleted:
			fmt.Fprintf(&buf, "  %4d: deleted\n", i)
		case ctrlSentinel:
			fmt.Fprintf(&buf, "  %4d: sentinel\n", i)
		default:
			if i < t.capacity {
				k := p.slotKey(t.slots.At(i))
				h := t.hash(noescape(unsafe.Pointer(&k)), t.seed)
				fmt.Fprintf(&buf, "  %4d: %v [ctrl=%02x h2=%02x]\n", i, k, c, h2(h))
			} else {
				fmt.Fprintf(&buf, "  %4d: [ctrl=%02x]\n", i, c)
			}
		}
	}
	return buf.String()
}
