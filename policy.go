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

// policy describes how the probing core stores elements in slots. The
// core is generic over the slot type S; a policy is a zero-sized type
// whose methods construct, destroy, and project slots. Map stores
// key/value pairs inline, Set stores the element itself, and NodeMap
// stores a pointer to a heap-allocated entry (trading a cache miss per
// access for element addresses that survive rehashes).
type policy[K comparable, V any, S any] interface {
	// initSlot constructs an element in an unoccupied slot.
	initSlot(slot *S, key K, value V)
	// destroySlot releases the element, leaving the slot unoccupied. It
	// must clear any pointers so the GC can reclaim the element.
	destroySlot(slot *S)
	// moveSlot copies the element from src to dst during a resize. The
	// source is left intact: src belongs to an array that is released
	// wholesale once the resize completes, and iterators snapshotted
	// before the resize may still be reading it.
	moveSlot(dst, src *S)
	// slotKey extracts the key for hashing and equality.
	slotKey(slot *S) K
	// slotValue projects the slot to its user-visible value.
	slotValue(slot *S) *V
}

// Slot holds a key and value stored inline.
type Slot[K comparable, V any] struct {
	key   K
	value V
}

type mapPolicy[K comparable, V any] struct{}

func (mapPolicy[K, V]) initSlot(slot *Slot[K, V], key K, value V) {
	slot.key = key
	slot.value = value
}

func (mapPolicy[K, V]) destroySlot(slot *Slot[K, V]) {
	*slot = Slot[K, V]{}
}

func (mapPolicy[K, V]) moveSlot(dst, src *Slot[K, V]) {
	*dst = *src
}

func (mapPolicy[K, V]) slotKey(slot *Slot[K, V]) K {
	return slot.key
}

func (mapPolicy[K, V]) slotValue(slot *Slot[K, V]) *V {
	return &slot.value
}

// setPolicy stores the element directly in the slot; there is no
// separate value.
type setPolicy[K comparable] struct{}

var setValue struct{}

func (setPolicy[K]) initSlot(slot *K, key K, _ struct{}) {
	*slot = key
}

func (setPolicy[K]) destroySlot(slot *K) {
	var zero K
	*slot = zero
}

func (setPolicy[K]) moveSlot(dst, src *K) {
	*dst = *src
}

func (setPolicy[K]) slotKey(slot *K) K {
	return *slot
}

func (setPolicy[K]) slotValue(*K) *struct{} {
	return &setValue
}

// entry is the heap-allocated element of a NodeMap.
type entry[K comparable, V any] struct {
	key   K
	value V
}

type nodePolicy[K comparable, V any] struct{}

func (nodePolicy[K, V]) initSlot(slot **entry[K, V], key K, value V) {
	*slot = &entry[K, V]{key: key, value: value}
}

func (nodePolicy[K, V]) destroySlot(slot **entry[K, V]) {
	*slot = nil
}

func (nodePolicy[K, V]) moveSlot(dst, src **entry[K, V]) {
	*dst = *src
}

func (nodePolicy[K, V]) slotKey(slot **entry[K, V]) K {
	return (*slot).key
}

func (nodePolicy[K, V]) slotValue(slot **entry[K, V]) *V {
	return &(*slot).value
}
