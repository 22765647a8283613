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

// Option provides an interface to do work on Map while it is being
// initialized.
type Option[K comparable, V any] interface {
	apply(m *Map[K, V])
}

type hashOption[K comparable, V any] struct {
	hash func(key *K, seed uintptr) uintptr
}

func (op hashOption[K, V]) apply(m *Map[K, V]) {
	m.tbl.hash = *(*hashFn)(noescape(unsafe.Pointer(&op.hash)))
}

// WithHash specifies the hash function to use. If unspecified, the
// hash function the Go runtime generated for K is used. The seed
// passed to the hash function varies per Map instance.
func WithHash[K comparable, V any](hash func(key *K, seed uintptr) uintptr) Option[K, V] {
	return hashOption[K, V]{hash}
}

// Allocator specifies an interface for allocating and releasing the
// memory used by a table's slots and control bytes. A table's memory
// is composed of a slots array and a controls array whose sizes are
// fixed by the table's capacity. An element must never move between
// calls to AllocSlots; growing or shrinking is performed by allocating
// a new array and freeing the old one.
type Allocator[S any] interface {
	// AllocSlots allocates a slice of n slots. The contents do not need
	// to be zeroed; the table overwrites every slot it marks occupied.
	AllocSlots(n int) []S

	// AllocControls allocates a slice of n control bytes.
	AllocControls(n int) []uint8

	// FreeSlots frees the specified slice of slots which was allocated
	// by AllocSlots. Destroyed elements may still be present; the
	// allocator must not inspect the contents.
	FreeSlots(v []S)

	// FreeControls frees the specified slice of control bytes which
	// was allocated by AllocControls.
	FreeControls(v []uint8)
}

type defaultAllocator[S any] struct{}

func (defaultAllocator[S]) AllocSlots(n int) []S {
	return make([]S, n)
}

func (defaultAllocator[S]) AllocControls(n int) []uint8 {
	return make([]uint8, n)
}

func (defaultAllocator[S]) FreeSlots(v []S) {
}

func (defaultAllocator[S]) FreeControls(v []uint8) {
}

type allocatorOption[K comparable, V any] struct {
	allocator Allocator[Slot[K, V]]
}

func (op allocatorOption[K, V]) apply(m *Map[K, V]) {
	m.tbl.allocator = op.allocator
}

// WithAllocator specifies the Allocator to use for a Map's slot and
// control byte storage. If unspecified, Go's normal heap allocation is
// used.
func WithAllocator[K comparable, V any](allocator Allocator[Slot[K, V]]) Option[K, V] {
	return allocatorOption[K, V]{allocator}
}
