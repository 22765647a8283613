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

// Each slot in the hash table has a control byte which can have one of
// four states: empty, deleted, full and the sentinel. They have the
// following bit patterns:
//
//	   empty: 1 0 0 0 0 0 0 0
//	 deleted: 1 1 1 1 1 1 1 0
//	    full: 0 h h h h h h h  // h represents the H2 hash bits
//	sentinel: 1 1 1 1 1 1 1 1
type ctrl uint8

const (
	ctrlEmpty    ctrl = 0b10000000
	ctrlDeleted  ctrl = 0b11111110
	ctrlSentinel ctrl = 0b11111111

	bitsetLSB = 0x0101010101010101
	bitsetMSB = 0x8080808080808080
)

// isFull reports whether the control byte marks an occupied slot. Full
// bytes are the only ones with the high bit clear.
func (c ctrl) isFull() bool {
	return c&ctrlEmpty == 0
}

// emptyCtrls is shared by every zero-capacity table so that insertion
// into a fresh table can run the normal probe loop (which immediately
// sees an empty group, finds growthLeft == 0, and grows). It is never
// written.
var emptyCtrls = func() unsafeSlice[ctrl] {
	v := make([]ctrl, groupWidth)
	for i := range v {
		v[i] = ctrlEmpty
	}
	return makeUnsafeSlice(v)
}()

// Extracts the H1 portion of a hash: the 57 upper bits used to select
// the starting group of the probe sequence.
func h1(h uintptr) uintptr {
	return h >> 7
}

// Extracts the H2 portion of a hash: the low 7 bits stored in the
// control byte of an occupied slot.
func h2(h uintptr) uintptr {
	return h & 0x7f
}

// convertNonFullToEmptyAndFullToDeleted converts deleted or sentinel
// control bytes in a group to empty control bytes, and control bytes
// indicating full slots to deleted control bytes.
//
// We select the MSB, invert, add 1 if the MSB was set and zero out the
// low bit.
//
//	 - if the MSB was set (i.e. slot was empty, deleted, or sentinel):
//	    v:             1000 0000
//	    ^v:            0111 1111
//	    ^v + (v >> 7): 1000 0000
//	    &^ bitsetLSB:  1000 0000  = empty slot.
//
//	- if the MSB was not set (i.e. full slot):
//	    v:             0000 0000
//	    ^v:            1111 1111
//	    ^v + (v >> 7): 1111 1111
//	    &^ bitsetLSB:  1111 1110 = deleted slot.
//
// The arithmetic never carries across byte boundaries, so the word-wide
// form processes 8 control bytes at a time regardless of group width.
func (c *ctrl) convertNonFullToEmptyAndFullToDeleted() {
	for w := uintptr(0); w < groupWidth; w += 8 {
		p := (*uint64)(unsafe.Add(unsafe.Pointer(c), w))
		v := *p & bitsetMSB
		*p = (^v + (v >> 7)) &^ bitsetLSB
	}
}
