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

//go:build !amd64 || purego

package flathash

import (
	"math/bits"
	"unsafe"
)

// The portable group scanner compares 8 control bytes at a time through
// bit tricks (SWAR, SIMD Within A Register) on a single little-endian
// uint64 load.
const (
	groupWidth      = 8
	maxAvgGroupLoad = 7
)

// bitmask marks matching group positions sparsely: bit 8*j+7 is set if
// the byte at in-group index j matched.
type bitmask uint64

// first returns the in-group index of the lowest matching position. The
// mask must be non-zero.
func (b bitmask) first() uintptr {
	return uintptr(bits.TrailingZeros64(uint64(b))) >> 3
}

// last returns the in-group index of the highest matching position. The
// mask must be non-zero.
func (b bitmask) last() uintptr {
	return uintptr(63-bits.LeadingZeros64(uint64(b))) >> 3
}

// removeFirst clears the lowest matching position.
func (b bitmask) removeFirst() bitmask {
	return b & (b - 1)
}

// matchH2 returns the positions in the group whose control byte equals
// Full(h).
//
// NB: This generic matching routine produces false positive matches
// when h is 2^N and the control bytes have a seq of 2^N followed by
// 2^N+1. For example: if ctrls==0x0302 and h=02, we'll compute v as
// 0x0100. When we subtract off 0x0101 the first 2 bytes we'll become
// 0xffff and both be considered matches of h. The false positive
// matches are not a problem, just a rare inefficiency. Note that they
// only occur if there is a real match and never occur on ctrlEmpty,
// ctrlDeleted, or ctrlSentinel. The subsequent key comparisons ensure
// that there is no correctness issue.
func (c *ctrl) matchH2(h uintptr) bitmask {
	v := *(*uint64)(unsafe.Pointer(c)) ^ (bitsetLSB * uint64(h))
	return bitmask(((v - bitsetLSB) &^ v) & bitsetMSB)
}

// matchEmpty returns the positions in the group holding an empty
// control byte.
func (c *ctrl) matchEmpty() bitmask {
	v := *(*uint64)(unsafe.Pointer(c))
	// An empty slot is              1000 0000
	// A deleted or sentinel slot is 1111 111?
	// A slot is empty iff bit 7 is set and bit 1 is not.
	return bitmask((v &^ (v << 6)) & bitsetMSB)
}

// matchEmptyOrDeleted returns the positions in the group holding an
// empty or deleted control byte. The sentinel never matches.
func (c *ctrl) matchEmptyOrDeleted() bitmask {
	// An empty slot is  1000 0000.
	// A deleted slot is 1111 1110.
	// The sentinel is   1111 1111.
	// A slot is empty or deleted iff bit 7 is set and bit 0 is not.
	v := *(*uint64)(unsafe.Pointer(c))
	return bitmask((v &^ (v << 7)) & bitsetMSB)
}

// matchFull returns the positions in the group holding an occupied
// slot, i.e. control bytes with the high bit clear.
func (c *ctrl) matchFull() bitmask {
	v := *(*uint64)(unsafe.Pointer(c))
	return bitmask(^v & bitsetMSB)
}

// countLeadingEmptyOrDeleted returns the length of the run of empty or
// deleted control bytes at the start of the group. A full byte or the
// sentinel ends the run.
func (c *ctrl) countLeadingEmptyOrDeleted() uintptr {
	m := c.matchEmptyOrDeleted()
	return uintptr(bits.TrailingZeros64(^uint64(m)&bitsetMSB)) >> 3
}
