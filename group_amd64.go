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

//go:build amd64 && !purego

package flathash

import (
	"math/bits"
	"unsafe"
)

// The SSE group scanner compares 16 control bytes per probe step with a
// broadcast byte compare and a movemask.
const (
	groupWidth      = 16
	maxAvgGroupLoad = 14
)

// bitmask marks matching group positions densely: bit j is set if the
// byte at in-group index j matched.
type bitmask uint16

// first returns the in-group index of the lowest matching position. The
// mask must be non-zero.
func (b bitmask) first() uintptr {
	return uintptr(bits.TrailingZeros16(uint16(b)))
}

// last returns the in-group index of the highest matching position. The
// mask must be non-zero.
func (b bitmask) last() uintptr {
	return uintptr(15 - bits.LeadingZeros16(uint16(b)))
}

// removeFirst clears the lowest matching position.
func (b bitmask) removeFirst() bitmask {
	return b & (b - 1)
}

// matchBytes returns a mask of the group positions whose control byte
// equals v. Implemented in match_amd64.s.
//
//go:noescape
func matchBytes(grp *[16]uint8, v uint8) uint16

// signMask returns a mask of the group positions whose control byte has
// the high bit set (empty, deleted, or sentinel). Implemented in
// match_amd64.s.
//
//go:noescape
func signMask(grp *[16]uint8) uint16

func (c *ctrl) group16() *[16]uint8 {
	return (*[16]uint8)(unsafe.Pointer(c))
}

// matchH2 returns the positions in the group whose control byte equals
// Full(h). Unlike the portable scanner, the byte compare is exact: no
// false positives.
func (c *ctrl) matchH2(h uintptr) bitmask {
	return bitmask(matchBytes(c.group16(), uint8(h)))
}

// matchEmpty returns the positions in the group holding an empty
// control byte.
func (c *ctrl) matchEmpty() bitmask {
	return bitmask(matchBytes(c.group16(), uint8(ctrlEmpty)))
}

// matchEmptyOrDeleted returns the positions in the group holding an
// empty or deleted control byte. The sentinel never matches.
func (c *ctrl) matchEmptyOrDeleted() bitmask {
	g := c.group16()
	return bitmask(matchBytes(g, uint8(ctrlEmpty)) | matchBytes(g, uint8(ctrlDeleted)))
}

// matchFull returns the positions in the group holding an occupied
// slot, i.e. control bytes with the high bit clear.
func (c *ctrl) matchFull() bitmask {
	return bitmask(^signMask(c.group16()))
}

// countLeadingEmptyOrDeleted returns the length of the run of empty or
// deleted control bytes at the start of the group. A full byte or the
// sentinel ends the run.
func (c *ctrl) countLeadingEmptyOrDeleted() uintptr {
	m := c.matchEmptyOrDeleted()
	return uintptr(bits.TrailingZeros16(^uint16(m)))
}
