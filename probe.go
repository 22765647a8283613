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

import "fmt"

// probeSeq maintains the state for a probe sequence. The sequence is a
// triangular progression of the form
//
//	p(i) := groupWidth * (i^2 + i)/2 + hash (mod mask+1)
//
// The use of groupWidth ensures that each probe step does not overlap
// groups; the sequence effectively outputs the addresses of *groups*
// (although not necessarily aligned to any boundary). The group
// machinery allows us to check an entire group with minimal branching.
//
// Wrapping around at mask+1 is important, but not for the obvious
// reason. The first few entries of the control byte array are mirrored
// at the end of the array, which a group load will find and use for
// selecting candidates. However, when those candidates' slots are
// actually inspected, there are no corresponding slots for the cloned
// bytes, so we need to make sure we've treated those offsets as
// "wrapping around".
//
// It turns out that this probe sequence visits every group exactly once
// if the number of groups is a power of two, since (i^2+i)/2 is a
// bijection in Z/(2^m). See
// https://en.wikipedia.org/wiki/Quadratic_probing
type probeSeq struct {
	mask   uintptr
	offset uintptr
	index  uintptr
}

func makeProbeSeq(hash, mask uintptr) probeSeq {
	return probeSeq{
		mask:   mask,
		offset: hash & mask,
		index:  0,
	}
}

func (s probeSeq) next() probeSeq {
	s.index += groupWidth
	s.offset = (s.offset + s.index) & s.mask
	return s
}

func (s probeSeq) offsetAt(i uintptr) uintptr {
	return (s.offset + i) & s.mask
}

func (s probeSeq) String() string {
	return fmt.Sprintf("mask=%d offset=%d index=%d", s.mask, s.offset, s.index)
}
