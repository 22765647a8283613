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
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// Exercises the assembly routines directly against a byte-at-a-time
// reference, across random control byte contents.
func TestMatchBytesAsm(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	for trial := 0; trial < 1000; trial++ {
		var grp [16]uint8
		for i := range grp {
			grp[i] = uint8(rng.Uint32())
		}
		v := uint8(rng.Uint32())

		var expectMatch, expectSign uint16
		for i, b := range grp {
			if b == v {
				expectMatch |= 1 << i
			}
			if b&0x80 != 0 {
				expectSign |= 1 << i
			}
		}
		require.Equal(t, expectMatch, matchBytes(&grp, v))
		require.Equal(t, expectSign, signMask(&grp))
	}
}
