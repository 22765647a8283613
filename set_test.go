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
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetBasic(t *testing.T) {
	s := NewSet[string](0)
	require.Equal(t, 0, s.Len())

	require.True(t, s.Insert("a"))
	require.False(t, s.Insert("a"))
	require.True(t, s.Insert("b"))
	require.Equal(t, 2, s.Len())

	require.True(t, s.Contains("a"))
	require.True(t, s.Contains("b"))
	require.False(t, s.Contains("c"))

	require.True(t, s.Delete("a"))
	require.False(t, s.Delete("a"))
	require.False(t, s.Contains("a"))
	require.Equal(t, 1, s.Len())
}

func TestSetRandom(t *testing.T) {
	s := NewSet[uint32](0)
	e := make(map[uint32]bool)
	rng := rand.New(rand.NewPCG(7, 7))

	for i := 0; i < 10000; i++ {
		k := rng.Uint32N(1000)
		switch rng.IntN(3) {
		case 0:
			require.Equal(t, !e[k], s.Insert(k))
			e[k] = true
		case 1:
			require.Equal(t, e[k], s.Contains(k))
		default:
			require.Equal(t, e[k], s.Delete(k))
			delete(e, k)
		}
		require.Equal(t, len(e), s.Len())
	}

	got := make(map[uint32]bool)
	s.All(func(k uint32) bool {
		got[k] = true
		return true
	})
	require.Equal(t, e, got)
}

func TestSetClearAndReserve(t *testing.T) {
	s := NewSet[int](0)
	s.Reserve(500)
	capacity := s.Cap()
	for i := 0; i < 500; i++ {
		s.Insert(i)
		require.Equal(t, capacity, s.Cap())
	}

	s.Clear()
	require.Equal(t, 0, s.Len())
	require.Equal(t, capacity, s.Cap())
	require.False(t, s.Contains(0))
}

func TestSetIterator(t *testing.T) {
	s := NewSet[int](0)
	for i := 0; i < 100; i++ {
		s.Insert(i)
	}

	seen := make(map[int]int)
	for it := s.Iter(); it.Next(); {
		seen[it.Elem()]++
		if it.Elem()%2 == 0 {
			it.Delete()
		}
	}
	require.Len(t, seen, 100)
	for k, count := range seen {
		require.Equal(t, 1, count, "elem %d", k)
	}
	require.Equal(t, 50, s.Len())
	for i := 0; i < 100; i++ {
		require.Equal(t, i%2 == 1, s.Contains(i))
	}
}
