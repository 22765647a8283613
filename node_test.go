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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeMapBasic(t *testing.T) {
	m := NewNodeMap[string, int](0)
	m.Put("a", 1)
	m.Put("b", 2)
	m.Put("a", 10)
	require.Equal(t, 2, m.Len())

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 10, v)

	require.True(t, m.Delete("a"))
	require.False(t, m.Contains("a"))
	require.Equal(t, 1, m.Len())
}

// The defining property of NodeMap: value pointers survive any number
// of rehashes.
func TestNodeMapRefStability(t *testing.T) {
	m := NewNodeMap[int, int](0)
	m.Put(0, 0)

	ref := m.GetRef(0)
	require.NotNil(t, ref)

	// Grow the table through several doublings.
	for i := 1; i < 10000; i++ {
		m.Put(i, i)
	}
	require.Same(t, ref, m.GetRef(0))
	require.Equal(t, 0, *ref)

	// Writes through the reference are visible to lookups and vice
	// versa.
	*ref = 42
	v, ok := m.Get(0)
	require.True(t, ok)
	require.Equal(t, 42, v)

	m.Put(0, 43)
	require.Equal(t, 43, *ref)

	require.Nil(t, m.GetRef(-1))
}

func TestNodeMapPutIfAbsent(t *testing.T) {
	m := NewNodeMap[int, string](0)

	v, inserted := m.PutIfAbsent(1, "one")
	require.True(t, inserted)

	// Unlike Map, the pointer stays valid across growth.
	for i := 2; i < 1000; i++ {
		m.PutIfAbsent(i, "x")
	}
	require.Equal(t, "one", *v)

	v2, inserted := m.PutIfAbsent(1, "uno")
	require.False(t, inserted)
	require.Same(t, v, v2)
}

func TestNodeMapIterate(t *testing.T) {
	m := NewNodeMap[int, int](0)
	for i := 0; i < 100; i++ {
		m.Put(i, i)
	}

	seen := make(map[int]bool)
	for it := m.Iter(); it.Next(); {
		require.False(t, seen[it.Key()])
		seen[it.Key()] = true
		require.Equal(t, it.Key(), *it.Value())
	}
	require.Len(t, seen, 100)

	got := make(map[int]int)
	m.All(func(k, v int) bool {
		got[k] = v
		return true
	})
	require.Len(t, got, 100)
}

func TestNodeMapClear(t *testing.T) {
	m := NewNodeMap[int, int](0)
	for i := 0; i < 100; i++ {
		m.Put(i, i)
	}
	capacity := m.Cap()

	m.Clear()
	require.Equal(t, 0, m.Len())
	require.Equal(t, capacity, m.Cap())

	m.Put(1, 1)
	require.Equal(t, 1, m.Len())
}
