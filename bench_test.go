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
	"math/rand/v2"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
	"github.com/cespare/xxhash/v2"
)

var benchSizes = []int{16, 128, 1024, 8192, 131072}

func genInt64Keys(n int) []int64 {
	rng := rand.New(rand.NewPCG(uint64(n), 0))
	keys := make([]int64, n)
	for i := range keys {
		keys[i] = int64(rng.Uint64())
	}
	return keys
}

func genStringKeys(size, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("%0*d", size, i)
	}
	return keys
}

func xxhashString(k *string, _ uintptr) uintptr {
	return uintptr(xxhash.Sum64String(*k))
}

type mapImpl[K comparable] interface {
	Put(k K, v K)
	Get(k K) (K, bool)
	Delete(k K) bool
}

type flatMap[K comparable] struct {
	m *Map[K, K]
}

func (f flatMap[K]) Put(k K, v K)      { f.m.Put(k, v) }
func (f flatMap[K]) Get(k K) (K, bool) { return f.m.Get(k) }
func (f flatMap[K]) Delete(k K) bool   { return f.m.Delete(k) }

type builtinMap[K comparable] map[K]K

func (b builtinMap[K]) Put(k K, v K) { b[k] = v }
func (b builtinMap[K]) Get(k K) (K, bool) {
	v, ok := b[k]
	return v, ok
}
func (b builtinMap[K]) Delete(k K) bool {
	_, ok := b[k]
	delete(b, k)
	return ok
}

func benchImpls[K comparable](opts ...Option[K, K]) map[string]func() mapImpl[K] {
	return map[string]func() mapImpl[K]{
		"flatMap:": func() mapImpl[K] { return flatMap[K]{m: New[K, K](0, opts...)} },
		"runtimeMap:": func() mapImpl[K] { return builtinMap[K]{} },
	}
}

func benchmarkGetHit[K comparable](b *testing.B, keys []K, impls map[string]func() mapImpl[K]) {
	for name, mk := range impls {
		b.Run(name+fmt.Sprint(len(keys)), func(b *testing.B) {
			m := mk()
			for _, k := range keys {
				m.Put(k, k)
			}
			cs := perfbench.Open(b)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, ok := m.Get(keys[i&(len(keys)-1)])
				if !ok {
					b.Fatal("expected hit")
				}
			}
			cs.Stop()
		})
	}
}

func benchmarkGetMiss[K comparable](b *testing.B, present, absent []K, impls map[string]func() mapImpl[K]) {
	for name, mk := range impls {
		b.Run(name+fmt.Sprint(len(present)), func(b *testing.B) {
			m := mk()
			for _, k := range present {
				m.Put(k, k)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, ok := m.Get(absent[i&(len(absent)-1)]); ok {
					b.Fatal("expected miss")
				}
			}
		})
	}
}

func benchmarkPutDelete[K comparable](b *testing.B, keys []K, impls map[string]func() mapImpl[K]) {
	for name, mk := range impls {
		b.Run(name+fmt.Sprint(len(keys)), func(b *testing.B) {
			m := mk()
			for _, k := range keys {
				m.Put(k, k)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				k := keys[i&(len(keys)-1)]
				m.Delete(k)
				m.Put(k, k)
			}
		})
	}
}

func BenchmarkInt64MapGetHit(b *testing.B) {
	for _, size := range benchSizes {
		benchmarkGetHit(b, genInt64Keys(size), benchImpls[int64]())
	}
}

func BenchmarkInt64MapGetMiss(b *testing.B) {
	for _, size := range benchSizes {
		present := genInt64Keys(size)
		absent := make([]int64, len(present))
		for i := range absent {
			absent[i] = -1 - int64(i)
		}
		benchmarkGetMiss(b, present, absent, benchImpls[int64]())
	}
}

func BenchmarkInt64MapPutDelete(b *testing.B) {
	for _, size := range benchSizes {
		benchmarkPutDelete(b, genInt64Keys(size), benchImpls[int64]())
	}
}

func BenchmarkStringMapGetHit(b *testing.B) {
	for _, size := range benchSizes {
		benchmarkGetHit(b, genStringKeys(16, size), benchImpls[string]())
	}
}

func BenchmarkStringMapGetHitXXHash(b *testing.B) {
	for _, size := range benchSizes {
		benchmarkGetHit(b, genStringKeys(16, size),
			map[string]func() mapImpl[string]{
				"flatMap:": func() mapImpl[string] {
					return flatMap[string]{m: New[string, string](0, WithHash[string, string](xxhashString))}
				},
			})
	}
}

func BenchmarkInt64MapIter(b *testing.B) {
	for _, size := range benchSizes {
		keys := genInt64Keys(size)
		b.Run(fmt.Sprintf("flatMap:%d", size), func(b *testing.B) {
			m := New[int64, int64](0)
			for _, k := range keys {
				m.Put(k, k)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				var sum int64
				m.All(func(_, v int64) bool {
					sum += v
					return true
				})
			}
		})
		b.Run(fmt.Sprintf("runtimeMap:%d", size), func(b *testing.B) {
			m := make(map[int64]int64, size)
			for _, k := range keys {
				m[k] = k
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				var sum int64
				for _, v := range m {
					sum += v
				}
			}
		})
	}
}

func BenchmarkStringMapPutPreAllocate(b *testing.B) {
	for _, size := range benchSizes {
		keys := genStringKeys(16, size)
		b.Run(fmt.Sprint(size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				m := New[string, string](len(keys))
				for _, k := range keys {
					m.Put(k, k)
				}
			}
		})
	}
}

func BenchmarkStringMapPutReuse(b *testing.B) {
	for _, size := range benchSizes {
		keys := genStringKeys(16, size)
		b.Run(fmt.Sprint(size), func(b *testing.B) {
			m := New[string, string](len(keys))
			for i := 0; i < b.N; i++ {
				m.Clear()
				for _, k := range keys {
					m.Put(k, k)
				}
			}
		})
	}
}

func BenchmarkStringMapPutDelete(b *testing.B) {
	for _, size := range benchSizes {
		benchmarkPutDelete(b, genStringKeys(16, size), benchImpls[string]())
	}
}

func BenchmarkStringMapPutGrow(b *testing.B) {
	for _, size := range benchSizes {
		keys := genStringKeys(16, size)
		b.Run(fmt.Sprint(size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				m := New[string, string](0)
				for _, k := range keys {
					m.Put(k, k)
				}
			}
		})
	}
}

// Sizes per-element overhead: run with -benchmem and divide allocated
// bytes by the element count.
func BenchmarkMemoryFootprint(b *testing.B) {
	const n = 100000
	b.Run("flatMap", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			m := New[int64, int64](0)
			for k := int64(0); k < n; k++ {
				m.Put(k, k)
			}
		}
	})
	b.Run("runtimeMap", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			m := make(map[int64]int64)
			for k := int64(0); k < n; k++ {
				m[k] = k
			}
		}
	})
}
