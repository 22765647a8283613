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
	"unsafe"

	"github.com/zeebo/xxh3"
)

// hashFn hashes the key a pointer refers to with the given seed. It
// matches the signature of the hash functions the Go runtime generates
// for map keys, which lets us borrow those functions wholesale: they
// are highly optimized (e.g. using AES instructions for string hashing
// on x86) and cover every comparable type.
type hashFn func(unsafe.Pointer, uintptr) uintptr

// go:linkname is sometimes used to reach the runtime's hash functions,
// but a simpler approach is to make a map[K]struct{} and extract the
// hasher stored in its type descriptor. The structs below mirror the
// relevant parts of internal/abi.Type and internal/abi.MapType.
type rtEface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

type rtType struct {
	size       uintptr
	ptrBytes   uintptr
	hash       uint32
	tflag      uint8
	align      uint8
	fieldAlign uint8
	kind       uint8
	equal      func(unsafe.Pointer, unsafe.Pointer) bool
	gcData     *byte
	str        int32
	ptrToThis  int32
}

type rtMapType struct {
	rtType
	key    *rtType
	elem   *rtType
	bucket *rtType
	hasher hashFn
}

func getRuntimeHasher[K comparable]() hashFn {
	var m interface{} = map[K]struct{}{}
	return (*rtMapType)((*rtEface)(unsafe.Pointer(&m)).typ).hasher
}

// XXH3String hashes a string key with XXH3. It can be passed to
// WithHash for Map[string, V] when a deterministic, seed-stable hash is
// preferable to the runtime's randomized string hash (e.g. to compare
// probe behavior across processes).
func XXH3String(key *string, seed uintptr) uintptr {
	return uintptr(xxh3.HashStringSeed(*key, uint64(seed)))
}

// XXH3Bytes hashes a byte-slice key with XXH3 using the same mixing as
// XXH3String, so a string and the bytes it contains hash identically.
func XXH3Bytes(key []byte, seed uintptr) uintptr {
	return uintptr(xxh3.HashSeed(key, uint64(seed)))
}
