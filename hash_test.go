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
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestRuntimeHasher(t *testing.T) {
	h := getRuntimeHasher[string]()
	require.NotNil(t, h)

	a, b := "hello", "hello"
	require.Equal(t,
		h(unsafe.Pointer(&a), 42),
		h(unsafe.Pointer(&b), 42))

	c := "world"
	require.NotEqual(t,
		h(unsafe.Pointer(&a), 42),
		h(unsafe.Pointer(&c), 42))
}

func TestXXH3StringBytesAgree(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", "0123456789abcdef0123456789abcdef"} {
		str := s
		require.Equal(t, XXH3String(&str, 7), XXH3Bytes([]byte(s), 7), "key %q", s)
		require.NotEqual(t, XXH3String(&str, 7), XXH3String(&str, 8))
	}
}
