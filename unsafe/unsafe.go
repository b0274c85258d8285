// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package unsafe provides zero-copy reinterpretations between the byte,
// word, and count views of a dense bit buffer.  The returned slices share
// memory with their arguments; they are views, not copies.
//
// The word view assumes a little-endian host: byte k of the byte view holds
// bits [8k, 8k+8) of word k/8.
package unsafe

import (
	"unsafe"
)

// BytesToWords casts src to a []uint64 without extra memory allocation.
// len(src) must be a multiple of 8.  The slice returned by this function
// shares memory with "src".
func BytesToWords(src []byte) []uint64 {
	if len(src) == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&src[0])), len(src)/8)
}

// WordsToBytes casts src to a []byte without extra memory allocation.  The
// slice returned by this function shares memory with "src".
func WordsToBytes(src []uint64) []byte {
	if len(src) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*8)
}

// Int32sToBytes casts src to a []byte without extra memory allocation.  The
// slice returned by this function shares memory with "src".
func Int32sToBytes(src []int32) []byte {
	if len(src) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*4)
}

// DataPointer returns the address of the first byte of src.  It identifies
// the backing array, not the contents: two views of the same storage that
// start at the same byte share a DataPointer.  src must be non-empty.
func DataPointer(src []byte) uintptr {
	return uintptr(unsafe.Pointer(&src[0]))
}

// BytesToInt32s casts src to a []int32 without extra memory allocation.
// len(src) must be a multiple of 4.  The slice returned by this function
// shares memory with "src".
func BytesToInt32s(src []byte) []int32 {
	if len(src) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&src[0])), len(src)/4)
}
