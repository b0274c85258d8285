// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bitset provides a fixed-capacity dense bitset and the pairwise set
// algebra over it: union, intersection, symmetric difference, and relative
// complement, each in a value-producing and a count-producing form.
//
// A nil *Bitset passed to a pairwise operation denotes the empty set of the
// other operand's length; passing nil anywhere else is a fatal programmer
// error.  Storage is a little-endian word array; bits past the capacity in
// the final word are padding and stay zero across every public operation.
package bitset
