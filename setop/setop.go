// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package setop names the four set operations shared by the pairwise
// bitset algebra and the batched container kernels.  Each operation is a
// per-word Boolean combinator; kernels select the combinator once, outside
// their inner loops.
package setop

// An Op identifies one of the four set operations.
type Op int

const (
	// Union is s OR t.
	Union Op = iota
	// Intersect is s AND t.
	Intersect
	// Diff is the symmetric difference, s XOR t.
	Diff
	// Minus is the relative complement, s AND NOT t.
	Minus

	numOps
)

// Ops lists all operations, in a fixed order convenient for tests and
// benchmarks.
var Ops = [...]Op{Union, Intersect, Diff, Minus}

// Valid reports whether op is one of the four defined operations.
func (op Op) Valid() bool {
	return op >= Union && op < numOps
}

// String returns the name of the operation.
func (op Op) String() string {
	switch op {
	case Union:
		return "union"
	case Intersect:
		return "intersect"
	case Diff:
		return "diff"
	case Minus:
		return "minus"
	default:
		return "invalid"
	}
}

// Func returns the word combinator for op.  Callers are expected to hoist
// the returned function out of hot loops.
func (op Op) Func() func(a, b uint64) uint64 {
	switch op {
	case Union:
		return func(a, b uint64) uint64 { return a | b }
	case Intersect:
		return func(a, b uint64) uint64 { return a & b }
	case Diff:
		return func(a, b uint64) uint64 { return a ^ b }
	case Minus:
		return func(a, b uint64) uint64 { return a &^ b }
	default:
		return nil
	}
}
