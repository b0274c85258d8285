// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bitset

import (
	"github.com/grailbio/bitcol/must"
	"github.com/grailbio/bitcol/popcnt"
	"github.com/grailbio/bitcol/setop"
)

// The pairwise operations admit a nil operand, which stands for the empty
// set of the other operand's length.  Both operands nil is a fatal error:
// there is no length to give the result.

// Union returns s OR t as a new owned bitset.
func Union(s, t *Bitset) *Bitset { return apply(setop.Union, s, t) }

// Intersect returns s AND t as a new owned bitset.
func Intersect(s, t *Bitset) *Bitset { return apply(setop.Intersect, s, t) }

// Diff returns the symmetric difference s XOR t as a new owned bitset.
func Diff(s, t *Bitset) *Bitset { return apply(setop.Diff, s, t) }

// Minus returns the relative complement s AND NOT t as a new owned bitset.
func Minus(s, t *Bitset) *Bitset { return apply(setop.Minus, s, t) }

// UnionCount returns the population count of s OR t without materializing
// the result.
func UnionCount(s, t *Bitset) int { return applyCount(setop.Union, s, t) }

// IntersectCount returns the population count of s AND t without
// materializing the result.
func IntersectCount(s, t *Bitset) int { return applyCount(setop.Intersect, s, t) }

// DiffCount returns the population count of s XOR t without materializing
// the result.
func DiffCount(s, t *Bitset) int { return applyCount(setop.Diff, s, t) }

// MinusCount returns the population count of s AND NOT t without
// materializing the result.
func MinusCount(s, t *Bitset) int { return applyCount(setop.Minus, s, t) }

func apply(op setop.Op, s, t *Bitset) *Bitset {
	if !op.Valid() {
		must.Failf("bitset: invalid set operation %d", int(op))
	}
	if s == nil && t == nil {
		must.Failf("bitset: both operands nil")
	}
	if s == t {
		s.ok()
		switch op {
		case setop.Union, setop.Intersect:
			return Clone(s)
		default:
			return New(s.length)
		}
	}
	if t == nil {
		s.ok()
		if op == setop.Intersect {
			return New(s.length)
		}
		return Clone(s)
	}
	if s == nil {
		t.ok()
		switch op {
		case setop.Union, setop.Diff:
			return Clone(t)
		default:
			return New(t.length)
		}
	}
	checkPair(s, t)
	r := New(s.length)
	f := op.Func()
	for i, sw := range s.words {
		r.words[i] = f(sw, t.words[i])
	}
	return r
}

func applyCount(op setop.Op, s, t *Bitset) int {
	if !op.Valid() {
		must.Failf("bitset: invalid set operation %d", int(op))
	}
	if s == nil && t == nil {
		must.Failf("bitset: both operands nil")
	}
	if s == t {
		s.ok()
		if op == setop.Union || op == setop.Intersect {
			return s.Count()
		}
		return 0
	}
	if t == nil {
		s.ok()
		if op == setop.Intersect {
			return 0
		}
		return s.Count()
	}
	if s == nil {
		t.ok()
		if op == setop.Union || op == setop.Diff {
			return t.Count()
		}
		return 0
	}
	checkPair(s, t)
	f := op.Func()
	cnt := 0
	for i, sw := range s.words {
		cnt += popcnt.Word(f(sw, t.words[i]))
	}
	return cnt
}
