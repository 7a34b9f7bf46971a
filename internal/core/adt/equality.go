// Copyright 2024 The Nix-Compiler Authors
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

package adt

// TryEq implements structural equality: both operands are forced
// (recursively, through list elements and attribute values — equality is
// the one place besides ForceDeep that looks past weak head), with Int and
// Float promoted against each other before comparing, Lambdas and Builtins
// always comparing unequal to anything (including themselves), and two
// derivation-backed attribute sets comparing equal iff their output paths
// match, independent of any other attribute.
func TryEq(ctx *OpContext, a, b *Thunk, bt *Backtrace) (bool, *Bottom) {
	av, bot := a.Force(ctx, bt)
	if bot != nil {
		return false, bot
	}
	bv, bot := b.Force(ctx, bt)
	if bot != nil {
		return false, bot
	}
	return valuesEq(ctx, av, bv, bt)
}

// EqValues compares two already-forced values directly, without the
// caller needing to wrap them in Thunks first — used by the `==`/`!=`
// binary operators, which already hold forced weak-head values.
func EqValues(ctx *OpContext, av, bv Value, bt *Backtrace) (bool, *Bottom) {
	return valuesEq(ctx, av, bv, bt)
}

func valuesEq(ctx *OpContext, av, bv Value, bt *Backtrace) (bool, *Bottom) {
	switch x := av.(type) {
	case Null:
		_, ok := bv.(Null)
		return ok, nil
	case Bool:
		y, ok := bv.(Bool)
		return ok && x == y, nil
	case Int:
		switch y := bv.(type) {
		case Int:
			return x == y, nil
		case Float:
			return float64(x) == float64(y), nil
		default:
			return false, nil
		}
	case Float:
		switch y := bv.(type) {
		case Int:
			return float64(x) == float64(y), nil
		case Float:
			return x == y, nil
		default:
			return false, nil
		}
	case String:
		y, ok := bv.(String)
		return ok && x == y, nil
	case Path:
		y, ok := bv.(Path)
		return ok && x == y, nil
	case *List:
		y, ok := bv.(*List)
		if !ok {
			return false, nil
		}
		if len(x.Elems) != len(y.Elems) {
			return false, nil
		}
		for i := range x.Elems {
			eq, bot := TryEq(ctx, x.Elems[i], y.Elems[i], bt)
			if bot != nil {
				return false, bot
			}
			if !eq {
				return false, nil
			}
		}
		return true, nil
	case *AttrSet:
		y, ok := bv.(*AttrSet)
		if !ok {
			return false, nil
		}
		if x.IsDerivation() || y.IsDerivation() {
			return derivationsEq(ctx, x, y, bt)
		}
		xk, yk := x.Keys(ctx), y.Keys(ctx)
		if len(xk) != len(yk) {
			return false, nil
		}
		for i, k := range xk {
			if k != yk[i] {
				return false, nil
			}
			xt, _ := x.Get(ctx, k)
			yt, _ := y.Get(ctx, k)
			eq, bot := TryEq(ctx, xt, yt, bt)
			if bot != nil {
				return false, bot
			}
			if !eq {
				return false, nil
			}
		}
		return true, nil
	case *Lambda:
		return false, nil
	case *Builtin:
		return false, nil
	default:
		return false, nil
	}
}

// derivationsEq compares two derivation-backed attribute sets by output
// path alone: a derivation's `outPath` attribute is its identity for
// equality purposes, regardless of how its other attributes were produced.
func derivationsEq(ctx *OpContext, x, y *AttrSet, bt *Backtrace) (bool, *Bottom) {
	xo, ok := x.Get(ctx, "outPath")
	if !ok {
		return false, nil
	}
	yo, ok := y.Get(ctx, "outPath")
	if !ok {
		return false, nil
	}
	return TryEq(ctx, xo, yo, bt)
}
