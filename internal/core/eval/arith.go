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

package eval

import (
	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/nix/ast"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

func concatLists(lv, rv adt.Value, pos token.Pos) (adt.Value, *adt.Bottom) {
	ll, ok := adt.AsListVal(lv)
	if !ok {
		return nil, adt.NewBottom(adt.CodeTypeError, pos, "left operand of ++ is a %s, not a list", lv.Kind())
	}
	rl, ok := adt.AsListVal(rv)
	if !ok {
		return nil, adt.NewBottom(adt.CodeTypeError, pos, "right operand of ++ is a %s, not a list", rv.Kind())
	}
	out := make([]*adt.Thunk, 0, len(ll.Elems)+len(rl.Elems))
	out = append(out, ll.Elems...)
	out = append(out, rl.Elems...)
	return &adt.List{Elems: out}, nil
}

// arithAdd handles `+`, which uniquely overloads across numbers, strings,
// and paths (string/path concatenation), unlike `-`/`*`/`/` which are
// numeric-only.
func arithAdd(lv, rv adt.Value, pos token.Pos) (adt.Value, *adt.Bottom) {
	if isNumeric(lv) && isNumeric(rv) {
		return arithNumeric(lv, rv, pos, "+", func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
	}
	ls, lok := asConcatable(lv)
	rs, rok := asConcatable(rv)
	if !lok || !rok {
		return nil, adt.NewBottom(adt.CodeTypeError, pos, "cannot add a %s and a %s", lv.Kind(), rv.Kind())
	}
	if _, isPath := lv.(adt.Path); isPath {
		return adt.Path(ls + rs), nil
	}
	if _, isPath := rv.(adt.Path); isPath {
		return adt.Path(ls + rs), nil
	}
	return adt.String(ls + rs), nil
}

func asConcatable(v adt.Value) (string, bool) {
	switch x := v.(type) {
	case adt.String:
		return string(x), true
	case adt.Path:
		return string(x), true
	default:
		return "", false
	}
}

func isNumeric(v adt.Value) bool {
	switch v.(type) {
	case adt.Int, adt.Float:
		return true
	default:
		return false
	}
}

func arithNumeric(lv, rv adt.Value, pos token.Pos, opName string, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) (adt.Value, *adt.Bottom) {
	li, lIsInt := lv.(adt.Int)
	ri, rIsInt := rv.(adt.Int)
	if lIsInt && rIsInt {
		return adt.Int(intOp(int64(li), int64(ri))), nil
	}
	lf, lok := asFloat(lv)
	rf, rok := asFloat(rv)
	if !lok || !rok {
		return nil, adt.NewBottom(adt.CodeTypeError, pos, "cannot apply %s to a %s and a %s", opName, lv.Kind(), rv.Kind())
	}
	return adt.Float(floatOp(lf, rf)), nil
}

func asFloat(v adt.Value) (float64, bool) {
	switch x := v.(type) {
	case adt.Int:
		return float64(x), true
	case adt.Float:
		return float64(x), true
	default:
		return 0, false
	}
}

func arithDiv(lv, rv adt.Value, pos token.Pos) (adt.Value, *adt.Bottom) {
	li, lIsInt := lv.(adt.Int)
	ri, rIsInt := rv.(adt.Int)
	if lIsInt && rIsInt {
		if ri == 0 {
			return nil, adt.NewBottom(adt.CodeEval, pos, "division by zero")
		}
		return adt.Int(int64(li) / int64(ri)), nil
	}
	lf, lok := asFloat(lv)
	rf, rok := asFloat(rv)
	if !lok || !rok {
		return nil, adt.NewBottom(adt.CodeTypeError, pos, "cannot divide a %s by a %s", lv.Kind(), rv.Kind())
	}
	if rf == 0 {
		return nil, adt.NewBottom(adt.CodeEval, pos, "division by zero")
	}
	return adt.Float(lf / rf), nil
}

func compareOrdered(ctx *adt.OpContext, lv, rv adt.Value, op ast.BinaryOp, pos token.Pos, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	cmp, bot := compareValues(ctx, lv, rv, pos, bt)
	if bot != nil {
		return nil, bot
	}
	switch op {
	case ast.OpLt:
		return adt.Bool(cmp < 0), nil
	case ast.OpLe:
		return adt.Bool(cmp <= 0), nil
	case ast.OpGt:
		return adt.Bool(cmp > 0), nil
	default:
		return adt.Bool(cmp >= 0), nil
	}
}

// compareValues implements the ordering relation: numbers compare
// numerically (promoting Int/Float against each other), strings compare
// byte-lexicographically, and lists compare lexicographically element by
// element, with a shorter prefix list ordering before a longer one.
// Any other pairing is a type error — attribute sets have no ordering.
func compareValues(ctx *adt.OpContext, lv, rv adt.Value, pos token.Pos, bt *adt.Backtrace) (int, *adt.Bottom) {
	if isNumeric(lv) && isNumeric(rv) {
		lf, _ := asFloat(lv)
		rf, _ := asFloat(rv)
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if ls, ok := lv.(adt.String); ok {
		if rs, ok := rv.(adt.String); ok {
			switch {
			case ls < rs:
				return -1, nil
			case ls > rs:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if ll, ok := adt.AsListVal(lv); ok {
		if rl, ok := adt.AsListVal(rv); ok {
			n := len(ll.Elems)
			if len(rl.Elems) < n {
				n = len(rl.Elems)
			}
			for i := 0; i < n; i++ {
				lev, bot := ll.Elems[i].Force(ctx, bt)
				if bot != nil {
					return 0, bot
				}
				rev, bot := rl.Elems[i].Force(ctx, bt)
				if bot != nil {
					return 0, bot
				}
				c, bot := compareValues(ctx, lev, rev, pos, bt)
				if bot != nil {
					return 0, bot
				}
				if c != 0 {
					return c, nil
				}
			}
			switch {
			case len(ll.Elems) < len(rl.Elems):
				return -1, nil
			case len(ll.Elems) > len(rl.Elems):
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	return 0, adt.NewBottom(adt.CodeTypeError, pos, "cannot compare a %s with a %s", lv.Kind(), rv.Kind())
}
