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
)

func evalBinOp(ctx *adt.OpContext, env *adt.Environment, x *ast.BinOp, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	switch x.Op {
	case ast.OpAnd:
		l, bot := evalBool(ctx, env, x.Left, bt)
		if bot != nil {
			return nil, bot
		}
		if !l {
			return adt.Bool(false), nil
		}
		r, bot := evalBool(ctx, env, x.Right, bt)
		if bot != nil {
			return nil, bot
		}
		return adt.Bool(r), nil
	case ast.OpOr:
		l, bot := evalBool(ctx, env, x.Left, bt)
		if bot != nil {
			return nil, bot
		}
		if l {
			return adt.Bool(true), nil
		}
		r, bot := evalBool(ctx, env, x.Right, bt)
		if bot != nil {
			return nil, bot
		}
		return adt.Bool(r), nil
	case ast.OpImpl:
		l, bot := evalBool(ctx, env, x.Left, bt)
		if bot != nil {
			return nil, bot
		}
		if !l {
			return adt.Bool(true), nil
		}
		r, bot := evalBool(ctx, env, x.Right, bt)
		if bot != nil {
			return nil, bot
		}
		return adt.Bool(r), nil
	}

	// `//` is built as an UpdateResolve thunk and forced at once: both
	// operands are forced to their weak-head AttrSet shape before the
	// merge, while no attribute's value is forced.
	if x.Op == ast.OpUpdate {
		left := adt.NewPendingThunk(env, x.Left, x.Left.Pos())
		right := adt.NewPendingThunk(env, x.Right, x.Right.Pos())
		return adt.NewUpdateResolveThunk(left, right, x.Pos()).Force(ctx, bt)
	}

	lv, bot := EvalExpr(ctx, env, x.Left, bt)
	if bot != nil {
		return nil, bot
	}
	rv, bot := EvalExpr(ctx, env, x.Right, bt)
	if bot != nil {
		return nil, bot
	}

	switch x.Op {
	case ast.OpEq:
		eq, bot := adt.EqValues(ctx, lv, rv, bt)
		if bot != nil {
			return nil, bot
		}
		return adt.Bool(eq), nil
	case ast.OpNeq:
		eq, bot := adt.EqValues(ctx, lv, rv, bt)
		if bot != nil {
			return nil, bot
		}
		return adt.Bool(!eq), nil
	case ast.OpConcat:
		return concatLists(lv, rv, x.Pos())
	case ast.OpAdd:
		return arithAdd(lv, rv, x.Pos())
	case ast.OpSub:
		return arithNumeric(lv, rv, x.Pos(), "-", func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	case ast.OpMul:
		return arithNumeric(lv, rv, x.Pos(), "*", func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case ast.OpDiv:
		return arithDiv(lv, rv, x.Pos())
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return compareOrdered(ctx, lv, rv, x.Op, x.Pos(), bt)
	default:
		return nil, adt.NewBottom(adt.CodeUnimplemented, x.Pos(), "unhandled binary operator")
	}
}
