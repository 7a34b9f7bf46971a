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

// Package eval implements the per-form expression reduction rules: the single
// recursive EvalExpr function that walks an nix/ast tree under an
// adt.Environment and produces an adt.Value or an adt.Bottom. It is wired
// into adt.OpContext.EvalExpr by NewOpContext so that the value layer
// (Thunk, Lambda) can drive evaluation without adt importing this package.
package eval

import (
	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/nix/ast"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

// NewOpContext builds an OpContext with EvalExpr wired to this package's
// evaluator. The caller (typically internal/core/runtime) is expected to
// fill in Import once the file cache exists.
func NewOpContext(builtins *adt.AttrSet, mode adt.BacktraceMode) *adt.OpContext {
	return &adt.OpContext{
		EvalExpr:      EvalExpr,
		Builtins:      builtins,
		BacktraceMode: mode,
	}
}

// EvalExpr is the single reduction function driving the whole evaluator.
// It never itself forces a Thunk beyond what a given form requires
// (weak-head only, except where the form is explicitly defined to go
// deeper, e.g. string interpolation coercion).
func EvalExpr(ctx *adt.OpContext, env *adt.Environment, expr ast.Expr, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	switch x := expr.(type) {
	case *ast.Int:
		return adt.Int(x.Value), nil
	case *ast.Float:
		return adt.Float(x.Value), nil
	case *ast.Bool:
		return adt.Bool(x.Value), nil
	case *ast.Null:
		return adt.Null{}, nil
	case *ast.String:
		return evalString(ctx, env, x, bt)
	case *ast.Path:
		return evalPath(ctx, env, x, bt)
	case *ast.URI:
		return nil, adt.NewBottom(adt.CodeUnimplemented, x.Pos(), "URI literals are not implemented: %q", x.Value)
	case *ast.Ident:
		return evalIdent(ctx, env, x, bt)
	case *ast.Paren:
		return EvalExpr(ctx, env, x.Inner, bt)
	case *ast.List:
		elems := make([]*adt.Thunk, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = adt.NewPendingThunk(env, e, e.Pos())
		}
		return &adt.List{Elems: elems}, nil
	case *ast.AttrSet:
		return evalAttrSet(ctx, env, x, bt)
	case *ast.LetIn:
		return evalLetIn(ctx, env, x, bt)
	case *ast.With:
		return evalWith(ctx, env, x, bt)
	case *ast.Lambda:
		param := x.Param
		return &adt.Lambda{Env: env, Param: &param, Body: x.Body}, nil
	case *ast.Apply:
		return evalApply(ctx, env, x, bt)
	case *ast.Select:
		return evalSelect(ctx, env, x, bt)
	case *ast.HasAttr:
		return evalHasAttr(ctx, env, x, bt)
	case *ast.If:
		cond, bot := evalBool(ctx, env, x.Cond, bt)
		if bot != nil {
			return nil, bot
		}
		if cond {
			return EvalExpr(ctx, env, x.Then, bt)
		}
		return EvalExpr(ctx, env, x.Else, bt)
	case *ast.Assert:
		cond, bot := evalBool(ctx, env, x.Cond, bt)
		if bot != nil {
			return nil, bot
		}
		if !cond {
			return nil, adt.NewBottom(adt.CodeAssertionFailed, x.Pos(), "assertion failed")
		}
		return EvalExpr(ctx, env, x.Body, bt)
	case *ast.Unary:
		return evalUnary(ctx, env, x, bt)
	case *ast.BinOp:
		return evalBinOp(ctx, env, x, bt)
	default:
		return nil, adt.NewBottom(adt.CodeUnimplemented, expr.Pos(), "unhandled expression form %T", expr)
	}
}

func evalIdent(ctx *adt.OpContext, env *adt.Environment, x *ast.Ident, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	th, ok := env.Lookup(x.Name)
	if !ok {
		return nil, adt.NewBottom(adt.CodeVariableNotFound, x.Pos(), "undefined variable %q", x.Name)
	}
	return th.Force(ctx, bt.Push(adt.Frame{Span: x.Pos(), Kind: "force"}))
}

func evalWith(ctx *adt.OpContext, env *adt.Environment, x *ast.With, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	envThunk := adt.NewPendingThunk(env, x.Env, x.Env.Pos())
	v, bot := envThunk.Force(ctx, bt)
	if bot != nil {
		return nil, bot
	}
	set, ok := adt.AsAttrSet(v)
	if !ok {
		return nil, adt.NewBottom(adt.CodeTypeError, x.Env.Pos(), "value in `with` is a %s, not a set", v.Kind())
	}
	bindings := attrSetAsBindings(ctx, set)
	withEnv := env.NewWithFrame(bindings)
	return EvalExpr(ctx, withEnv, x.Body, bt)
}

// attrSetAsBindings exposes an AttrSet's entries as a Bindings for `with`'s
// fallback chain. Dynamic AttrSets already own a Bindings directly;
// derivation-view sets are copied into a fresh one (a derivation's surface
// is small and rarely the target of `with`).
func attrSetAsBindings(ctx *adt.OpContext, set *adt.AttrSet) *adt.Bindings {
	b := adt.NewBindings()
	for _, k := range set.Keys(ctx) {
		th, _ := set.Get(ctx, k)
		b.Set(k, th)
	}
	return b
}

// maxCallDepth bounds application nesting. Divergence that cycles
// through shared thunks is caught by the Resolving state; divergence
// that allocates fresh thunks every step (self-application) is not, and
// without a ceiling it would exhaust the Go stack instead of surfacing
// a diagnostic.
const maxCallDepth = 10000

func evalApply(ctx *adt.OpContext, env *adt.Environment, x *ast.Apply, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	if ctx.CallDepth >= maxCallDepth {
		return nil, adt.NewBottom(adt.CodeInfiniteRecursion, x.Pos(),
			"stack overflow: call depth %d exceeded, likely infinite recursion", maxCallDepth)
	}
	ctx.CallDepth++
	defer func() { ctx.CallDepth-- }()

	funcThunk := adt.NewPendingThunk(env, x.Func, x.Func.Pos())
	fv, bot := funcThunk.Force(ctx, bt)
	if bot != nil {
		return nil, bot
	}
	callBt := bt.Push(adt.Frame{Span: x.Pos(), Kind: "call"})
	callee, bot := adt.AsCallable(ctx, fv, callBt)
	if bot != nil {
		return nil, bot
	}
	argThunk := adt.NewPendingThunk(env, x.Arg, x.Arg.Pos())
	return callee.Apply(ctx, argThunk, callBt)
}

func evalUnary(ctx *adt.OpContext, env *adt.Environment, x *ast.Unary, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	v, bot := EvalExpr(ctx, env, x.Expr, bt)
	if bot != nil {
		return nil, bot
	}
	switch x.Op {
	case ast.UnaryNot:
		b, ok := adt.AsBool(v)
		if !ok {
			return nil, adt.NewBottom(adt.CodeTypeError, x.Pos(), "value is a %s, expected a bool", v.Kind())
		}
		return adt.Bool(!bool(b)), nil
	case ast.UnaryNeg:
		return negate(v, x.Pos())
	default:
		return nil, adt.NewBottom(adt.CodeUnimplemented, x.Pos(), "unknown unary operator")
	}
}

func negate(v adt.Value, pos token.Pos) (adt.Value, *adt.Bottom) {
	switch x := v.(type) {
	case adt.Int:
		return adt.Int(-int64(x)), nil
	case adt.Float:
		return adt.Float(-float64(x)), nil
	default:
		return nil, adt.NewBottom(adt.CodeTypeError, pos, "value is a %s, expected a number", v.Kind())
	}
}

func evalBool(ctx *adt.OpContext, env *adt.Environment, expr ast.Expr, bt *adt.Backtrace) (bool, *adt.Bottom) {
	v, bot := EvalExpr(ctx, env, expr, bt)
	if bot != nil {
		return false, bot
	}
	b, ok := adt.AsBool(v)
	if !ok {
		return false, adt.NewBottom(adt.CodeTypeError, expr.Pos(), "value is a %s, expected a bool", v.Kind())
	}
	return bool(b), nil
}
