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

import (
	"github.com/nix-compiler/nix-compiler/nix/ast"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

// thunkState is the thunk lifecycle, collapsed to three storage
// states (Pending, Resolving, Concrete) plus two construction kinds (Eval,
// UpdateResolve) that only affect what Pending does on first Force.
type thunkState int8

const (
	statePending thunkState = iota
	stateResolving
	stateConcrete
)

// thunkKind selects what a Pending Thunk does the first time it is forced.
type thunkKind int8

const (
	// kindExpr evaluates Expr in Env — the ordinary lazy binding.
	kindExpr thunkKind = iota
	// kindNative runs a pre-built closure, used to lazily wrap a value a
	// builtin has already computed (or one it will compute on demand)
	// without fabricating an ast.Expr for it.
	kindNative
	// kindUpdateResolve lazily computes the `//` merge of Left and Right
	// only once forced, so that `a // b` never forces a or b's attribute
	// values, only their outermost attrset shape.
	kindUpdateResolve
)

// NativeThunkFunc is the body of a kindNative Thunk.
type NativeThunkFunc func(ctx *OpContext, bt *Backtrace) (Value, *Bottom)

// Thunk is the single unit of lazy evaluation: every `let` binding,
// attribute value, list element, and function argument is one. A Thunk is
// forced at most once; the result (value or error) is memoized for every
// subsequent Force, and self-referential forcing during Resolving raises
// CodeInfiniteRecursion rather than looping or overflowing the stack.
type Thunk struct {
	state thunkState
	kind  thunkKind

	env  *Environment
	expr ast.Expr

	native NativeThunkFunc

	left, right *Thunk

	value  Value
	bottom *Bottom

	// definingSpan is the span at which this Thunk was created (e.g. the
	// `=` of a binding); firstUseSpan is the span of the call site that
	// first forced it. Both feed the three labels of the infinite
	// recursion diagnostic.
	definingSpan token.Pos
	firstUseSpan token.Pos
}

// NewPendingThunk builds a lazy binding that evaluates expr in env on first
// Force. definingSpan is normally the span of the binding's `=` or the
// argument expression at its call site.
func NewPendingThunk(env *Environment, expr ast.Expr, definingSpan token.Pos) *Thunk {
	return &Thunk{state: statePending, kind: kindExpr, env: env, expr: expr, definingSpan: definingSpan}
}

// NewNativeThunk builds a lazy binding around an arbitrary closure, used by
// builtins that must defer work (e.g. a single list element of
// builtins.genList) until actually demanded.
func NewNativeThunk(fn NativeThunkFunc, definingSpan token.Pos) *Thunk {
	return &Thunk{state: statePending, kind: kindNative, native: fn, definingSpan: definingSpan}
}

// NewUpdateResolveThunk builds the lazy `//` merge Thunk for `left // right`:
// the merge itself — deciding the resulting key set and which side
// wins each key — only happens once this Thunk is forced.
func NewUpdateResolveThunk(left, right *Thunk, definingSpan token.Pos) *Thunk {
	return &Thunk{state: statePending, kind: kindUpdateResolve, left: left, right: right, definingSpan: definingSpan}
}

// NewConcreteThunk wraps an already-known value in a Thunk whose Force is
// free; used for synthetic self-references (e.g. `__functor` application,
// import caching before the body has even been parsed in the general
// case) where no further laziness is needed.
func NewConcreteThunk(v Value) *Thunk {
	return &Thunk{state: stateConcrete, value: v}
}

// NewErrorThunk wraps an already-raised Bottom, used where a binding must
// exist syntactically but its value is known to fail unconditionally (e.g.
// a malformed default argument).
func NewErrorThunk(bot *Bottom) *Thunk {
	return &Thunk{state: stateConcrete, bottom: bot}
}

// Force evaluates the Thunk if necessary and returns its memoized result.
// bt is the backtrace active at the *call site* forcing this Thunk: its
// top span is recorded as the first-use span of a later infinite-recursion
// diagnostic, it is passed on to the evaluation, and it is attached to a
// resulting error that does not carry a backtrace yet.
func (t *Thunk) Force(ctx *OpContext, bt *Backtrace) (Value, *Bottom) {
	switch t.state {
	case stateConcrete:
		return t.value, t.bottom
	case stateResolving:
		return nil, t.infiniteRecursion(bt)
	}

	t.state = stateResolving
	t.firstUseSpan = bt.Top()

	var v Value
	var bot *Bottom
	switch t.kind {
	case kindExpr:
		v, bot = ctx.EvalExpr(ctx, t.env, t.expr, bt)
	case kindNative:
		v, bot = t.native(ctx, bt)
	case kindUpdateResolve:
		v, bot = t.resolveUpdate(ctx, bt)
	}

	t.state = stateConcrete
	t.env, t.expr, t.native, t.left, t.right = nil, nil, nil, nil, nil
	if bot != nil {
		// The deepest force to see the error captures the backtrace;
		// outer forces propagate it untouched.
		if bot.Diag.Backtrace == nil {
			bot = bot.WithBacktrace(bt)
		}
		t.bottom = bot
		return nil, bot
	}
	t.value = v
	return v, nil
}

func (t *Thunk) infiniteRecursion(bt *Backtrace) *Bottom {
	bot := NewBottom(CodeInfiniteRecursion, bt.Top(), "infinite recursion encountered")
	bot = bot.WithLabel(LabelHelp, "value is defined here", t.definingSpan)
	bot = bot.WithLabel(LabelHelp, "...and first forced here", t.firstUseSpan)
	bot = bot.WithLabel(LabelError, "...and forced again here while still resolving", bt.Top())
	return bot.WithBacktrace(bt)
}

func (t *Thunk) resolveUpdate(ctx *OpContext, bt *Backtrace) (Value, *Bottom) {
	lv, bot := t.left.Force(ctx, bt)
	if bot != nil {
		return nil, bot
	}
	rv, bot := t.right.Force(ctx, bt)
	if bot != nil {
		return nil, bot
	}
	lset, ok := AsAttrSet(lv)
	if !ok {
		return nil, NewBottom(CodeTypeError, bt.Top(), "left operand of // is a %s, not a set", lv.Kind())
	}
	rset, ok := AsAttrSet(rv)
	if !ok {
		return nil, NewBottom(CodeTypeError, bt.Top(), "right operand of // is a %s, not a set", rv.Kind())
	}
	return lset.MergeUpdate(ctx, rset), nil
}

// ForceDeep forces t and, recursively, every element of a resulting List or
// every value of a resulting AttrSet (builtins.deepSeq, final-result
// printing). It does not force Lambdas or Builtins beyond their
// own weak head. A thunk already visited in this walk is not descended
// again, so cyclic data (a rec set holding itself) terminates instead of
// looping through its already-Concrete cells forever.
func ForceDeep(ctx *OpContext, t *Thunk, bt *Backtrace) (Value, *Bottom) {
	return forceDeep(ctx, t, bt, map[*Thunk]bool{})
}

func forceDeep(ctx *OpContext, t *Thunk, bt *Backtrace, seen map[*Thunk]bool) (Value, *Bottom) {
	v, bot := t.Force(ctx, bt)
	if bot != nil {
		return nil, bot
	}
	if seen[t] {
		return v, nil
	}
	seen[t] = true
	switch x := v.(type) {
	case *List:
		for _, elem := range x.Elems {
			if _, bot := forceDeep(ctx, elem, bt, seen); bot != nil {
				return nil, bot
			}
		}
	case *AttrSet:
		// Derivation views are leaves: they render as a bare store path
		//, and each declared output exposes a subview that itself
		// re-exposes every output, so descending would never terminate.
		if x.IsDerivation() {
			return v, nil
		}
		for _, key := range x.Keys(ctx) {
			elem, _ := x.Get(ctx, key)
			if _, bot := forceDeep(ctx, elem, bt, seen); bot != nil {
				return nil, bot
			}
		}
	}
	return v, nil
}
