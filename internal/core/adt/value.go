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

// Package adt implements the core data model of the evaluator: the
// closed set of runtime Value variants, the Thunk state machine that backs
// every lazy binding, and the Environment/Scope chain used for name
// resolution (the eval package drives the actual binding rules).
package adt

import (
	"fmt"
	"sort"

	"github.com/nix-compiler/nix-compiler/nix/ast"
)

// Kind identifies the outermost constructor of a forced Value (its weak
// head shape).
type Kind int8

const (
	NullKind Kind = iota
	BoolKind
	IntKind
	FloatKind
	StringKind
	PathKind
	ListKind
	AttrSetKind
	LambdaKind
	BuiltinKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "bool"
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case StringKind:
		return "string"
	case PathKind:
		return "path"
	case ListKind:
		return "list"
	case AttrSetKind:
		return "set"
	case LambdaKind, BuiltinKind:
		return "lambda"
	default:
		return "unknown"
	}
}

// Value is the closed sum of runtime value variants.
type Value interface {
	Kind() Kind
}

// Null is the unit value.
type Null struct{}

func (Null) Kind() Kind { return NullKind }

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return BoolKind }

// Int is a signed 64-bit integer value.
type Int int64

func (Int) Kind() Kind { return IntKind }

// Float is an IEEE-754 double value.
type Float float64

func (Float) Kind() Kind { return FloatKind }

// String is a Unicode text value.
type String string

func (String) Kind() Kind { return StringKind }

// Path is a normalized absolute filesystem path value.
type Path string

func (Path) Kind() Kind { return PathKind }

// List is an ordered, positionally indexed sequence of lazily-bound
// elements. Sharing a Thunk reference across lists is what gives `++`
// its structural-sharing property.
type List struct {
	Elems []*Thunk
}

func (*List) Kind() Kind { return ListKind }

// Lambda is a closure over a defining Environment, a single parameter form,
// and a body expression.
type Lambda struct {
	Env   *Environment
	Param *ast.Param
	Body  ast.Expr
}

func (*Lambda) Kind() Kind { return LambdaKind }

// Apply binds arg into a fresh Environment per Lambda.Param and evaluates
// Body in it.
func (l *Lambda) Apply(ctx *OpContext, arg *Thunk, bt *Backtrace) (Value, *Bottom) {
	env, bot := BindParam(ctx, l.Env, l.Param, arg, bt)
	if bot != nil {
		return nil, bot
	}
	return ctx.EvalExpr(ctx, env, l.Body, bt)
}

// NativeFunc is the body of a single curried application step of a
// Builtin: it receives exactly as many argument thunks as the
// builtin's declared arity and the backtrace active at the call site.
type NativeFunc func(ctx *OpContext, args []*Thunk, bt *Backtrace) (Value, *Bottom)

// Builtin is an opaque native callable with a fixed arity, capturing zero
// or more already-supplied curried arguments. Currying is native:
// applying a Builtin short of its arity returns a new Builtin value, never
// a Nix-level lambda.
type Builtin struct {
	Name  string
	Arity int
	Fn    NativeFunc
	bound []*Thunk
}

func (*Builtin) Kind() Kind { return BuiltinKind }

// NewBuiltin constructs a zero-argument Builtin value ready for currying.
func NewBuiltin(name string, arity int, fn NativeFunc) *Builtin {
	if arity < 1 {
		panic(fmt.Sprintf("builtin %q must have arity >= 1", name))
	}
	return &Builtin{Name: name, Arity: arity, Fn: fn}
}

// Apply supplies one more argument. If that reaches the builtin's arity,
// the native body runs immediately; otherwise a new partially-applied
// Builtin is returned.
func (b *Builtin) Apply(ctx *OpContext, arg *Thunk, bt *Backtrace) (Value, *Bottom) {
	bound := make([]*Thunk, len(b.bound)+1)
	copy(bound, b.bound)
	bound[len(b.bound)] = arg

	if len(bound) < b.Arity {
		return &Builtin{Name: b.Name, Arity: b.Arity, Fn: b.Fn, bound: bound}, nil
	}
	return b.Fn(ctx, bound, bt)
}

// BoundArgs reports the arguments already curried into b.
func (b *Builtin) BoundArgs() []*Thunk { return b.bound }

// Callable is the unification of the three forms a Nix value may be
// invoked through: Lambda, Builtin, and (via __functor) a callable
// AttrSet.
type Callable interface {
	Apply(ctx *OpContext, arg *Thunk, bt *Backtrace) (Value, *Bottom)
}

var (
	_ Callable = (*Lambda)(nil)
	_ Callable = (*Builtin)(nil)
)

// AsCallable coerces v to a Callable, following the "callable attribute
// set" fallback: an AttrSet with a `__functor` entry whose value coerces
// to Lambda/Builtin is itself callable, applying __functor to the set and
// then to the argument.
func AsCallable(ctx *OpContext, v Value, bt *Backtrace) (Callable, *Bottom) {
	switch x := v.(type) {
	case *Lambda:
		return x, nil
	case *Builtin:
		return x, nil
	case *AttrSet:
		functorThunk, ok := x.Get(ctx, "__functor")
		if !ok {
			return nil, NewBottom(CodeTypeError, bt.Top(), "value is not callable (missing __functor)")
		}
		functor, bot := functorThunk.Force(ctx, bt)
		if bot != nil {
			return nil, bot
		}
		partial, bot := AsCallable(ctx, functor, bt)
		if bot != nil {
			return nil, bot
		}
		self := NewConcreteThunk(x)
		bound, bot := partial.Apply(ctx, self, bt)
		if bot != nil {
			return nil, bot
		}
		return AsCallable(ctx, bound, bt)
	default:
		return nil, NewBottom(CodeTypeError, bt.Top(), "value of type %s is not callable", v.Kind())
	}
}

// ---------------------------------------------------------------------
// Typed projections: return (_, false) on mismatch rather than
// panicking.

func AsInt(v Value) (Int, bool)       { x, ok := v.(Int); return x, ok }
func AsFloat(v Value) (Float, bool)   { x, ok := v.(Float); return x, ok }
func AsString(v Value) (String, bool) { x, ok := v.(String); return x, ok }
func AsBool(v Value) (Bool, bool)     { x, ok := v.(Bool); return x, ok }
func AsPath(v Value) (Path, bool)     { x, ok := v.(Path); return x, ok }
func AsListVal(v Value) (*List, bool) { x, ok := v.(*List); return x, ok }
func AsAttrSet(v Value) (*AttrSet, bool) {
	x, ok := v.(*AttrSet)
	return x, ok
}

// CastToString implements the permissive string coercion: Null -> "",
// false -> "", true -> "1", Int/Float -> decimal, Path -> absolute path
// string, String -> itself. Lists, Lambdas, AttrSets, and Builtins fail.
func CastToString(v Value) (string, bool) {
	switch x := v.(type) {
	case Null:
		return "", true
	case Bool:
		if x {
			return "1", true
		}
		return "", true
	case Int:
		return fmt.Sprintf("%d", int64(x)), true
	case Float:
		return formatFloat(float64(x)), true
	case Path:
		return string(x), true
	case String:
		return string(x), true
	default:
		return "", false
	}
}

func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}

// sortedKeys is a small shared helper used by AttrSet iteration (key-sorted
// so debug output is deterministic) and by the printer.
func sortedKeys(m map[string]*Thunk) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
