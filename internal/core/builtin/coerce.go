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

// Package builtin implements the native callable bridge: the
// registry of opaque Builtin values exposed as the top-level `builtins`
// attribute set, and the polymorphic argument coercion helpers every
// native body uses at its boundary.
package builtin

import (
	"github.com/nix-compiler/nix-compiler/internal/core/adt"
)

func typeErr(bt *adt.Backtrace, want string, v adt.Value) *adt.Bottom {
	return adt.NewBottom(adt.CodeTypeError, bt.Top(), "expected %s, got %s", want, v.Kind())
}

func force(ctx *adt.OpContext, th *adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	return th.Force(ctx, bt)
}

func asInt(ctx *adt.OpContext, th *adt.Thunk, bt *adt.Backtrace) (int64, *adt.Bottom) {
	v, bot := force(ctx, th, bt)
	if bot != nil {
		return 0, bot
	}
	i, ok := adt.AsInt(v)
	if !ok {
		return 0, typeErr(bt, "an integer", v)
	}
	return int64(i), nil
}

func asFloat(ctx *adt.OpContext, th *adt.Thunk, bt *adt.Backtrace) (float64, *adt.Bottom) {
	v, bot := force(ctx, th, bt)
	if bot != nil {
		return 0, bot
	}
	switch x := v.(type) {
	case adt.Int:
		return float64(x), nil
	case adt.Float:
		return float64(x), nil
	default:
		return 0, typeErr(bt, "a number", v)
	}
}

func asString(ctx *adt.OpContext, th *adt.Thunk, bt *adt.Backtrace) (string, *adt.Bottom) {
	v, bot := force(ctx, th, bt)
	if bot != nil {
		return "", bot
	}
	s, ok := adt.AsString(v)
	if !ok {
		return "", typeErr(bt, "a string", v)
	}
	return string(s), nil
}

// asPathLike accepts either a Path or a String, used by builtins (import,
// readFile, pathExists, ...) documented to take "a path or a string
// interpreted as a path".
func asPathLike(ctx *adt.OpContext, th *adt.Thunk, bt *adt.Backtrace) (string, *adt.Bottom) {
	v, bot := force(ctx, th, bt)
	if bot != nil {
		return "", bot
	}
	switch x := v.(type) {
	case adt.Path:
		return string(x), nil
	case adt.String:
		return string(x), nil
	default:
		return "", typeErr(bt, "a path or string", v)
	}
}

func asBool(ctx *adt.OpContext, th *adt.Thunk, bt *adt.Backtrace) (bool, *adt.Bottom) {
	v, bot := force(ctx, th, bt)
	if bot != nil {
		return false, bot
	}
	b, ok := adt.AsBool(v)
	if !ok {
		return false, typeErr(bt, "a bool", v)
	}
	return bool(b), nil
}

func asList(ctx *adt.OpContext, th *adt.Thunk, bt *adt.Backtrace) (*adt.List, *adt.Bottom) {
	v, bot := force(ctx, th, bt)
	if bot != nil {
		return nil, bot
	}
	l, ok := adt.AsListVal(v)
	if !ok {
		return nil, typeErr(bt, "a list", v)
	}
	return l, nil
}

func asAttrSet(ctx *adt.OpContext, th *adt.Thunk, bt *adt.Backtrace) (*adt.AttrSet, *adt.Bottom) {
	v, bot := force(ctx, th, bt)
	if bot != nil {
		return nil, bot
	}
	s, ok := adt.AsAttrSet(v)
	if !ok {
		return nil, typeErr(bt, "a set", v)
	}
	return s, nil
}

func asCallable(ctx *adt.OpContext, th *adt.Thunk, bt *adt.Backtrace) (adt.Callable, *adt.Bottom) {
	v, bot := force(ctx, th, bt)
	if bot != nil {
		return nil, bot
	}
	return adt.AsCallable(ctx, v, bt)
}

// toDisplayString implements the permissive toString semantics: besides
// CastToString's primitives, a set with an `outPath`/`__toString` may
// still stringify (derivations, __toString-bearing sets).
func toDisplayString(ctx *adt.OpContext, v adt.Value, bt *adt.Backtrace) (string, *adt.Bottom) {
	if s, ok := adt.CastToString(v); ok {
		return s, nil
	}
	set, ok := adt.AsAttrSet(v)
	if !ok {
		return "", typeErr(bt, "a stringable value", v)
	}
	if th, ok := set.Get(ctx, "outPath"); ok {
		return asString(ctx, th, bt)
	}
	if th, ok := set.Get(ctx, "__toString"); ok {
		fn, bot := asCallable(ctx, th, bt)
		if bot != nil {
			return "", bot
		}
		self := adt.NewConcreteThunk(set)
		res, bot := fn.Apply(ctx, self, bt)
		if bot != nil {
			return "", bot
		}
		return toDisplayString(ctx, res, bt)
	}
	return "", typeErr(bt, "a stringable value", v)
}
