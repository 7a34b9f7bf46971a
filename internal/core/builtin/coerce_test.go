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

package builtin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

func testCtx() *adt.OpContext {
	reg := NewRegistry()
	return &adt.OpContext{Builtins: reg}
}

func th(v adt.Value) *adt.Thunk { return adt.NewConcreteThunk(v) }

func TestAsIntCoercion(t *testing.T) {
	ctx := testCtx()

	i, bot := asInt(ctx, th(adt.Int(7)), nil)
	require.Nil(t, bot)
	require.Equal(t, int64(7), i)

	_, bot = asInt(ctx, th(adt.String("7")), nil)
	require.NotNil(t, bot)
	require.Equal(t, adt.CodeTypeError, bot.Code())
	require.Contains(t, bot.Error(), "expected an integer")
}

func TestAsFloatPromotesInt(t *testing.T) {
	ctx := testCtx()

	f, bot := asFloat(ctx, th(adt.Int(2)), nil)
	require.Nil(t, bot)
	require.Equal(t, 2.0, f)

	f, bot = asFloat(ctx, th(adt.Float(2.5)), nil)
	require.Nil(t, bot)
	require.Equal(t, 2.5, f)

	_, bot = asFloat(ctx, th(adt.Bool(true)), nil)
	require.NotNil(t, bot)
	require.Equal(t, adt.CodeTypeError, bot.Code())
}

func TestAsPathLikeAcceptsBothSpellings(t *testing.T) {
	ctx := testCtx()

	p, bot := asPathLike(ctx, th(adt.Path("/etc/hosts")), nil)
	require.Nil(t, bot)
	require.Equal(t, "/etc/hosts", p)

	p, bot = asPathLike(ctx, th(adt.String("/etc/hosts")), nil)
	require.Nil(t, bot)
	require.Equal(t, "/etc/hosts", p)

	_, bot = asPathLike(ctx, th(adt.Int(1)), nil)
	require.NotNil(t, bot)
	require.Equal(t, adt.CodeTypeError, bot.Code())
}

// Coercion failures surface the error the forced thunk raised, not a
// fresh type error masking it.
func TestCoercionPropagatesForceError(t *testing.T) {
	ctx := testCtx()
	bad := adt.NewErrorThunk(adt.NewBottom(adt.CodeThrow, token.NoPos, "boom"))

	_, bot := asString(ctx, bad, nil)
	require.NotNil(t, bot)
	require.Equal(t, adt.CodeThrow, bot.Code())
}

func TestAsCallableFunctorFallback(t *testing.T) {
	ctx := testCtx()

	// { __functor = self: x: x + 1; } — callable through __functor, with
	// the set itself curried in as the first argument.
	inc := adt.NewBuiltin("inc", 2, func(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
		x, bot := asInt(ctx, args[1], bt)
		if bot != nil {
			return nil, bot
		}
		return adt.Int(x + 1), nil
	})
	b := adt.NewBindings()
	b.Set("__functor", th(inc))
	set := adt.NewAttrSet(b)

	fn, bot := asCallable(ctx, th(set), nil)
	require.Nil(t, bot)

	v, bot := fn.Apply(ctx, th(adt.Int(41)), nil)
	require.Nil(t, bot)
	require.Equal(t, adt.Int(42), v)
}

func TestToDisplayStringPrefersOutPath(t *testing.T) {
	ctx := testCtx()

	b := adt.NewBindings()
	b.Set("outPath", th(adt.String("/nix/store/abc-x")))
	b.Set("name", th(adt.String("x")))
	s, bot := toDisplayString(ctx, adt.NewAttrSet(b), nil)
	require.Nil(t, bot)
	require.Equal(t, "/nix/store/abc-x", s)
}

func TestToDisplayStringFollowsToString(t *testing.T) {
	ctx := testCtx()

	toStr := adt.NewBuiltin("__toString", 1, func(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
		return adt.String("rendered"), nil
	})
	b := adt.NewBindings()
	b.Set("__toString", th(toStr))
	s, bot := toDisplayString(ctx, adt.NewAttrSet(b), nil)
	require.Nil(t, bot)
	require.Equal(t, "rendered", s)

	_, bot = toDisplayString(ctx, &adt.List{}, nil)
	require.NotNil(t, bot)
	require.Equal(t, adt.CodeTypeError, bot.Code())
}

func TestBuiltinCurryingIsNative(t *testing.T) {
	ctx := testCtx()

	add := adt.NewBuiltin("add", 2, func(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
		a, bot := asInt(ctx, args[0], bt)
		if bot != nil {
			return nil, bot
		}
		b, bot := asInt(ctx, args[1], bt)
		if bot != nil {
			return nil, bot
		}
		return adt.Int(a + b), nil
	})

	partial, bot := add.Apply(ctx, th(adt.Int(40)), nil)
	require.Nil(t, bot)
	pb, ok := partial.(*adt.Builtin)
	require.True(t, ok, "partial application must stay a Builtin, not become a lambda")
	require.Len(t, pb.BoundArgs(), 1)

	// The original is untouched; the partial can be applied repeatedly.
	v, bot := pb.Apply(ctx, th(adt.Int(2)), nil)
	require.Nil(t, bot)
	require.Equal(t, adt.Int(42), v)

	v, bot = pb.Apply(ctx, th(adt.Int(10)), nil)
	require.Nil(t, bot)
	require.Equal(t, adt.Int(50), v)
}
