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

// selectAttrPath walks keys from base, forcing only as far as each
// intermediate attrset's weak head requires. found is false when any key
// along the path is absent — the one case `or` is allowed to catch; a
// non-attrset encountered along the way is always a hard type error, never
// caught by `or`.
func selectAttrPath(ctx *adt.OpContext, base *adt.Thunk, keys []string, pos token.Pos, bt *adt.Backtrace) (*adt.Thunk, bool, *adt.Bottom) {
	cur := base
	for _, k := range keys {
		v, bot := cur.Force(ctx, bt)
		if bot != nil {
			return nil, false, bot
		}
		set, ok := adt.AsAttrSet(v)
		if !ok {
			return nil, false, adt.NewBottom(adt.CodeTypeError, pos, "value is a %s, cannot select attribute %q", v.Kind(), k)
		}
		th, ok := set.Get(ctx, k)
		if !ok {
			return nil, false, nil
		}
		cur = th
	}
	return cur, true, nil
}

// selectPath is selectAttrPath without an `or` fallback: a missing
// attribute anywhere along the path is itself a hard error, used by
// `inherit (from) names...` where nix offers no default.
func selectPath(ctx *adt.OpContext, base *adt.Thunk, keys []string, pos token.Pos, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	th, found, bot := selectAttrPath(ctx, base, keys, pos, bt)
	if bot != nil {
		return nil, bot
	}
	if !found {
		return nil, adt.NewBottom(adt.CodeAttributeMissing, pos, "attribute %q missing", keys[len(keys)-1])
	}
	return th.Force(ctx, bt)
}

func evalSelect(ctx *adt.OpContext, env *adt.Environment, x *ast.Select, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	keys, bot := resolveAttrPath(ctx, env, x.Path, bt)
	if bot != nil {
		return nil, bot
	}
	base := adt.NewPendingThunk(env, x.Base, x.Base.Pos())
	th, found, bot := selectAttrPath(ctx, base, keys, x.Pos(), bt)
	if bot != nil {
		return nil, bot
	}
	if found {
		return th.Force(ctx, bt.Push(adt.Frame{Span: x.Pos(), Kind: "force"}))
	}
	if x.OrDefault != nil {
		return EvalExpr(ctx, env, x.OrDefault, bt)
	}
	return nil, adt.NewBottom(adt.CodeAttributeMissing, x.Pos(), "attribute %q missing", keys[len(keys)-1])
}

func evalHasAttr(ctx *adt.OpContext, env *adt.Environment, x *ast.HasAttr, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	keys, bot := resolveAttrPath(ctx, env, x.Path, bt)
	if bot != nil {
		return nil, bot
	}
	base := adt.NewPendingThunk(env, x.Base, x.Base.Pos())
	_, found, bot := selectAttrPath(ctx, base, keys, x.Pos(), bt)
	if bot != nil {
		// A `?` check on a non-attrset base is false, not an error —
		// mirroring nix's own `e ? a` tolerance for non-set e.
		if bot.Code() == adt.CodeTypeError {
			return adt.Bool(false), nil
		}
		return nil, bot
	}
	return adt.Bool(found), nil
}
