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
	"github.com/google/uuid"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
)

func registerAttrs(b *adt.Bindings) {
	set1(b, "attrNames", biAttrNames)
	set1(b, "attrValues", biAttrValues)
	set2(b, "removeAttrs", biRemoveAttrs)
	set1(b, "listToAttrs", biListToAttrs)
	set2(b, "mapAttrs", biMapAttrs)
	set2(b, "intersectAttrs", biIntersectAttrs)
	set1(b, "functionArgs", biFunctionArgs)
	set1(b, "genericClosure", biGenericClosure)
}

func biAttrNames(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	set, bot := asAttrSet(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	keys := set.Keys(ctx)
	out := make([]*adt.Thunk, len(keys))
	for i, k := range keys {
		out[i] = adt.NewConcreteThunk(adt.String(k))
	}
	return &adt.List{Elems: out}, nil
}

func biAttrValues(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	set, bot := asAttrSet(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	keys := set.Keys(ctx)
	out := make([]*adt.Thunk, len(keys))
	for i, k := range keys {
		th, _ := set.Get(ctx, k)
		out[i] = th
	}
	return &adt.List{Elems: out}, nil
}

func biRemoveAttrs(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	set, bot := asAttrSet(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	names, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	drop := make(map[string]bool, len(names.Elems))
	for _, n := range names.Elems {
		s, bot := asString(ctx, n, bt)
		if bot != nil {
			return nil, bot
		}
		drop[s] = true
	}
	out := adt.NewBindings()
	for _, k := range set.Keys(ctx) {
		if drop[k] {
			continue
		}
		th, _ := set.Get(ctx, k)
		out.Set(k, th)
	}
	return adt.NewAttrSet(out), nil
}

// biListToAttrs builds a set from a list of `{ name = ...; value = ...; }`
// entries; the first occurrence of a repeated name wins, matching nix.
func biListToAttrs(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	list, bot := asList(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	out := adt.NewBindings()
	seen := map[string]bool{}
	for _, elem := range list.Elems {
		entry, bot := asAttrSet(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		nameTh, ok := entry.Get(ctx, "name")
		if !ok {
			return nil, adt.NewBottom(adt.CodeAttributeMissing, bt.Top(), "listToAttrs entry is missing attribute %q", "name")
		}
		name, bot := asString(ctx, nameTh, bt)
		if bot != nil {
			return nil, bot
		}
		valueTh, ok := entry.Get(ctx, "value")
		if !ok {
			return nil, adt.NewBottom(adt.CodeAttributeMissing, bt.Top(), "listToAttrs entry is missing attribute %q", "value")
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out.Set(name, valueTh)
	}
	return adt.NewAttrSet(out), nil
}

func biMapAttrs(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	set, bot := asAttrSet(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	out := adt.NewBindings()
	for _, k := range set.Keys(ctx) {
		k := k
		valTh, _ := set.Get(ctx, k)
		out.Set(k, adt.NewNativeThunk(func(ctx *adt.OpContext, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
			partial, bot := fn.Apply(ctx, adt.NewConcreteThunk(adt.String(k)), bt)
			if bot != nil {
				return nil, bot
			}
			callee, bot := adt.AsCallable(ctx, partial, bt)
			if bot != nil {
				return nil, bot
			}
			return callee.Apply(ctx, valTh, bt)
		}, bt.Top()))
	}
	return adt.NewAttrSet(out), nil
}

// biIntersectAttrs implements `intersectAttrs a b`: the attributes of b
// restricted to names also present in a, with b's values.
func biIntersectAttrs(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	a, bot := asAttrSet(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	bSet, bot := asAttrSet(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	out := adt.NewBindings()
	for _, k := range bSet.Keys(ctx) {
		if _, ok := a.Get(ctx, k); !ok {
			continue
		}
		th, _ := bSet.Get(ctx, k)
		out.Set(k, th)
	}
	return adt.NewAttrSet(out), nil
}

// biFunctionArgs exposes a lambda's attrs-pattern parameter names mapped
// to whether each has a default; plain-identifier parameters and
// native Builtins report an empty set.
func biFunctionArgs(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	v, bot := force(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	out := adt.NewBindings()
	lam, ok := v.(*adt.Lambda)
	if ok && lam.Param.IsAttrs {
		for _, e := range lam.Param.Entries {
			out.Set(e.Name, adt.NewConcreteThunk(adt.Bool(e.Default != nil)))
		}
	}
	return adt.NewAttrSet(out), nil
}

// biGenericClosure implements the worklist-closure builtin: given
// `{ startSet, operator }`, repeatedly applies operator to every not yet
// visited element (compared by its `key` attribute) until the worklist is
// empty, returning every visited element in discovery order. Elements
// lacking a usable `key` get a synthetic UUID discriminator so that two
// structurally-equal-but-unkeyed elements are still treated as distinct —
// the one place this evaluator manufactures an identifier rather than
// deriving one from the program (DESIGN.md).
func biGenericClosure(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	params, bot := asAttrSet(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	startTh, ok := params.Get(ctx, "startSet")
	if !ok {
		return nil, adt.NewBottom(adt.CodeAttributeMissing, bt.Top(), "genericClosure requires a %q attribute", "startSet")
	}
	opTh, ok := params.Get(ctx, "operator")
	if !ok {
		return nil, adt.NewBottom(adt.CodeAttributeMissing, bt.Top(), "genericClosure requires an %q attribute", "operator")
	}
	start, bot := asList(ctx, startTh, bt)
	if bot != nil {
		return nil, bot
	}
	op, bot := asCallable(ctx, opTh, bt)
	if bot != nil {
		return nil, bot
	}

	seen := map[string]bool{}
	var result []*adt.Thunk
	work := append([]*adt.Thunk{}, start.Elems...)

	for len(work) > 0 {
		elem := work[0]
		work = work[1:]
		elemSet, bot := asAttrSet(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		key := closureKey(ctx, elemSet, bt)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, elem)

		rv, bot := op.Apply(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		next, ok := adt.AsListVal(rv)
		if !ok {
			return nil, typeErr(bt, "a list", rv)
		}
		work = append(work, next.Elems...)
	}
	return &adt.List{Elems: result}, nil
}

func closureKey(ctx *adt.OpContext, set *adt.AttrSet, bt *adt.Backtrace) string {
	th, ok := set.Get(ctx, "key")
	if !ok {
		return uuid.NewString()
	}
	v, bot := th.Force(ctx, bt)
	if bot != nil {
		return uuid.NewString()
	}
	if s, ok := adt.CastToString(v); ok {
		return s
	}
	return uuid.NewString()
}
