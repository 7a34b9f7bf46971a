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
	"sort"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

func registerList(b *adt.Bindings) {
	set2(b, "map", biMap)
	set2(b, "filter", biFilter)
	set2(b, "elem", biElem)
	set2(b, "elemAt", biElemAt)
	set2(b, "genList", biGenList)
	set2(b, "concatMap", biConcatMap)
	set1(b, "length", biLength)
	set2(b, "all", biAll)
	set2(b, "any", biAny)
	set3(b, "foldl'", biFoldlStrict)
	set1(b, "head", biHead)
	set1(b, "tail", biTail)
	set1(b, "sort", biSortDefault)
	set2(b, "sortOn", biSortOn)
	set2(b, "partition", biPartition)
	set2(b, "catAttrs", biCatAttrs)
}

func biMap(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	out := make([]*adt.Thunk, len(list.Elems))
	for i, elem := range list.Elems {
		elem := elem
		out[i] = adt.NewNativeThunk(func(ctx *adt.OpContext, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
			return fn.Apply(ctx, elem, bt)
		}, bt.Top())
	}
	return &adt.List{Elems: out}, nil
}

func biFilter(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	var out []*adt.Thunk
	for _, elem := range list.Elems {
		rv, bot := fn.Apply(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		keep, ok := adt.AsBool(rv)
		if !ok {
			return nil, typeErr(bt, "a bool", rv)
		}
		if bool(keep) {
			out = append(out, elem)
		}
	}
	return &adt.List{Elems: out}, nil
}

func biElem(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	for _, elem := range list.Elems {
		eq, bot := adt.TryEq(ctx, args[0], elem, bt)
		if bot != nil {
			return nil, bot
		}
		if eq {
			return adt.Bool(true), nil
		}
	}
	return adt.Bool(false), nil
}

func biElemAt(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	list, bot := asList(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	i, bot := asInt(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	if i < 0 || int(i) >= len(list.Elems) {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "list index %d out of bounds (length %d)", i, len(list.Elems))
	}
	return list.Elems[i].Force(ctx, bt)
}

func biGenList(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	n, bot := asInt(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	if n < 0 {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "genList called with a negative length %d", n)
	}
	out := make([]*adt.Thunk, n)
	for i := int64(0); i < n; i++ {
		i := i
		out[i] = adt.NewNativeThunk(func(ctx *adt.OpContext, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
			return fn.Apply(ctx, adt.NewConcreteThunk(adt.Int(i)), bt)
		}, bt.Top())
	}
	return &adt.List{Elems: out}, nil
}

func biConcatMap(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	var out []*adt.Thunk
	for _, elem := range list.Elems {
		rv, bot := fn.Apply(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		sub, ok := adt.AsListVal(rv)
		if !ok {
			return nil, typeErr(bt, "a list", rv)
		}
		out = append(out, sub.Elems...)
	}
	return &adt.List{Elems: out}, nil
}

func biLength(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	list, bot := asList(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	return adt.Int(len(list.Elems)), nil
}

func biAll(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	for _, elem := range list.Elems {
		rv, bot := fn.Apply(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		b, ok := adt.AsBool(rv)
		if !ok {
			return nil, typeErr(bt, "a bool", rv)
		}
		if !bool(b) {
			return adt.Bool(false), nil
		}
	}
	return adt.Bool(true), nil
}

func biAny(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	for _, elem := range list.Elems {
		rv, bot := fn.Apply(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		b, ok := adt.AsBool(rv)
		if !ok {
			return nil, typeErr(bt, "a bool", rv)
		}
		if bool(b) {
			return adt.Bool(true), nil
		}
	}
	return adt.Bool(false), nil
}

// biFoldlStrict implements `foldl'`: unlike plain foldl (not exposed
// here), each accumulator step is forced before the next application
// so that a long fold does not build an ever-deeper thunk chain.
func biFoldlStrict(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[2], bt)
	if bot != nil {
		return nil, bot
	}
	acc := args[1]
	for _, elem := range list.Elems {
		partial, bot := fn.Apply(ctx, acc, bt)
		if bot != nil {
			return nil, bot
		}
		callee, bot := adt.AsCallable(ctx, partial, bt)
		if bot != nil {
			return nil, bot
		}
		rv, bot := callee.Apply(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		acc = adt.NewConcreteThunk(rv)
	}
	return acc.Force(ctx, bt)
}

func biHead(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	list, bot := asList(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	if len(list.Elems) == 0 {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "head called on an empty list")
	}
	return list.Elems[0].Force(ctx, bt)
}

func biTail(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	list, bot := asList(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	if len(list.Elems) == 0 {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "tail called on an empty list")
	}
	out := make([]*adt.Thunk, len(list.Elems)-1)
	copy(out, list.Elems[1:])
	return &adt.List{Elems: out}, nil
}

func sortForced(ctx *adt.OpContext, list *adt.List, less func(a, b adt.Value) (bool, *adt.Bottom), bt *adt.Backtrace) ([]adt.Value, *adt.Bottom) {
	vals := make([]adt.Value, len(list.Elems))
	for i, e := range list.Elems {
		v, bot := e.Force(ctx, bt)
		if bot != nil {
			return nil, bot
		}
		vals[i] = v
	}
	var sortErr *adt.Bottom
	sort.SliceStable(vals, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		lt, bot := less(vals[i], vals[j])
		if bot != nil {
			sortErr = bot
			return false
		}
		return lt
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return vals, nil
}

// biSortDefault implements `builtins.sort`, whose first argument is a
// two-argument less-than comparator lambda.
func biSortDefault(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	// builtins.sort in real nix has signature (comparator, list); this
	// registry exposes it as a 1-ary entry point returning a curried
	// Builtin of arity 2 so `sort cmp list` still reads naturally.
	return adt.NewBuiltin("sort", 2, biSortWithComparator).Apply(ctx, args[0], bt)
}

func biSortWithComparator(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	vals, bot := sortForced(ctx, list, func(a, b adt.Value) (bool, *adt.Bottom) {
		partial, bot := fn.Apply(ctx, adt.NewConcreteThunk(a), bt)
		if bot != nil {
			return false, bot
		}
		callee, bot := adt.AsCallable(ctx, partial, bt)
		if bot != nil {
			return false, bot
		}
		rv, bot := callee.Apply(ctx, adt.NewConcreteThunk(b), bt)
		if bot != nil {
			return false, bot
		}
		lt, ok := adt.AsBool(rv)
		if !ok {
			return false, typeErr(bt, "a bool", rv)
		}
		return bool(lt), nil
	}, bt)
	if bot != nil {
		return nil, bot
	}
	out := make([]*adt.Thunk, len(vals))
	for i, v := range vals {
		out[i] = adt.NewConcreteThunk(v)
	}
	return &adt.List{Elems: out}, nil
}

// biSortOn implements `sortOn key list`: sorts by the
// numeric/string ordering of `key v` applied to each element.
func biSortOn(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	keyed := make([]adt.Value, len(list.Elems))
	keys := make([]adt.Value, len(list.Elems))
	for i, e := range list.Elems {
		v, bot := e.Force(ctx, bt)
		if bot != nil {
			return nil, bot
		}
		kv, bot := fn.Apply(ctx, adt.NewConcreteThunk(v), bt)
		if bot != nil {
			return nil, bot
		}
		keyed[i] = v
		keys[i] = kv
	}
	idx := make([]int, len(keyed))
	for i := range idx {
		idx[i] = i
	}
	var sortErr *adt.Bottom
	sort.SliceStable(idx, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		lt, bot := valueLess(keys[idx[i]], keys[idx[j]])
		if bot != nil {
			sortErr = bot
			return false
		}
		return lt
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]*adt.Thunk, len(idx))
	for i, j := range idx {
		out[i] = adt.NewConcreteThunk(keyed[j])
	}
	return &adt.List{Elems: out}, nil
}

func valueLess(a, b adt.Value) (bool, *adt.Bottom) {
	switch x := a.(type) {
	case adt.Int:
		switch y := b.(type) {
		case adt.Int:
			return x < y, nil
		case adt.Float:
			return float64(x) < float64(y), nil
		}
	case adt.Float:
		switch y := b.(type) {
		case adt.Int:
			return float64(x) < float64(y), nil
		case adt.Float:
			return x < y, nil
		}
	case adt.String:
		if y, ok := b.(adt.String); ok {
			return x < y, nil
		}
	}
	return false, adt.NewBottom(adt.CodeTypeError, token.NoPos, "cannot order a %s and a %s", a.Kind(), b.Kind())
}

func biPartition(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	fn, bot := asCallable(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	var right, wrong []*adt.Thunk
	for _, elem := range list.Elems {
		rv, bot := fn.Apply(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		b, ok := adt.AsBool(rv)
		if !ok {
			return nil, typeErr(bt, "a bool", rv)
		}
		if bool(b) {
			right = append(right, elem)
		} else {
			wrong = append(wrong, elem)
		}
	}
	out := adt.NewBindings()
	out.Set("right", adt.NewConcreteThunk(&adt.List{Elems: right}))
	out.Set("wrong", adt.NewConcreteThunk(&adt.List{Elems: wrong}))
	return adt.NewAttrSet(out), nil
}

// biCatAttrs implements `catAttrs name list`: the values of `name` from
// every element of list that is a set containing it, skipping the rest.
func biCatAttrs(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	name, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	var out []*adt.Thunk
	for _, elem := range list.Elems {
		set, bot := asAttrSet(ctx, elem, bt)
		if bot != nil {
			return nil, bot
		}
		if th, ok := set.Get(ctx, name); ok {
			out = append(out, th)
		}
	}
	return &adt.List{Elems: out}, nil
}
