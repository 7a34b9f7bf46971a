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
	"fmt"
	"os"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
)

func registerCore(b *adt.Bindings) {
	set1(b, "abort", biAbort)
	set1(b, "throw", biThrow)
	set1(b, "tryEval", biTryEval)
	set1(b, "typeOf", biTypeOf)
	set1(b, "isAttrs", isKind(adt.AttrSetKind))
	set1(b, "isBool", isKind(adt.BoolKind))
	set1(b, "isFloat", isKind(adt.FloatKind))
	set1(b, "isInt", isKind(adt.IntKind))
	set1(b, "isList", isKind(adt.ListKind))
	set1(b, "isNull", isKind(adt.NullKind))
	set1(b, "isPath", isKind(adt.PathKind))
	set1(b, "isString", isKind(adt.StringKind))
	set1(b, "isFunction", biIsFunction)
	set1(b, "toString", biToString)
	set2(b, "seq", biSeq)
	set2(b, "deepSeq", biDeepSeq)
	set2(b, "trace", biTrace)
	set2(b, "addErrorContext", biAddErrorContext)
}

func biAbort(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	msg, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	return nil, adt.NewBottom(adt.CodeAbort, bt.Top(), "evaluation aborted with the following message: %q", msg)
}

func biThrow(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	msg, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	return nil, adt.NewBottom(adt.CodeThrow, bt.Top(), "%s", msg)
}

// biTryEval implements the permissive catch policy: a
// `throw` is caught, an `abort` propagates fatally regardless of
// tryEval's presence on the call stack.
func biTryEval(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	_, bot := args[0].Force(ctx, bt)
	result := adt.NewBindings()
	if bot != nil {
		if bot.IsAbort() {
			return nil, bot
		}
		result.Set("success", adt.NewConcreteThunk(adt.Bool(false)))
		result.Set("value", adt.NewConcreteThunk(adt.Bool(false)))
		return adt.NewAttrSet(result), nil
	}
	result.Set("success", adt.NewConcreteThunk(adt.Bool(true)))
	result.Set("value", args[0])
	return adt.NewAttrSet(result), nil
}

func biTypeOf(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	v, bot := force(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	return adt.String(v.Kind().String()), nil
}

func isKind(k adt.Kind) adt.NativeFunc {
	return func(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
		v, bot := force(ctx, args[0], bt)
		if bot != nil {
			return nil, bot
		}
		return adt.Bool(v.Kind() == k), nil
	}
}

func biIsFunction(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	v, bot := force(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	k := v.Kind()
	return adt.Bool(k == adt.LambdaKind || k == adt.BuiltinKind), nil
}

func biToString(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	v, bot := force(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	s, bot := toDisplayString(ctx, v, bt)
	if bot != nil {
		return nil, bot
	}
	return adt.String(s), nil
}

func biSeq(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	if _, bot := args[0].Force(ctx, bt); bot != nil {
		return nil, bot
	}
	return args[1].Force(ctx, bt)
}

func biDeepSeq(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	if _, bot := adt.ForceDeep(ctx, args[0], bt); bot != nil {
		return nil, bot
	}
	return args[1].Force(ctx, bt)
}

func biTrace(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	v, bot := force(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	s, bot := toDisplayString(ctx, v, bt)
	if bot != nil {
		s = fmt.Sprintf("<%s>", v.Kind())
	}
	fmt.Fprintf(os.Stderr, "trace: %s\n", s)
	return args[1].Force(ctx, bt)
}

// biAddErrorContext wraps any Bottom raised while forcing args[1] with an
// extra help label carrying the context message (nix itself uses this
// to annotate derivation build failures).
func biAddErrorContext(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	msg, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	v, bot := args[1].Force(ctx, bt)
	if bot != nil {
		return nil, bot.WithLabel(adt.LabelHelp, msg, bt.Top())
	}
	return v, nil
}
