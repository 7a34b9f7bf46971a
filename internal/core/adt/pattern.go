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

import "github.com/nix-compiler/nix-compiler/nix/ast"

// BindParam builds the Environment a Lambda's body evaluates in, binding
// arg according to param. Two shapes exist:
//
//   - a plain identifier parameter binds arg directly under that name;
//   - an attrs pattern `{a, b ? d, ...}@all` destructures arg, which must
//     force (to weak head only) to an AttrSet. Missing non-defaulted
//     entries are an error; without an ellipsis, any
//     attribute of arg not named by the pattern is also an error.
//
// Default-value expressions are bound lazily in the very Environment they
// help populate, so a default may refer to a sibling parameter (defaulted
// or not) exactly as nix itself allows.
func BindParam(ctx *OpContext, env *Environment, param *ast.Param, arg *Thunk, bt *Backtrace) (*Environment, *Bottom) {
	if !param.IsAttrs {
		bindings := NewBindings()
		bindings.Set(param.Name, arg)
		return env.NewChildFrame(bindings), nil
	}

	argVal, bot := arg.Force(ctx, bt)
	if bot != nil {
		return nil, bot
	}
	argSet, ok := AsAttrSet(argVal)
	if !ok {
		return nil, NewBottom(CodeTypeError, bt.Top(), "function called with a %s, expected a set", argVal.Kind())
	}

	if !param.Ellipsis {
		allowed := make(map[string]bool, len(param.Entries))
		for _, e := range param.Entries {
			allowed[e.Name] = true
		}
		for _, key := range argSet.Keys(ctx) {
			if !allowed[key] {
				return nil, NewBottom(CodeTypeError, bt.Top(),
					"function called with unexpected argument %q", key)
			}
		}
	}

	bindings := NewBindings()
	childEnv := env.NewChildFrame(bindings)

	for _, entry := range param.Entries {
		if th, ok := argSet.Get(ctx, entry.Name); ok {
			bindings.Set(entry.Name, th)
			continue
		}
		if entry.Default == nil {
			return nil, NewBottom(CodeTypeError, bt.Top(),
				"function called without required argument %q", entry.Name)
		}
		bindings.Set(entry.Name, NewPendingThunk(childEnv, entry.Default, entry.Default.Pos()))
	}

	if param.At != "" {
		bindings.Set(param.At, arg)
	}

	return childEnv, nil
}
