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
	"github.com/nix-compiler/nix-compiler/internal/core/adt"
)

// registerDerivation wires builtins.derivation to whatever the evaluator's
// OpContext.Derivation hook resolves to (internal/core/derivation.Build in
// the normal case), keeping this package free of a direct dependency on
// the derivation package, the same way registerIO keeps import free
// of a direct dependency on the runtime package.
func registerDerivation(b *adt.Bindings) {
	set1(b, "derivation", biDerivation)
}

func biDerivation(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	set, bot := asAttrSet(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	if ctx.Derivation == nil {
		return nil, adt.NewBottom(adt.CodeUnimplemented, bt.Top(), "derivation is not available in this evaluation context")
	}
	return ctx.Derivation(ctx, set, bt)
}
