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

import "github.com/nix-compiler/nix-compiler/internal/core/adt"

// globalNames is the selected subset of builtins.* exposed directly as
// top-level identifiers, alongside `true`, `false`, and `null`.
var globalNames = []string{
	"abort", "baseNameOf", "derivation", "import",
	"map", "removeAttrs", "toString", "throw",
}

// NewRegistry builds the precomputed `builtins` attribute set.
func NewRegistry() *adt.AttrSet {
	b := adt.NewBindings()
	registerCore(b)
	registerList(b)
	registerAttrs(b)
	registerStrings(b)
	registerIO(b)
	registerJSON(b)
	registerDerivation(b)

	set := adt.NewAttrSet(b)
	b.Set("builtins", adt.NewConcreteThunk(set))
	return set
}

// Globals returns the top-level Bindings seeded from reg plus the three
// constant literals, ready to become the root Environment's Vars.
func Globals(reg *adt.AttrSet) *adt.Bindings {
	g := adt.NewBindings()
	g.Set("true", adt.NewConcreteThunk(adt.Bool(true)))
	g.Set("false", adt.NewConcreteThunk(adt.Bool(false)))
	g.Set("null", adt.NewConcreteThunk(adt.Null{}))
	g.Set("builtins", adt.NewConcreteThunk(reg))
	for _, name := range globalNames {
		th, ok := reg.Get(nil, name)
		if !ok {
			continue
		}
		g.Set(name, th)
	}
	return g
}

func set1(b *adt.Bindings, name string, fn adt.NativeFunc) {
	b.Set(name, adt.NewConcreteThunk(adt.NewBuiltin(name, 1, fn)))
}

func set2(b *adt.Bindings, name string, fn adt.NativeFunc) {
	b.Set(name, adt.NewConcreteThunk(adt.NewBuiltin(name, 2, fn)))
}

func set3(b *adt.Bindings, name string, fn adt.NativeFunc) {
	b.Set(name, adt.NewConcreteThunk(adt.NewBuiltin(name, 3, fn)))
}
