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

package derivation

import (
	"sort"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

// view implements adt.DerivationView, presenting a Derivation as an
// ordinary attribute set: `name`, `system`, `builder`, `args`,
// `drvPath`, `outPath` (the view's selected output), `outputName`,
// `type = "derivation"`, one per-output subview per declared output name,
// and any Extra attribute the caller's argument set carried through
// unchanged. A subview shares the same Derivation record and differs only
// in which output its outPath answers for, so `drv.dev.outPath` and
// `drv.outPath` dispatch through the identical path computation.
type view struct {
	d *Derivation
	// output is the selected output name this view's outPath resolves;
	// "" for the root view, whose primaryOutput picks it on each lookup.
	output string
}

// NewView wraps d as a DerivationView-backed AttrSet selecting its
// primary output ("out" if declared, else the alphabetically first).
func NewView(d *Derivation) *adt.AttrSet {
	return adt.NewDerivationAttrSet(&view{d: d})
}

func (v *view) primaryOutput() string {
	if v.output != "" {
		return v.output
	}
	if _, ok := v.d.Outputs["out"]; ok {
		return "out"
	}
	names := v.d.OutputNames()
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

func (v *view) Lookup(ctx *adt.OpContext, name string) (*adt.Thunk, bool) {
	switch name {
	case "name":
		return adt.NewConcreteThunk(adt.String(v.d.Name)), true
	case "system":
		return adt.NewConcreteThunk(adt.String(v.d.System)), true
	case "builder":
		return adt.NewConcreteThunk(adt.String(v.d.Builder)), true
	case "type":
		return adt.NewConcreteThunk(adt.String("derivation")), true
	case "args":
		elems := make([]*adt.Thunk, len(v.d.Args))
		for i, a := range v.d.Args {
			elems[i] = adt.NewConcreteThunk(adt.String(a))
		}
		return adt.NewConcreteThunk(&adt.List{Elems: elems}), true
	case "drvPath":
		return adt.NewConcreteThunk(adt.Path(v.d.DrvPath())), true
	case "outputName":
		out := v.primaryOutput()
		if out == "" {
			return nil, false
		}
		return adt.NewConcreteThunk(adt.String(out)), true
	case "outPath":
		out := v.primaryOutput()
		if out == "" {
			return nil, false
		}
		return v.outputPathThunk(out), true
	}
	if _, ok := v.d.Outputs[name]; ok {
		sub := &view{d: v.d, output: name}
		return adt.NewConcreteThunk(adt.NewDerivationAttrSet(sub)), true
	}
	if th, ok := v.d.Extra[name]; ok {
		return th, true
	}
	return nil, false
}

func (v *view) outputPathThunk(name string) *adt.Thunk {
	return adt.NewNativeThunk(func(ctx *adt.OpContext, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
		path, bot := v.d.OutputPath(name)
		if bot != nil {
			return nil, bot
		}
		return adt.Path(path), nil
	}, token.NoPos)
}

func (v *view) Keys() []string {
	keys := map[string]bool{
		"name": true, "system": true, "builder": true, "type": true,
		"args": true, "drvPath": true,
	}
	if v.primaryOutput() != "" {
		keys["outPath"] = true
		keys["outputName"] = true
	}
	for _, k := range v.d.OutputNames() {
		keys[k] = true
	}
	for k := range v.d.Extra {
		keys[k] = true
	}
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
