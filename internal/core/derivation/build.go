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
	"github.com/nix-compiler/nix-compiler/internal/core/adt"
)

// knownArgs are the argument-set keys `Build` gives special treatment;
// everything else is carried through verbatim via Derivation.Extra,
// matching real Nix's `derivation`, which splices every
// remaining attribute into the output env/attrset unchanged.
var knownArgs = map[string]bool{
	"name": true, "system": true, "builder": true, "args": true,
	"outputs": true, "outputHash": true, "outputHashAlgo": true,
}

// Build implements adt.DerivationFunc: it realizes `builtins.derivation`'s
// single argument set into a Derivation record and exposes it as a
// DerivationView-backed AttrSet. Only the fixed-output scheme is
// computable end to end; a derivation without an outputHash (in hex,
// base-32, or SRI form — ParseOutputHash) still constructs successfully;
// it is path(output) that then fails with Unimplemented
// (Derivation.OutputPath).
func Build(ctx *adt.OpContext, args *adt.AttrSet, bt *adt.Backtrace) (*adt.AttrSet, *adt.Bottom) {
	name, bot := requireString(ctx, args, "name", bt)
	if bot != nil {
		return nil, bot
	}
	system, _, bot := optString(ctx, args, "system", bt)
	if bot != nil {
		return nil, bot
	}
	builder, _, bot := optString(ctx, args, "builder", bt)
	if bot != nil {
		return nil, bot
	}

	argv, bot := optStringList(ctx, args, "args", bt)
	if bot != nil {
		return nil, bot
	}

	outputNames, bot := optStringList(ctx, args, "outputs", bt)
	if bot != nil {
		return nil, bot
	}
	if len(outputNames) == 0 {
		outputNames = []string{"out"}
	}

	outputHashAlgo, _, bot := optString(ctx, args, "outputHashAlgo", bt)
	if bot != nil {
		return nil, bot
	}
	outputHash, hasHash, bot := optString(ctx, args, "outputHash", bt)
	if bot != nil {
		return nil, bot
	}
	fixed := hasHash && len(outputNames) == 1
	if fixed {
		algo, hexHash, err := ParseOutputHash(outputHashAlgo, outputHash)
		if err != nil {
			return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "derivation %q: %v", name, err)
		}
		outputHashAlgo, outputHash = algo, hexHash
	}

	outputs := make(map[string]*Output, len(outputNames))
	for _, n := range outputNames {
		if fixed {
			outputs[n] = &Output{Kind: OutputFixed, HashAlgo: outputHashAlgo, HashHex: outputHash}
		} else {
			outputs[n] = &Output{Kind: OutputInputAddressed}
		}
	}

	env := map[string]string{}
	extra := map[string]*adt.Thunk{}
	for _, k := range args.Keys(ctx) {
		if knownArgs[k] {
			continue
		}
		th, _ := args.Get(ctx, k)
		extra[k] = th
		v, bot := th.Force(ctx, bt)
		if bot != nil {
			return nil, bot
		}
		if s, ok := adt.CastToString(v); ok {
			env[k] = s
		}
	}

	d := &Derivation{
		Name:    name,
		System:  system,
		Builder: builder,
		Args:    argv,
		Env:     env,
		Outputs: outputs,
		Extra:   extra,
	}
	return NewView(d), nil
}

func requireString(ctx *adt.OpContext, args *adt.AttrSet, key string, bt *adt.Backtrace) (string, *adt.Bottom) {
	s, ok, bot := optString(ctx, args, key, bt)
	if bot != nil {
		return "", bot
	}
	if !ok {
		return "", adt.NewBottom(adt.CodeAttributeMissing, bt.Top(), "derivation: missing required attribute %q", key)
	}
	return s, nil
}

func optString(ctx *adt.OpContext, args *adt.AttrSet, key string, bt *adt.Backtrace) (string, bool, *adt.Bottom) {
	th, ok := args.Get(ctx, key)
	if !ok {
		return "", false, nil
	}
	v, bot := th.Force(ctx, bt)
	if bot != nil {
		return "", false, bot
	}
	s, ok := adt.CastToString(v)
	if !ok {
		return "", false, adt.NewBottom(adt.CodeTypeError, bt.Top(), "derivation: attribute %q is a %s, not a string", key, v.Kind())
	}
	return s, true, nil
}

func optStringList(ctx *adt.OpContext, args *adt.AttrSet, key string, bt *adt.Backtrace) ([]string, *adt.Bottom) {
	th, ok := args.Get(ctx, key)
	if !ok {
		return nil, nil
	}
	v, bot := th.Force(ctx, bt)
	if bot != nil {
		return nil, bot
	}
	list, ok := adt.AsListVal(v)
	if !ok {
		return nil, adt.NewBottom(adt.CodeTypeError, bt.Top(), "derivation: attribute %q is a %s, not a list", key, v.Kind())
	}
	out := make([]string, len(list.Elems))
	for i, e := range list.Elems {
		ev, bot := e.Force(ctx, bt)
		if bot != nil {
			return nil, bot
		}
		s, ok := adt.CastToString(ev)
		if !ok {
			return nil, adt.NewBottom(adt.CodeTypeError, bt.Top(), "derivation: element of %q is a %s, not stringable", key, ev.Kind())
		}
		out[i] = s
	}
	return out, nil
}
