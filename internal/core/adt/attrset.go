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

// DerivationView lets a value produced by the derivation package be
// exposed as an ordinary attribute set — `outPath`, `drvPath`, `type`,
// the declared outputs, and so on — without adt importing the derivation
// package (which itself needs adt's Value/Thunk types). The derivation
// package implements this interface; adt only ever consumes it.
type DerivationView interface {
	// Lookup returns the Thunk bound to name's view of the derivation
	// (e.g. "outPath"), or (nil, false) if name is not one of its
	// exposed attributes.
	Lookup(ctx *OpContext, name string) (*Thunk, bool)
	// Keys returns the sorted set of attribute names this view exposes.
	Keys() []string
}

// AttrSet is Nix's one structured record type: either a plain dynamic
// mapping built up incrementally during evaluation (the common case, used
// for both `rec` and non-`rec` sets — see Bindings) or a derivation-view
// realization that presents a computed Derivation as an attribute set
// on demand. Exactly one of dynamic/deriv is set.
type AttrSet struct {
	dynamic *Bindings
	deriv   DerivationView
}

func (*AttrSet) Kind() Kind { return AttrSetKind }

// NewAttrSet wraps an already-populated Bindings as an AttrSet. For `rec`
// sets, vars is the very same Bindings backing the Environment the set's
// own values were evaluated in, which is what lets a `rec` set's entries
// see each other and itself.
func NewAttrSet(vars *Bindings) *AttrSet {
	return &AttrSet{dynamic: vars}
}

// NewDerivationAttrSet wraps a derivation's computed view as an AttrSet.
func NewDerivationAttrSet(d DerivationView) *AttrSet {
	return &AttrSet{deriv: d}
}

// IsDerivation reports whether a is backed by a derivation-view
// realization rather than a plain dynamic mapping. builtins.isAttrs
// still answers true either way; this distinguishes the realizations
// for the printer and the equality walk, which treat derivations
// specially.
func (a *AttrSet) IsDerivation() bool { return a.deriv != nil }

// Get looks up name, consulting whichever realization backs a.
func (a *AttrSet) Get(ctx *OpContext, name string) (*Thunk, bool) {
	if a.dynamic != nil {
		return a.dynamic.Get(name)
	}
	return a.deriv.Lookup(ctx, name)
}

// Keys returns the sorted attribute names of a.
func (a *AttrSet) Keys(ctx *OpContext) []string {
	if a.dynamic != nil {
		return a.dynamic.Keys()
	}
	return a.deriv.Keys()
}

// Len reports the number of attributes in a.
func (a *AttrSet) Len(ctx *OpContext) int {
	return len(a.Keys(ctx))
}

// MergeUpdate implements `//`'s semantics: the result has the union
// of both key sets; for a key present in both, right's Thunk wins; no
// value on either side is forced by the merge itself, preserving laziness.
// The result is always a fresh dynamic AttrSet, regardless of whether
// either operand was derivation-backed.
func (a *AttrSet) MergeUpdate(ctx *OpContext, other *AttrSet) *AttrSet {
	merged := NewBindings()
	for _, k := range a.Keys(ctx) {
		th, _ := a.Get(ctx, k)
		merged.Set(k, th)
	}
	for _, k := range other.Keys(ctx) {
		th, _ := other.Get(ctx, k)
		merged.Set(k, th)
	}
	return NewAttrSet(merged)
}
