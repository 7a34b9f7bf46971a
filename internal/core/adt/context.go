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

// EvalFunc is the hook the eval package installs on an OpContext so that
// adt's Thunk/Lambda machinery can drive expression evaluation without
// adt importing eval (which would be circular — eval already imports adt
// for the value model).
type EvalFunc func(ctx *OpContext, env *Environment, expr ast.Expr, bt *Backtrace) (Value, *Bottom)

// ImportFunc is the hook the file cache installs so that
// builtins.import can resolve a path to a shared top-level Thunk without
// adt importing the runtime package.
type ImportFunc func(ctx *OpContext, path string, bt *Backtrace) (*Thunk, *Bottom)

// DerivationFunc is the hook internal/core/derivation installs so that
// builtins.derivation can compute a store path and expose a
// DerivationView-backed AttrSet without adt importing the derivation
// package (which itself imports adt for Value/Thunk).
type DerivationFunc func(ctx *OpContext, args *AttrSet, bt *Backtrace) (*AttrSet, *Bottom)

// OpContext is the single piece of ambient state threaded through every
// evaluation call. It carries no mutable evaluation state itself (the
// engine is single-threaded and strictly recursive) — only the
// cross-package hooks and the builtin registry.
type OpContext struct {
	EvalExpr   EvalFunc
	Import     ImportFunc
	Derivation DerivationFunc

	// Builtins is the precomputed AttrSet exposed as the top-level name
	// `builtins`.
	Builtins *AttrSet

	// BacktraceMode gates how much of a raised Bottom's backtrace gets
	// rendered once it reaches the top level. It has no effect
	// on evaluation itself — only on final error rendering.
	BacktraceMode BacktraceMode

	// CallDepth counts the function applications currently nested on the
	// Go stack. Omega-style divergence ((x: x x) (x: x x)) never
	// re-enters a Resolving thunk — every application allocates fresh
	// thunks — so the Resolving detector alone cannot catch it; the eval
	// package bounds this counter and converts the would-be stack
	// overflow into the ordinary infinite-recursion diagnostic.
	CallDepth int
}
