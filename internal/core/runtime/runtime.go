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

// Package runtime implements the file-level import cache: parsing a
// source file into an ast.Expr exactly once per canonical path and
// memoizing the resulting top-level Thunk, so that two `import`s of the
// same file observe the same Thunk and hence share its forced value —
// a file is keyed by its resolved path, never by how many times it was
// referenced.
package runtime

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/internal/core/builtin"
	"github.com/nix-compiler/nix-compiler/internal/core/derivation"
	"github.com/nix-compiler/nix-compiler/internal/core/eval"
	"github.com/nix-compiler/nix-compiler/nix/errors"
	"github.com/nix-compiler/nix-compiler/nix/parser"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

// Runtime owns the process-wide file cache and the OpContext hooks that
// depend on it (import, and transitively the derivation builder, though
// the latter does not itself touch the cache).
type Runtime struct {
	mu      sync.Mutex
	files   map[string]*fileEntry
	globals *adt.Bindings
}

// fileEntry memoizes one imported file: the first caller to reach
// resolve() parses and evaluates; later callers (same path) block on the
// same sync.Once and then observe the identical Thunk, which is itself
// memoizing (Thunk.Force), so the file's top-level expression is forced
// at most once regardless of how many importers there are.
type fileEntry struct {
	once  sync.Once
	thunk *adt.Thunk
	bot   *adt.Bottom
}

// New constructs a Runtime and the OpContext wired for top-level
// evaluation: Import resolves through this Runtime's cache, Derivation
// goes to internal/core/derivation.Build, and Builtins is seeded from
// internal/core/builtin's registry.
func New(mode errors.BacktraceMode) (*Runtime, *adt.OpContext) {
	rt := &Runtime{files: map[string]*fileEntry{}}
	reg := builtin.NewRegistry()
	rt.globals = builtin.Globals(reg)

	ctx := &adt.OpContext{
		EvalExpr:      eval.EvalExpr,
		Builtins:      reg,
		BacktraceMode: mode,
	}
	ctx.Import = rt.Import
	ctx.Derivation = derivation.Build
	return rt, ctx
}

// Import resolves path (as produced by builtins.import, already coerced
// to a plain string) to a canonical file, parses and caches it on first
// use, and returns the shared top-level Thunk.
func (rt *Runtime) Import(ctx *adt.OpContext, path string, bt *adt.Backtrace) (*adt.Thunk, *adt.Bottom) {
	resolved, bot := rt.resolveImportPath(path, bt)
	if bot != nil {
		return nil, bot
	}

	rt.mu.Lock()
	fe, ok := rt.files[resolved]
	if !ok {
		fe = &fileEntry{}
		rt.files[resolved] = fe
	}
	rt.mu.Unlock()

	fe.once.Do(func() {
		fe.thunk, fe.bot = rt.load(ctx, resolved, bt)
	})
	return fe.thunk, fe.bot
}

// resolveImportPath turns a raw import target into a canonical,
// directory-resolved absolute path: a directory imports its
// `default.nix`; everything else is used as given after Abs/Clean so
// that two distinct spellings of one file hit the same cache entry.
func (rt *Runtime) resolveImportPath(path string, bt *adt.Backtrace) (string, *adt.Bottom) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", adt.NewBottom(adt.CodeIO, bt.Top(), "cannot resolve import path %q: %v", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", adt.NewBottom(adt.CodeIO, bt.Top(), "cannot import %q: %v", path, err)
	}
	if info.IsDir() {
		abs = filepath.Join(abs, "default.nix")
	}
	return filepath.Clean(abs), nil
}

// load parses resolved from disk, builds its File/Environment, and
// evaluates the top-level expression into a fresh Thunk. It is called at
// most once per resolved path (guarded by fileEntry.once).
func (rt *Runtime) load(ctx *adt.OpContext, resolved string, bt *adt.Backtrace) (*adt.Thunk, *adt.Bottom) {
	src, err := os.ReadFile(resolved)
	if err != nil {
		return nil, adt.NewBottom(adt.CodeIO, bt.Top(), "cannot read %q: %v", resolved, err)
	}
	root, err := parser.Parse(resolved, src)
	if err != nil {
		return nil, adt.NewBottom(adt.CodeParse, bt.Top(), "%s: %v", resolved, err)
	}
	file := adt.NewFile(resolved, string(src), root)
	env := adt.RootEnvironment(file, rt.globals)
	return adt.NewPendingThunk(env, root, root.Pos()), nil
}

// LoadEntry resolves a top-level entry path and is used by
// cmd/nix-compiler to start evaluation. A plain file, or a directory's
// default.nix, is loaded through Import and therefore shares the import
// cache. Flake-protocol entry points (a directory
// containing flake.nix, or a file named flake.nix itself) are detected
// here: the flake file is loaded and its
// `outputs` function is applied to a minimal self-reference input,
// mirroring flake's own "outputs takes inputs, including self" protocol
// closely enough to exercise import/select/apply end to end without
// implementing flake locking.
func (rt *Runtime) LoadEntry(ctx *adt.OpContext, path string, bt *adt.Backtrace) (*adt.Thunk, *adt.Bottom) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, adt.NewBottom(adt.CodeIO, bt.Top(), "cannot resolve %q: %v", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, adt.NewBottom(adt.CodeIO, bt.Top(), "cannot read %q: %v", path, err)
	}
	if info.IsDir() {
		flake := filepath.Join(abs, "flake.nix")
		if _, err := os.Stat(flake); err == nil {
			return rt.loadFlake(ctx, abs, flake, bt)
		}
		abs = filepath.Join(abs, "default.nix")
	} else if filepath.Base(abs) == "flake.nix" {
		return rt.loadFlake(ctx, filepath.Dir(abs), abs, bt)
	}
	return rt.Import(ctx, abs, bt)
}

// loadFlake implements the flake entry protocol: evaluate
// flake.nix to an attrset, resolve each declared input's `path` (assumed
// already materialized on disk; there is no network fetch), build the
// argument set containing `self` plus one flake-shaped entry per input,
// and apply the file's `outputs` function to it. The self-reference is a
// genuinely self-recursive Thunk — forcing it before outputs has produced
// a value triggers the ordinary infinite-recursion diagnostic,
// same as a hand-written `let self = self; in self` would, rather than a
// special flake-specific error.
func (rt *Runtime) loadFlake(ctx *adt.OpContext, dir, flake string, bt *adt.Backtrace) (*adt.Thunk, *adt.Bottom) {
	flakeTh, bot := rt.Import(ctx, flake, bt)
	if bot != nil {
		return nil, bot
	}
	flakeVal, bot := flakeTh.Force(ctx, bt)
	if bot != nil {
		return nil, bot
	}
	flakeSet, ok := adt.AsAttrSet(flakeVal)
	if !ok {
		return nil, adt.NewBottom(adt.CodeTypeError, bt.Top(), "flake.nix must evaluate to an attribute set, got %s", flakeVal.Kind())
	}
	outputsTh, ok := flakeSet.Get(ctx, "outputs")
	if !ok {
		return nil, adt.NewBottom(adt.CodeAttributeMissing, bt.Top(), "flake at %q has no %q attribute", dir, "outputs")
	}
	outputsVal, bot := outputsTh.Force(ctx, bt)
	if bot != nil {
		return nil, bot
	}
	fn, bot := adt.AsCallable(ctx, outputsVal, bt)
	if bot != nil {
		return nil, bot
	}

	argBindings := adt.NewBindings()
	if bot := rt.bindFlakeInputs(ctx, flakeSet, argBindings, bt); bot != nil {
		return nil, bot
	}

	argThunk := adt.NewConcreteThunk(adt.NewAttrSet(argBindings))
	selfThunk := adt.NewNativeThunk(func(ctx *adt.OpContext, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
		return fn.Apply(ctx, argThunk, bt)
	}, token.NoPos)
	argBindings.Set("self", selfThunk)

	return selfThunk, nil
}

// bindFlakeInputs resolves flakeSet's `inputs` attrset (if any) into one
// argument binding per input: an AttrSet carrying `_type = "flake"`, the
// input's materialized `outPath`, and a lazily-resolved `outputs` — the
// same shape builtins.import's flake case expects
// back (importTarget, internal/core/builtin/io.go).
func (rt *Runtime) bindFlakeInputs(ctx *adt.OpContext, flakeSet *adt.AttrSet, args *adt.Bindings, bt *adt.Backtrace) *adt.Bottom {
	inputsTh, ok := flakeSet.Get(ctx, "inputs")
	if !ok {
		return nil
	}
	inputsVal, bot := inputsTh.Force(ctx, bt)
	if bot != nil {
		return bot
	}
	inputs, ok := adt.AsAttrSet(inputsVal)
	if !ok {
		return adt.NewBottom(adt.CodeTypeError, bt.Top(), "flake inputs must be an attribute set, got %s", inputsVal.Kind())
	}

	for _, name := range inputs.Keys(ctx) {
		inputTh, _ := inputs.Get(ctx, name)
		inputVal, bot := inputTh.Force(ctx, bt)
		if bot != nil {
			return bot
		}
		input, ok := adt.AsAttrSet(inputVal)
		if !ok {
			return adt.NewBottom(adt.CodeTypeError, bt.Top(), "flake input %q must be an attribute set, got %s", name, inputVal.Kind())
		}
		pathTh, ok := input.Get(ctx, "path")
		if !ok {
			return adt.NewBottom(adt.CodeAttributeMissing, bt.Top(), "flake input %q has no %q attribute (inputs must already be materialized on disk)", name, "path")
		}
		pathVal, bot := pathTh.Force(ctx, bt)
		if bot != nil {
			return bot
		}
		inputPath, ok := asPathString(pathVal)
		if !ok {
			return adt.NewBottom(adt.CodeTypeError, bt.Top(), "flake input %q has a %s path attribute, expected a path or string", name, pathVal.Kind())
		}
		abs, err := filepath.Abs(inputPath)
		if err != nil {
			return adt.NewBottom(adt.CodeIO, bt.Top(), "cannot resolve flake input %q at %q: %v", name, inputPath, err)
		}

		entry := adt.NewBindings()
		entry.Set("_type", adt.NewConcreteThunk(adt.String("flake")))
		entry.Set("outPath", adt.NewConcreteThunk(adt.Path(abs)))
		entry.Set("outputs", adt.NewNativeThunk(func(ctx *adt.OpContext, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
			th, bot := rt.loadFlake(ctx, abs, filepath.Join(abs, "flake.nix"), bt)
			if bot != nil {
				return nil, bot
			}
			return th.Force(ctx, bt)
		}, token.NoPos))
		args.Set(name, adt.NewConcreteThunk(adt.NewAttrSet(entry)))
	}
	return nil
}

func asPathString(v adt.Value) (string, bool) {
	switch x := v.(type) {
	case adt.Path:
		return string(x), true
	case adt.String:
		return string(x), true
	default:
		return "", false
	}
}
