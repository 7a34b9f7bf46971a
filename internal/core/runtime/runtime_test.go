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

package runtime_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/internal/core/runtime"
	"github.com/nix-compiler/nix-compiler/nix/errors"
)

// A second import of the same canonical path must evaluate the file at
// most once: both imports observe the same cached thunk.
func TestImportCachesByCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	counter := filepath.Join(dir, "counter.nix")
	// Each force of the imported file's body increments a side file on
	// disk via builtins.readFile/toString is not observable here without a
	// builtin writer, so instead we assert sharing directly:
	// two imports of the same path return thunks whose forced values are
	// reference-identical results of a single evaluation, verified by
	// checking that mutating the source after the first import does not
	// change the second import's (cached) result.
	if err := os.WriteFile(counter, []byte("42"), 0o644); err != nil {
		t.Fatal(err)
	}

	rt, ctx := runtime.New(errors.BacktraceDisabled)

	th1, bot := rt.Import(ctx, counter, nil)
	if bot != nil {
		t.Fatalf("first import: %v", bot)
	}
	v1, bot := th1.Force(ctx, nil)
	if bot != nil {
		t.Fatalf("force first import: %v", bot)
	}
	i1, ok := adt.AsInt(v1)
	if !ok || i1 != 42 {
		t.Fatalf("first import: got %v, want Int(42)", v1)
	}

	// Mutate the file on disk; a fresh (uncached) parse would now see 7.
	if err := os.WriteFile(counter, []byte("7"), 0o644); err != nil {
		t.Fatal(err)
	}

	th2, bot := rt.Import(ctx, counter, nil)
	if bot != nil {
		t.Fatalf("second import: %v", bot)
	}
	if th1 != th2 {
		t.Fatalf("second import returned a different Thunk; want the cached one (same canonical path)")
	}
	v2, bot := th2.Force(ctx, nil)
	if bot != nil {
		t.Fatalf("force second import: %v", bot)
	}
	i2, ok := adt.AsInt(v2)
	if !ok || i2 != 42 {
		t.Fatalf("second import: got %v, want the cached Int(42), not a re-read of the mutated file", v2)
	}
}

func TestImportOfDirectoryResolvesDefaultNix(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "default.nix"), []byte(`{ x = 1; }`), 0o644); err != nil {
		t.Fatal(err)
	}

	rt, ctx := runtime.New(errors.BacktraceDisabled)
	th, bot := rt.Import(ctx, dir, nil)
	if bot != nil {
		t.Fatalf("import dir: %v", bot)
	}
	v, bot := th.Force(ctx, nil)
	if bot != nil {
		t.Fatalf("force: %v", bot)
	}
	set, ok := adt.AsAttrSet(v)
	if !ok {
		t.Fatalf("got %s, want AttrSet", v.Kind())
	}
	xTh, ok := set.Get(ctx, "x")
	if !ok {
		t.Fatalf("missing attribute x")
	}
	xv, bot := xTh.Force(ctx, nil)
	if bot != nil {
		t.Fatalf("force x: %v", bot)
	}
	if i, ok := adt.AsInt(xv); !ok || i != 1 {
		t.Errorf("x = %v, want 1", xv)
	}
}

func TestImportMissingFileIsIOError(t *testing.T) {
	rt, ctx := runtime.New(errors.BacktraceDisabled)
	_, bot := rt.Import(ctx, filepath.Join(t.TempDir(), "nope.nix"), nil)
	if bot == nil || bot.Code() != adt.CodeIO {
		t.Fatalf("got %v, want CodeIO", bot)
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, src := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func forceAttr(t *testing.T, ctx *adt.OpContext, v adt.Value, name string) adt.Value {
	t.Helper()
	set, ok := adt.AsAttrSet(v)
	if !ok {
		t.Fatalf("got %s, want AttrSet", v.Kind())
	}
	th, ok := set.Get(ctx, name)
	if !ok {
		t.Fatalf("missing attribute %q", name)
	}
	av, bot := th.Force(ctx, nil)
	if bot != nil {
		t.Fatalf("force %q: %v", name, bot)
	}
	return av
}

// A flake directory entry point applies the flake's `outputs`
// function to an argument set containing `self` plus one entry per
// declared input, each shaped `{ _type = "flake"; outPath; outputs; }`
// with the input's path assumed already materialized on disk.
func TestLoadEntryResolvesFlakeWithInputs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"dep/flake.nix": `{
  outputs = { self }: { exported = 21; };
}`,
		"root/flake.nix": `{
  inputs = { dep = { path = ` + `"` + filepath.Join(dir, "dep") + `"` + `; }; };
  outputs = { self, dep }: {
    doubled = dep.outputs.exported * 2;
    kind = dep._type;
  };
}`,
	})

	rt, ctx := runtime.New(errors.BacktraceDisabled)
	th, bot := rt.LoadEntry(ctx, filepath.Join(dir, "root"), nil)
	if bot != nil {
		t.Fatalf("load flake: %v", bot)
	}
	v, bot := th.Force(ctx, nil)
	if bot != nil {
		t.Fatalf("force flake outputs: %v", bot)
	}

	if got := forceAttr(t, ctx, v, "doubled"); got != adt.Int(42) {
		t.Errorf("doubled = %v, want 42", got)
	}
	if got := forceAttr(t, ctx, v, "kind"); got != adt.String("flake") {
		t.Errorf("kind = %v, want \"flake\"", got)
	}
}

// A flake's `self` is its own eventual outputs: selecting back through it
// works, and forcing it *while outputs is still resolving* is the
// ordinary infinite-recursion diagnostic, not a flake-specific error.
func TestFlakeSelfReference(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"flake.nix": `{
  outputs = { self }: { a = 2; b = self.a + 1; };
}`,
	})

	rt, ctx := runtime.New(errors.BacktraceDisabled)
	th, bot := rt.LoadEntry(ctx, dir, nil)
	if bot != nil {
		t.Fatalf("load flake: %v", bot)
	}
	v, bot := th.Force(ctx, nil)
	if bot != nil {
		t.Fatalf("force: %v", bot)
	}
	if got := forceAttr(t, ctx, v, "b"); got != adt.Int(3) {
		t.Errorf("b = %v, want 3", got)
	}
}

func TestFlakeSelfCycleIsInfiniteRecursion(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"flake.nix": `{
  outputs = { self }: self;
}`,
	})

	rt, ctx := runtime.New(errors.BacktraceDisabled)
	th, bot := rt.LoadEntry(ctx, dir, nil)
	if bot != nil {
		t.Fatalf("load flake: %v", bot)
	}
	_, bot = th.Force(ctx, nil)
	if bot == nil || bot.Code() != adt.CodeInfiniteRecursion {
		t.Fatalf("got %v, want CodeInfiniteRecursion", bot)
	}
}

func TestFlakeInputWithoutPathIsError(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"flake.nix": `{
  inputs = { dep = { url = "github:example/dep"; }; };
  outputs = { self, dep }: { };
}`,
	})

	rt, ctx := runtime.New(errors.BacktraceDisabled)
	_, bot := rt.LoadEntry(ctx, dir, nil)
	if bot == nil || bot.Code() != adt.CodeAttributeMissing {
		t.Fatalf("got %v, want CodeAttributeMissing (inputs must be materialized, no network fetch)", bot)
	}
}
