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

// Bindings is a dynamic attrset builder — a mapping that can be built
// incrementally. It backs both a Scope frame's
// variables and, for `rec` sets, the resulting AttrSet value — the two
// share the same Bindings object, which is exactly how mutual recursion
// between a `rec` set's own entries and bindings visible to its body stay
// in sync.
//
// Mutation invalidates the cached sorted-keys snapshot; evaluation is
// single-threaded so no lock is required, only the invalidation
// discipline.
type Bindings struct {
	entries map[string]*Thunk
	order   []string // names in insertion order; Keys() sorts instead
	sorted  []string // cached sorted keys, invalidated by Set
}

// NewBindings returns an empty, ready-to-use Bindings.
func NewBindings() *Bindings {
	return &Bindings{entries: map[string]*Thunk{}}
}

// Get looks up name, returning (thunk, true) if present.
func (b *Bindings) Get(name string) (*Thunk, bool) {
	th, ok := b.entries[name]
	return th, ok
}

// Set inserts or overwrites name. A Nix quirk: a dynamic attribute
// name that coerces to the empty string is silently discarded by the
// caller before Set is ever invoked — Bindings itself has no opinion on
// that and will happily store an empty-string key if asked.
func (b *Bindings) Set(name string, th *Thunk) {
	if _, existed := b.entries[name]; !existed {
		b.order = append(b.order, name)
	}
	b.entries[name] = th
	b.sorted = nil
}

// Len reports the number of bound names.
func (b *Bindings) Len() int { return len(b.entries) }

// Keys returns the bound names in key-sorted order, so iteration and
// debug output are deterministic.
func (b *Bindings) Keys() []string {
	if b.sorted == nil {
		b.sorted = sortedKeys(b.entries)
	}
	return b.sorted
}

// Environment links the parent scopes for identifier lookup to a point in
// the tree. Two chains coexist:
//
//   - Up is the strict lexical tree: let/rec/lambda frames only. Lookup
//     always prefers this chain.
//   - WithEnv is the orthogonal fallback chain of `with`-pushed frames,
//     propagated unchanged to every descendant Environment except the one
//     directly introduced by a `with` (which prepends itself). It is
//     consulted only once the entire lexical chain has been exhausted.
//
// Lexical names therefore always shadow `with`-introduced ones of the
// same text, however deeply the frames nest.
type Environment struct {
	Up      *Environment
	Vars    *Bindings
	WithEnv *Environment
	File    *File
}

// NewChildFrame returns a new lexical child of e carrying its own Bindings
// (used by let-in, rec attrsets, and lambda application).
func (e *Environment) NewChildFrame(vars *Bindings) *Environment {
	return &Environment{Up: e, Vars: vars, WithEnv: e.withEnv(), File: e.file()}
}

// NewWithFrame returns a new Environment for the body of `with E; body`:
// it extends the fallback chain with withVars, and its lexical Up is e
// itself with no Vars of its own (a `with` does not introduce a lexical
// binding — it only ever contributes fallbacks).
func (e *Environment) NewWithFrame(withVars *Bindings) *Environment {
	innerWith := &Environment{Vars: withVars, WithEnv: e.withEnv(), File: e.file()}
	return &Environment{Up: e, Vars: nil, WithEnv: innerWith, File: e.file()}
}

func (e *Environment) withEnv() *Environment {
	if e == nil {
		return nil
	}
	return e.WithEnv
}

func (e *Environment) file() *File {
	if e == nil {
		return nil
	}
	return e.File
}

// Lookup walks the lexical chain first, then the with-fallback chain,
// returning the bound Thunk and true, or (nil, false) if name is bound
// nowhere visible from e.
func (e *Environment) Lookup(name string) (*Thunk, bool) {
	for env := e; env != nil; env = env.Up {
		if env.Vars != nil {
			if th, ok := env.Vars.Get(name); ok {
				return th, true
			}
		}
	}
	for env := e.withEnv(); env != nil; env = env.WithEnv {
		if env.Vars != nil {
			if th, ok := env.Vars.Get(name); ok {
				return th, true
			}
		}
	}
	return nil, false
}

// RootEnvironment creates the outermost Environment for a File, seeded
// with the given globals (the selected top-level builtin names plus
// `builtins` itself).
func RootEnvironment(file *File, globals *Bindings) *Environment {
	return &Environment{Vars: globals, File: file}
}
