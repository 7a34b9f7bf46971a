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

package eval

import (
	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/nix/ast"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

// attrTrie accumulates the possibly-dotted Bindings of one attrset or
// let-in literal into a tree of nested groups before any Thunk is built,
// so that `a.b = 1; a.c = 2;` merges into one `a` group instead of two
// conflicting top-level bindings.
type attrTrie struct {
	children map[string]*attrTrie
	order    []string
	leaf     *adt.Thunk
	hasLeaf  bool
	pos      token.Pos
}

func newAttrTrie() *attrTrie {
	return &attrTrie{children: map[string]*attrTrie{}}
}

func (t *attrTrie) child(name string) *attrTrie {
	c, ok := t.children[name]
	if !ok {
		c = newAttrTrie()
		t.children[name] = c
		t.order = append(t.order, name)
	}
	return c
}

func (t *attrTrie) insert(keys []string, pos token.Pos, leaf *adt.Thunk) *adt.Bottom {
	node := t
	for _, k := range keys {
		if node.hasLeaf {
			return adt.NewBottom(adt.CodeEval, pos, "attribute already defined")
		}
		node = node.child(k)
	}
	if node.hasLeaf || len(node.children) > 0 {
		return adt.NewBottom(adt.CodeEval, pos, "attribute already defined")
	}
	node.hasLeaf = true
	node.leaf = leaf
	node.pos = pos
	return nil
}

// toBindings converts the trie into an adt.Bindings, wrapping every nested
// group into its own (already-fully-built, hence concrete) AttrSet — the
// grouping structure itself is static, only leaf values stay lazy.
func (t *attrTrie) toBindings() *adt.Bindings {
	b := adt.NewBindings()
	for _, name := range t.order {
		c := t.children[name]
		if c.hasLeaf {
			b.Set(name, c.leaf)
			continue
		}
		b.Set(name, adt.NewConcreteThunk(adt.NewAttrSet(c.toBindings())))
	}
	return b
}

// resolveAttrPath evaluates the (possibly dynamic) components of path
// against evalEnv. A dynamic component that does not evaluate to a
// string is a type error, never a silently coerced key.
func resolveAttrPath(ctx *adt.OpContext, evalEnv *adt.Environment, path ast.AttrPath, bt *adt.Backtrace) ([]string, *adt.Bottom) {
	keys := make([]string, len(path))
	for i, comp := range path {
		if comp.Dynamic == nil {
			keys[i] = comp.Name
			continue
		}
		v, bot := EvalExpr(ctx, evalEnv, comp.Dynamic, bt)
		if bot != nil {
			return nil, bot
		}
		s, ok := adt.AsString(v)
		if !ok {
			return nil, adt.NewBottom(adt.CodeTypeError, comp.Dynamic.Pos(), "attribute name is a %s, expected a string", v.Kind())
		}
		keys[i] = string(s)
	}
	return keys, nil
}

// buildBindings constructs the Bindings for an attrset or let-in literal.
// evalEnv is used to resolve dynamic attribute names and non-From inherit
// targets — always the *outer* scope, since a key must be known before the
// set it names a member of exists — keys are never recursive, even
// under `rec`. defEnv is used for ordinary binding values and is either
// evalEnv itself (plain, non-recursive `{ ... }`) or the new recursive
// frame being built (`rec { ... }` and `let ... in`).
func buildBindings(ctx *adt.OpContext, defEnv, evalEnv *adt.Environment, list []ast.Binding, bt *adt.Backtrace) (*adt.Bindings, *adt.Bottom) {
	root := newAttrTrie()
	for _, b := range list {
		if b.Inherit {
			if bot := insertInherit(ctx, defEnv, evalEnv, root, b, bt); bot != nil {
				return nil, bot
			}
			continue
		}
		keys, bot := resolveAttrPath(ctx, evalEnv, b.Path, bt)
		if bot != nil {
			return nil, bot
		}
		// A dynamic (`${...}`) terminal attribute name that
		// coerces to the empty string drops the whole assignment
		// silently, a Nix quirk rather than an error.
		if path := b.Path; path[len(path)-1].Dynamic != nil && keys[len(keys)-1] == "" {
			continue
		}
		th := adt.NewPendingThunk(defEnv, b.Value, b.Value.Pos())
		if bot := root.insert(keys, b.BindPos, th); bot != nil {
			return nil, bot
		}
	}
	return root.toBindings(), nil
}

func insertInherit(ctx *adt.OpContext, defEnv, evalEnv *adt.Environment, root *attrTrie, b ast.Binding, bt *adt.Backtrace) *adt.Bottom {
	if b.From != nil {
		fromThunk := adt.NewPendingThunk(evalEnv, b.From, b.From.Pos())
		for _, name := range b.Names {
			name := name
			th := adt.NewNativeThunk(func(ctx *adt.OpContext, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
				return selectPath(ctx, fromThunk, []string{name}, b.BindPos, bt)
			}, b.BindPos)
			if bot := root.insert([]string{name}, b.BindPos, th); bot != nil {
				return bot
			}
		}
		return nil
	}
	for _, name := range b.Names {
		th, ok := evalEnv.Lookup(name)
		if !ok {
			return adt.NewBottom(adt.CodeVariableNotFound, b.BindPos, "undefined variable %q", name)
		}
		if bot := root.insert([]string{name}, b.BindPos, th); bot != nil {
			return bot
		}
	}
	return nil
}

func evalAttrSet(ctx *adt.OpContext, env *adt.Environment, x *ast.AttrSet, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	if !x.Recursive {
		bindings, bot := buildBindings(ctx, env, env, x.Bindings, bt)
		if bot != nil {
			return nil, bot
		}
		return adt.NewAttrSet(bindings), nil
	}

	bindings := adt.NewBindings()
	recEnv := env.NewChildFrame(bindings)
	built, bot := buildBindings(ctx, recEnv, env, x.Bindings, bt)
	if bot != nil {
		return nil, bot
	}
	// built and bindings are distinct Bindings objects (buildBindings
	// starts its own trie); copy the finished entries into the shared
	// one backing recEnv so that sibling lookups resolve correctly.
	for _, k := range built.Keys() {
		th, _ := built.Get(k)
		bindings.Set(k, th)
	}
	return adt.NewAttrSet(bindings), nil
}

func evalLetIn(ctx *adt.OpContext, env *adt.Environment, x *ast.LetIn, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	bindings := adt.NewBindings()
	recEnv := env.NewChildFrame(bindings)
	built, bot := buildBindings(ctx, recEnv, env, x.Bindings, bt)
	if bot != nil {
		return nil, bot
	}
	for _, k := range built.Keys() {
		th, _ := built.Get(k)
		bindings.Set(k, th)
	}
	return EvalExpr(ctx, recEnv, x.Body, bt)
}
