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

package parser_test

import (
	"testing"

	"github.com/nix-compiler/nix-compiler/nix/ast"
	"github.com/nix-compiler/nix-compiler/nix/parser"
)

func parse(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := parser.Parse("test.nix", []byte(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return e
}

func TestParseLiterals(t *testing.T) {
	if e, ok := parse(t, "42").(*ast.Int); !ok || e.Value != 42 {
		t.Errorf("42: got %#v", parse(t, "42"))
	}
	if e, ok := parse(t, "2.5").(*ast.Float); !ok || e.Value != 2.5 {
		t.Errorf("2.5: got %#v", parse(t, "2.5"))
	}
	if e, ok := parse(t, "1e3").(*ast.Float); !ok || e.Value != 1000 {
		t.Errorf("1e3: got %#v", parse(t, "1e3"))
	}
	if e, ok := parse(t, "true").(*ast.Bool); !ok || !e.Value {
		t.Errorf("true: got %#v", parse(t, "true"))
	}
	if _, ok := parse(t, "null").(*ast.Null); !ok {
		t.Errorf("null: got %#v", parse(t, "null"))
	}
}

func TestParseStringWithInterpolation(t *testing.T) {
	e, ok := parse(t, `"a${x}c"`).(*ast.String)
	if !ok {
		t.Fatalf("got %#v", parse(t, `"a${x}c"`))
	}
	if len(e.Parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(e.Parts))
	}
	if e.Parts[0].Literal != "a" || e.Parts[2].Literal != "c" {
		t.Errorf("literal fragments: %q, %q", e.Parts[0].Literal, e.Parts[2].Literal)
	}
	if id, ok := e.Parts[1].Expr.(*ast.Ident); !ok || id.Name != "x" {
		t.Errorf("interpolation: got %#v", e.Parts[1].Expr)
	}
}

func TestParseStringEscapes(t *testing.T) {
	e := parse(t, `"a\"b\nc"`).(*ast.String)
	if len(e.Parts) != 1 || e.Parts[0].Literal != "a\"b\nc" {
		t.Errorf("got %#v", e.Parts)
	}
}

func TestParseIndentedStringDedents(t *testing.T) {
	src := "''\n    foo\n    bar\n  ''"
	e, ok := parse(t, src).(*ast.String)
	if !ok {
		t.Fatalf("got %#v", parse(t, src))
	}
	if len(e.Parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(e.Parts))
	}
	want := "foo\nbar\n"
	if e.Parts[0].Literal != want {
		t.Errorf("got %q, want %q", e.Parts[0].Literal, want)
	}
}

func TestParsePathKinds(t *testing.T) {
	cases := []struct {
		src  string
		kind ast.PathKind
		lit  string
	}{
		{"./foo/bar.nix", ast.PathRelative, "foo/bar.nix"},
		{"../up.nix", ast.PathParent, "up.nix"},
		{"/etc/hosts", ast.PathPlain, "/etc/hosts"},
	}
	for _, tc := range cases {
		e, ok := parse(t, tc.src).(*ast.Path)
		if !ok {
			t.Errorf("%s: got %#v", tc.src, parse(t, tc.src))
			continue
		}
		if e.Kind != tc.kind || e.Parts[0].Literal != tc.lit {
			t.Errorf("%s: kind=%v lit=%q, want kind=%v lit=%q", tc.src, e.Kind, e.Parts[0].Literal, tc.kind, tc.lit)
		}
	}
}

func TestParseOperatorPrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	e, ok := parse(t, "1 + 2 * 3").(*ast.BinOp)
	if !ok || e.Op != ast.OpAdd {
		t.Fatalf("got %#v", parse(t, "1 + 2 * 3"))
	}
	right, ok := e.Right.(*ast.BinOp)
	if !ok || right.Op != ast.OpMul {
		t.Errorf("right operand: got %#v, want (2 * 3)", e.Right)
	}

	// a && b || c parses as (a && b) || c
	o, ok := parse(t, "a && b || c").(*ast.BinOp)
	if !ok || o.Op != ast.OpOr {
		t.Fatalf("got %#v", parse(t, "a && b || c"))
	}
	if l, ok := o.Left.(*ast.BinOp); !ok || l.Op != ast.OpAnd {
		t.Errorf("left operand: got %#v, want (a && b)", o.Left)
	}

	// -> is right-associative: a -> b -> c is a -> (b -> c)
	i, ok := parse(t, "a -> b -> c").(*ast.BinOp)
	if !ok || i.Op != ast.OpImpl {
		t.Fatalf("got %#v", parse(t, "a -> b -> c"))
	}
	if r, ok := i.Right.(*ast.BinOp); !ok || r.Op != ast.OpImpl {
		t.Errorf("right operand: got %#v, want (b -> c)", i.Right)
	}
}

func TestParseApplicationBindsTighterThanOperators(t *testing.T) {
	// f x + 1 parses as (f x) + 1
	e, ok := parse(t, "f x + 1").(*ast.BinOp)
	if !ok || e.Op != ast.OpAdd {
		t.Fatalf("got %#v", parse(t, "f x + 1"))
	}
	if _, ok := e.Left.(*ast.Apply); !ok {
		t.Errorf("left operand: got %#v, want (f x)", e.Left)
	}
}

func TestParseSelectWithOrDefault(t *testing.T) {
	e, ok := parse(t, "s.a.b or 3").(*ast.Select)
	if !ok {
		t.Fatalf("got %#v", parse(t, "s.a.b or 3"))
	}
	if len(e.Path) != 2 || e.Path[0].Name != "a" || e.Path[1].Name != "b" {
		t.Errorf("path: got %#v", e.Path)
	}
	if d, ok := e.OrDefault.(*ast.Int); !ok || d.Value != 3 {
		t.Errorf("default: got %#v", e.OrDefault)
	}
}

func TestParseHasAttr(t *testing.T) {
	e, ok := parse(t, "s ? a.b").(*ast.HasAttr)
	if !ok {
		t.Fatalf("got %#v", parse(t, "s ? a.b"))
	}
	if len(e.Path) != 2 || e.Path[0].Name != "a" || e.Path[1].Name != "b" {
		t.Errorf("path: got %#v", e.Path)
	}
}

func TestParseLetIn(t *testing.T) {
	e, ok := parse(t, "let x = 1; y = x; in y").(*ast.LetIn)
	if !ok {
		t.Fatalf("got %#v", parse(t, "let x = 1; y = x; in y"))
	}
	if len(e.Bindings) != 2 {
		t.Fatalf("got %d bindings, want 2", len(e.Bindings))
	}
	if e.Bindings[0].Path[0].Name != "x" || e.Bindings[1].Path[0].Name != "y" {
		t.Errorf("binding names: %#v", e.Bindings)
	}
}

func TestParseRecAttrSetAndDottedPath(t *testing.T) {
	e, ok := parse(t, "rec { a.b = 1; }").(*ast.AttrSet)
	if !ok || !e.Recursive {
		t.Fatalf("got %#v", parse(t, "rec { a.b = 1; }"))
	}
	if len(e.Bindings) != 1 || len(e.Bindings[0].Path) != 2 {
		t.Errorf("bindings: %#v", e.Bindings)
	}
}

func TestParseDynamicAttrName(t *testing.T) {
	e, ok := parse(t, `{ ${k} = 1; "lit" = 2; "d${y}" = 3; }`).(*ast.AttrSet)
	if !ok {
		t.Fatalf("got %#v", parse(t, `{ ${k} = 1; }`))
	}
	if len(e.Bindings) != 3 {
		t.Fatalf("got %d bindings, want 3", len(e.Bindings))
	}
	if e.Bindings[0].Path[0].Dynamic == nil {
		t.Errorf("${k}: want a dynamic attr name, got %#v", e.Bindings[0].Path[0])
	}
	if e.Bindings[1].Path[0].Name != "lit" || e.Bindings[1].Path[0].Dynamic != nil {
		t.Errorf(`"lit": want a static name, got %#v`, e.Bindings[1].Path[0])
	}
	if e.Bindings[2].Path[0].Dynamic == nil {
		t.Errorf(`"d${y}": want a dynamic name, got %#v`, e.Bindings[2].Path[0])
	}
}

func TestParseInheritForms(t *testing.T) {
	e := parse(t, "{ inherit a b; inherit (s) c; }").(*ast.AttrSet)
	if len(e.Bindings) != 2 {
		t.Fatalf("got %d bindings, want 2", len(e.Bindings))
	}
	plain := e.Bindings[0]
	if !plain.Inherit || plain.From != nil || len(plain.Names) != 2 {
		t.Errorf("inherit a b: %#v", plain)
	}
	from := e.Bindings[1]
	if !from.Inherit || from.From == nil || len(from.Names) != 1 || from.Names[0] != "c" {
		t.Errorf("inherit (s) c: %#v", from)
	}
}

func TestParseLambdaForms(t *testing.T) {
	plain := parse(t, "x: x").(*ast.Lambda)
	if plain.Param.IsAttrs || plain.Param.Name != "x" {
		t.Errorf("x: x param: %#v", plain.Param)
	}

	pat := parse(t, "{ a, b ? 1, ... }: a").(*ast.Lambda)
	if !pat.Param.IsAttrs || !pat.Param.Ellipsis || len(pat.Param.Entries) != 2 {
		t.Fatalf("pattern param: %#v", pat.Param)
	}
	if pat.Param.Entries[1].Name != "b" || pat.Param.Entries[1].Default == nil {
		t.Errorf("defaulted entry: %#v", pat.Param.Entries[1])
	}

	at := parse(t, "{ a }@args: args").(*ast.Lambda)
	if at.Param.At != "args" {
		t.Errorf("@-binding: %#v", at.Param)
	}
	pre := parse(t, "args@{ a }: args").(*ast.Lambda)
	if pre.Param.At != "args" || !pre.Param.IsAttrs {
		t.Errorf("prefix @-binding: %#v", pre.Param)
	}
}

func TestParseEmptyBracesIsAttrSetNotPattern(t *testing.T) {
	// `{}` alone is the empty attrset; `{}: x` is a lambda.
	if _, ok := parse(t, "{ }").(*ast.AttrSet); !ok {
		t.Errorf("{ }: got %#v", parse(t, "{ }"))
	}
	if _, ok := parse(t, "{ }: 1").(*ast.Lambda); !ok {
		t.Errorf("{ }: 1: got %#v", parse(t, "{ }: 1"))
	}
}

func TestParseWithAssertIf(t *testing.T) {
	w := parse(t, "with s; x").(*ast.With)
	if _, ok := w.Env.(*ast.Ident); !ok {
		t.Errorf("with env: %#v", w.Env)
	}
	a := parse(t, "assert c; 1").(*ast.Assert)
	if _, ok := a.Cond.(*ast.Ident); !ok {
		t.Errorf("assert cond: %#v", a.Cond)
	}
	i := parse(t, "if c then 1 else 2").(*ast.If)
	if _, ok := i.Cond.(*ast.Ident); !ok {
		t.Errorf("if cond: %#v", i.Cond)
	}
}

func TestParseListElementsAreSelectLevel(t *testing.T) {
	// [ f x ] is a two-element list, not one application.
	e := parse(t, "[ f x ]").(*ast.List)
	if len(e.Elems) != 2 {
		t.Fatalf("got %d elements, want 2", len(e.Elems))
	}
	// [ (f x) ] is one.
	e = parse(t, "[ (f x) ]").(*ast.List)
	if len(e.Elems) != 1 {
		t.Fatalf("got %d elements, want 1", len(e.Elems))
	}
}

func TestParseURILiteral(t *testing.T) {
	e, ok := parse(t, "https://example.org/tarball.tar.gz").(*ast.URI)
	if !ok {
		t.Fatalf("got %#v, want *ast.URI", parse(t, "https://example.org/tarball.tar.gz"))
	}
	if e.Value != "https://example.org/tarball.tar.gz" {
		t.Errorf("got %q", e.Value)
	}

	// A colon followed by whitespace is a lambda head, never a URI.
	if _, ok := parse(t, "x: x").(*ast.Lambda); !ok {
		t.Errorf("x: x: got %#v, want *ast.Lambda", parse(t, "x: x"))
	}
}

func TestParseComments(t *testing.T) {
	e := parse(t, "# line\n1 /* block */ + 2").(*ast.BinOp)
	if e.Op != ast.OpAdd {
		t.Errorf("got %#v", e)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"",
		"let x = 1 in x",  // missing `;`
		"{ a = 1 }",       // missing `;`
		"1 +",
		"(1",
		`"unterminated`,
		"1 2 3 @",
	}
	for _, src := range cases {
		if _, err := parser.Parse("test.nix", []byte(src)); err == nil {
			t.Errorf("Parse(%q) unexpectedly succeeded", src)
		}
	}
}

func TestParsePositionsPointIntoSource(t *testing.T) {
	e := parse(t, "let x = 1; in x")
	pos := e.Pos()
	if !pos.IsValid() {
		t.Fatalf("top-level position is invalid")
	}
}
