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

package eval_test

import (
	"testing"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/internal/core/builtin"
	"github.com/nix-compiler/nix-compiler/internal/core/eval"
	"github.com/nix-compiler/nix-compiler/internal/core/printer"
	"github.com/nix-compiler/nix-compiler/nix/ast"
	"github.com/nix-compiler/nix-compiler/nix/parser"
)

// evalSrc parses and evaluates src as a standalone top-level expression
// under a freshly built root Environment seeded with the builtin registry,
// mirroring what internal/core/runtime does for a CLI invocation but
// without the file cache (import is exercised separately in
// internal/core/runtime's own tests).
func evalSrc(t *testing.T, src string) (adt.Value, *adt.Bottom) {
	t.Helper()
	root, err := parser.Parse("test.nix", []byte(src))
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	reg := builtin.NewRegistry()
	globals := builtin.Globals(reg)
	ctx := eval.NewOpContext(reg, adt.BacktraceMode(0))
	file := adt.NewFile("test.nix", src, root)
	env := adt.RootEnvironment(file, globals)
	return eval.EvalExpr(ctx, env, root, nil)
}

func mustEval(t *testing.T, src string) adt.Value {
	t.Helper()
	v, bot := evalSrc(t, src)
	if bot != nil {
		t.Fatalf("eval %q: unexpected error: %v", src, bot)
	}
	return v
}

func mustInt(t *testing.T, src string) int64 {
	t.Helper()
	v := mustEval(t, src)
	i, ok := adt.AsInt(v)
	if !ok {
		t.Fatalf("eval %q: want Int, got %s", src, v.Kind())
	}
	return int64(i)
}

func mustString(t *testing.T, src string) string {
	t.Helper()
	v := mustEval(t, src)
	s, ok := adt.AsString(v)
	if !ok {
		t.Fatalf("eval %q: want String, got %s", src, v.Kind())
	}
	return string(s)
}

func mustBool(t *testing.T, src string) bool {
	t.Helper()
	v := mustEval(t, src)
	b, ok := adt.AsBool(v)
	if !ok {
		t.Fatalf("eval %q: want Bool, got %s", src, v.Kind())
	}
	return bool(b)
}

// let x = 1; y = 2; in x + y -> 3
func TestLetBinding(t *testing.T) {
	if got := mustInt(t, "let x = 1; y = 2; in x + y"); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

// rec { a = 1; b = a + 1; c = b + 1; }.c -> 3
func TestRecAttrSet(t *testing.T) {
	if got := mustInt(t, "(rec { a = 1; b = a + 1; c = b + 1; }).c"); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

// Non-recursive attrsets: siblings do NOT see each other.
func TestNonRecAttrSetSiblingsDoNotSeeEachOther(t *testing.T) {
	_, bot := evalSrc(t, "{ a = 1; b = a + 1; }.b")
	if bot == nil {
		t.Fatalf("expected variable-not-found error, got success")
	}
	if bot.Code() != adt.CodeVariableNotFound {
		t.Errorf("got code %v, want CodeVariableNotFound", bot.Code())
	}
}

// ({a, b ? 10, ...}: a + b) { a = 1; c = 9; } -> 11
func TestPatternWithEllipsisAndDefault(t *testing.T) {
	if got := mustInt(t, `({a, b ? 10, ...}: a + b) { a = 1; c = 9; }`); got != 11 {
		t.Errorf("got %d, want 11", got)
	}
}

// Without the ellipsis, an unknown argument key is an error.
func TestPatternWithoutEllipsisRejectsExtraKeys(t *testing.T) {
	_, bot := evalSrc(t, `({a, b ? 10}: a + b) { a = 1; c = 9; }`)
	if bot == nil {
		t.Fatalf("expected error for unexpected argument key, got success")
	}
}

// with { x = 7; }; x + 1 -> 8
func TestWithScope(t *testing.T) {
	if got := mustInt(t, "with { x = 7; }; x + 1"); got != 8 {
		t.Errorf("got %d, want 8", got)
	}
}

// Lexical names shadow with-introduced fallbacks.
func TestLexicalShadowsWith(t *testing.T) {
	if got := mustInt(t, "let x = 1; in with { x = 7; }; x"); got != 1 {
		t.Errorf("got %d, want 1 (lexical x should win over with)", got)
	}
}

// (x: x x) (x: x x) forced -> infinite-recursion error.
func TestInfiniteRecursionDetected(t *testing.T) {
	_, bot := evalSrc(t, "(x: x x) (x: x x)")
	if bot == nil {
		t.Fatalf("expected infinite recursion error, got success")
	}
	if bot.Code() != adt.CodeInfiniteRecursion {
		t.Errorf("got code %v, want CodeInfiniteRecursion", bot.Code())
	}
}

// Direct self-reference.
func TestSelfReferenceDetected(t *testing.T) {
	_, bot := evalSrc(t, "let x = x; in x")
	if bot == nil || bot.Code() != adt.CodeInfiniteRecursion {
		t.Fatalf("let x = x; in x: want infinite recursion, got %v", bot)
	}
}

// Mutual recursion between two bindings is also detected.
func TestMutualRecursionDetected(t *testing.T) {
	_, bot := evalSrc(t, "let x = y; y = x; in x")
	if bot == nil || bot.Code() != adt.CodeInfiniteRecursion {
		t.Fatalf("mutual recursion: want infinite recursion, got %v", bot)
	}
}

// builtins.tryEval (throw "nope") -> { success = false; value = false; }
func TestTryEvalCatchesThrow(t *testing.T) {
	v := mustEval(t, `builtins.tryEval (throw "nope")`)
	set, ok := adt.AsAttrSet(v)
	if !ok {
		t.Fatalf("want AttrSet, got %s", v.Kind())
	}
	ctx := &adt.OpContext{}
	successTh, _ := set.Get(ctx, "success")
	successV, bot := successTh.Force(ctx, nil)
	if bot != nil {
		t.Fatalf("force success: %v", bot)
	}
	if b, _ := adt.AsBool(successV); bool(b) {
		t.Errorf("success = true, want false")
	}
	valTh, _ := set.Get(ctx, "value")
	valV, bot := valTh.Force(ctx, nil)
	if bot != nil {
		t.Fatalf("force value: %v", bot)
	}
	if b, _ := adt.AsBool(valV); bool(b) {
		t.Errorf("value = true, want false")
	}
}

func TestTryEvalSuccess(t *testing.T) {
	v := mustEval(t, `(builtins.tryEval 42).success`)
	if b, ok := adt.AsBool(v); !ok || !bool(b) {
		t.Errorf("got %v, want true", v)
	}
}

// builtins.concatStringsSep "," [ "a" "b" "c" ] -> "a,b,c"
func TestConcatStringsSep(t *testing.T) {
	if got := mustString(t, `builtins.concatStringsSep "," [ "a" "b" "c" ]`); got != "a,b,c" {
		t.Errorf("got %q, want %q", got, "a,b,c")
	}
}

// { a = 1; } // { a = 2; b = 3; } fully forced -> { a = 2; b = 3; };
// and: reading .a on that update-thunk must not force attribute b.
func TestUpdateOperatorRightWins(t *testing.T) {
	if got := mustInt(t, `({ a = 1; } // { a = 2; b = 3; }).a`); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
	if got := mustInt(t, `({ a = 1; } // { a = 2; b = 3; }).b`); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestUpdateOperatorDoesNotForceUnreadAttribute(t *testing.T) {
	// Selecting .a must not force b's thunk, which would throw if it did.
	got := mustInt(t, `({ a = 1; } // { a = 2; b = throw "must not be forced"; }).a`)
	if got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

// builtins.compareVersions "1.2.3" "1.2.10" -> -1
// (numeric per-component comparison, not lexicographic).
func TestCompareVersionsNumeric(t *testing.T) {
	if got := mustInt(t, `builtins.compareVersions "1.2.3" "1.2.10"`); got != -1 {
		t.Errorf("got %d, want -1", got)
	}
}

// Short-circuit completeness: an observably side-effecting right-hand
// side (a throw) must never run when the left side decides the result.
func TestShortCircuitAnd(t *testing.T) {
	if got := mustBool(t, `false && (throw "must not be forced")`); got {
		t.Errorf("got true, want false")
	}
}

func TestShortCircuitOr(t *testing.T) {
	if got := mustBool(t, `true || (throw "must not be forced")`); !got {
		t.Errorf("got false, want true")
	}
}

func TestShortCircuitImplication(t *testing.T) {
	if got := mustBool(t, `false -> (throw "must not be forced")`); !got {
		t.Errorf("got false, want true (false -> X is always true)")
	}
}

// Attribute-set equality is order-independent and fails on any
// differing value; lambdas are never equal.
func TestAttrSetEqualityOrderIndependent(t *testing.T) {
	if got := mustBool(t, `{a=1;b=2;} == {b=2;a=1;}`); !got {
		t.Errorf("got false, want true")
	}
}

func TestAttrSetEqualityDiffersOnValue(t *testing.T) {
	if got := mustBool(t, `{a=1;b=2;} == {a=1;b=3;}`); got {
		t.Errorf("got true, want false")
	}
}

func TestLambdasNeverEqual(t *testing.T) {
	if got := mustBool(t, `(x: x) == (x: x)`); got {
		t.Errorf("got true, want false: lambdas must never compare equal")
	}
}

// `or` supplies its default when the selected attribute is missing.
func TestSelectOrDefault(t *testing.T) {
	if got := mustInt(t, `{ a = 1; }.b or 9`); got != 9 {
		t.Errorf("got %d, want 9", got)
	}
}

func TestSelectMissingWithoutDefaultIsError(t *testing.T) {
	_, bot := evalSrc(t, `{ a = 1; }.b`)
	if bot == nil || bot.Code() != adt.CodeAttributeMissing {
		t.Fatalf("got %v, want CodeAttributeMissing", bot)
	}
}

func TestHasAttr(t *testing.T) {
	if got := mustBool(t, `{ a = 1; } ? a`); !got {
		t.Errorf("got false, want true")
	}
	if got := mustBool(t, `{ a = 1; } ? b`); got {
		t.Errorf("got true, want false")
	}
}

// Inherit forms.
func TestInheritFromEnclosingScope(t *testing.T) {
	if got := mustInt(t, `let x = 5; in let inherit x; in x`); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
}

func TestInheritFrom(t *testing.T) {
	if got := mustInt(t, `let src = { x = 9; }; in (let inherit (src) x; in x)`); got != 9 {
		t.Errorf("got %d, want 9", got)
	}
}

// Dynamic attribute names that coerce to the empty string are silently
// dropped.
func TestDynamicAttrNameEmptyStringDropped(t *testing.T) {
	v := mustEval(t, `{ ${""} = 1; a = 2; }`)
	set, ok := adt.AsAttrSet(v)
	if !ok {
		t.Fatalf("want AttrSet, got %s", v.Kind())
	}
	ctx := &adt.OpContext{}
	if got := set.Keys(ctx); len(got) != 1 || got[0] != "a" {
		t.Errorf("got keys %v, want [a]", got)
	}
}

// List concatenation yields the elements of both operands.
func TestListConcat(t *testing.T) {
	v := mustEval(t, `[ 1 2 ] ++ [ 3 4 ]`)
	list, ok := adt.AsListVal(v)
	if !ok {
		t.Fatalf("want List, got %s", v.Kind())
	}
	if len(list.Elems) != 4 {
		t.Fatalf("got %d elems, want 4", len(list.Elems))
	}
}

// Assertion failure and if/else.
func TestAssertFailure(t *testing.T) {
	_, bot := evalSrc(t, `assert false; 1`)
	if bot == nil || bot.Code() != adt.CodeAssertionFailed {
		t.Fatalf("got %v, want CodeAssertionFailed", bot)
	}
}

func TestIfElse(t *testing.T) {
	if got := mustInt(t, `if 1 == 1 then 10 else 20`); got != 10 {
		t.Errorf("got %d, want 10", got)
	}
}

// Idempotent forcing: a shared binding is evaluated exactly once.
func TestNoDuplicateEvaluation(t *testing.T) {
	// `count` is referenced twice, but its thunk must run the binding's
	// expression only once. Every thunk force goes through ctx.EvalExpr,
	// so wrapping that hook counts the evaluations of the expression.
	src := `
		let
			count = builtins.length [ 1 ];
			shared = count + count;
		in shared
	`
	root, err := parser.Parse("test.nix", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	countExpr := root.(*ast.LetIn).Bindings[0].Value
	reg := builtin.NewRegistry()
	ctx := eval.NewOpContext(reg, adt.BacktraceMode(0))
	evals := 0
	inner := ctx.EvalExpr
	ctx.EvalExpr = func(c *adt.OpContext, env *adt.Environment, e ast.Expr, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
		if e == countExpr {
			evals++
		}
		return inner(c, env, e, bt)
	}
	env := adt.RootEnvironment(adt.NewFile("test.nix", src, root), builtin.Globals(reg))
	v, bot := eval.EvalExpr(ctx, env, root, nil)
	if bot != nil {
		t.Fatalf("eval: %v", bot)
	}
	if got, ok := adt.AsInt(v); !ok || got != 2 {
		t.Errorf("got %v, want 2", v)
	}
	if evals != 1 {
		t.Errorf("count's expression evaluated %d times, want 1", evals)
	}
}

// Ordering comparisons: numbers compare numerically with Int/Float
// promotion, strings byte-lexicographically, and lists extend the
// ordering lexicographically element by element with a shorter prefix
// ordering first — the documented choice for the comparison operators'
// list semantics.
func TestOrderedComparisons(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{`1 < 2`, true},
		{`2 <= 2`, true},
		{`2.5 > 2`, true},
		{`1 >= 1.5`, false},
		{`"abc" < "abd"`, true},
		{`[ 1 2 ] < [ 1 3 ]`, true},
		{`[ 1 2 ] < [ 1 2 3 ]`, true},
		{`[ 1 2 3 ] < [ 1 2 ]`, false},
		{`[ ] < [ 1 ]`, true},
	}
	for _, tc := range cases {
		if got := mustBool(t, tc.src); got != tc.want {
			t.Errorf("%s = %v, want %v", tc.src, got, tc.want)
		}
	}
}

func TestComparingSetsIsTypeError(t *testing.T) {
	_, bot := evalSrc(t, `{ a = 1; } < { a = 2; }`)
	if bot == nil || bot.Code() != adt.CodeTypeError {
		t.Fatalf("got %v, want CodeTypeError", bot)
	}
}

// Unicode-aware string builtins count scalar values, not bytes.
func TestStringLengthCountsRunes(t *testing.T) {
	if got := mustInt(t, `builtins.stringLength "héllo"`); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
	if got := mustString(t, `builtins.substring 1 3 "héllo"`); got != "éll" {
		t.Errorf("got %q, want %q", got, "éll")
	}
}

// Dynamic attribute names resolve at assignment time against the outer
// scope; selection through a dynamic name forces the name expression.
func TestDynamicAttrNameAssignmentAndSelect(t *testing.T) {
	if got := mustInt(t, `let k = "answer"; in { ${k} = 42; }.answer`); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if got := mustInt(t, `let s = { answer = 42; }; k = "answer"; in s.${k}`); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

// URI literals parse but are not implemented; evaluating one surfaces
// the unimplemented kind rather than panicking or mis-coercing.
func TestURILiteralIsUnimplemented(t *testing.T) {
	_, bot := evalSrc(t, "https://example.org/x")
	if bot == nil || bot.Code() != adt.CodeUnimplemented {
		t.Fatalf("got %v, want CodeUnimplemented", bot)
	}
}

// Pretty-printing sanity: attrset keys render sorted, string quoted.
func TestPrinterAttrSetSortedKeys(t *testing.T) {
	root, err := parser.Parse("test.nix", []byte(`{ b = 1; a = 2; }`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reg := builtin.NewRegistry()
	globals := builtin.Globals(reg)
	ctx := eval.NewOpContext(reg, adt.BacktraceMode(0))
	file := adt.NewFile("test.nix", `{ b = 1; a = 2; }`, root)
	env := adt.RootEnvironment(file, globals)
	th := adt.NewPendingThunk(env, root, root.Pos())
	out, bot := printer.Sprint(ctx, th, printer.Minimized, nil)
	if bot != nil {
		t.Fatalf("print: %v", bot)
	}
	if out != `{ a = 2; b = 1; }` {
		t.Errorf("got %q, want %q", out, `{ a = 2; b = 1; }`)
	}
}
