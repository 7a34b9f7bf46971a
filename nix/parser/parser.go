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

package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nix-compiler/nix-compiler/nix/ast"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

// Parse tokenizes and parses a whole Nix source file into a single
// top-level expression. A parse error surfaces once per file and halts
// that file's load; this package has no recovery mode.
func Parse(filename string, src []byte) (ast.Expr, error) {
	toks, err := newLexer(filename, src).run()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tEOF {
		return nil, fmt.Errorf("%s: unexpected trailing input", p.cur().pos)
	}
	return expr, nil
}

type parser struct {
	toks []tok
	i    int
}

// withPos stamps pos onto a freshly assembled node and hands it back as
// an ast.Expr, so the grammar functions below can build nodes
// field-by-field without repeating a constructor call per production.
func withPos(e ast.Expr, pos token.Pos) ast.Expr {
	if s, ok := e.(interface{ SetPos(token.Pos) }); ok {
		s.SetPos(pos)
	}
	return e
}

func (p *parser) cur() tok  { return p.toks[p.i] }
func (p *parser) peek() tok {
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1]
}
func (p *parser) advance() tok {
	t := p.toks[p.i]
	if p.i+1 < len(p.toks) {
		p.i++
	}
	return t
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s", p.cur().pos, fmt.Sprintf(format, args...))
}

func (p *parser) expect(k kind, what string) (tok, error) {
	if p.cur().kind != k {
		return tok{}, p.errorf("expected %s", what)
	}
	return p.advance(), nil
}

// ---------------------------------------------------------------------
// Entry point and the special leading forms: lambda, with, let,
// assert, and if all take the lowest precedence, swallowing everything
// to their right.

func (p *parser) parseExpr() (ast.Expr, error) {
	if e, ok, err := p.tryParseLambdaHead(); ok || err != nil {
		return e, err
	}
	switch p.cur().kind {
	case tWith:
		pos := p.advance().pos
		env, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tSemi, "`;`"); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.With{Env: env, Body: body}, pos), nil
	case tLet:
		return p.parseLetIn()
	case tAssert:
		pos := p.advance().pos
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tSemi, "`;`"); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.Assert{Cond: cond, Body: body}, pos), nil
	case tIf:
		pos := p.advance().pos
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tThen, "`then`"); err != nil {
			return nil, err
		}
		thenE, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tElse, "`else`"); err != nil {
			return nil, err
		}
		elseE, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.If{Cond: cond, Then: thenE, Else: elseE}, pos), nil
	}
	return p.parseImpl()
}

func (p *parser) parseLetIn() (ast.Expr, error) {
	pos := p.advance().pos
	bindings, err := p.parseBindings(tIn)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tIn, "`in`"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return withPos(&ast.LetIn{Bindings: bindings, Body: body}, pos), nil
}

// tryParseLambdaHead recognizes the two lambda head forms — `ident:` and
// `{ pattern }:` / `{ pattern }@name:` / `name@{ pattern }:` — without
// backtracking through the full operator chain: both are unambiguous
// from a small bounded lookahead since `:` and attrs-pattern commas have
// no other meaning at an expression's leading position.
func (p *parser) tryParseLambdaHead() (ast.Expr, bool, error) {
	switch p.cur().kind {
	case tIdent:
		if p.peek().kind == tColon {
			pos := p.cur().pos
			name := p.advance().lit
			p.advance() // ':'
			body, err := p.parseExpr()
			if err != nil {
				return nil, true, err
			}
			return withPos(&ast.Lambda{Param: ast.Param{Name: name}, Body: body}, pos), true, nil
		}
		if p.peek().kind == tAt {
			save := p.i
			pos := p.cur().pos
			name := p.advance().lit
			p.advance() // '@'
			if p.cur().kind == tLBrace {
				param, ok, err := p.tryParseAttrsPattern()
				if err != nil {
					return nil, true, err
				}
				if ok && p.cur().kind == tColon {
					p.advance()
					param.At = name
					body, err := p.parseExpr()
					if err != nil {
						return nil, true, err
					}
					return withPos(&ast.Lambda{Param: param, Body: body}, pos), true, nil
				}
			}
			p.i = save
		}
	case tLBrace:
		save := p.i
		pos := p.cur().pos
		param, ok, err := p.tryParseAttrsPattern()
		if err != nil {
			return nil, true, err
		}
		if ok {
			switch p.cur().kind {
			case tColon:
				p.advance()
				body, err := p.parseExpr()
				if err != nil {
					return nil, true, err
				}
				return withPos(&ast.Lambda{Param: param, Body: body}, pos), true, nil
			case tAt:
				p.advance()
				name, err := p.expect(tIdent, "identifier")
				if err != nil {
					return nil, true, err
				}
				if _, err := p.expect(tColon, "`:`"); err != nil {
					return nil, true, err
				}
				param.At = name.lit
				body, err := p.parseExpr()
				if err != nil {
					return nil, true, err
				}
				return withPos(&ast.Lambda{Param: param, Body: body}, pos), true, nil
			}
		}
		p.i = save
	}
	return nil, false, nil
}

// tryParseAttrsPattern attempts to parse `{ a, b ? d, ... }` starting at
// a `{`. It reports ok=false (restoring nothing itself — the caller
// snapshots p.i) if the brace group turns out not to be a pattern, e.g.
// it contains `=` or `;` or `inherit`, which only occur in plain
// attribute-set literals.
func (p *parser) tryParseAttrsPattern() (ast.Param, bool, error) {
	p.advance() // '{'
	param := ast.Param{IsAttrs: true}
	if p.cur().kind == tRBrace {
		p.advance()
		return param, true, nil
	}
	for {
		switch p.cur().kind {
		case tEllipsis:
			p.advance()
			param.Ellipsis = true
			if p.cur().kind != tRBrace {
				return ast.Param{}, false, nil
			}
		case tIdent:
			name := p.advance().lit
			var def ast.Expr
			if p.cur().kind == tQuestion {
				p.advance()
				e, err := p.parseDefault()
				if err != nil {
					return ast.Param{}, false, err
				}
				def = e
			}
			param.Entries = append(param.Entries, ast.PatternEntry{Name: name, Default: def})
		default:
			return ast.Param{}, false, nil
		}
		switch p.cur().kind {
		case tComma:
			p.advance()
			continue
		case tRBrace:
			p.advance()
			return param, true, nil
		default:
			return ast.Param{}, false, nil
		}
	}
}

// parseDefault parses a pattern entry's default-value expression. Commas
// and the closing brace terminate it at the same precedence as a full
// expression would normally allow, since `,`/`}` never appear inside a
// bare expression at this nesting level.
func (p *parser) parseDefault() (ast.Expr, error) {
	return p.parseExpr()
}

// ---------------------------------------------------------------------
// Operator-precedence chain, loosest to tightest: -> || && ==/!=
// </<=/>/>= // ! + - * / ++ ? unary-.

func (p *parser) parseImpl() (ast.Expr, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tImpl {
		pos := p.advance().pos
		right, err := p.parseImpl()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.BinOp{Op: ast.OpImpl, Left: left, Right: right}, pos), nil
	}
	return left, nil
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tOr2 {
		pos := p.advance().pos
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = withPos(&ast.BinOp{Op: ast.OpOr, Left: left, Right: right}, pos)
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tAnd {
		pos := p.advance().pos
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = withPos(&ast.BinOp{Op: ast.OpAnd, Left: left, Right: right}, pos)
	}
	return left, nil
}

func (p *parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	switch p.cur().kind {
	case tEq, tNeq:
		op := ast.OpEq
		if p.cur().kind == tNeq {
			op = ast.OpNeq
		}
		pos := p.advance().pos
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.BinOp{Op: op, Left: left, Right: right}, pos), nil
	}
	return left, nil
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseUpdate()
	if err != nil {
		return nil, err
	}
	ops := map[kind]ast.BinaryOp{tLt: ast.OpLt, tLe: ast.OpLe, tGt: ast.OpGt, tGe: ast.OpGe}
	if op, ok := ops[p.cur().kind]; ok {
		pos := p.advance().pos
		right, err := p.parseUpdate()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.BinOp{Op: op, Left: left, Right: right}, pos), nil
	}
	return left, nil
}

func (p *parser) parseUpdate() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tUpdate {
		pos := p.advance().pos
		right, err := p.parseUpdate()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.BinOp{Op: ast.OpUpdate, Left: left, Right: right}, pos), nil
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.cur().kind == tNot {
		pos := p.advance().pos
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.Unary{Op: ast.UnaryNot, Expr: operand}, pos), nil
	}
	return p.parseAdditive()
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tPlus || p.cur().kind == tMinus {
		op := ast.OpAdd
		if p.cur().kind == tMinus {
			op = ast.OpSub
		}
		pos := p.advance().pos
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = withPos(&ast.BinOp{Op: op, Left: left, Right: right}, pos)
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tStar || p.cur().kind == tSlash {
		op := ast.OpMul
		if p.cur().kind == tSlash {
			op = ast.OpDiv
		}
		pos := p.advance().pos
		right, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		left = withPos(&ast.BinOp{Op: op, Left: left, Right: right}, pos)
	}
	return left, nil
}

func (p *parser) parseConcat() (ast.Expr, error) {
	left, err := p.parseHasAttr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tConcat {
		pos := p.advance().pos
		right, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.BinOp{Op: ast.OpConcat, Left: left, Right: right}, pos), nil
	}
	return left, nil
}

func (p *parser) parseHasAttr() (ast.Expr, error) {
	left, err := p.parseNegate()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tQuestion {
		pos := p.advance().pos
		path, err := p.parseAttrPath()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.HasAttr{Base: left, Path: path}, pos), nil
	}
	return left, nil
}

func (p *parser) parseNegate() (ast.Expr, error) {
	if p.cur().kind == tMinus {
		pos := p.advance().pos
		operand, err := p.parseNegate()
		if err != nil {
			return nil, err
		}
		return withPos(&ast.Unary{Op: ast.UnaryNeg, Expr: operand}, pos), nil
	}
	return p.parseApplyChain()
}

// startsSelectExpr reports whether k can begin a function-application
// argument (an `expr_select`-level form): application binds tighter than
// everything but select/negate, so its argument may not itself be a
// bare `if`/`let`/`with`/`assert`/lambda unless parenthesized.
func startsSelectExpr(k kind) bool {
	switch k {
	case tIdent, tInt, tFloat, tPath, tURI, tTrue, tFalse, tNull,
		tLParen, tLBrace, tLBracket, tRec, tStringStart, tIStringStart:
		return true
	}
	return false
}

func (p *parser) parseApplyChain() (ast.Expr, error) {
	left, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	for startsSelectExpr(p.cur().kind) {
		pos := p.cur().pos
		arg, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		left = withPos(&ast.Apply{Func: left, Arg: arg}, pos)
	}
	return left, nil
}

func (p *parser) parseSelect() (ast.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tDot {
		return base, nil
	}
	pos := p.advance().pos // '.'
	path, err := p.parseAttrPath()
	if err != nil {
		return nil, err
	}
	var orDefault ast.Expr
	if p.cur().kind == tOr {
		p.advance()
		orDefault, err = p.parseSelect()
		if err != nil {
			return nil, err
		}
	}
	return withPos(&ast.Select{Base: base, Path: path, OrDefault: orDefault}, pos), nil
}

// parseAttrPath parses a dotted attribute path `name ('.' name)*` with
// any leading `.` already consumed by the caller (`e.a.b` consumes it in
// parseSelect; `e ? a.b` has none to consume).
func (p *parser) parseAttrPath() (ast.AttrPath, error) {
	var path ast.AttrPath
	for {
		name, err := p.parseAttrName()
		if err != nil {
			return nil, err
		}
		path = append(path, name)
		if p.cur().kind != tDot {
			return path, nil
		}
		p.advance()
	}
}

func (p *parser) parseAttrName() (ast.AttrName, error) {
	switch p.cur().kind {
	case tIdent, tOr:
		return ast.AttrName{Name: p.advance().lit}, nil
	case tTrue:
		p.advance()
		return ast.AttrName{Name: "true"}, nil
	case tFalse:
		p.advance()
		return ast.AttrName{Name: "false"}, nil
	case tStringStart:
		s, err := p.parseStringLiteral(false)
		if err != nil {
			return ast.AttrName{}, err
		}
		if len(s.Parts) == 1 && s.Parts[0].Expr == nil {
			return ast.AttrName{Name: s.Parts[0].Literal}, nil
		}
		return ast.AttrName{Dynamic: s}, nil
	case tInterpolStart:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return ast.AttrName{}, err
		}
		if _, err := p.expect(tInterpolEnd, "`}`"); err != nil {
			return ast.AttrName{}, err
		}
		return ast.AttrName{Dynamic: e}, nil
	}
	return ast.AttrName{}, p.errorf("expected an attribute name")
}

// ---------------------------------------------------------------------
// Primaries

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.kind {
	case tInt:
		p.advance()
		v, err := strconv.ParseInt(t.lit, 10, 64)
		if err != nil {
			return nil, p.errorAt(t.pos, "invalid integer literal %q", t.lit)
		}
		return ast.NewInt(t.pos, v), nil
	case tFloat:
		p.advance()
		v, err := strconv.ParseFloat(t.lit, 64)
		if err != nil {
			return nil, p.errorAt(t.pos, "invalid float literal %q", t.lit)
		}
		return ast.NewFloat(t.pos, v), nil
	case tTrue:
		p.advance()
		return ast.NewBool(t.pos, true), nil
	case tFalse:
		p.advance()
		return ast.NewBool(t.pos, false), nil
	case tNull:
		p.advance()
		return ast.NewNull(t.pos), nil
	case tIdent, tOr:
		p.advance()
		return ast.NewIdent(t.pos, t.lit), nil
	case tPath:
		p.advance()
		return buildPath(t), nil
	case tURI:
		p.advance()
		return ast.NewURI(t.pos, t.lit), nil
	case tStringStart:
		return p.parseStringLiteral(false)
	case tIStringStart:
		return p.parseStringLiteral(true)
	case tLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "`)`"); err != nil {
			return nil, err
		}
		return withPos(&ast.Paren{Inner: inner}, t.pos), nil
	case tLBracket:
		return p.parseList()
	case tLBrace:
		return p.parseAttrSetLit(false)
	case tRec:
		p.advance()
		if p.cur().kind != tLBrace {
			return nil, p.errorf("expected `{`")
		}
		return p.parseAttrSetLit(true)
	}
	return nil, p.errorf("unexpected token while parsing an expression")
}

func (p *parser) errorAt(pos token.Pos, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s", pos, fmt.Sprintf(format, args...))
}

func (p *parser) parseList() (ast.Expr, error) {
	pos := p.advance().pos // '['
	var elems []ast.Expr
	for p.cur().kind != tRBracket {
		e, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	p.advance() // ']'
	return withPos(&ast.List{Elems: elems}, pos), nil
}

// parseAttrSetLit parses the body of `{ ... }` already past any leading
// `rec`, with the opening `{` still unconsumed.
func (p *parser) parseAttrSetLit(recursive bool) (ast.Expr, error) {
	pos := p.cur().pos
	p.advance() // '{'
	bindings, err := p.parseBindings(tRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tRBrace, "`}`"); err != nil {
		return nil, err
	}
	return withPos(&ast.AttrSet{Recursive: recursive, Bindings: bindings}, pos), nil
}

// parseBindings parses a `;`-terminated sequence of bindings up to (but
// not consuming) a token of kind stop.
func (p *parser) parseBindings(stop kind) ([]ast.Binding, error) {
	var out []ast.Binding
	for p.cur().kind != stop {
		b, err := p.parseBinding()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		if _, err := p.expect(tSemi, "`;`"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *parser) parseBinding() (ast.Binding, error) {
	pos := p.cur().pos
	if p.cur().kind == tInherit {
		p.advance()
		var from ast.Expr
		if p.cur().kind == tLParen {
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return ast.Binding{}, err
			}
			if _, err := p.expect(tRParen, "`)`"); err != nil {
				return ast.Binding{}, err
			}
			from = e
		}
		var names []string
		for p.cur().kind == tIdent || p.cur().kind == tOr {
			names = append(names, p.advance().lit)
		}
		return ast.Binding{BindPos: pos, Inherit: true, From: from, Names: names}, nil
	}
	name, err := p.parseAttrName()
	if err != nil {
		return ast.Binding{}, err
	}
	path := ast.AttrPath{name}
	for p.cur().kind == tDot {
		p.advance()
		n, err := p.parseAttrName()
		if err != nil {
			return ast.Binding{}, err
		}
		path = append(path, n)
	}
	if _, err := p.expect(tAssign, "`=`"); err != nil {
		return ast.Binding{}, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return ast.Binding{}, err
	}
	return ast.Binding{BindPos: pos, Path: path, Value: value}, nil
}

// ---------------------------------------------------------------------
// String and path literal assembly

func (p *parser) parseStringLiteral(indented bool) (*ast.String, error) {
	pos := p.advance().pos // tStringStart / tIStringStart
	var parts []ast.StringPart
	for {
		switch p.cur().kind {
		case tStringContent:
			parts = append(parts, ast.StringPart{Literal: p.advance().lit})
		case tInterpolStart:
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tInterpolEnd, "`}`"); err != nil {
				return nil, err
			}
			parts = append(parts, ast.StringPart{Expr: e})
		case tStringEnd:
			p.advance()
			if indented {
				parts = dedentIndentedString(parts)
			}
			s := &ast.String{Parts: parts}
			s.SetPos(pos)
			return s, nil
		default:
			return nil, p.errorf("unterminated string literal")
		}
	}
}

func buildPath(t tok) *ast.Path {
	lit := t.lit
	kind := ast.PathPlain
	switch {
	case strings.HasPrefix(lit, "./"):
		kind = ast.PathRelative
		lit = lit[2:]
	case strings.HasPrefix(lit, "../"):
		kind = ast.PathParent
		lit = lit[3:]
	case strings.HasPrefix(lit, "/") || strings.HasPrefix(lit, "<"):
		kind = ast.PathPlain
	default:
		kind = ast.PathRelative
	}
	e := &ast.Path{Kind: kind, Parts: []ast.StringPart{{Literal: lit}}}
	e.SetPos(t.pos)
	return e
}

// dedentIndentedString applies the ''...'' literal's indentation rule:
// the longest run of leading spaces common to every non-empty line is
// stripped from each, and a whitespace-free first line (the newline
// straight after the opening quotes) is dropped entirely. A line whose
// first non-space content is an interpolation counts toward the common
// indentation like any other.
func dedentIndentedString(parts []ast.StringPart) []ast.StringPart {
	minIndent := -1
	atLineStart := true
	indent := 0
	note := func() {
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
		atLineStart = false
	}
	for _, part := range parts {
		if part.Expr != nil {
			if atLineStart {
				note()
			}
			continue
		}
		for i := 0; i < len(part.Literal); i++ {
			switch c := part.Literal[i]; {
			case c == '\n':
				atLineStart = true
				indent = 0
			case atLineStart && c == ' ':
				indent++
			case atLineStart:
				note()
			}
		}
	}
	if minIndent <= 0 {
		return stripLeadingNewline(parts)
	}

	out := make([]ast.StringPart, 0, len(parts))
	strip := minIndent
	for _, part := range parts {
		if part.Expr != nil {
			strip = 0
			out = append(out, part)
			continue
		}
		var b strings.Builder
		for i := 0; i < len(part.Literal); i++ {
			c := part.Literal[i]
			if strip > 0 && c == ' ' {
				strip--
				continue
			}
			strip = 0
			b.WriteByte(c)
			if c == '\n' {
				strip = minIndent
			}
		}
		out = append(out, ast.StringPart{Literal: b.String()})
	}
	return stripLeadingNewline(out)
}

func stripLeadingNewline(parts []ast.StringPart) []ast.StringPart {
	if len(parts) > 0 && parts[0].Expr == nil && strings.HasPrefix(parts[0].Literal, "\n") {
		parts[0].Literal = parts[0].Literal[1:]
	}
	return parts
}
