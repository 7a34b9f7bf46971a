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
	"strings"

	"github.com/nix-compiler/nix-compiler/nix/token"
)

// lexMode tracks whether the lexer is scanning ordinary code or the body
// of a string/indented-string literal. Entering a `${...}` interpolation
// pushes modeNormal back on top so nested code (including further
// strings) tokenizes exactly as top-level code would; depth counts
// unmatched `{` seen since the interpolation was entered, so a `}` that
// belongs to a nested attrset/pattern doesn't prematurely close it.
type lexMode int

const (
	modeNormal lexMode = iota
	modeString
	modeIString
)

type modeFrame struct {
	mode  lexMode
	depth int
}

type lexer struct {
	src  []byte
	file *token.File
	off  int
	toks []tok
	mode []modeFrame
	err  error
}

func newLexer(filename string, src []byte) *lexer {
	f := token.NewFile(filename, len(src))
	f.SetLinesForContent(src)
	return &lexer{src: src, file: f, mode: []modeFrame{{mode: modeNormal}}}
}

func (l *lexer) curMode() lexMode { return l.mode[len(l.mode)-1].mode }

func (l *lexer) pos(off int) token.Pos { return l.file.Pos(off) }

func (l *lexer) emit(k kind, lit string, off int) {
	l.toks = append(l.toks, tok{kind: k, lit: lit, pos: l.pos(off)})
}

func (l *lexer) fail(off int, format string, args ...interface{}) {
	if l.err == nil {
		l.err = fmt.Errorf("%s: %s", l.pos(off), fmt.Sprintf(format, args...))
	}
}

func (l *lexer) peekByte(off int) byte {
	if off >= len(l.src) {
		return 0
	}
	return l.src[off]
}

// run tokenizes the whole source into a flat stream terminated by tEOF.
func (l *lexer) run() ([]tok, error) {
	for l.err == nil {
		switch l.curMode() {
		case modeNormal:
			if !l.lexNormal() {
				l.emit(tEOF, "", l.off)
				return l.toks, l.err
			}
		case modeString:
			l.lexStringBody(false)
		case modeIString:
			l.lexStringBody(true)
		}
	}
	return l.toks, l.err
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9') || b == '\'' || b == '-'
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isPathChar(b byte) bool {
	return isIdentStart(b) || isDigit(b) || b == '.' || b == '_' || b == '+' || b == '-'
}

// skipSpaceAndComments advances past whitespace, `#` line comments, and
// `/* ... */` block comments. It returns false only when skipping landed
// exactly on EOF.
func (l *lexer) skipSpaceAndComments() bool {
	for l.off < len(l.src) {
		b := l.src[l.off]
		switch {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			l.off++
		case b == '#':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.off++
			}
		case b == '/' && l.peekByte(l.off+1) == '*':
			l.off += 2
			for l.off < len(l.src) && !(l.src[l.off] == '*' && l.peekByte(l.off+1) == '/') {
				l.off++
			}
			if l.off < len(l.src) {
				l.off += 2
			}
		default:
			return true
		}
	}
	return false
}

// tryScanPath attempts a greedy match of Nix's path-literal grammar at
// the lexer's current offset: zero or more path characters, followed by
// one or more `/` + path-characters groups, with an optional trailing
// `/`. This mirrors the real lexer's PATH regex closely enough that an
// isolated `/` used as the division operator (always written with
// surrounding space in this evaluator's accepted input) is never
// consumed as a path.
func (l *lexer) tryScanPath(start int) (string, bool) {
	i := start
	for i < len(l.src) && isPathChar(l.src[i]) {
		i++
	}
	sawSlash := false
	for l.peekByte(i) == '/' && isPathChar(l.peekByte(i+1)) {
		sawSlash = true
		i++
		for i < len(l.src) && isPathChar(l.src[i]) {
			i++
		}
	}
	if !sawSlash {
		return "", false
	}
	if l.peekByte(i) == '/' {
		i++
	}
	return string(l.src[start:i]), true
}

// lexNormal scans one token of ordinary code. It returns false at EOF.
func (l *lexer) lexNormal() bool {
	if !l.skipSpaceAndComments() {
		return false
	}
	start := l.off
	b := l.src[start]

	switch {
	case b == '"':
		l.off++
		l.mode = append(l.mode, modeFrame{mode: modeString})
		l.emit(tStringStart, "", start)
		return true
	case b == '\'' && l.peekByte(start+1) == '\'':
		l.off += 2
		l.mode = append(l.mode, modeFrame{mode: modeIString})
		l.emit(tIStringStart, "", start)
		return true
	case b == '<':
		if p, ok := l.tryScanSearchPath(start); ok {
			l.off = start + len(p)
			l.emit(tPath, p, start)
			return true
		}
	}

	if b == '~' || b == '.' || b == '/' {
		if p, ok := l.tryScanPath(start); ok {
			l.off = start + len(p)
			l.emit(tPath, p, start)
			return true
		}
	}
	if isIdentStart(b) {
		if p, ok := l.tryScanPath(start); ok && strings.ContainsRune(p, '/') {
			l.off = start + len(p)
			l.emit(tPath, p, start)
			return true
		}
		if u, ok := l.tryScanURI(start); ok {
			l.off = start + len(u)
			l.emit(tURI, u, start)
			return true
		}
		i := start
		for i < len(l.src) && isIdentCont(l.src[i]) {
			i++
		}
		lit := string(l.src[start:i])
		l.off = i
		if k, ok := keywords[lit]; ok {
			l.emit(k, lit, start)
		} else {
			l.emit(tIdent, lit, start)
		}
		return true
	}
	if isDigit(b) {
		l.lexNumber(start)
		return true
	}

	switch b {
	case '(':
		l.off++
		l.emit(tLParen, "", start)
	case ')':
		l.off++
		l.emit(tRParen, "", start)
	case '[':
		l.off++
		l.emit(tLBracket, "", start)
	case ']':
		l.off++
		l.emit(tRBracket, "", start)
	case '{':
		l.off++
		if len(l.mode) > 1 {
			l.mode[len(l.mode)-1].depth++
		}
		l.emit(tLBrace, "", start)
	case '}':
		top := &l.mode[len(l.mode)-1]
		if len(l.mode) > 1 && top.depth == 0 {
			l.mode = l.mode[:len(l.mode)-1]
			l.off++
			l.emit(tInterpolEnd, "", start)
			return true
		}
		if len(l.mode) > 1 {
			top.depth--
		}
		l.off++
		l.emit(tRBrace, "", start)
	case ';':
		l.off++
		l.emit(tSemi, "", start)
	case ',':
		l.off++
		l.emit(tComma, "", start)
	case '.':
		if l.peekByte(start+1) == '.' && l.peekByte(start+2) == '.' {
			l.off += 3
			l.emit(tEllipsis, "", start)
		} else {
			l.off++
			l.emit(tDot, "", start)
		}
	case ':':
		l.off++
		l.emit(tColon, "", start)
	case '@':
		l.off++
		l.emit(tAt, "", start)
	case '?':
		l.off++
		l.emit(tQuestion, "", start)
	case '=':
		if l.peekByte(start+1) == '=' {
			l.off += 2
			l.emit(tEq, "", start)
		} else {
			l.off++
			l.emit(tAssign, "", start)
		}
	case '!':
		if l.peekByte(start+1) == '=' {
			l.off += 2
			l.emit(tNeq, "", start)
		} else {
			l.off++
			l.emit(tNot, "", start)
		}
	case '<':
		if l.peekByte(start+1) == '=' {
			l.off += 2
			l.emit(tLe, "", start)
		} else {
			l.off++
			l.emit(tLt, "", start)
		}
	case '>':
		if l.peekByte(start+1) == '=' {
			l.off += 2
			l.emit(tGe, "", start)
		} else {
			l.off++
			l.emit(tGt, "", start)
		}
	case '+':
		if l.peekByte(start+1) == '+' {
			l.off += 2
			l.emit(tConcat, "", start)
		} else {
			l.off++
			l.emit(tPlus, "", start)
		}
	case '-':
		if l.peekByte(start+1) == '>' {
			l.off += 2
			l.emit(tImpl, "", start)
		} else {
			l.off++
			l.emit(tMinus, "", start)
		}
	case '*':
		l.off++
		l.emit(tStar, "", start)
	case '/':
		if l.peekByte(start+1) == '/' {
			l.off += 2
			l.emit(tUpdate, "", start)
		} else {
			l.off++
			l.emit(tSlash, "", start)
		}
	case '$':
		// `${` outside a string literal begins a dynamic attribute name
		// (`{ ${k} = v; }`). The pushed frame exists so the matching `}`
		// emits tInterpolEnd instead of tRBrace.
		if l.peekByte(start+1) == '{' {
			l.off += 2
			l.mode = append(l.mode, modeFrame{mode: modeNormal})
			l.emit(tInterpolStart, "", start)
		} else {
			l.fail(start, "unexpected character %q", b)
		}
	case '&':
		if l.peekByte(start+1) == '&' {
			l.off += 2
			l.emit(tAnd, "", start)
		} else {
			l.fail(start, "unexpected character %q", b)
		}
	case '|':
		if l.peekByte(start+1) == '|' {
			l.off += 2
			l.emit(tOr2, "", start)
		} else {
			l.fail(start, "unexpected character %q", b)
		}
	default:
		l.fail(start, "unexpected character %q", b)
	}
	return l.err == nil
}

func isURIChar(b byte) bool {
	if isIdentStart(b) || isDigit(b) {
		return true
	}
	switch b {
	case '%', '/', '?', ':', '@', '&', '=', '+', '$', ',', '-', '_', '.', '!', '~', '*', '\'':
		return true
	}
	return false
}

// tryScanURI matches a bare URI literal: a scheme (letter followed by
// letters, digits, `+`, `-`, `.`), a `:`, and at least one URI character.
// A `:` followed by whitespace never matches, which keeps `x: x` a lambda
// head rather than a URI.
func (l *lexer) tryScanURI(start int) (string, bool) {
	i := start
	for i < len(l.src) {
		c := l.src[i]
		if isIdentStart(c) || isDigit(c) || c == '+' || c == '-' || c == '.' {
			i++
			continue
		}
		break
	}
	if l.peekByte(i) != ':' || !isURIChar(l.peekByte(i+1)) {
		return "", false
	}
	i++
	for i < len(l.src) && isURIChar(l.src[i]) {
		i++
	}
	return string(l.src[start:i]), true
}

// tryScanSearchPath matches a `<...>` Nix search-path literal.
func (l *lexer) tryScanSearchPath(start int) (string, bool) {
	i := start + 1
	for i < len(l.src) && l.src[i] != '>' && l.src[i] != '\n' {
		if !isPathChar(l.src[i]) && l.src[i] != '/' {
			return "", false
		}
		i++
	}
	if l.peekByte(i) != '>' {
		return "", false
	}
	return string(l.src[start : i+1]), true
}

func (l *lexer) lexNumber(start int) {
	i := start
	for i < len(l.src) && isDigit(l.src[i]) {
		i++
	}
	isFloat := false
	if l.peekByte(i) == '.' && isDigit(l.peekByte(i+1)) {
		isFloat = true
		i++
		for i < len(l.src) && isDigit(l.src[i]) {
			i++
		}
	}
	if l.peekByte(i) == 'e' || l.peekByte(i) == 'E' {
		j := i + 1
		if l.peekByte(j) == '+' || l.peekByte(j) == '-' {
			j++
		}
		if isDigit(l.peekByte(j)) {
			isFloat = true
			i = j
			for i < len(l.src) && isDigit(l.src[i]) {
				i++
			}
		}
	}
	lit := string(l.src[start:i])
	l.off = i
	if isFloat {
		l.emit(tFloat, lit, start)
	} else {
		l.emit(tInt, lit, start)
	}
}

// lexStringBody scans one piece of a string/indented-string literal: a
// run of literal content up to the next `${`, `"` (simple strings) or
// `''` (indented strings), or an escape sequence. indented selects
// indented-string escaping (`''$`, `'''`, `''\`) over simple-string
// escaping (`\"`, `\n`, ...).
func (l *lexer) lexStringBody(indented bool) {
	var b strings.Builder
	start := l.off
	flush := func() {
		if b.Len() > 0 {
			l.emit(tStringContent, b.String(), start)
			b.Reset()
		}
	}
	for {
		if l.off >= len(l.src) {
			l.fail(l.off, "unterminated string literal")
			return
		}
		c := l.src[l.off]
		if !indented && c == '"' {
			flush()
			l.off++
			l.mode = l.mode[:len(l.mode)-1]
			l.emit(tStringEnd, "", l.off-1)
			return
		}
		if indented && c == '\'' && l.peekByte(l.off+1) == '\'' {
			switch l.peekByte(l.off + 2) {
			case '\'':
				b.WriteByte('\'')
				l.off += 3
				continue
			case '$':
				b.WriteByte('$')
				l.off += 3
				continue
			case '\\':
				esc, n := decodeEscape(l.src, l.off+3)
				b.WriteString(esc)
				l.off += 3 + n
				continue
			default:
				flush()
				l.off += 2
				l.mode = l.mode[:len(l.mode)-1]
				l.emit(tStringEnd, "", l.off-2)
				return
			}
		}
		if c == '$' && l.peekByte(l.off+1) == '{' {
			flush()
			l.off += 2
			start2 := l.off
			l.mode = append(l.mode, modeFrame{mode: modeNormal})
			l.emit(tInterpolStart, "", start2-2)
			return
		}
		if !indented && c == '\\' {
			esc, n := decodeEscape(l.src, l.off+1)
			b.WriteString(esc)
			l.off += 1 + n
			continue
		}
		b.WriteByte(c)
		l.off++
	}
}

// decodeEscape decodes a single escaped character starting at off
// (just past the introducing backslash), returning its replacement text
// and the number of source bytes consumed.
func decodeEscape(src []byte, off int) (string, int) {
	if off >= len(src) {
		return "", 0
	}
	switch src[off] {
	case 'n':
		return "\n", 1
	case 't':
		return "\t", 1
	case 'r':
		return "\r", 1
	default:
		return string(src[off]), 1
	}
}
