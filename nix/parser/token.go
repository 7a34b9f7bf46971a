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

// Package parser turns Nix source text into the nix/ast tree the
// evaluator core walks: a hand-written lexer producing a flat token
// stream, and a recursive-descent parser consuming it.
package parser

import "github.com/nix-compiler/nix-compiler/nix/token"

// kind enumerates the flat token stream the lexer produces. String and
// indented-string literals are tokenized as a START/CONTENT/INTERPOL
// run rather than a single token, so that `${...}` interpolation can
// nest arbitrary expressions (including further strings) without the
// lexer itself recursing into the parser.
type kind int

const (
	tEOF kind = iota
	tIllegal

	tIdent
	tInt
	tFloat
	tPath
	tURI

	// string/indented-string literal structure
	tStringStart
	tIStringStart
	tStringContent
	tInterpolStart
	tInterpolEnd
	tStringEnd

	// keywords
	tIf
	tThen
	tElse
	tLet
	tIn
	tWith
	tRec
	tInherit
	tAssert
	tOr
	tTrue
	tFalse
	tNull

	// punctuation
	tLParen
	tRParen
	tLBrace
	tRBrace
	tLBracket
	tRBracket
	tSemi
	tComma
	tDot
	tColon
	tAt
	tQuestion
	tEllipsis
	tAssign

	// operators
	tEq
	tNeq
	tLt
	tLe
	tGt
	tGe
	tPlus
	tMinus
	tStar
	tSlash
	tConcat
	tUpdate
	tAnd
	tOr2
	tImpl
	tNot
)

var keywords = map[string]kind{
	"if":      tIf,
	"then":    tThen,
	"else":    tElse,
	"let":     tLet,
	"in":      tIn,
	"with":    tWith,
	"rec":     tRec,
	"inherit": tInherit,
	"assert":  tAssert,
	"or":      tOr,
	"true":    tTrue,
	"false":   tFalse,
	"null":    tNull,
}

// tok is one entry of the flat pre-scanned token stream.
type tok struct {
	kind kind
	lit  string
	pos  token.Pos
}
