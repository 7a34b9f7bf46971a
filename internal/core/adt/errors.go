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

import (
	"github.com/nix-compiler/nix-compiler/nix/errors"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

// Code re-exports the error taxonomy so that callers working purely in
// terms of adt don't need to also import nix/errors for the common case.
type Code = errors.Code

const (
	CodeEval              = errors.CodeEval
	CodeParse             = errors.CodeParse
	CodeVariableNotFound  = errors.CodeVariableNotFound
	CodeAttributeMissing  = errors.CodeAttributeMissing
	CodeAssertionFailed   = errors.CodeAssertionFailed
	CodeInfiniteRecursion = errors.CodeInfiniteRecursion
	CodeTypeError         = errors.CodeTypeError
	CodeThrow             = errors.CodeThrow
	CodeAbort             = errors.CodeAbort
	CodeIO                = errors.CodeIO
	CodeUnimplemented     = errors.CodeUnimplemented
)

// Backtrace and Frame are the evaluator's persistent, cheap-to-push
// backtrace spine, defined once in nix/errors and reused here
// so that both the evaluator and the diagnostic renderer share one type.
type Backtrace = errors.Backtrace
type Frame = errors.Frame

// LabelKind re-exports the label taxonomy used by Bottom.WithLabel.
type LabelKind = errors.LabelKind

const (
	LabelError = errors.LabelError
	LabelHelp  = errors.LabelHelp
	LabelTodo  = errors.LabelTodo
)

// BacktraceMode re-exports the NIX_BACKTRACE rendering gate so that
// OpContext (and its callers) don't need to also import nix/errors.
type BacktraceMode = errors.BacktraceMode

const (
	BacktraceDisabled = errors.BacktraceDisabled
	BacktraceCompact  = errors.BacktraceCompact
	BacktraceFull     = errors.BacktraceFull
)

// Bottom represents an error, Nix's "control data" result.
// It is not itself a Value: forcing a Thunk whose body fails returns
// (nil, *Bottom), exactly as every other core operation returns a
// Result-like pair, never panicking or using exceptions for control flow
// internal to the evaluator.
type Bottom struct {
	Diag *errors.Diagnostic
}

func (b *Bottom) Error() string { return b.Diag.Error() }

// Code reports the taxonomy code of the underlying diagnostic.
func (b *Bottom) Code() Code { return b.Diag.Code }

// NewBottom builds a Bottom carrying a single-label diagnostic at pos.
func NewBottom(code Code, pos token.Pos, format string, args ...interface{}) *Bottom {
	return &Bottom{Diag: errors.NewDiagnostic(code, pos, format, args...)}
}

// WithBacktrace attaches bt to the underlying diagnostic and returns b
// for chaining at the raise site.
func (b *Bottom) WithBacktrace(bt *Backtrace) *Bottom {
	b.Diag = b.Diag.WithBacktrace(bt)
	return b
}

// WithLabel adds a labeled span (e.g. the three spans of the
// infinite-recursion diagnostic) and returns b for chaining.
func (b *Bottom) WithLabel(kind errors.LabelKind, msg string, pos token.Pos) *Bottom {
	b.Diag = b.Diag.WithLabel(kind, msg, pos)
	return b
}

// IsThrow reports whether b originated from an explicit builtins.throw.
// builtins.tryEval does not consult it: tryEval catches every error
// except an abort (see IsAbort).
func (b *Bottom) IsThrow() bool { return b.Diag.Code == CodeThrow }

// IsAbort reports whether b originated from builtins.abort.
func (b *Bottom) IsAbort() bool { return b.Diag.Code == CodeAbort }
