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

package errors

import (
	"fmt"
	"strings"

	"github.com/nix-compiler/nix-compiler/nix/token"
)

// Code is the externally visible error taxonomy: it never influences
// control flow beyond what tryEval and abort already special-case, but it
// lets callers (and tests) assert on error kind without string matching.
type Code int8

const (
	// CodeEval is a generic, otherwise unclassified evaluation error.
	CodeEval Code = iota
	// CodeParse surfaces once per file and halts that file's load.
	CodeParse
	// CodeVariableNotFound is raised by Ident lookup.
	CodeVariableNotFound
	// CodeAttributeMissing is raised by Select with no "or" default.
	CodeAttributeMissing
	// CodeAssertionFailed is raised by a false Assert condition.
	CodeAssertionFailed
	// CodeInfiniteRecursion is raised by re-entrant forcing.
	CodeInfiniteRecursion
	// CodeTypeError is raised at the native builtin boundary.
	CodeTypeError
	// CodeThrow is an explicit builtins.throw.
	CodeThrow
	// CodeAbort is an explicit builtins.abort; fatal, not caught by tryEval.
	CodeAbort
	// CodeIO is a filesystem error (file not found, unreadable).
	CodeIO
	// CodeUnimplemented marks a development gap rather than a user error.
	CodeUnimplemented
)

func (c Code) String() string {
	switch c {
	case CodeParse:
		return "parse error"
	case CodeVariableNotFound:
		return "variable not found"
	case CodeAttributeMissing:
		return "attribute missing"
	case CodeAssertionFailed:
		return "assertion failed"
	case CodeInfiniteRecursion:
		return "infinite recursion detected"
	case CodeTypeError:
		return "type error"
	case CodeThrow:
		return "throw"
	case CodeAbort:
		return "abort"
	case CodeIO:
		return "I/O error"
	case CodeUnimplemented:
		return "unimplemented"
	default:
		return "eval error"
	}
}

// LabelKind classifies a single labeled span attached to a Diagnostic.
type LabelKind int8

const (
	// LabelError points at the span directly responsible for the failure.
	LabelError LabelKind = iota
	// LabelHelp points at a span that may help the reader fix the problem.
	LabelHelp
	// LabelTodo marks a span backing a not-yet-implemented code path.
	LabelTodo
)

func (k LabelKind) String() string {
	switch k {
	case LabelHelp:
		return "help"
	case LabelTodo:
		return "todo"
	default:
		return "error"
	}
}

// Label is one labeled source span in a Diagnostic, e.g. one of the three
// spans ("defining span", "current caller's span", "original first-use
// span") the infinite-recursion diagnostic requires.
type Label struct {
	Kind    LabelKind
	Message string
	Span    token.Pos
}

// Frame is one entry of a Backtrace: the span of an expression-level entry
// point pushed as the evaluator recurses, paired with a kind used
// only to distinguish "call" frames from "thunk force" frames when
// rendering.
type Frame struct {
	Span token.Pos
	Kind string // e.g. "force", "call", "import"
}

// Backtrace is an immutable cons-cell spine of Frames, cheap to push and
// cheap to capture into a stored Thunk for later error rendering.
type Backtrace struct {
	frame Frame
	up    *Backtrace
}

// Push returns a new Backtrace with frame prepended; the receiver (which
// may be nil) is left untouched, so the same tail is shared by every
// branch of the recursive descent that produced it.
func (b *Backtrace) Push(frame Frame) *Backtrace {
	return &Backtrace{frame: frame, up: b}
}

// Top returns the span of the most recently pushed frame, or token.NoPos
// if the backtrace is empty.
func (b *Backtrace) Top() token.Pos {
	if b == nil {
		return token.NoPos
	}
	return b.frame.Span
}

// Frames returns the chain from most-recent to oldest.
func (b *Backtrace) Frames() []Frame {
	var out []Frame
	for f := b; f != nil; f = f.up {
		out = append(out, f.frame)
	}
	return out
}

// Dedup collapses consecutive frames with the same span, which commonly
// arise when a thunk force re-enters the same expression via a default
// argument or an "or" fallback.
func (b *Backtrace) Dedup() []Frame {
	frames := b.Frames()
	out := frames[:0:0]
	for i, f := range frames {
		if i > 0 && f.Span == frames[i-1].Span {
			continue
		}
		out = append(out, f)
	}
	return out
}

// BacktraceMode controls how much of a Diagnostic's backtrace gets
// rendered, driven by the NIX_BACKTRACE environment variable.
type BacktraceMode int8

const (
	// BacktraceDisabled renders no backtrace at all (default, unset env).
	BacktraceDisabled BacktraceMode = iota
	// BacktraceCompact renders one "at FILE L:C" line per frame.
	BacktraceCompact
	// BacktraceFull renders a multi-line labeled block per frame.
	BacktraceFull
)

// ParseBacktraceMode maps the NIX_BACKTRACE value to a mode: empty/unset is
// disabled, anything starting with 'f' is full, anything else is compact.
func ParseBacktraceMode(env string) BacktraceMode {
	switch {
	case env == "":
		return BacktraceDisabled
	case strings.HasPrefix(env, "f"):
		return BacktraceFull
	default:
		return BacktraceCompact
	}
}

// Diagnostic is a rich evaluator error: a human message, the taxonomy code,
// a set of labeled spans, and an optional backtrace chain.
type Diagnostic struct {
	Message
	Code      Code
	Labels    []Label
	Backtrace *Backtrace
}

// NewDiagnostic builds a Diagnostic carrying a single error-kind label at
// p and no backtrace; use WithLabel/WithBacktrace to add more.
func NewDiagnostic(code Code, p token.Pos, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Message: NewMessagef(format, args...),
		Code:    code,
		Labels:  []Label{{Kind: LabelError, Span: p}},
	}
}

// WithLabel returns a copy of d with an additional label.
func (d *Diagnostic) WithLabel(kind LabelKind, msg string, span token.Pos) *Diagnostic {
	cp := *d
	cp.Labels = append(append([]Label{}, d.Labels...), Label{Kind: kind, Message: msg, Span: span})
	return &cp
}

// WithBacktrace returns a copy of d carrying the given backtrace.
func (d *Diagnostic) WithBacktrace(b *Backtrace) *Diagnostic {
	cp := *d
	cp.Backtrace = b
	return &cp
}

// Position returns the span of d's primary (error-kind) label, used by
// callers that want a single representative location without rendering
// the whole diagnostic.
func (d *Diagnostic) Position() token.Pos {
	for _, l := range d.Labels {
		if l.Kind == LabelError {
			return l.Span
		}
	}
	if len(d.Labels) > 0 {
		return d.Labels[0].Span
	}
	return token.NoPos
}

// Render writes a full human-readable rendering of d: the message, every
// labeled span, and the backtrace gated by mode.
func (d *Diagnostic) Render(w *strings.Builder, mode BacktraceMode) {
	fmt.Fprintf(w, "%s: %s\n", d.Code, d.Error())
	for _, l := range d.Labels {
		pos := l.Span.Position()
		if l.Message != "" {
			fmt.Fprintf(w, "  %s: %s (%s)\n", l.Kind, l.Message, pos)
		} else {
			fmt.Fprintf(w, "  %s: %s\n", l.Kind, pos)
		}
	}
	if mode == BacktraceDisabled || d.Backtrace == nil {
		return
	}
	frames := d.Backtrace.Dedup()
	switch mode {
	case BacktraceCompact:
		for _, f := range frames {
			fmt.Fprintf(w, "  at %s\n", f.Span.Position())
		}
	case BacktraceFull:
		for _, f := range frames {
			fmt.Fprintf(w, "  in %s:\n    at %s\n", f.Kind, f.Span.Position())
		}
	}
}
