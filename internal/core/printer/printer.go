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

// Package printer implements value pretty-printing: a two-mode
// renderer producing an indented (expanded) and a single-line
// (minimized) form of the same evaluated Value.
package printer

import (
	"fmt"
	"strings"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
)

// Mode selects one of the two renderings the CLI prints for the final
// value.
type Mode int

const (
	// Expanded is the indented, multi-line rendering.
	Expanded Mode = iota
	// Minimized is the single-line rendering.
	Minimized
)

const indentUnit = "  "

// Sprint forces v fully (recursively, through every list element and
// attribute value — the CLI's final-result printing is the one place the
// core forces an entire value graph, mirroring Thunk.ForceDeep's
// "recursive" mode) and renders it under mode.
func Sprint(ctx *adt.OpContext, th *adt.Thunk, mode Mode, bt *adt.Backtrace) (string, *adt.Bottom) {
	v, bot := adt.ForceDeep(ctx, th, bt)
	if bot != nil {
		return "", bot
	}
	var b strings.Builder
	writeValue(ctx, &b, v, mode, 0, bt, map[adt.Value]bool{})
	return b.String(), nil
}

// writeValue renders one value. onPath holds the List/AttrSet values on
// the current rendering path; re-encountering one means the data is
// cyclic (a rec set holding itself), rendered as "..." the way nix's own
// printer elides repetition rather than looping.
func writeValue(ctx *adt.OpContext, b *strings.Builder, v adt.Value, mode Mode, depth int, bt *adt.Backtrace, onPath map[adt.Value]bool) {
	switch v.(type) {
	case *adt.List, *adt.AttrSet:
		if onPath[v] {
			b.WriteString("...")
			return
		}
		onPath[v] = true
		defer delete(onPath, v)
	}
	switch x := v.(type) {
	case adt.Null:
		b.WriteString("null")
	case adt.Bool:
		if x {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case adt.Int:
		fmt.Fprintf(b, "%d", int64(x))
	case adt.Float:
		fmt.Fprintf(b, "%g", float64(x))
	case adt.String:
		writeQuotedString(b, string(x))
	case adt.Path:
		b.WriteString(string(x))
	case *adt.List:
		writeList(ctx, b, x, mode, depth, bt, onPath)
	case *adt.AttrSet:
		writeAttrSet(ctx, b, x, mode, depth, bt, onPath)
	case *adt.Lambda:
		b.WriteString("<lambda>")
	case *adt.Builtin:
		fmt.Fprintf(b, "<%s>", x.Name)
	default:
		fmt.Fprintf(b, "<%s>", v.Kind())
	}
}

// writeQuotedString renders s as a double-quoted Nix string literal,
// escaping the characters that would otherwise terminate the literal or
// be read as the start of an interpolation.
func writeQuotedString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '$':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteString(`\$`)
				continue
			}
			b.WriteByte('$')
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
}

func writeList(ctx *adt.OpContext, b *strings.Builder, l *adt.List, mode Mode, depth int, bt *adt.Backtrace, onPath map[adt.Value]bool) {
	if len(l.Elems) == 0 {
		b.WriteString("[ ]")
		return
	}
	if mode == Minimized {
		b.WriteString("[ ")
		for i, e := range l.Elems {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeElemValue(ctx, b, e, mode, depth, bt, onPath)
		}
		b.WriteString(" ]")
		return
	}
	b.WriteString("[\n")
	inner := strings.Repeat(indentUnit, depth+1)
	for _, e := range l.Elems {
		b.WriteString(inner)
		writeElemValue(ctx, b, e, mode, depth+1, bt, onPath)
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "%s]", strings.Repeat(indentUnit, depth))
}

func writeAttrSet(ctx *adt.OpContext, b *strings.Builder, a *adt.AttrSet, mode Mode, depth int, bt *adt.Backtrace, onPath map[adt.Value]bool) {
	if a.IsDerivation() {
		writeDerivation(ctx, b, a, bt)
		return
	}
	keys := a.Keys(ctx)
	if len(keys) == 0 {
		b.WriteString("{ }")
		return
	}
	if mode == Minimized {
		b.WriteString("{ ")
		for _, k := range keys {
			th, _ := a.Get(ctx, k)
			fmt.Fprintf(b, "%s = ", attrNameLiteral(k))
			writeElemValue(ctx, b, th, mode, depth, bt, onPath)
			b.WriteString("; ")
		}
		b.WriteString("}")
		return
	}
	b.WriteString("{\n")
	inner := strings.Repeat(indentUnit, depth+1)
	for _, k := range keys {
		th, _ := a.Get(ctx, k)
		b.WriteString(inner)
		fmt.Fprintf(b, "%s = ", attrNameLiteral(k))
		writeElemValue(ctx, b, th, mode, depth+1, bt, onPath)
		b.WriteString(";\n")
	}
	fmt.Fprintf(b, "%s}", strings.Repeat(indentUnit, depth))
}

// writeDerivation renders a derivation-backed set as `<derivation
// STORE_PATH>`; if the output path cannot be computed (e.g. a
// non-fixed-output derivation), the Unimplemented error is
// swallowed in favor of an elided placeholder rather than failing the
// whole print, matching nix's own tolerant derivation display.
func writeDerivation(ctx *adt.OpContext, b *strings.Builder, a *adt.AttrSet, bt *adt.Backtrace) {
	th, ok := a.Get(ctx, "outPath")
	if !ok {
		b.WriteString("<derivation ???>")
		return
	}
	v, bot := th.Force(ctx, bt)
	if bot != nil {
		b.WriteString("<derivation ???>")
		return
	}
	s, ok := adt.AsPath(v)
	if !ok {
		b.WriteString("<derivation ???>")
		return
	}
	fmt.Fprintf(b, "<derivation %s>", string(s))
}

// attrNameLiteral quotes an attribute name that is not a bare identifier
// (e.g. contains a space or starts with a digit), matching nix's own
// printer behavior for such keys.
func attrNameLiteral(name string) string {
	if isBareIdent(name) {
		return name
	}
	var b strings.Builder
	writeQuotedString(&b, name)
	return b.String()
}

func isBareIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return false
		}
		if !isAlpha && !isDigit && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}

func writeElemValue(ctx *adt.OpContext, b *strings.Builder, th *adt.Thunk, mode Mode, depth int, bt *adt.Backtrace, onPath map[adt.Value]bool) {
	v, bot := th.Force(ctx, bt)
	if bot != nil {
		b.WriteString("<error>")
		return
	}
	writeValue(ctx, b, v, mode, depth, bt, onPath)
}
