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

// Package token defines source positions and spans used throughout the
// evaluator for diagnostics and backtraces.
package token

import (
	"cmp"
	"fmt"
	"sort"
	"sync"
)

// Position describes an arbitrary and printable source position within a
// file, including offset, line, and column location, which can be rendered
// in a human-friendly text form.
//
// A Position is valid if the line number is > 0.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

// IsValid reports whether the position is valid.
func (pos *Position) IsValid() bool { return pos.Line > 0 }

// String returns a human-readable form of a position:
//
//	file:line:column    valid position with file name
//	line:column         valid position without file name
//	file                invalid position with file name
//	-                   invalid position without file name
func (pos Position) String() string {
	s := pos.Filename
	if pos.IsValid() {
		if s != "" {
			s += ":"
		}
		s += fmt.Sprintf("%d:%d", pos.Line, pos.Column)
	}
	if s == "" {
		s = "-"
	}
	return s
}

// Pos is a compact encoding of a source position within a [File].
type Pos struct {
	file   *File
	offset int
}

// File returns the file that contains p, or nil for [NoPos].
func (p Pos) File() *File {
	if p.offset == 0 {
		return nil
	}
	return p.file
}

// Line returns the position's line number, starting at 1.
func (p Pos) Line() int { return p.Position().Line }

// Column returns the position's column number, starting at 1.
func (p Pos) Column() int { return p.Position().Column }

// Filename returns the name of the file that this position belongs to.
func (p Pos) Filename() string {
	if p.file == nil {
		return ""
	}
	return p.file.name
}

// Position unpacks the position information into a flat struct.
func (p Pos) Position() Position {
	if p.file == nil {
		return Position{}
	}
	return p.file.Position(p)
}

// String returns a human-readable form of a printable position.
func (p Pos) String() string { return p.Position().String() }

// Compare returns an integer comparing two positions: 0 if equal, -1 if
// p < p2, +1 if p > p2. [NoPos] is always larger than any valid position.
func (p Pos) Compare(p2 Pos) int {
	switch {
	case p == p2:
		return 0
	case p == NoPos:
		return +1
	case p2 == NoPos:
		return -1
	}
	if c := cmp.Compare(p.Filename(), p2.Filename()); c != 0 {
		return c
	}
	return cmp.Compare(p.Offset(), p2.Offset())
}

// Before reports whether p occurs before q in the same file.
func (p Pos) Before(q Pos) bool { return p.Compare(q) < 0 }

// Offset reports the byte offset relative to the file.
func (p Pos) Offset() int {
	if p.file == nil {
		return 0
	}
	return p.file.Offset(p)
}

// Add returns a new position relative to p, offset by n bytes.
func (p Pos) Add(n int) Pos {
	return Pos{p.file, p.offset + n}
}

// IsValid reports whether p carries any position information.
func (p Pos) IsValid() bool { return p != NoPos }

// NoPos is the zero value for [Pos]: no file or line information is
// associated with it, and [Pos.IsValid] is false. NoPos is used for
// synthetic values that have no source origin (e.g. builtin results).
var NoPos = Pos{}

// A File has a name, size, and line offset table, shared by every [Pos]
// minted against it. One File exists per loaded Nix source file and is
// retained for the lifetime of the process by the file cache.
type File struct {
	mu    sync.RWMutex
	name  string
	size  int
	lines []int
}

// NewFile returns a new file with the given name and content size.
func NewFile(filename string, size int) *File {
	return &File{name: filename, size: size, lines: []int{0}}
}

func (f *File) fixOffset(offset int) int {
	switch {
	case offset < 0:
		return 0
	case offset > f.size:
		return f.size
	default:
		return offset
	}
}

// Name returns the file name of f.
func (f *File) Name() string { return f.name }

// Size returns the byte size of f.
func (f *File) Size() int { return f.size }

// SetLinesForContent computes the line offset table from file content.
func (f *File) SetLinesForContent(content []byte) {
	lines := []int{0}
	for offset, b := range content {
		if b == '\n' && offset+1 < len(content) {
			lines = append(lines, offset+1)
		}
	}
	f.mu.Lock()
	f.lines = lines
	f.mu.Unlock()
}

// Pos returns the Pos value for the given byte offset into f.
func (f *File) Pos(offset int) Pos {
	return Pos{f, 1 + f.fixOffset(offset)}
}

// Offset returns the byte offset for the given file position p.
func (f *File) Offset(p Pos) int {
	return f.fixOffset(p.offset - 1)
}

// Position returns the Position value for the given file position p.
func (f *File) Position(p Pos) (pos Position) {
	if p == NoPos {
		return
	}
	offset := f.Offset(p)
	pos.Offset = offset
	pos.Filename = f.name
	f.mu.RLock()
	i := searchInts(f.lines, offset)
	f.mu.RUnlock()
	if i >= 0 {
		pos.Line, pos.Column = i+1, offset-f.lines[i]+1
	}
	return
}

func searchInts(a []int, x int) int {
	return sort.Search(len(a), func(i int) bool { return a[i] > x }) - 1
}
