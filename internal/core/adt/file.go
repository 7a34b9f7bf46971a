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
	"path/filepath"

	"github.com/nix-compiler/nix-compiler/nix/ast"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

// File pairs an absolute canonical path with its source text. One File is
// created per import and retained for the lifetime of the process by the
// file cache so that spans captured in Thunks and Backtraces remain
// valid indefinitely.
type File struct {
	Path   string // absolute, canonical
	Source string
	Tok    *token.File
	Root   ast.Expr // the parsed top-level expression
}

// Dir returns the directory containing the file, used to resolve relative
// path literals.
func (f *File) Dir() string {
	return filepath.Dir(f.Path)
}

// NewFile constructs a File and its backing token.File, computing line
// offsets from source so that spans minted against Tok render correctly.
func NewFile(path, source string, root ast.Expr) *File {
	tf := token.NewFile(path, len(source))
	tf.SetLinesForContent([]byte(source))
	return &File{Path: path, Source: source, Tok: tf, Root: root}
}
