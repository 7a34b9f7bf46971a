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

// Package errors defines the evaluator's diagnostic types: the taxonomy
// code, labeled spans, backtrace spine, and rendering gate of the
// NIX_BACKTRACE contract all live in diagnostic.go. This file holds only
// the deferred-formatting Message that Diagnostic embeds and a New
// shim so callers converting a rendered diagnostic into a plain error
// don't need a second errors import.
package errors

import (
	"errors"
	"fmt"
)

// New is a convenience wrapper for [errors.New]. It does not return a
// *Diagnostic — it exists so that a caller already importing this
// package (e.g. to render one) can wrap the result without also
// importing the standard library's errors package under an alias.
func New(msg string) error {
	return errors.New(msg)
}

// A Message implements the error interface, allowing deferred formatting
// of human-readable text: the format string and arguments are stored at
// construction time and only interpolated when the message is rendered.
type Message struct {
	format string
	args   []interface{}
}

// NewMessagef creates an error message for human consumption. The
// arguments are retained for later formatting, allowing the message to
// be rendered lazily.
func NewMessagef(format string, args ...interface{}) Message {
	if false {
		// Ensure that vet checks the format string.
		_ = fmt.Sprintf(format, args...)
	}
	return Message{format: format, args: args}
}

func (m *Message) Error() string {
	return fmt.Sprintf(m.format, m.args...)
}
