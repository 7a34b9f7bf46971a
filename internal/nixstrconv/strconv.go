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

// Package nixstrconv holds the Unicode-aware string helpers backing
// builtins.stringLength and builtins.substring: nix counts and slices
// strings in Unicode scalar values after NFC normalization, not raw bytes,
// so two differently-composed but canonically-equivalent strings report
// the same length.
package nixstrconv

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// DecodeUTF8 validates and re-encodes b as UTF-8, replacing any malformed
// sequence with the Unicode replacement character before the bytes are
// treated as a Nix string (builtins.readFile's contract).
func DecodeUTF8(b []byte) string {
	decoded, _ := unicode.UTF8.NewDecoder().Bytes(b)
	return string(decoded)
}

// RuneLen reports s's length in Unicode scalar values after NFC
// normalization (builtins.stringLength).
func RuneLen(s string) int {
	return len([]rune(norm.NFC.String(s)))
}

// Substring returns the substring of s starting at the start'th scalar
// value (after NFC normalization) and extending up to length scalar
// values, or to the end of s if length is negative or runs past it
// (builtins.substring's documented clamping behavior).
func Substring(s string, start, length int) string {
	runes := []rune(norm.NFC.String(s))
	if start < 0 {
		start = 0
	}
	if start >= len(runes) {
		return ""
	}
	end := len(runes)
	if length >= 0 && start+length < end {
		end = start + length
	}
	return string(runes[start:end])
}
