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

package nixstrconv

import "testing"

func TestRuneLen(t *testing.T) {
	cases := []struct {
		s    string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"héllo", 5},
		{"é", 1}, // combining acute normalizes to a single scalar
	}
	for _, tc := range cases {
		if got := RuneLen(tc.s); got != tc.want {
			t.Errorf("RuneLen(%q) = %d, want %d", tc.s, got, tc.want)
		}
	}
}

func TestSubstring(t *testing.T) {
	cases := []struct {
		s             string
		start, length int
		want          string
	}{
		{"hello", 0, 2, "he"},
		{"hello", 1, 3, "ell"},
		{"hello", 1, -1, "ello"}, // negative length runs to the end
		{"hello", 10, 2, ""},     // start past the end clamps to empty
		{"héllo", 1, 2, "él"},
		{"hello", -2, 2, "he"}, // negative start clamps to 0
	}
	for _, tc := range cases {
		if got := Substring(tc.s, tc.start, tc.length); got != tc.want {
			t.Errorf("Substring(%q, %d, %d) = %q, want %q", tc.s, tc.start, tc.length, got, tc.want)
		}
	}
}

func TestDecodeUTF8ReplacesMalformed(t *testing.T) {
	got := DecodeUTF8([]byte{'a', 0xff, 'b'})
	if got == "a\xffb" {
		t.Fatalf("malformed byte survived decoding")
	}
	if len([]rune(got)) != 3 {
		t.Errorf("got %q, want 3 scalars with the middle one replaced", got)
	}
}
