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

package builtin

import (
	"testing"
)

func TestCompareVersionStrings(t *testing.T) {
	cases := []struct {
		a, b string
		want int64
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2.3", "1.2.10", -1}, // numeric, not lexicographic
		{"1.10", "1.9", 1},
		{"1.0", "1.0.0", -1}, // shorter version orders first
		{"2.3", "2.3a", -1},  // non-numeric components fall back to lexical
		{"", "", 0},
		{"1", "", 1},
	}
	for _, tc := range cases {
		if got := compareVersionStrings(tc.a, tc.b); got != tc.want {
			t.Errorf("compareVersions %q %q = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestVersionComponents(t *testing.T) {
	got := versionComponents("1.2-pre3")
	want := []string{"1", "2", "pre3"}
	if len(got) != len(want) {
		t.Fatalf("versionComponents(\"1.2-pre3\") = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d = %q, want %q", i, got[i], want[i])
		}
	}
}
