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

package printer_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/internal/core/derivation"
	"github.com/nix-compiler/nix-compiler/internal/core/printer"
)

func sprint(t *testing.T, v adt.Value, mode printer.Mode) string {
	t.Helper()
	ctx := &adt.OpContext{}
	s, bot := printer.Sprint(ctx, adt.NewConcreteThunk(v), mode, nil)
	if bot != nil {
		t.Fatalf("Sprint: %v", bot)
	}
	return s
}

func attrs(pairs ...interface{}) *adt.AttrSet {
	b := adt.NewBindings()
	for i := 0; i < len(pairs); i += 2 {
		b.Set(pairs[i].(string), adt.NewConcreteThunk(pairs[i+1].(adt.Value)))
	}
	return adt.NewAttrSet(b)
}

func list(vs ...adt.Value) *adt.List {
	elems := make([]*adt.Thunk, len(vs))
	for i, v := range vs {
		elems[i] = adt.NewConcreteThunk(v)
	}
	return &adt.List{Elems: elems}
}

func TestMinimizedRendering(t *testing.T) {
	cases := []struct {
		name string
		v    adt.Value
		want string
	}{
		{"null", adt.Null{}, "null"},
		{"bool", adt.Bool(true), "true"},
		{"int", adt.Int(-3), "-3"},
		{"float", adt.Float(2.5), "2.5"},
		{"string", adt.String("hi"), `"hi"`},
		{"path", adt.Path("/etc/hosts"), "/etc/hosts"},
		{"lambda", &adt.Lambda{}, "<lambda>"},
		{"empty list", list(), "[ ]"},
		{"empty set", attrs(), "{ }"},
		{"list", list(adt.Int(1), adt.Int(2)), "[ 1 2 ]"},
		{"set sorted", attrs("b", adt.Int(2), "a", adt.Int(1)), "{ a = 1; b = 2; }"},
		{"nested", attrs("xs", list(adt.String("a"))), `{ xs = [ "a" ]; }`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sprint(t, tc.v, printer.Minimized); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExpandedRendering(t *testing.T) {
	v := attrs(
		"name", adt.String("demo"),
		"xs", list(adt.Int(1), adt.Int(2)),
	)
	want := `{
  name = "demo";
  xs = [
    1
    2
  ];
}`
	if diff := cmp.Diff(want, sprint(t, v, printer.Expanded)); diff != "" {
		t.Errorf("expanded rendering mismatch (-want +got):\n%s", diff)
	}
}

func TestStringEscaping(t *testing.T) {
	got := sprint(t, adt.String("a\"b\\c\nd${e"), printer.Minimized)
	want := `"a\"b\\c\nd\${e"`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestNonBareAttrNamesAreQuoted(t *testing.T) {
	got := sprint(t, attrs("has space", adt.Int(1)), printer.Minimized)
	want := `{ "has space" = 1; }`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDerivationRendersAsStorePath(t *testing.T) {
	d := &derivation.Derivation{
		Name: "demo",
		Outputs: map[string]*derivation.Output{
			"out": {
				Kind:     derivation.OutputFixed,
				HashAlgo: "sha256",
				HashHex:  "0000000000000000000000000000000000000000000000000000000000000000",
			},
		},
	}
	got := sprint(t, derivation.NewView(d), printer.Minimized)
	wantPath := derivation.FixedOutputPath("demo", "out", "sha256",
		"0000000000000000000000000000000000000000000000000000000000000000")
	if got != "<derivation "+wantPath+">" {
		t.Errorf("got %q, want <derivation %s>", got, wantPath)
	}
}
