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

package derivation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
)

func fixedDrv(t *testing.T, outputs ...string) *Derivation {
	t.Helper()
	outs := map[string]*Output{}
	for _, n := range outputs {
		outs[n] = &Output{
			Kind:     OutputFixed,
			HashAlgo: "sha256",
			HashHex:  "0000000000000000000000000000000000000000000000000000000000000000",
		}
	}
	return &Derivation{Name: "demo", System: "x86_64-linux", Outputs: outs}
}

func forceLookup(t *testing.T, ctx *adt.OpContext, set *adt.AttrSet, name string) adt.Value {
	t.Helper()
	th, ok := set.Get(ctx, name)
	require.True(t, ok, "attribute %q", name)
	v, bot := th.Force(ctx, nil)
	require.Nil(t, bot, "force %q", name)
	return v
}

func TestViewIntrinsicFields(t *testing.T) {
	ctx := &adt.OpContext{}
	set := NewView(fixedDrv(t, "out"))

	require.True(t, set.IsDerivation())
	require.Equal(t, adt.String("demo"), forceLookup(t, ctx, set, "name"))
	require.Equal(t, adt.String("derivation"), forceLookup(t, ctx, set, "type"))
	require.Equal(t, adt.String("out"), forceLookup(t, ctx, set, "outputName"))

	outPath, ok := adt.AsPath(forceLookup(t, ctx, set, "outPath"))
	require.True(t, ok)
	require.Equal(t, FixedOutputPath("demo", "out", "sha256",
		"0000000000000000000000000000000000000000000000000000000000000000"), string(outPath))
}

// Reading a declared output name yields a per-output subview — the
// same derivation reselected, whose outPath answers for that output.
func TestViewPerOutputSubview(t *testing.T) {
	ctx := &adt.OpContext{}
	set := NewView(fixedDrv(t, "out", "dev"))

	sub, ok := adt.AsAttrSet(forceLookup(t, ctx, set, "dev"))
	require.True(t, ok)
	require.True(t, sub.IsDerivation())

	require.Equal(t, adt.String("dev"), forceLookup(t, ctx, sub, "outputName"))
	devPath, ok := adt.AsPath(forceLookup(t, ctx, sub, "outPath"))
	require.True(t, ok)

	rootPath, _ := adt.AsPath(forceLookup(t, ctx, set, "outPath"))
	require.NotEqual(t, string(rootPath), string(devPath),
		"dev subview must compute the dev output's path, not out's")
	require.Contains(t, string(devPath), "-demo-dev")

	// The subview still answers the shared intrinsics.
	require.Equal(t, adt.String("demo"), forceLookup(t, ctx, sub, "name"))
}

func TestViewExtraFieldsPassThrough(t *testing.T) {
	ctx := &adt.OpContext{}
	d := fixedDrv(t, "out")
	d.Extra = map[string]*adt.Thunk{
		"meta": adt.NewConcreteThunk(adt.String("hi")),
	}
	set := NewView(d)
	require.Equal(t, adt.String("hi"), forceLookup(t, ctx, set, "meta"))

	_, ok := set.Get(ctx, "nonexistent")
	require.False(t, ok)
}

// Two derivation-backed sets are equal iff they select the same
// output (hence compute the same store path).
func TestDerivationEqualityByOutputPath(t *testing.T) {
	ctx := &adt.OpContext{}
	a := NewView(fixedDrv(t, "out", "dev"))
	b := NewView(fixedDrv(t, "out", "dev"))

	eq, bot := adt.EqValues(ctx, a, b, nil)
	require.Nil(t, bot)
	require.True(t, eq)

	aDev, _ := adt.AsAttrSet(forceLookup(t, ctx, a, "dev"))
	eq, bot = adt.EqValues(ctx, a, aDev, nil)
	require.Nil(t, bot)
	require.False(t, eq, "different selected outputs must not compare equal")
}
