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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const helloDrv = `Derive([("out","/nix/store/a1b2c3-hello","","")],` +
	`[("/nix/store/d4e5f6-gcc.drv",["out"])],` +
	`["/nix/store/g7h8i9-hello.tar.gz"],` +
	`"x86_64-linux","/bin/sh",["-c","build \"quoted\"\n"],` +
	`[("builder","/bin/sh"),("name","hello"),("out","/nix/store/a1b2c3-hello")])`

func TestParseDrvFile(t *testing.T) {
	f, err := ParseDrvFile(helloDrv)
	require.NoError(t, err)

	want := &DrvFile{
		Outputs:   []DrvOutput{{Name: "out", Path: "/nix/store/a1b2c3-hello"}},
		InputDrvs: []DrvInput{{Path: "/nix/store/d4e5f6-gcc.drv", Outputs: []string{"out"}}},
		InputSrcs: []string{"/nix/store/g7h8i9-hello.tar.gz"},
		Platform:  "x86_64-linux",
		Builder:   "/bin/sh",
		Args:      []string{"-c", "build \"quoted\"\n"},
		Env: []EnvPair{
			{"builder", "/bin/sh"},
			{"name", "hello"},
			{"out", "/nix/store/a1b2c3-hello"},
		},
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("parsed .drv mismatch (-want +got):\n%s", diff)
	}
}

func TestDrvFileRoundTrip(t *testing.T) {
	f, err := ParseDrvFile(helloDrv)
	require.NoError(t, err)
	if got := f.String(); got != helloDrv {
		t.Errorf("round trip changed bytes:\n got %s\nwant %s", got, helloDrv)
	}
}

func TestDrvFileJSONPreservesOrder(t *testing.T) {
	f, err := ParseDrvFile(helloDrv)
	require.NoError(t, err)
	got := f.JSON()

	// env keys must come out in grammar order, not sorted or shuffled.
	wantEnv := `"env":{"builder":"/bin/sh","name":"hello","out":"/nix/store/a1b2c3-hello"}`
	if !strings.Contains(got, wantEnv) {
		t.Errorf("JSON env rendering:\n got %s\nwant substring %s", got, wantEnv)
	}
	for _, key := range []string{`"outputs"`, `"inputDrvs"`, `"inputSrcs"`, `"system"`, `"builder"`, `"args"`, `"env"`} {
		if !strings.Contains(got, key) {
			t.Errorf("JSON rendering is missing key %s: %s", key, got)
		}
	}
	if strings.Index(got, `"outputs"`) > strings.Index(got, `"env"`) {
		t.Errorf("JSON key order does not follow the grammar: %s", got)
	}
}

func TestParseDrvFileFixedOutput(t *testing.T) {
	src := `Derive([("out","/nix/store/xyz-src","sha256","1b8b2fd18a92c9eb1ba1f52e") ],[],[],"","",[],[("name","src")])`
	// The grammar is machine-written with no spaces; reject sloppy input.
	_, err := ParseDrvFile(src)
	require.Error(t, err)

	src = strings.ReplaceAll(src, `") ]`, `")]`)
	f, err := ParseDrvFile(src)
	require.NoError(t, err)

	kind, err := f.Outputs[0].Kind()
	require.NoError(t, err)
	require.Equal(t, OutputFixed, kind)

	d, err := f.Derivation()
	require.NoError(t, err)
	require.Equal(t, "src", d.Name)
	require.Equal(t, "sha256", d.Outputs["out"].HashAlgo)
}

func TestParseDrvFileErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"not a derive", `Derivee([],[],[],"","",[],[])`},
		{"unterminated string", `Derive([("out`},
		{"trailing garbage", `Derive([],[],[],"","",[],[])x`},
		{"impure with path", `Derive([("out","/nix/store/p","sha256","impure")],[],[],"","",[],[])`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseDrvFile(tc.src); err == nil {
				t.Errorf("ParseDrvFile(%q) unexpectedly succeeded", tc.src)
			}
		})
	}
}

func TestDrvFileDerivationRequiresName(t *testing.T) {
	f, err := ParseDrvFile(`Derive([],[],[],"","",[],[("out","/nix/store/p")])`)
	require.NoError(t, err)
	_, err = f.Derivation()
	require.Error(t, err)
}
