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
	"sort"

	"github.com/google/uuid"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

// OutputKind classifies how an output's store path is determined.
type OutputKind int

const (
	// Deferred: the path is not known until the referring derivation is
	// itself realized. Never produced by this evaluator.
	OutputDeferred OutputKind = iota
	// Fixed is a content-addressed output whose hash is declared up
	// front via outputHash/outputHashAlgo — the one scheme this
	// evaluator can compute without building.
	OutputFixed
	// Floating is a content-addressed output whose hash is only known
	// after a real build. Never produced by this evaluator.
	OutputFloating
	// Impure outputs are never cached. Never produced by this evaluator.
	OutputImpure
	// InputAddressed is the classic pre-CA scheme, keyed off the full
	// derivation closure's hash. Never produced by this evaluator.
	OutputInputAddressed
)

// Output describes one declared output of a Derivation.
type Output struct {
	Kind     OutputKind
	HashAlgo string // "md5" | "sha1" | "sha256" | "sha512", Fixed only
	HashHex  string // hex digest, Fixed only
	Path     string // computed lazily by Derivation.OutputPath
}

// Derivation is the evaluator's record of a `builtins.derivation` call:
// a name, the declared outputs, platform, builder, args, env, and a
// side mapping of any extra attribute-set entries. It never executes a
// build — computing an output's store path is the only operation this
// evaluator performs on it.
type Derivation struct {
	Name    string
	System  string
	Builder string
	Args    []string
	Env     map[string]string
	Outputs map[string]*Output

	InputDrvs map[string][]string // input derivation path -> its output names used
	InputSrcs []string

	// Extra holds any attribute of the argument set this evaluator
	// doesn't give special treatment (e.g. `meta`), so derivation
	// results still expose every attribute the caller passed in,
	// matching real Nix's `derivation` which splices its argument set
	// through verbatim alongside the computed fields.
	Extra map[string]*adt.Thunk

	// drvDiscriminator is DrvPath's fallback discriminator, drawn once on
	// first use when Env has no "out" entry.
	drvDiscriminator string
}

// OutputNames returns the sorted set of declared output names.
func (d *Derivation) OutputNames() []string {
	names := make([]string, 0, len(d.Outputs))
	for k := range d.Outputs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// OutputPath computes (and caches) the store path of the named output.
// Only Fixed outputs are computable without a real store/builder; any
// other kind surfaces as Unimplemented.
func (d *Derivation) OutputPath(output string) (string, *adt.Bottom) {
	out, ok := d.Outputs[output]
	if !ok {
		return "", adt.NewBottom(adt.CodeAttributeMissing, token.NoPos, "derivation %q has no output %q", d.Name, output)
	}
	if out.Path != "" {
		return out.Path, nil
	}
	switch out.Kind {
	case OutputFixed:
		out.Path = FixedOutputPath(d.Name, output, out.HashAlgo, out.HashHex)
		return out.Path, nil
	default:
		return "", adt.NewBottom(adt.CodeUnimplemented, token.NoPos, "store-path computation for output %q of derivation %q requires a real build (only fixed-output derivations are supported)", output, d.Name)
	}
}

// DrvPath returns a synthetic path for this derivation's `.drv` file.
// Real Nix derives it from the ATerm-serialized derivation's own
// content hash; since this evaluator never serializes a full store
// closure, a stable per-Derivation discriminator is used
// instead whenever the env doesn't already pin one down, exactly the
// same fallback `builtins.genericClosure` uses for unkeyed elements
// (see internal/core/builtin/attrs.go).
func (d *Derivation) DrvPath() string {
	discriminator := d.Env["out"]
	if discriminator == "" {
		if d.drvDiscriminator == "" {
			d.drvDiscriminator = uuid.NewString()
		}
		discriminator = d.drvDiscriminator
	}
	return textHashPath(d.Name+".drv", []byte(discriminator), nil)
}
