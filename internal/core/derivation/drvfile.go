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
	"fmt"
	"strings"
)

// DrvOutput is one entry of a .drv file's outputs list: the 4-tuple
// (name, path, hashAlgo, hash). Which fields are populated encodes the
// output kind: an empty hashAlgo with a path is input-addressed, an empty
// hashAlgo without one is deferred, a hashAlgo with a hash is fixed, with
// the literal hash "impure" is impure, and with no hash is floating.
type DrvOutput struct {
	Name     string
	Path     string
	HashAlgo string
	HashHex  string
}

// Kind classifies the output per the field conventions above.
func (o DrvOutput) Kind() (OutputKind, error) {
	if o.HashAlgo == "" {
		if o.Path == "" {
			return OutputDeferred, nil
		}
		return OutputInputAddressed, nil
	}
	switch {
	case o.HashHex == "impure":
		if o.Path != "" {
			return 0, fmt.Errorf("impure output %q must not declare a path", o.Name)
		}
		return OutputImpure, nil
	case o.HashHex != "":
		if !strings.HasPrefix(o.Path, "/") {
			return 0, fmt.Errorf("fixed output %q has relative path %q", o.Name, o.Path)
		}
		return OutputFixed, nil
	default:
		if o.Path != "" {
			return 0, fmt.Errorf("floating output %q must not declare a path", o.Name)
		}
		return OutputFloating, nil
	}
}

// DrvInput is one entry of the input-derivations list: a .drv store path
// plus the output names of it that the referring derivation consumes.
type DrvInput struct {
	Path    string
	Outputs []string
}

// EnvPair is one (key, value) entry of the env list. The .drv grammar
// keeps env as an ordered list, not a map, and both the Derive(...) and
// JSON renderings preserve that order.
type EnvPair struct {
	Key, Value string
}

// DrvFile is the parsed form of a Derive(...) s-expression. Field
// order mirrors the grammar's positional order, which both renderings
// preserve.
type DrvFile struct {
	Outputs   []DrvOutput
	InputDrvs []DrvInput
	InputSrcs []string
	Platform  string
	Builder   string
	Args      []string
	Env       []EnvPair
}

// Name returns the derivation name recorded in the env, the same place
// Nix itself recovers it from when a .drv is read back.
func (f *DrvFile) Name() (string, bool) {
	for _, kv := range f.Env {
		if kv.Key == "name" {
			return kv.Value, true
		}
	}
	return "", false
}

// drvParser consumes a .drv source string left to right. The format is
// machine-written, so errors carry no positions — a malformed .drv means
// the store entry is corrupt, not that a user made a typo.
type drvParser struct {
	rest string
}

func (p *drvParser) expect(lit string) error {
	if !strings.HasPrefix(p.rest, lit) {
		return fmt.Errorf("malformed .drv: expected %q at %q", lit, truncate(p.rest))
	}
	p.rest = p.rest[len(lit):]
	return nil
}

func (p *drvParser) skip(lit string) bool {
	if strings.HasPrefix(p.rest, lit) {
		p.rest = p.rest[len(lit):]
		return true
	}
	return false
}

func truncate(s string) string {
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}

// parseString reads one double-quoted string with the C-style escapes the
// grammar allows (\" \\ \n \r \t).
func (p *drvParser) parseString() (string, error) {
	if err := p.expect(`"`); err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 0; i < len(p.rest); i++ {
		c := p.rest[i]
		switch c {
		case '"':
			p.rest = p.rest[i+1:]
			return b.String(), nil
		case '\\':
			i++
			if i >= len(p.rest) {
				return "", fmt.Errorf("malformed .drv: unterminated string")
			}
			switch p.rest[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(p.rest[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", fmt.Errorf("malformed .drv: unterminated string")
}

// parseList drives item once per element of a bracketed list, handling
// the empty list and comma separation.
func (p *drvParser) parseList(item func() error) error {
	if err := p.expect("["); err != nil {
		return err
	}
	if p.skip("]") {
		return nil
	}
	for {
		if err := item(); err != nil {
			return err
		}
		if p.skip(",") {
			continue
		}
		return p.expect("]")
	}
}

func (p *drvParser) parseStringList() ([]string, error) {
	var out []string
	err := p.parseList(func() error {
		s, err := p.parseString()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// ParseDrvFile parses the Derive(...) s-expression of a .drv store file
//: outputs, input derivations, input sources, platform, builder,
// args, and env, positionally.
func ParseDrvFile(src string) (*DrvFile, error) {
	p := &drvParser{rest: strings.TrimSpace(src)}
	f := &DrvFile{}

	if err := p.expect("Derive("); err != nil {
		return nil, err
	}

	err := p.parseList(func() error {
		if err := p.expect("("); err != nil {
			return err
		}
		var out DrvOutput
		var err error
		for i, dst := range []*string{&out.Name, &out.Path, &out.HashAlgo, &out.HashHex} {
			if i > 0 {
				if err = p.expect(","); err != nil {
					return err
				}
			}
			if *dst, err = p.parseString(); err != nil {
				return err
			}
		}
		if err := p.expect(")"); err != nil {
			return err
		}
		if _, err := out.Kind(); err != nil {
			return err
		}
		f.Outputs = append(f.Outputs, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}

	err = p.parseList(func() error {
		if err := p.expect("("); err != nil {
			return err
		}
		var in DrvInput
		var err error
		if in.Path, err = p.parseString(); err != nil {
			return err
		}
		if err = p.expect(","); err != nil {
			return err
		}
		if in.Outputs, err = p.parseStringList(); err != nil {
			return err
		}
		if err := p.expect(")"); err != nil {
			return err
		}
		f.InputDrvs = append(f.InputDrvs, in)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}

	if f.InputSrcs, err = p.parseStringList(); err != nil {
		return nil, err
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	if f.Platform, err = p.parseString(); err != nil {
		return nil, err
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	if f.Builder, err = p.parseString(); err != nil {
		return nil, err
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	if f.Args, err = p.parseStringList(); err != nil {
		return nil, err
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}

	err = p.parseList(func() error {
		if err := p.expect("("); err != nil {
			return err
		}
		var kv EnvPair
		var err error
		if kv.Key, err = p.parseString(); err != nil {
			return err
		}
		if err = p.expect(","); err != nil {
			return err
		}
		if kv.Value, err = p.parseString(); err != nil {
			return err
		}
		if err := p.expect(")"); err != nil {
			return err
		}
		f.Env = append(f.Env, kv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.rest) != "" {
		return nil, fmt.Errorf("malformed .drv: trailing data %q", truncate(p.rest))
	}
	return f, nil
}

// String renders f back as the Derive(...) s-expression it was parsed
// from. Parsing then printing is byte-preserving for well-formed inputs,
// which is what makes the format usable as a stable on-disk identity.
func (f *DrvFile) String() string {
	var b strings.Builder
	b.WriteString("Derive([")
	for i, o := range f.Outputs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "(%s,%s,%s,%s)",
			quoteDrv(o.Name), quoteDrv(o.Path), quoteDrv(o.HashAlgo), quoteDrv(o.HashHex))
	}
	b.WriteString("],[")
	for i, in := range f.InputDrvs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "(%s,%s)", quoteDrv(in.Path), quoteDrvList(in.Outputs))
	}
	b.WriteString("],")
	b.WriteString(quoteDrvList(f.InputSrcs))
	b.WriteByte(',')
	b.WriteString(quoteDrv(f.Platform))
	b.WriteByte(',')
	b.WriteString(quoteDrv(f.Builder))
	b.WriteByte(',')
	b.WriteString(quoteDrvList(f.Args))
	b.WriteString(",[")
	for i, kv := range f.Env {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "(%s,%s)", quoteDrv(kv.Key), quoteDrv(kv.Value))
	}
	b.WriteString("])")
	return b.String()
}

// JSON renders f as a JSON object whose key order follows the grammar's
// positional order, which is why this is hand-built rather than handed
// to encoding/json's alphabetically-sorting map marshaller.
func (f *DrvFile) JSON() string {
	var b strings.Builder
	b.WriteString(`{"outputs":{`)
	for i, o := range f.Outputs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:{", quoteJSON(o.Name))
		fmt.Fprintf(&b, `"path":%s`, quoteJSON(o.Path))
		if o.HashAlgo != "" {
			fmt.Fprintf(&b, `,"hashAlgo":%s,"hash":%s`, quoteJSON(o.HashAlgo), quoteJSON(o.HashHex))
		}
		b.WriteByte('}')
	}
	b.WriteString(`},"inputDrvs":{`)
	for i, in := range f.InputDrvs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%s", quoteJSON(in.Path), quoteJSONList(in.Outputs))
	}
	b.WriteString(`},"inputSrcs":`)
	b.WriteString(quoteJSONList(f.InputSrcs))
	fmt.Fprintf(&b, `,"system":%s`, quoteJSON(f.Platform))
	fmt.Fprintf(&b, `,"builder":%s`, quoteJSON(f.Builder))
	fmt.Fprintf(&b, `,"args":%s`, quoteJSONList(f.Args))
	b.WriteString(`,"env":{`)
	for i, kv := range f.Env {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%s", quoteJSON(kv.Key), quoteJSON(kv.Value))
	}
	b.WriteString("}}")
	return b.String()
}

func quoteDrv(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func quoteDrvList(items []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteDrv(s))
	}
	b.WriteByte(']')
	return b.String()
}

func quoteJSON(s string) string {
	// The .drv charset is ASCII-safe apart from the escapes below, so the
	// same escaping serves both renderings; JSON additionally has no \$.
	return quoteDrv(s)
}

func quoteJSONList(items []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteJSON(s))
	}
	b.WriteByte(']')
	return b.String()
}

// Derivation converts a parsed .drv into the evaluator's Derivation
// record, recovering the name from env and classifying each output.
func (f *DrvFile) Derivation() (*Derivation, error) {
	name, ok := f.Name()
	if !ok {
		return nil, fmt.Errorf("malformed .drv: env has no %q entry", "name")
	}
	outputs := make(map[string]*Output, len(f.Outputs))
	for _, o := range f.Outputs {
		kind, err := o.Kind()
		if err != nil {
			return nil, err
		}
		outputs[o.Name] = &Output{
			Kind:     kind,
			HashAlgo: o.HashAlgo,
			HashHex:  o.HashHex,
			Path:     o.Path,
		}
	}
	inputDrvs := make(map[string][]string, len(f.InputDrvs))
	for _, in := range f.InputDrvs {
		inputDrvs[in.Path] = in.Outputs
	}
	env := make(map[string]string, len(f.Env))
	for _, kv := range f.Env {
		env[kv.Key] = kv.Value
	}
	return &Derivation{
		Name:      name,
		System:    f.Platform,
		Builder:   f.Builder,
		Args:      f.Args,
		Env:       env,
		Outputs:   outputs,
		InputDrvs: inputDrvs,
		InputSrcs: f.InputSrcs,
	}, nil
}
