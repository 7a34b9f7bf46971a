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
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/internal/nixstrconv"
)

func registerStrings(b *adt.Bindings) {
	set1(b, "stringLength", biStringLength)
	set3(b, "substring", biSubstring)
	set2(b, "concatStringsSep", biConcatStringsSep)
	set3(b, "replaceStrings", biReplaceStrings)
	set2(b, "match", biMatch)
	set2(b, "split", biSplit)
	set2(b, "splitString", biSplitString)
	set1(b, "splitVersion", biSplitVersion)
	set2(b, "compareVersions", biCompareVersions)
	set1(b, "baseNameOf", biBaseNameOf)
	set1(b, "dirOf", biDirOf)
}

func biStringLength(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	s, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	return adt.Int(nixstrconv.RuneLen(s)), nil
}

func biSubstring(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	start, bot := asInt(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	length, bot := asInt(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	s, bot := asString(ctx, args[2], bt)
	if bot != nil {
		return nil, bot
	}
	return adt.String(nixstrconv.Substring(s, int(start), int(length))), nil
}

func biConcatStringsSep(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	sep, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	list, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	parts := make([]string, len(list.Elems))
	for i, e := range list.Elems {
		v, bot := e.Force(ctx, bt)
		if bot != nil {
			return nil, bot
		}
		s, ok := adt.CastToString(v)
		if !ok {
			return nil, typeErr(bt, "a stringable value", v)
		}
		parts[i] = s
	}
	return adt.String(strings.Join(parts, sep)), nil
}

func biReplaceStrings(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	from, bot := asList(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	to, bot := asList(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	if len(from.Elems) != len(to.Elems) {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "replaceStrings: 'from' and 'to' lists must have the same length")
	}
	froms := make([]string, len(from.Elems))
	tos := make([]string, len(to.Elems))
	for i := range from.Elems {
		s, bot := asString(ctx, from.Elems[i], bt)
		if bot != nil {
			return nil, bot
		}
		froms[i] = s
		s, bot = asString(ctx, to.Elems[i], bt)
		if bot != nil {
			return nil, bot
		}
		tos[i] = s
	}
	s, bot := asString(ctx, args[2], bt)
	if bot != nil {
		return nil, bot
	}
	var out strings.Builder
	for i := 0; i < len(s); {
		matched := false
		for j, f := range froms {
			if f == "" {
				continue
			}
			if strings.HasPrefix(s[i:], f) {
				out.WriteString(tos[j])
				i += len(f)
				matched = true
				break
			}
		}
		if !matched {
			out.WriteByte(s[i])
			i++
		}
	}
	return adt.String(out.String()), nil
}

func biMatch(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	pattern, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	s, bot := asString(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "invalid regular expression %q: %v", pattern, err)
	}
	idx := re.FindStringSubmatchIndex(s)
	if idx == nil {
		return adt.Null{}, nil
	}
	groupCount := len(idx)/2 - 1
	out := make([]*adt.Thunk, groupCount)
	for g := 0; g < groupCount; g++ {
		start, end := idx[2+2*g], idx[3+2*g]
		if start < 0 {
			out[g] = adt.NewConcreteThunk(adt.Null{})
			continue
		}
		out[g] = adt.NewConcreteThunk(adt.String(s[start:end]))
	}
	return &adt.List{Elems: out}, nil
}

func biSplit(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	pattern, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	s, bot := asString(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "invalid regular expression %q: %v", pattern, err)
	}
	matches := re.FindAllStringSubmatchIndex(s, -1)
	var out []*adt.Thunk
	last := 0
	for _, m := range matches {
		out = append(out, adt.NewConcreteThunk(adt.String(s[last:m[0]])))
		groupCount := len(m)/2 - 1
		groups := make([]*adt.Thunk, groupCount)
		for g := 0; g < groupCount; g++ {
			start, end := m[2+2*g], m[3+2*g]
			if start < 0 {
				groups[g] = adt.NewConcreteThunk(adt.Null{})
				continue
			}
			groups[g] = adt.NewConcreteThunk(adt.String(s[start:end]))
		}
		out = append(out, adt.NewConcreteThunk(&adt.List{Elems: groups}))
		last = m[1]
	}
	out = append(out, adt.NewConcreteThunk(adt.String(s[last:])))
	return &adt.List{Elems: out}, nil
}

func biSplitString(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	sep, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	s, bot := asString(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	var parts []string
	if sep == "" {
		parts = strings.Split(s, "")
	} else {
		parts = strings.Split(s, sep)
	}
	out := make([]*adt.Thunk, len(parts))
	for i, p := range parts {
		out[i] = adt.NewConcreteThunk(adt.String(p))
	}
	return &adt.List{Elems: out}, nil
}

func biSplitVersion(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	s, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	parts := versionComponents(s)
	out := make([]*adt.Thunk, len(parts))
	for i, p := range parts {
		out[i] = adt.NewConcreteThunk(adt.String(p))
	}
	return &adt.List{Elems: out}, nil
}

var versionSplitRe = regexp.MustCompile(`[.-]`)

func versionComponents(s string) []string {
	return versionSplitRe.Split(s, -1)
}

// biCompareVersions implements nix's dotted-version comparison: numeric
// components compare numerically, everything else lexically, and a
// missing trailing component sorts before a present one — e.g.
// "1.2.3" < "1.2.10" and "1.2" < "1.2.0".
func biCompareVersions(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	a, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	b, bot := asString(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	return adt.Int(compareVersionStrings(a, b)), nil
}

func compareVersionStrings(a, b string) int64 {
	pa := versionComponents(a)
	pb := versionComponents(b)
	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		var ca, cb string
		if i < len(pa) {
			ca = pa[i]
		}
		if i < len(pb) {
			cb = pb[i]
		}
		if c := compareVersionComponent(ca, cb); c != 0 {
			return int64(c)
		}
	}
	return 0
}

func compareVersionComponent(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func biBaseNameOf(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	s, bot := asPathLike(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	return adt.String(path.Base(s)), nil
}

func biDirOf(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	v, bot := force(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	switch x := v.(type) {
	case adt.Path:
		return adt.Path(path.Dir(string(x))), nil
	case adt.String:
		return adt.String(path.Dir(string(x))), nil
	default:
		return nil, typeErr(bt, "a path or string", v)
	}
}
