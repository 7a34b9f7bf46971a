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
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"os"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/internal/nixstrconv"
)

func registerIO(b *adt.Bindings) {
	set1(b, "import", biImport)
	set1(b, "readFile", biReadFile)
	set1(b, "readFileType", biReadFileType)
	set1(b, "pathExists", biPathExists)
	set1(b, "getEnv", biGetEnv)
	set2(b, "hashFile", biHashFile)
	set2(b, "hashString", biHashString)
}

func biImport(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	v, bot := force(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	path, bot := importTarget(ctx, v, bt)
	if bot != nil {
		return nil, bot
	}
	if ctx.Import == nil {
		return nil, adt.NewBottom(adt.CodeUnimplemented, bt.Top(), "import is not available in this evaluation context")
	}
	th, bot := ctx.Import(ctx, path, bt)
	if bot != nil {
		return nil, bot
	}
	return th.Force(ctx, bt)
}

// importTarget resolves `import`'s argument: a Path or String is
// used directly; an AttrSet with `_type == "flake"` instead imports
// `outPath + "/default.nix"`.
func importTarget(ctx *adt.OpContext, v adt.Value, bt *adt.Backtrace) (string, *adt.Bottom) {
	switch x := v.(type) {
	case adt.Path:
		return string(x), nil
	case adt.String:
		return string(x), nil
	case *adt.AttrSet:
		typeTh, ok := x.Get(ctx, "_type")
		if !ok {
			return "", typeErr(bt, "a path, string, or flake set", v)
		}
		typeVal, bot := typeTh.Force(ctx, bt)
		if bot != nil {
			return "", bot
		}
		if s, ok := adt.AsString(typeVal); !ok || string(s) != "flake" {
			return "", typeErr(bt, "a path, string, or flake set", v)
		}
		outTh, ok := x.Get(ctx, "outPath")
		if !ok {
			return "", adt.NewBottom(adt.CodeAttributeMissing, bt.Top(), "flake set is missing %q", "outPath")
		}
		out, bot := asString(ctx, outTh, bt)
		if bot != nil {
			return "", bot
		}
		return out + "/default.nix", nil
	default:
		return "", typeErr(bt, "a path, string, or flake set", v)
	}
}

func biReadFile(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	p, bot := asPathLike(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, adt.NewBottom(adt.CodeIO, bt.Top(), "cannot read %q: %v", p, err)
	}
	return adt.String(nixstrconv.DecodeUTF8(data)), nil
}

func biReadFileType(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	p, bot := asPathLike(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	info, err := os.Lstat(p)
	if err != nil {
		return nil, adt.NewBottom(adt.CodeIO, bt.Top(), "cannot stat %q: %v", p, err)
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return adt.String("symlink"), nil
	case info.IsDir():
		return adt.String("directory"), nil
	case info.Mode().IsRegular():
		return adt.String("regular"), nil
	default:
		return adt.String("unknown"), nil
	}
}

func biPathExists(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	p, bot := asPathLike(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	_, err := os.Stat(p)
	return adt.Bool(err == nil), nil
}

func biGetEnv(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	name, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	return adt.String(os.Getenv(name)), nil
}

func newHasher(algo string) (hash.Hash, bool) {
	switch algo {
	case "md5":
		return md5.New(), true
	case "sha1":
		return sha1.New(), true
	case "sha256":
		return sha256.New(), true
	case "sha512":
		return sha512.New(), true
	default:
		return nil, false
	}
}

func biHashFile(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	algo, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	p, bot := asPathLike(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	h, ok := newHasher(algo)
	if !ok {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "unknown hash algorithm %q", algo)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, adt.NewBottom(adt.CodeIO, bt.Top(), "cannot read %q: %v", p, err)
	}
	h.Write(data)
	return adt.String(hex.EncodeToString(h.Sum(nil))), nil
}

func biHashString(ctx *adt.OpContext, args []*adt.Thunk, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	algo, bot := asString(ctx, args[0], bt)
	if bot != nil {
		return nil, bot
	}
	s, bot := asString(ctx, args[1], bt)
	if bot != nil {
		return nil, bot
	}
	h, ok := newHasher(algo)
	if !ok {
		return nil, adt.NewBottom(adt.CodeEval, bt.Top(), "unknown hash algorithm %q", algo)
	}
	h.Write([]byte(s))
	return adt.String(hex.EncodeToString(h.Sum(nil))), nil
}
