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

package eval

import (
	"path/filepath"
	"strings"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/nix/ast"
)

// renderParts evaluates and concatenates the fragments of a (possibly
// interpolated) string or path literal, coercing each embedded expression
// via the permissive CastToString rule.
func renderParts(ctx *adt.OpContext, env *adt.Environment, parts []ast.StringPart, bt *adt.Backtrace) (string, *adt.Bottom) {
	var b strings.Builder
	for _, p := range parts {
		if p.Expr == nil {
			b.WriteString(p.Literal)
			continue
		}
		v, bot := EvalExpr(ctx, env, p.Expr, bt)
		if bot != nil {
			return "", bot
		}
		s, ok := adt.CastToString(v)
		if !ok {
			return "", adt.NewBottom(adt.CodeTypeError, p.Expr.Pos(), "cannot interpolate a %s into a string", v.Kind())
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func evalString(ctx *adt.OpContext, env *adt.Environment, x *ast.String, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	s, bot := renderParts(ctx, env, x.Parts, bt)
	if bot != nil {
		return nil, bot
	}
	return adt.String(s), nil
}

func evalPath(ctx *adt.OpContext, env *adt.Environment, x *ast.Path, bt *adt.Backtrace) (adt.Value, *adt.Bottom) {
	s, bot := renderParts(ctx, env, x.Parts, bt)
	if bot != nil {
		return nil, bot
	}
	switch x.Kind {
	case ast.PathRelative:
		return adt.Path(filepath.Clean(filepath.Join(env.File.Dir(), s))), nil
	case ast.PathParent:
		return adt.Path(filepath.Clean(filepath.Join(filepath.Dir(env.File.Dir()), s))), nil
	default:
		// Absolute paths still normalize (a doubled `/` at an
		// interpolation boundary collapses); search-path literals
		// (`<nixpkgs>`) pass through untouched.
		if strings.HasPrefix(s, "/") {
			return adt.Path(filepath.Clean(s)), nil
		}
		return adt.Path(s), nil
	}
}
