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

// Package cmd wires the evaluator core into a small cobra-based CLI:
// SilenceErrors/SilenceUsage plus a Main wrapper that handles process
// exit codes itself, so cobra never prints a second copy of the error.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nix-compiler/nix-compiler/internal/core/adt"
	"github.com/nix-compiler/nix-compiler/internal/core/builtin"
	"github.com/nix-compiler/nix-compiler/internal/core/printer"
	"github.com/nix-compiler/nix-compiler/internal/core/runtime"
	"github.com/nix-compiler/nix-compiler/internal/nixdebug"
	"github.com/nix-compiler/nix-compiler/nix/errors"
	"github.com/nix-compiler/nix-compiler/nix/parser"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

var exprFlag string

// New builds the root command. It is separated from Main so that tests
// can construct and run a command without touching os.Exit.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:   "nix-compiler [path]",
		Short: "Evaluate a Nix expression file to its final value",
		Long: `nix-compiler evaluates the Nix expression rooted at path (a
single file, a directory containing default.nix, or a flake directory
containing flake.nix) and prints the resulting value twice: once in an
expanded, indented form and once minimized to a single line.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runEval,
	}
	root.PersistentFlags().StringVarP(&exprFlag, "eval", "e", "", "evaluate expr directly instead of reading a file")
	return root
}

// Main runs the CLI and returns the process exit code: 0 on success,
// 1 on any evaluation or I/O error. Diagnostics print to stderr,
// gated by NIX_BACKTRACE (internal/nixdebug).
func Main() int {
	root := New()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runEval(cmd *cobra.Command, args []string) error {
	rt, ctx := runtime.New(nixdebug.Mode())

	th, bot := resolveEntry(rt, ctx, args)
	if bot != nil {
		return renderError(bot)
	}

	expanded, bot := printer.Sprint(ctx, th, printer.Expanded, nil)
	if bot != nil {
		return renderError(bot)
	}
	minimized, bot := printer.Sprint(ctx, th, printer.Minimized, nil)
	if bot != nil {
		return renderError(bot)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, expanded)
	fmt.Fprintln(out, minimized)
	return nil
}

// resolveEntry dispatches between -e/--eval (parsed as a standalone
// expression rooted at the working directory, for resolving any relative
// path literals it contains) and a file/directory argument resolved
// through the runtime's entry-point logic (plain file, default.nix, or
// flake.nix).
func resolveEntry(rt *runtime.Runtime, ctx *adt.OpContext, args []string) (*adt.Thunk, *adt.Bottom) {
	if exprFlag != "" {
		return parseExprEntry(ctx, exprFlag)
	}
	path := "."
	if len(args) == 1 {
		path = args[0]
	}
	return rt.LoadEntry(ctx, path, nil)
}

func parseExprEntry(ctx *adt.OpContext, expr string) (*adt.Thunk, *adt.Bottom) {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	root, err := parser.Parse("<expr>", []byte(expr))
	if err != nil {
		return nil, adt.NewBottom(adt.CodeParse, token.NoPos, "%v", err)
	}
	file := adt.NewFile(wd+"/<expr>", expr, root)
	env := adt.RootEnvironment(file, builtin.Globals(ctx.Builtins))
	return adt.NewPendingThunk(env, root, root.Pos()), nil
}

func renderError(bot *adt.Bottom) error {
	var sb strings.Builder
	bot.Diag.Render(&sb, nixdebug.Mode())
	return errors.New(sb.String())
}
