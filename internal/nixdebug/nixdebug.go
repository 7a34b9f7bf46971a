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

// Package nixdebug reads the single environment-variable surface the
// core exposes (NIX_BACKTRACE). This evaluator has exactly one such
// flag, so one small package stands in for a configuration framework.
package nixdebug

import (
	"os"
	"sync"

	"github.com/nix-compiler/nix-compiler/nix/errors"
)

// Flags holds the process-wide debug configuration, populated once by
// Init (or lazily by Mode, for callers that never invoke Init explicitly
// — e.g. package-level tests).
var Flags struct {
	Backtrace errors.BacktraceMode
}

var initOnce sync.Once

// Init reads NIX_BACKTRACE from the environment and populates Flags. It
// is idempotent; later calls are no-ops.
func Init() {
	initOnce.Do(func() {
		Flags.Backtrace = errors.ParseBacktraceMode(os.Getenv("NIX_BACKTRACE"))
	})
}

// Mode returns the current backtrace mode, initializing Flags from the
// environment on first use if Init was never called.
func Mode() errors.BacktraceMode {
	Init()
	return Flags.Backtrace
}
