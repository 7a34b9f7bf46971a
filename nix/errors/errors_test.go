package errors_test

import (
	"testing"

	"github.com/nix-compiler/nix-compiler/nix/errors"
)

func TestMessageDeferredFormatting(t *testing.T) {
	m := errors.NewMessagef("variable %q not found", "x")
	if got, want := m.Error(), `variable "x" not found`; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestNew(t *testing.T) {
	err := errors.New("disk full")
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("New: got %v", err)
	}
}
