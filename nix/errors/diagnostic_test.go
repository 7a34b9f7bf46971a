package errors_test

import (
	"strings"
	"testing"

	"github.com/nix-compiler/nix-compiler/nix/errors"
	"github.com/nix-compiler/nix-compiler/nix/token"
)

func TestParseBacktraceMode(t *testing.T) {
	cases := map[string]errors.BacktraceMode{
		"":       errors.BacktraceDisabled,
		"full":   errors.BacktraceFull,
		"fancy":  errors.BacktraceFull,
		"1":      errors.BacktraceCompact,
		"true":   errors.BacktraceCompact,
		"compact": errors.BacktraceCompact,
	}
	for env, want := range cases {
		if got := errors.ParseBacktraceMode(env); got != want {
			t.Errorf("ParseBacktraceMode(%q) = %v, want %v", env, got, want)
		}
	}
}

func TestDiagnosticInfiniteRecursionThreeLabels(t *testing.T) {
	f := token.NewFile("a.nix", 30)
	def, use, cur := f.Pos(0), f.Pos(10), f.Pos(20)

	d := errors.NewDiagnostic(errors.CodeInfiniteRecursion, cur, "infinite recursion encountered")
	d = d.WithLabel(errors.LabelHelp, "originally forced here", use)
	d = d.WithLabel(errors.LabelHelp, "defined here", def)

	if len(d.Labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(d.Labels))
	}
	if d.Position() != cur {
		t.Fatalf("Position() = %v, want the error-kind label %v", d.Position(), cur)
	}

	var b strings.Builder
	d.Render(&b, errors.BacktraceDisabled)
	out := b.String()
	if !strings.Contains(out, "infinite recursion detected") {
		t.Fatalf("render missing code: %q", out)
	}
}

func TestBacktraceDedup(t *testing.T) {
	f := token.NewFile("a.nix", 10)
	p := f.Pos(1)
	var bt *errors.Backtrace
	bt = bt.Push(errors.Frame{Span: p, Kind: "force"})
	bt = bt.Push(errors.Frame{Span: p, Kind: "force"})
	bt = bt.Push(errors.Frame{Span: f.Pos(2), Kind: "call"})

	if got := len(bt.Frames()); got != 3 {
		t.Fatalf("Frames() length = %d, want 3", got)
	}
	if got := len(bt.Dedup()); got != 2 {
		t.Fatalf("Dedup() length = %d, want 2", got)
	}
}
