package token

import "testing"

func TestPositionString(t *testing.T) {
	cases := []struct {
		pos  Position
		want string
	}{
		{Position{}, "-"},
		{Position{Filename: "x.nix"}, "x.nix"},
		{Position{Filename: "x.nix", Line: 3, Column: 5}, "x.nix:3:5"},
		{Position{Line: 3, Column: 5}, "3:5"},
	}
	for _, c := range cases {
		if got := c.pos.String(); got != c.want {
			t.Errorf("Position{%+v}.String() = %q, want %q", c.pos, got, c.want)
		}
	}
}

func TestFilePosition(t *testing.T) {
	content := []byte("let\n  x = 1;\nin x\n")
	f := NewFile("a.nix", len(content))
	f.SetLinesForContent(content)

	p := f.Pos(6) // 'x' on line 2, after two spaces of indentation
	pos := f.Position(p)
	if pos.Line != 2 || pos.Column != 3 {
		t.Fatalf("Position = %+v, want line 2 column 3", pos)
	}
}

func TestPosCompare(t *testing.T) {
	f := NewFile("a.nix", 10)
	p1 := f.Pos(1)
	p2 := f.Pos(5)
	if p1.Compare(p2) >= 0 {
		t.Errorf("expected p1 < p2")
	}
	if NoPos.Compare(p1) <= 0 {
		t.Errorf("expected NoPos > p1")
	}
}
