package shingle

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"w", Word, false},
		{"c4", C4, false},
		{"c", Char, false},
		{"", "", true},
		{"c5", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtract_Words(t *testing.T) {
	got := Extract("the quick  brown\tthe\nfox", Word)
	want := []string{"the", "quick", "brown", "fox"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %v", len(got), len(want), got)
	}
	for _, w := range want {
		if _, ok := got[w]; !ok {
			t.Errorf("missing shingle %q", w)
		}
	}
}

func TestExtract_Chars(t *testing.T) {
	got := Extract("abcdef", C4)
	want := []string{"abcd", "bcde", "cdef"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %v", len(got), len(want), got)
	}
	for _, w := range want {
		if _, ok := got[w]; !ok {
			t.Errorf("missing shingle %q", w)
		}
	}
}

func TestExtract_CollapsesWhitespace(t *testing.T) {
	a := Extract("ab   cd", Char)
	b := Extract("ab cd", Char)
	if len(a) != len(b) {
		t.Fatalf("whitespace runs changed the shingle set: %v vs %v", a, b)
	}
	for s := range b {
		if _, ok := a[s]; !ok {
			t.Errorf("missing shingle %q", s)
		}
	}
}

func TestExtract_MultiByteRunes(t *testing.T) {
	got := Extract("héllo", C4)
	for _, w := range []string{"héll", "éllo"} {
		if _, ok := got[w]; !ok {
			t.Errorf("missing shingle %q in %v", w, got)
		}
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestExtract_ShortText(t *testing.T) {
	got := Extract("ab", C4)
	if _, ok := got["ab"]; !ok || len(got) != 1 {
		t.Errorf("short text should be one shingle, got %v", got)
	}
}

func TestExtract_Empty(t *testing.T) {
	for _, typ := range []Type{Word, C4, Char} {
		if got := Extract("  \n\t", typ); len(got) != 0 {
			t.Errorf("type %q: expected empty set, got %v", typ, got)
		}
	}
}
