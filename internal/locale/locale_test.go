package locale

import (
	"bytes"
	"testing"
)

func TestWireRoundTrip(t *testing.T) {
	cases := []string{"alice", "말타기", "Rider_01", "바람의질주"}
	for _, c := range cases {
		got := FromWire(ToWire(c))
		if got != c {
			t.Fatalf("round trip %q: got %q", c, got)
		}
	}
}

func TestToWireHangulWidth(t *testing.T) {
	// Each Hangul syllable is two bytes in EUC-KR.
	b := ToWire("가나")
	if len(b) != 4 {
		t.Fatalf("expected 4 bytes, got %d (% x)", len(b), b)
	}
	if bytes.ContainsRune(b, 0) {
		t.Fatalf("wire form must not contain NUL: % x", b)
	}
}

func TestIsNameValid(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"", false},
		{"ab", false},                 // latin needs three
		{"abc", true},
		{"a.b", true},
		{"Rider_01", true},
		{"가", false},                  // pure hangul needs two
		{"가나", true},
		{"가나다라마가나다", true},           // 16 bytes, at the limit
		{"가나다라마가나다가", false},         // 18 bytes
		{"가a", false},                 // mixed counts as latin rules, needs three
		{"가ab", true},
		{"bad name", false},           // space
		{"semi;colon", false},
		{"abcdefghijklmnopq", false},  // 17 bytes
		{"abcdefghijklmnop", true},    // 16 bytes
	}
	for _, c := range cases {
		if got := IsNameValid(c.name, 16); got != c.valid {
			t.Errorf("IsNameValid(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
