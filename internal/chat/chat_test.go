package chat

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"hello", "hello", true},
		{"  spaced out  ", "spaced out", true},
		{"line\nbreaks\tgone", "linebreaksgone", true},
		{"\x00\x1b[31m", "[31m", true},
		{"", "", false},
		{"   ", "", false},
		{"\n\t", "", false},
		{"안녕하세요", "안녕하세요", true},
	}
	for _, tc := range cases {
		got, ok := Sanitize(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("Sanitize(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestSanitizeTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("가", 100) // 300 bytes
	got, ok := Sanitize(long)
	if !ok {
		t.Fatal("long message rejected")
	}
	if len(got) > MaxMessageLen {
		t.Fatalf("len = %d, over limit", len(got))
	}
	if len(got)%3 != 0 {
		t.Fatalf("truncation split a rune: %d bytes", len(got))
	}
}
