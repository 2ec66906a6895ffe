package infraction

import (
	"testing"
	"time"
)

func TestPreventServerJoining(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		list []Infraction
		want bool
	}{
		{"empty", nil, false},
		{"warning only", []Infraction{{Kind: KindWarning}}, false},
		{"chat ban only", []Infraction{{Kind: KindChatBan}}, false},
		{"permanent join ban", []Infraction{{Kind: KindJoinBan}}, true},
		{"expired join ban", []Infraction{{Kind: KindJoinBan, ExpiresAt: now.Add(-time.Hour)}}, false},
		{"running join ban", []Infraction{{Kind: KindJoinBan, ExpiresAt: now.Add(time.Hour)}}, true},
	}
	for _, tc := range cases {
		if got := PreventServerJoining(tc.list, now); got != tc.want {
			t.Errorf("%s: PreventServerJoining = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPreventChatting(t *testing.T) {
	now := time.Now()
	if !PreventChatting([]Infraction{{Kind: KindChatBan}}, now) {
		t.Fatal("chat ban must mute")
	}
	if !PreventChatting([]Infraction{{Kind: KindJoinBan}}, now) {
		t.Fatal("join ban implies mute")
	}
	if PreventChatting([]Infraction{{Kind: KindWarning}}, now) {
		t.Fatal("warning must not mute")
	}
}
