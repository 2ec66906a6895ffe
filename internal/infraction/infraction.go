// Package infraction models operator sanctions against an account.
package infraction

import "time"

// Kind classifies a sanction.
type Kind uint8

const (
	KindWarning Kind = iota
	KindChatBan
	KindJoinBan
)

// Infraction is one sanction on record. A zero ExpiresAt never expires.
type Infraction struct {
	Kind      Kind
	Reason    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Active reports whether the sanction still applies at now.
func (i Infraction) Active(now time.Time) bool {
	return i.ExpiresAt.IsZero() || now.Before(i.ExpiresAt)
}

// PreventServerJoining reports whether any active sanction bars the
// account from logging in.
func PreventServerJoining(list []Infraction, now time.Time) bool {
	for _, i := range list {
		if i.Kind == KindJoinBan && i.Active(now) {
			return true
		}
	}
	return false
}

// PreventChatting reports whether any active sanction mutes the account.
func PreventChatting(list []Infraction, now time.Time) bool {
	for _, i := range list {
		if (i.Kind == KindChatBan || i.Kind == KindJoinBan) && i.Active(now) {
			return true
		}
	}
	return false
}
