// Package chat sanitizes player chat before it is echoed to a room.
package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageLen bounds a single chat message in bytes after encoding.
const MaxMessageLen = 255

// Sanitize normalizes a raw chat message. It strips control characters,
// trims surrounding whitespace and truncates to MaxMessageLen bytes on a
// rune boundary. ok is false when nothing sayable remains.
func Sanitize(message string) (clean string, ok bool) {
	var b strings.Builder
	for _, r := range message {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	clean = strings.TrimSpace(b.String())
	if clean == "" {
		return "", false
	}
	for len(clean) > MaxMessageLen {
		_, size := utf8.DecodeLastRuneInString(clean)
		clean = clean[:len(clean)-size]
	}
	clean = strings.TrimRight(clean, " ")
	if clean == "" {
		return "", false
	}
	return clean, true
}
