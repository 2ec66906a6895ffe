// Package locale converts between UTF-8 and the 8-bit code page the game
// client speaks on the wire, and validates player-supplied names.
package locale

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
)

var (
	encoder = korean.EUCKR.NewEncoder()
	decoder = korean.EUCKR.NewDecoder()
)

// ToWire encodes s into the client code page. Unmappable runes are replaced
// rather than failing the whole frame.
func ToWire(s string) []byte {
	b, err := encoding.ReplaceUnsupported(encoder).Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}

// FromWire decodes a wire string into UTF-8. Invalid sequences decode to
// the replacement character.
func FromWire(b []byte) string {
	s, err := decoder.Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func isHangul(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

func isLatinNamePart(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	}
	return false
}

// IsNameValid reports whether name is acceptable as a character or horse
// name. Hangul syllables count two bytes in the client code page, the
// Latin name characters one. A name entirely in Hangul needs two
// codepoints, anything else at least three, and the encoded form must fit
// maxBytes.
func IsNameValid(name string, maxBytes int) bool {
	if name == "" {
		return false
	}

	var hangul, latin int
	for _, r := range name {
		switch {
		case isHangul(r):
			hangul++
		case isLatinNamePart(r):
			latin++
		default:
			return false
		}
	}

	byteCount := hangul*2 + latin
	if byteCount > maxBytes {
		return false
	}

	if latin == 0 && hangul > 0 {
		return hangul >= 2
	}
	return hangul+latin >= 3
}
