// Package otp hands one-time passwords between endpoints. The lobby grants
// a code against an identity key and the target endpoint authorizes it on
// first contact; a code never survives its first Authorize call.
package otp

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
)

// Registry maps identity keys to single-use codes.
type Registry struct {
	mu    sync.Mutex
	codes map[uint32]uint32
}

func NewRegistry() *Registry {
	return &Registry{codes: make(map[uint32]uint32)}
}

// Grant issues a fresh code for key. A second grant for the same key
// replaces the earlier code, so only the latest handoff is honored.
func (r *Registry) Grant(key uint32) uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("otp: crypto source unavailable")
	}
	code := binary.LittleEndian.Uint32(buf[:])
	if code == 0 {
		code = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[key] = code
	return code
}

// Authorize consumes the code for key. It reports whether code matched;
// a match removes the entry so replays fail.
func (r *Registry) Authorize(key, code uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	granted, ok := r.codes[key]
	if !ok || granted != code {
		return false
	}
	delete(r.codes, key)
	return true
}

// Revoke drops any pending code for key.
func (r *Registry) Revoke(key uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, key)
}

// IdentityHash spreads a record uid into an identity key.
func IdentityHash(uid uint32) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for i := 0; i < 4; i++ {
		h ^= uid >> (8 * i) & 0xFF
		h *= prime
	}
	return h
}

// Combine folds an extra value into an identity key, tying a code to one
// room in addition to one character.
func Combine(key, value uint32) uint32 {
	return key ^ (IdentityHash(value) + 0x9E3779B9 + key<<6 + key>>2)
}
