// Package data owns the account records and the in-process record cache
// the directors read from. Records load asynchronously through the
// Director so endpoint ticks never block on storage.
package data

import (
	"sync"

	"gallop.gg/internal/protocol"
)

// User is one account. Users exist before their character does; a fresh
// account carries CharacterUID 0 until the nickname is created.
type User struct {
	Name         string `json:"name"`
	Token        string `json:"token"`
	CharacterUID uint32 `json:"character_uid"`
}

// Character is the playable avatar and everything hanging off it.
type Character struct {
	UID      uint32 `json:"uid"`
	UserName string `json:"user_name"`

	// Name is the nickname; empty until the player picks one.
	Name         string `json:"name"`
	Introduction string `json:"introduction"`
	Gender       uint8  `json:"gender"`
	Level        uint16 `json:"level"`
	Carrots      int32  `json:"carrots"`
	Role         uint8  `json:"role"`

	Parts      protocol.CharacterParts      `json:"parts"`
	Appearance protocol.CharacterAppearance `json:"appearance"`
	Settings   protocol.Settings            `json:"settings"`

	// SkillPresets holds the configured skill card sets per game mode.
	SkillPresets map[uint8]protocol.ModeSkills `json:"skill_presets,omitempty"`

	// SystemContent carries the client feature toggles exchanged with
	// UpdateSystemContent.
	SystemContent map[uint32]uint32 `json:"system_content,omitempty"`

	HorseUID uint32       `json:"horse_uid"`
	GuildUID uint32       `json:"guild_uid"`
	Pet      protocol.Pet `json:"pet"`

	RanchName   string `json:"ranch_name"`
	RanchLocked bool   `json:"ranch_locked"`

	HasPlayedBefore bool `json:"has_played_before"`
}

// Horse is a stored mount.
type Horse struct {
	UID      uint32 `json:"uid"`
	OwnerUID uint32 `json:"owner_uid"`

	protocol.Horse `json:"horse"`
}

// Guild is a stored guild. Membership hangs off the character record.
type Guild struct {
	UID  uint32 `json:"uid"`
	Name string `json:"name"`
}

// Record wraps a cached value behind a read-write lock. Directors hold
// records across ticks and mutate them in place; the store persists a
// copy taken under the read lock.
type Record[T any] struct {
	mu    sync.RWMutex
	value T
}

func NewRecord[T any](value T) *Record[T] {
	return &Record[T]{value: value}
}

// Immutable runs fn with read access. fn must not retain the pointer.
func (r *Record[T]) Immutable(fn func(*T)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(&r.value)
}

// Mutable runs fn with write access. fn must not retain the pointer.
func (r *Record[T]) Mutable(fn func(*T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.value)
}

// Value returns a copy of the current value.
func (r *Record[T]) Value() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}
