package protocol

import "time"

// Game mode of a room and its races.
type GameMode uint8

const (
	GameModeSpeed GameMode = 1 + iota
	GameModeMagic
	GameModeTutorial
	GameModeGuild
)

// Team layout of a room.
type TeamMode uint8

const (
	TeamModeSolo TeamMode = iota
	TeamModeTeam
)

// Team a racer rides for. Solo outside of team rooms.
type Team uint8

const (
	TeamSolo Team = iota
	TeamRed
	TeamBlue
)

// Character role carried in the login payload.
type Role uint32

const (
	RoleUser Role = iota
	RolePowerUser
	RoleGameMaster
)

// Guild role of a member.
type GuildRole uint8

const (
	GuildRoleMember GuildRole = iota
	GuildRoleOfficer
	GuildRoleOwner
)

// winFileTimeEpochDelta is the count of 100ns intervals between the
// Windows epoch (1601-01-01) and the Unix epoch.
const winFileTimeEpochDelta = 116444736000000000

// WinFileTime converts t to the Windows FILETIME the client expects for
// absolute timestamps.
func WinFileTime(t time.Time) uint64 {
	return uint64(t.UnixNano()/100) + winFileTimeEpochDelta
}

// ClockTicks converts a duration to the 100ns units used by the race
// clock fields.
func ClockTicks(d time.Duration) uint64 {
	return uint64(d.Nanoseconds() / 100)
}

// Vec3 is a world position.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Encode(w *Writer) {
	w.Float32(v.X)
	w.Float32(v.Y)
	w.Float32(v.Z)
}

func (v *Vec3) Decode(r *Reader) {
	v.X = r.Float32()
	v.Y = r.Float32()
	v.Z = r.Float32()
}

// Item is an inventory or equipment entry.
type Item struct {
	UID   uint32
	TID   uint32
	Val   uint32
	Count uint32
}

func (i Item) Encode(w *Writer) {
	w.Uint32(i.UID)
	w.Uint32(i.TID)
	w.Uint32(i.Val)
	w.Uint32(i.Count)
}

func (i *Item) Decode(r *Reader) {
	i.UID = r.Uint32()
	i.TID = r.Uint32()
	i.Val = r.Uint32()
	i.Count = r.Uint32()
}

func encodeItems(w *Writer, items []Item) {
	w.Uint8(uint8(len(items)))
	for _, it := range items {
		it.Encode(w)
	}
}

func decodeItems(r *Reader) []Item {
	n := int(r.Uint8())
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		var it Item
		it.Decode(r)
		items = append(items, it)
	}
	return items
}

// CharacterParts selects the avatar model.
type CharacterParts struct {
	ModelID uint8
	MouthID uint8
	FaceID  uint8
	Extra   uint8
}

func (p CharacterParts) Encode(w *Writer) {
	w.Uint8(p.ModelID)
	w.Uint8(p.MouthID)
	w.Uint8(p.FaceID)
	w.Uint8(p.Extra)
}

func (p *CharacterParts) Decode(r *Reader) {
	p.ModelID = r.Uint8()
	p.MouthID = r.Uint8()
	p.FaceID = r.Uint8()
	p.Extra = r.Uint8()
}

// CharacterAppearance carries the avatar body sliders.
type CharacterAppearance struct {
	HeadSize    uint16
	Height      uint16
	ThighVolume uint16
	LegVolume   uint16
	Extra       uint16
}

func (a CharacterAppearance) Encode(w *Writer) {
	w.Uint16(a.HeadSize)
	w.Uint16(a.Height)
	w.Uint16(a.ThighVolume)
	w.Uint16(a.LegVolume)
	w.Uint16(a.Extra)
}

func (a *CharacterAppearance) Decode(r *Reader) {
	a.HeadSize = r.Uint16()
	a.Height = r.Uint16()
	a.ThighVolume = r.Uint16()
	a.LegVolume = r.Uint16()
	a.Extra = r.Uint16()
}

// Character is the avatar block reused by several payloads.
type Character struct {
	Parts      CharacterParts
	Appearance CharacterAppearance
}

func (c Character) Encode(w *Writer) {
	c.Parts.Encode(w)
	c.Appearance.Encode(w)
}

func (c *Character) Decode(r *Reader) {
	c.Parts.Decode(r)
	c.Appearance.Decode(r)
}

// HorseParts selects the mount model.
type HorseParts struct {
	SkinID uint8
	ManeID uint8
	TailID uint8
	FaceID uint8
}

func (p HorseParts) Encode(w *Writer) {
	w.Uint8(p.SkinID)
	w.Uint8(p.ManeID)
	w.Uint8(p.TailID)
	w.Uint8(p.FaceID)
}

func (p *HorseParts) Decode(r *Reader) {
	p.SkinID = r.Uint8()
	p.ManeID = r.Uint8()
	p.TailID = r.Uint8()
	p.FaceID = r.Uint8()
}

// HorseAppearance carries the mount body sliders.
type HorseAppearance struct {
	Scale      uint8
	LegLength  uint8
	LegVolume  uint8
	BodyLength uint8
	BodyVolume uint8
}

func (a HorseAppearance) Encode(w *Writer) {
	w.Uint8(a.Scale)
	w.Uint8(a.LegLength)
	w.Uint8(a.LegVolume)
	w.Uint8(a.BodyLength)
	w.Uint8(a.BodyVolume)
}

func (a *HorseAppearance) Decode(r *Reader) {
	a.Scale = r.Uint8()
	a.LegLength = r.Uint8()
	a.LegVolume = r.Uint8()
	a.BodyLength = r.Uint8()
	a.BodyVolume = r.Uint8()
}

// HorseStats are the mount's rated attributes.
type HorseStats struct {
	Agility  uint32
	Control  uint32
	Speed    uint32
	Strength uint32
	Spirit   uint32
}

func (s HorseStats) Encode(w *Writer) {
	w.Uint32(s.Agility)
	w.Uint32(s.Control)
	w.Uint32(s.Speed)
	w.Uint32(s.Strength)
	w.Uint32(s.Spirit)
}

func (s *HorseStats) Decode(r *Reader) {
	s.Agility = r.Uint32()
	s.Control = r.Uint32()
	s.Speed = r.Uint32()
	s.Strength = r.Uint32()
	s.Spirit = r.Uint32()
}

// HorseMastery are the lifetime action counters shown on the mount sheet.
type HorseMastery struct {
	SpurCount    uint32
	JumpCount    uint32
	SlidingCount uint32
	GlidingCount uint32
}

func (m HorseMastery) Encode(w *Writer) {
	w.Uint32(m.SpurCount)
	w.Uint32(m.JumpCount)
	w.Uint32(m.SlidingCount)
	w.Uint32(m.GlidingCount)
}

func (m *HorseMastery) Decode(r *Reader) {
	m.SpurCount = r.Uint32()
	m.JumpCount = r.Uint32()
	m.SlidingCount = r.Uint32()
	m.GlidingCount = r.Uint32()
}

// Horse is the full mount block.
type Horse struct {
	UID          uint32
	TID          uint32
	Name         string
	Parts        HorseParts
	Appearance   HorseAppearance
	Stats        HorseStats
	Rating       uint32
	Class        uint8
	Grade        uint8
	GrowthPoints uint16
	Stamina      uint16
	Mastery      HorseMastery
}

func (h Horse) Encode(w *Writer) {
	w.Uint32(h.UID)
	w.Uint32(h.TID)
	w.String(h.Name)
	h.Parts.Encode(w)
	h.Appearance.Encode(w)
	h.Stats.Encode(w)
	w.Uint32(h.Rating)
	w.Uint8(h.Class)
	w.Uint8(h.Grade)
	w.Uint16(h.GrowthPoints)
	w.Uint16(h.Stamina)
	h.Mastery.Encode(w)
}

func (h *Horse) Decode(r *Reader) {
	h.UID = r.Uint32()
	h.TID = r.Uint32()
	h.Name = r.String()
	h.Parts.Decode(r)
	h.Appearance.Decode(r)
	h.Stats.Decode(r)
	h.Rating = r.Uint32()
	h.Class = r.Uint8()
	h.Grade = r.Uint8()
	h.GrowthPoints = r.Uint16()
	h.Stamina = r.Uint16()
	h.Mastery.Decode(r)
}

// Guild is the guild block in the login payload and race roster.
type Guild struct {
	UID  uint32
	Name string
	Role GuildRole
}

func (g Guild) Encode(w *Writer) {
	w.Uint32(g.UID)
	w.String(g.Name)
	w.Uint8(uint8(g.Role))
}

func (g *Guild) Decode(r *Reader) {
	g.UID = r.Uint32()
	g.Name = r.String()
	g.Role = GuildRole(r.Uint8())
}

// Pet is the companion block.
type Pet struct {
	UID  uint32
	TID  uint32
	Name string
}

func (p Pet) Encode(w *Writer) {
	w.Uint32(p.UID)
	w.Uint32(p.TID)
	w.String(p.Name)
}

func (p *Pet) Decode(r *Reader) {
	p.UID = r.Uint32()
	p.TID = r.Uint32()
	p.Name = r.String()
}

// Settings option blocks present in an input settings payload.
const (
	SettingsHasKeyboard uint32 = 1 << iota
	SettingsHasGamepad
	SettingsHasMacros
)

// KeyBinding maps an input slot to primary and secondary keys.
type KeyBinding struct {
	Index        uint16
	PrimaryKey   uint16
	SecondaryKey uint16
}

func (k KeyBinding) Encode(w *Writer) {
	w.Uint16(k.Index)
	w.Uint16(k.PrimaryKey)
	w.Uint16(k.SecondaryKey)
}

func (k *KeyBinding) Decode(r *Reader) {
	k.Index = r.Uint16()
	k.PrimaryKey = r.Uint16()
	k.SecondaryKey = r.Uint16()
}

// Settings carries the player's input configuration. Only the blocks
// flagged in Bitfield are present on the wire.
type Settings struct {
	Bitfield uint32
	Keyboard []KeyBinding
	Gamepad  []KeyBinding
	Macros   []string
}

func (s Settings) Encode(w *Writer) {
	w.Uint32(s.Bitfield)
	if s.Bitfield&SettingsHasKeyboard != 0 {
		w.Uint8(uint8(len(s.Keyboard)))
		for _, b := range s.Keyboard {
			b.Encode(w)
		}
	}
	if s.Bitfield&SettingsHasGamepad != 0 {
		w.Uint8(uint8(len(s.Gamepad)))
		for _, b := range s.Gamepad {
			b.Encode(w)
		}
	}
	if s.Bitfield&SettingsHasMacros != 0 {
		w.Uint8(uint8(len(s.Macros)))
		for _, m := range s.Macros {
			w.String(m)
		}
	}
}

func (s *Settings) Decode(r *Reader) {
	s.Bitfield = r.Uint32()
	if s.Bitfield&SettingsHasKeyboard != 0 {
		n := int(r.Uint8())
		s.Keyboard = make([]KeyBinding, n)
		for i := range s.Keyboard {
			s.Keyboard[i].Decode(r)
		}
	}
	if s.Bitfield&SettingsHasGamepad != 0 {
		n := int(r.Uint8())
		s.Gamepad = make([]KeyBinding, n)
		for i := range s.Gamepad {
			s.Gamepad[i].Decode(r)
		}
	}
	if s.Bitfield&SettingsHasMacros != 0 {
		n := int(r.Uint8())
		s.Macros = make([]string, n)
		for i := range s.Macros {
			s.Macros[i] = r.String()
		}
	}
}

// Quest is the generic quest/achievement progress entry.
type Quest struct {
	TID      uint32
	State    uint8
	Progress uint32
}

func (q Quest) Encode(w *Writer) {
	w.Uint32(q.TID)
	w.Uint8(q.State)
	w.Uint32(q.Progress)
}

func (q *Quest) Decode(r *Reader) {
	q.TID = r.Uint32()
	q.State = r.Uint8()
	q.Progress = r.Uint32()
}

func encodeQuests(w *Writer, quests []Quest) {
	w.Uint16(uint16(len(quests)))
	for _, q := range quests {
		q.Encode(w)
	}
}

// SkillSlotPair is one configured skill card set for a game mode.
type SkillSlotPair struct {
	SetID uint8
	Slot1 uint32
	Slot2 uint32
}

func (s SkillSlotPair) Encode(w *Writer) {
	w.Uint8(s.SetID)
	w.Uint32(s.Slot1)
	w.Uint32(s.Slot2)
}

func (s *SkillSlotPair) Decode(r *Reader) {
	s.SetID = r.Uint8()
	s.Slot1 = r.Uint32()
	s.Slot2 = r.Uint32()
}

/// ModeSkills is the per-mode skill preset block: which set is active and
// the configured sets.
type ModeSkills struct {
	ActiveSetID uint8
	Sets        []SkillSlotPair
}

func (m ModeSkills) Encode(w *Writer) {
	w.Uint8(m.ActiveSetID)
	w.Uint8(uint8(len(m.Sets)))
	for _, s := range m.Sets {
		s.Encode(w)
	}
}

func (m *ModeSkills) Decode(r *Reader) {
	m.ActiveSetID = r.Uint8()
	n := int(r.Uint8())
	m.Sets = make([]SkillSlotPair, n)
	for i := range m.Sets {
		m.Sets[i].Decode(r)
	}
}
