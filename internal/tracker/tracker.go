// Package tracker keeps the per-room race state: racer object ids, race
// status, star points and course items. A tracker belongs to one room and
// its callers serialize access through the race director.
package tracker

import (
	"math"
	"sort"

	"gallop.gg/internal/protocol"
)

// RacerStatus follows a racer through one race.
type RacerStatus uint8

const (
	StatusWaiting RacerStatus = iota
	StatusLoading
	StatusRacing
	StatusFinishing
	StatusDisconnected
)

// CourseTimeUnset marks a racer that never crossed the finish line. It
// sorts last in the scoreboard.
const CourseTimeUnset = math.MaxUint32

// Racer is one participant's race state.
type Racer struct {
	CharacterUID uint32
	OID          uint16
	Status       RacerStatus

	CourseTime uint32
	StarPoints uint32
	Combo      uint32
	MagicItem  uint32

	tracked map[uint16]struct{}
}

// HoldsMagicItem reports whether the racer carries an unspent magic item.
func (r *Racer) HoldsMagicItem() bool { return r.MagicItem != 0 }

// Item is one course item slot.
type Item struct {
	OID         uint16
	ItemType    uint32
	Position    protocol.Vec3
	Orientation [4]float32
	Available   bool
}

// Tracker assigns object ids and tracks racers and items for one room.
type Tracker struct {
	racers   map[uint32]*Racer
	byOID    map[uint16]*Racer
	items    map[uint16]*Item
	racerSeq uint16
	itemSeq  uint16
}

func New() *Tracker {
	return &Tracker{
		racers: make(map[uint32]*Racer),
		byOID:  make(map[uint16]*Racer),
		items:  make(map[uint16]*Item),
	}
}

// AddRacer registers a character and assigns the next object id. Racer
// oids start at 1 and are not reused while the tracker lives.
func (t *Tracker) AddRacer(characterUID uint32) *Racer {
	if r, ok := t.racers[characterUID]; ok {
		return r
	}
	t.racerSeq++
	r := &Racer{
		CharacterUID: characterUID,
		OID:          t.racerSeq,
		CourseTime:   CourseTimeUnset,
		tracked:      make(map[uint16]struct{}),
	}
	t.racers[characterUID] = r
	t.byOID[r.OID] = r
	return r
}

func (t *Tracker) Racer(characterUID uint32) (*Racer, bool) {
	r, ok := t.racers[characterUID]
	return r, ok
}

func (t *Tracker) RacerByOID(oid uint16) (*Racer, bool) {
	r, ok := t.byOID[oid]
	return r, ok
}

// Racers returns every racer ordered by object id.
func (t *Tracker) Racers() []*Racer {
	out := make([]*Racer, 0, len(t.racers))
	for _, r := range t.racers {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OID < out[j].OID })
	return out
}

// RemoveRacer drops the character. Its object id stays burned.
func (t *Tracker) RemoveRacer(characterUID uint32) {
	if r, ok := t.racers[characterUID]; ok {
		delete(t.byOID, r.OID)
		delete(t.racers, characterUID)
	}
}

// ResetRace rewinds every racer to the waiting state for the next race and
// drops the previous race's items. Object ids are preserved so clients
// keep their peer ids across races in the same room.
func (t *Tracker) ResetRace() {
	for _, r := range t.racers {
		if r.Status != StatusDisconnected {
			r.Status = StatusWaiting
		}
		r.CourseTime = CourseTimeUnset
		r.StarPoints = 0
		r.Combo = 0
		r.MagicItem = 0
		r.tracked = make(map[uint16]struct{})
	}
	t.items = make(map[uint16]*Item)
	t.itemSeq = 0
}

// SpawnItem creates a course item slot with the next item object id.
func (t *Tracker) SpawnItem(itemType uint32, position protocol.Vec3, orientation [4]float32) *Item {
	t.itemSeq++
	it := &Item{
		OID:         t.itemSeq,
		ItemType:    itemType,
		Position:    position,
		Orientation: orientation,
		Available:   true,
	}
	t.items[it.OID] = it
	return it
}

func (t *Tracker) Item(oid uint16) (*Item, bool) {
	it, ok := t.items[oid]
	return it, ok
}

// Items returns every item slot ordered by object id.
func (t *Tracker) Items() []*Item {
	out := make([]*Item, 0, len(t.items))
	for _, it := range t.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OID < out[j].OID })
	return out
}

// TakeItem consumes an available item. Taking also clears the item from
// every racer's tracked set so nobody is re-sent a spawn for it.
func (t *Tracker) TakeItem(oid uint16) (*Item, bool) {
	it, ok := t.items[oid]
	if !ok || !it.Available {
		return nil, false
	}
	it.Available = false
	for _, r := range t.racers {
		delete(r.tracked, oid)
	}
	return it, true
}

// RespawnItem makes a consumed item available again.
func (t *Tracker) RespawnItem(oid uint16) (*Item, bool) {
	it, ok := t.items[oid]
	if !ok {
		return nil, false
	}
	it.Available = true
	return it, true
}

// Track marks an item as visible to the racer. It reports whether the
// item was newly tracked, so the caller sends each spawn at most once.
func (t *Tracker) Track(characterUID uint32, itemOID uint16) bool {
	r, ok := t.racers[characterUID]
	if !ok {
		return false
	}
	if _, in := r.tracked[itemOID]; in {
		return false
	}
	r.tracked[itemOID] = struct{}{}
	return true
}

// Untrack removes an item from the racer's visible set so a later
// approach re-sends the spawn.
func (t *Tracker) Untrack(characterUID uint32, itemOID uint16) {
	if r, ok := t.racers[characterUID]; ok {
		delete(r.tracked, itemOID)
	}
}

// Tracked reports whether the racer currently sees the item.
func (t *Tracker) Tracked(characterUID uint32, itemOID uint16) bool {
	r, ok := t.racers[characterUID]
	if !ok {
		return false
	}
	_, in := r.tracked[itemOID]
	return in
}
