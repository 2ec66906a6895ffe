// Package room tracks game rooms shared between the lobby and race
// endpoints. The lobby creates rooms and reserves seats; the race endpoint
// converts reservations into occupants and runs the race lifecycle.
package room

import (
	"errors"
	"math/rand"
	"sync"

	"gallop.gg/internal/protocol"
)

var (
	ErrRoomFull  = errors.New("room: room is full")
	ErrNotMember = errors.New("room: character is not a member")
)

// Options carries the mutable room settings. The lobby seeds them at
// creation and the race master can change them between races.
type Options struct {
	Name       string
	Password   string
	MaxPlayers uint8
	GameMode   protocol.GameMode
	TeamMode   protocol.TeamMode
	CourseID   uint16
	MissionID  uint16
	NPCRace    uint8
}

// Player is one seat in a room.
type Player struct {
	CharacterUID uint32
	Team         protocol.Team
}

// Room is a single game room. All methods are safe for concurrent use;
// the room holds its own lock and never calls back out while locked.
type Room struct {
	uid uint32

	mu      sync.Mutex
	opts    Options
	playing bool

	players map[uint32]*Player
	order   []uint32
	queued  map[uint32]struct{}
}

func (r *Room) UID() uint32 { return r.uid }

// Options returns a copy of the current settings.
func (r *Room) Options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

// Update applies fn to the room settings under the room lock.
func (r *Room) Update(fn func(*Options)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.opts)
}

// QueuePlayer reserves a seat for a character that has been directed to
// the room but has not connected to the race endpoint yet. Reserved seats
// count against the player limit.
func (r *Room) QueuePlayer(characterUID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, in := r.players[characterUID]; in {
		return nil
	}
	if _, in := r.queued[characterUID]; in {
		return nil
	}
	if len(r.players)+len(r.queued) >= int(r.opts.MaxPlayers) {
		return ErrRoomFull
	}
	r.queued[characterUID] = struct{}{}
	return nil
}

// Dequeue drops a seat reservation. It reports whether the character was
// still queued.
func (r *Room) Dequeue(characterUID uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, in := r.queued[characterUID]
	delete(r.queued, characterUID)
	return in
}

// AddPlayer seats a character, consuming any reservation it holds. In a
// team game the character joins the smaller team, ties broken at random.
func (r *Room) AddPlayer(characterUID uint32) (protocol.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, in := r.players[characterUID]; in {
		return r.players[characterUID].Team, nil
	}
	// A held reservation already counts against the limit; a walk-in
	// must fit alongside both seats and reservations.
	if _, reserved := r.queued[characterUID]; !reserved {
		if len(r.players)+len(r.queued) >= int(r.opts.MaxPlayers) {
			return protocol.TeamSolo, ErrRoomFull
		}
	}

	team := protocol.TeamSolo
	if r.opts.TeamMode == protocol.TeamModeTeam {
		team = r.balancedTeam()
	}

	delete(r.queued, characterUID)
	r.players[characterUID] = &Player{CharacterUID: characterUID, Team: team}
	r.order = append(r.order, characterUID)
	return team, nil
}

func (r *Room) balancedTeam() protocol.Team {
	red, blue := 0, 0
	for _, p := range r.players {
		switch p.Team {
		case protocol.TeamRed:
			red++
		case protocol.TeamBlue:
			blue++
		}
	}
	switch {
	case red < blue:
		return protocol.TeamRed
	case blue < red:
		return protocol.TeamBlue
	case rand.Intn(2) == 0:
		return protocol.TeamRed
	default:
		return protocol.TeamBlue
	}
}

// RemovePlayer unseats a character. It reports whether the room is now
// empty of both players and reservations.
func (r *Room) RemovePlayer(characterUID uint32) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, characterUID)
	delete(r.queued, characterUID)
	for i, uid := range r.order {
		if uid == characterUID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return len(r.players) == 0 && len(r.queued) == 0
}

// SetTeam reassigns a seated character's team.
func (r *Room) SetTeam(characterUID uint32, team protocol.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, in := r.players[characterUID]
	if !in {
		return ErrNotMember
	}
	p.Team = team
	return nil
}

// Team returns the seated character's team assignment.
func (r *Room) Team(characterUID uint32) (protocol.Team, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, in := r.players[characterUID]
	if !in {
		return protocol.TeamSolo, false
	}
	return p.Team, true
}

// HasPlayer reports whether the character holds a seat.
func (r *Room) HasPlayer(characterUID uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, in := r.players[characterUID]
	return in
}

// Players returns the seated character uids in join order.
func (r *Room) Players() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint32, len(r.order))
	copy(out, r.order)
	return out
}

// PlayerCount counts seated characters only, not reservations.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) SetPlaying(playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = playing
}

func (r *Room) IsPlaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

// Description is a point-in-time copy used for room listings.
type Description struct {
	UID         uint32
	Name        string
	HasPassword bool
	PlayerCount uint8
	MaxPlayers  uint8
	GameMode    protocol.GameMode
	TeamMode    protocol.TeamMode
	CourseID    uint16
	MissionID   uint16
	Playing     bool
}

func (r *Room) Describe() Description {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Description{
		UID:         r.uid,
		Name:        r.opts.Name,
		HasPassword: r.opts.Password != "",
		PlayerCount: uint8(len(r.players) + len(r.queued)),
		MaxPlayers:  r.opts.MaxPlayers,
		GameMode:    r.opts.GameMode,
		TeamMode:    r.opts.TeamMode,
		CourseID:    r.opts.CourseID,
		MissionID:   r.opts.MissionID,
		Playing:     r.playing,
	}
}

// CheckPassword reports whether the supplied password opens the room.
func (r *Room) CheckPassword(password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.Password == "" || r.opts.Password == password
}

// IsFull reports whether every seat is taken or reserved.
func (r *Room) IsFull() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)+len(r.queued) >= int(r.opts.MaxPlayers)
}

// System owns the live room set. Room uids are sequenced under the system
// lock and never reused.
type System struct {
	mu    sync.Mutex
	rooms map[uint32]*Room
	seq   uint32
}

func NewSystem() *System {
	return &System{rooms: make(map[uint32]*Room)}
}

// Create makes a room with the next sequenced uid. When populate is
// non-nil it runs before the room becomes visible to Get and Snapshot,
// so initial seats and reservations land atomically with the listing.
func (s *System) Create(opts Options, populate func(*Room)) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	r := &Room{
		uid:     s.seq,
		opts:    opts,
		players: make(map[uint32]*Player),
		queued:  make(map[uint32]struct{}),
	}
	if populate != nil {
		populate(r)
	}
	s.rooms[r.uid] = r
	return r
}

// Get returns the room with the given uid.
func (s *System) Get(uid uint32) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[uid]
	return r, ok
}

// Delete removes the room from the listing. Existing references stay
// usable until their holders drop them.
func (s *System) Delete(uid uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, uid)
}

// Snapshot describes every live room, ordered by uid ascending.
func (s *System) Snapshot() []Description {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	out := make([]Description, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Describe())
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].UID > out[j].UID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
