package room

import (
	"testing"

	"gallop.gg/internal/protocol"
)

func newTestSystem() *System { return NewSystem() }

func TestCreateSequencesUIDs(t *testing.T) {
	s := newTestSystem()
	a := s.Create(Options{MaxPlayers: 8}, nil)
	b := s.Create(Options{MaxPlayers: 8}, nil)
	if a.UID() == b.UID() {
		t.Fatalf("room uids must be unique, both %d", a.UID())
	}
	if b.UID() <= a.UID() {
		t.Fatalf("uids must ascend: %d then %d", a.UID(), b.UID())
	}
	s.Delete(a.UID())
	c := s.Create(Options{MaxPlayers: 8}, nil)
	if c.UID() == a.UID() {
		t.Fatal("deleted uid was reused")
	}
}

func TestReservationsCountAgainstLimit(t *testing.T) {
	s := newTestSystem()
	r := s.Create(Options{MaxPlayers: 2}, nil)

	if err := r.QueuePlayer(1); err != nil {
		t.Fatalf("queue 1: %v", err)
	}
	if err := r.QueuePlayer(2); err != nil {
		t.Fatalf("queue 2: %v", err)
	}
	if err := r.QueuePlayer(3); err != ErrRoomFull {
		t.Fatalf("queue 3 = %v, want ErrRoomFull", err)
	}

	// Seating consumes the reservation rather than a second slot.
	if _, err := r.AddPlayer(1); err != nil {
		t.Fatalf("add 1: %v", err)
	}
	if err := r.QueuePlayer(3); err != ErrRoomFull {
		t.Fatalf("room still full, got %v", err)
	}

	if empty := r.RemovePlayer(1); empty {
		t.Fatal("room with a reservation left is not empty")
	}
	if empty := r.RemovePlayer(99); empty {
		t.Fatal("removing a stranger must not empty the room")
	}
	r.Dequeue(2)
	if empty := r.RemovePlayer(0); !empty {
		t.Fatal("room should now be empty")
	}
}

func TestWalkInRespectsReservations(t *testing.T) {
	s := newTestSystem()
	r := s.Create(Options{MaxPlayers: 2}, nil)
	if err := r.QueuePlayer(1); err != nil {
		t.Fatalf("queue 1: %v", err)
	}
	if err := r.QueuePlayer(2); err != nil {
		t.Fatalf("queue 2: %v", err)
	}

	// Both seats are reserved: a character without a reservation is out.
	if _, err := r.AddPlayer(3); err != ErrRoomFull {
		t.Fatalf("walk-in = %v, want ErrRoomFull", err)
	}
	// Reservation holders still seat.
	if _, err := r.AddPlayer(2); err != nil {
		t.Fatalf("seat reserved player: %v", err)
	}
	if _, err := r.AddPlayer(1); err != nil {
		t.Fatalf("seat reserved player: %v", err)
	}
}

func TestCreatePopulatesBeforeListing(t *testing.T) {
	s := newTestSystem()
	r := s.Create(Options{Name: "warmup", MaxPlayers: 4}, func(r *Room) {
		if err := r.QueuePlayer(7); err != nil {
			t.Fatalf("queue in populate: %v", err)
		}
	})

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].UID != r.UID() {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap[0].PlayerCount != 1 {
		t.Fatalf("listed without the creator's reservation: %+v", snap[0])
	}
}

func TestAddPlayerBalancesTeams(t *testing.T) {
	s := newTestSystem()
	r := s.Create(Options{MaxPlayers: 8, TeamMode: protocol.TeamModeTeam}, nil)

	counts := map[protocol.Team]int{}
	for uid := uint32(1); uid <= 6; uid++ {
		team, err := r.AddPlayer(uid)
		if err != nil {
			t.Fatalf("add %d: %v", uid, err)
		}
		if team != protocol.TeamRed && team != protocol.TeamBlue {
			t.Fatalf("player %d assigned team %d", uid, team)
		}
		counts[team]++
	}
	if counts[protocol.TeamRed] != 3 || counts[protocol.TeamBlue] != 3 {
		t.Fatalf("teams unbalanced: %v", counts)
	}
}

func TestSoloModeAssignsNoTeam(t *testing.T) {
	s := newTestSystem()
	r := s.Create(Options{MaxPlayers: 8}, nil)
	team, err := r.AddPlayer(1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if team != protocol.TeamSolo {
		t.Fatalf("team = %d, want solo", team)
	}
}

func TestPlayersJoinOrder(t *testing.T) {
	s := newTestSystem()
	r := s.Create(Options{MaxPlayers: 8}, nil)
	for _, uid := range []uint32{5, 3, 9} {
		if _, err := r.AddPlayer(uid); err != nil {
			t.Fatalf("add %d: %v", uid, err)
		}
	}
	r.RemovePlayer(5)
	got := r.Players()
	if len(got) != 2 || got[0] != 3 || got[1] != 9 {
		t.Fatalf("players = %v, want [3 9]", got)
	}
}

func TestCheckPassword(t *testing.T) {
	s := newTestSystem()
	open := s.Create(Options{MaxPlayers: 8}, nil)
	locked := s.Create(Options{MaxPlayers: 8, Password: "hunter2"}, nil)

	if !open.CheckPassword("") || !open.CheckPassword("anything") {
		t.Fatal("open room must admit any password")
	}
	if locked.CheckPassword("wrong") {
		t.Fatal("locked room admitted wrong password")
	}
	if !locked.CheckPassword("hunter2") {
		t.Fatal("locked room rejected its own password")
	}
}

func TestSnapshotOrderedAndCounted(t *testing.T) {
	s := newTestSystem()
	a := s.Create(Options{Name: "a", MaxPlayers: 8}, nil)
	b := s.Create(Options{Name: "b", MaxPlayers: 4, Password: "x"}, nil)
	if _, err := a.AddPlayer(1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.QueuePlayer(2); err != nil {
		t.Fatalf("queue: %v", err)
	}

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d", len(snap))
	}
	if snap[0].UID != a.UID() || snap[1].UID != b.UID() {
		t.Fatalf("snapshot not ordered by uid: %+v", snap)
	}
	if snap[0].PlayerCount != 1 || snap[1].PlayerCount != 1 {
		t.Fatalf("player counts include reservations: %+v", snap)
	}
	if snap[0].HasPassword || !snap[1].HasPassword {
		t.Fatalf("password flags wrong: %+v", snap)
	}
}
