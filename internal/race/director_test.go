package race

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"gallop.gg/internal/config"
	"gallop.gg/internal/data"
	"gallop.gg/internal/otp"
	"gallop.gg/internal/protocol"
	"gallop.gg/internal/registry"
	"gallop.gg/internal/room"
	"gallop.gg/internal/tracker"
	"gallop.gg/internal/transport/tcp"
)

type fakeTransport struct {
	mu           sync.Mutex
	sent         map[tcp.ClientID][]protocol.Clientbound
	disconnected []tcp.ClientID
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(map[tcp.ClientID][]protocol.Clientbound)}
}

func (f *fakeTransport) Queue(client tcp.ClientID, msg protocol.Clientbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[client] = append(f.sent[client], msg)
}

func (f *fakeTransport) DisconnectClient(client tcp.ClientID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, client)
}

func (f *fakeTransport) messages(client tcp.ClientID) []protocol.Clientbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Clientbound, len(f.sent[client]))
	copy(out, f.sent[client])
	return out
}

func (f *fakeTransport) last(client tcp.ClientID) protocol.Clientbound {
	msgs := f.messages(client)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (f *fakeTransport) count(client tcp.ClientID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent[client])
}

type raceFixture struct {
	d         *Director
	transport *fakeTransport
	store     *data.MemoryStore
	rooms     *room.System
	otp       *otp.Registry
}

func newRaceFixture(t *testing.T) *raceFixture {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	store := data.NewMemoryStore()
	transport := newFakeTransport()
	rooms := room.NewSystem()
	codes := otp.NewRegistry()
	d := NewDirector(Deps{
		Log:       logger,
		Transport: transport,
		Data:      data.NewDirector(store, logger),
		Rooms:     rooms,
		Registry:  registry.Default(),
		OTP:       codes,
		Config:    config.Defaults(),
	})
	return &raceFixture{d: d, transport: transport, store: store, rooms: rooms, otp: codes}
}

// seedRacer creates a stored character and waits for its cache load.
func (fx *raceFixture) seedRacer(t *testing.T, name string, level uint16) uint32 {
	t.Helper()
	ctx := context.Background()
	horseUID, err := fx.store.CreateHorse(ctx, data.Horse{Horse: protocol.Horse{TID: 20002, Name: name + "-horse"}})
	if err != nil {
		t.Fatalf("create horse: %v", err)
	}
	uid, err := fx.store.CreateCharacter(ctx, data.Character{
		UserName: name, Name: name, Level: level, Carrots: 500, HorseUID: horseUID,
	})
	if err != nil {
		t.Fatalf("create character: %v", err)
	}
	fx.d.data.RequestLoadCharacter(uid)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if state, ok := fx.d.data.CharacterLoadState(uid); ok && state == data.LoadReady {
			return uid
		}
		if time.Now().After(deadline) {
			t.Fatalf("character %d never loaded", uid)
		}
		time.Sleep(time.Millisecond)
	}
}

func (fx *raceFixture) makeRoom(mode protocol.GameMode, courseID uint16) *room.Room {
	return fx.rooms.Create(room.Options{
		Name:       "test room",
		MaxPlayers: 8,
		GameMode:   mode,
		CourseID:   courseID,
	}, nil)
}

func (fx *raceFixture) enter(t *testing.T, client tcp.ClientID, charUID, roomUID uint32) {
	t.Helper()
	code := fx.otp.Grant(otp.Combine(otp.IdentityHash(charUID), roomUID))
	err := fx.d.handleEnterRoom(client, protocol.RaceEnterRoom{
		OneTimePassword: code,
		CharacterUID:    charUID,
		RoomUID:         roomUID,
	})
	if err != nil {
		t.Fatalf("enter room: %v", err)
	}
	if _, ok := fx.transport.last(client).(protocol.RaceEnterRoomOK); !ok {
		t.Fatalf("client %d got %T, want enter ok", client, fx.transport.last(client))
	}
}

// startRace drives a two-player room to the racing stage.
func (fx *raceFixture) startRace(t *testing.T, r *room.Room, master, other tcp.ClientID) {
	t.Helper()
	if err := fx.d.handleStartRace(master, protocol.RaceStartRace{}); err != nil {
		t.Fatalf("start race: %v", err)
	}
	if err := fx.d.handleLoadingComplete(master, protocol.RaceLoadingComplete{}); err != nil {
		t.Fatalf("loading complete: %v", err)
	}
	if err := fx.d.handleLoadingComplete(other, protocol.RaceLoadingComplete{}); err != nil {
		t.Fatalf("loading complete: %v", err)
	}
	fx.d.Tick(time.Now())
	if got := fx.d.instances[r.UID()].stage; got != StageRacing {
		t.Fatalf("stage = %d, want racing", got)
	}
}

func TestEnterRoomRequiresCode(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 60)
	r := fx.makeRoom(protocol.GameModeSpeed, 1)

	_ = fx.d.handleEnterRoom(1, protocol.RaceEnterRoom{OneTimePassword: 12345, CharacterUID: alice, RoomUID: r.UID()})
	if _, ok := fx.transport.last(1).(protocol.RaceEnterRoomCancel); !ok {
		t.Fatalf("got %T, want cancel", fx.transport.last(1))
	}

	code := fx.otp.Grant(otp.Combine(otp.IdentityHash(alice), r.UID()))
	_ = fx.d.handleEnterRoom(1, protocol.RaceEnterRoom{OneTimePassword: code, CharacterUID: alice, RoomUID: r.UID()})
	ok, is := fx.transport.last(1).(protocol.RaceEnterRoomOK)
	if !is {
		t.Fatalf("got %T, want ok", fx.transport.last(1))
	}
	if ok.IsRoomWaiting != 1 || len(ok.Racers) != 1 || ok.Racers[0].IsMaster != 1 {
		t.Fatalf("payload: %+v", ok)
	}
	if ok.Racers[0].Name != "alice" || ok.Racers[0].Horse.Name != "alice-horse" {
		t.Fatalf("roster entry: %+v", ok.Racers[0])
	}

	// The code was consumed on first use.
	_ = fx.d.handleEnterRoom(2, protocol.RaceEnterRoom{OneTimePassword: code, CharacterUID: alice, RoomUID: r.UID()})
	if _, isCancel := fx.transport.last(2).(protocol.RaceEnterRoomCancel); !isCancel {
		t.Fatalf("got %T, want cancel for replayed code", fx.transport.last(2))
	}
}

func TestEnterRoomNotifiesExistingRacers(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 60)
	bob := fx.seedRacer(t, "bob", 30)
	r := fx.makeRoom(protocol.GameModeSpeed, 1)

	fx.enter(t, 1, alice, r.UID())
	fx.enter(t, 2, bob, r.UID())

	var notified bool
	for _, m := range fx.transport.messages(1) {
		if n, ok := m.(protocol.RaceEnterRoomNotify); ok {
			notified = true
			if n.Racer.UID != bob || n.Racer.IsMaster != 0 {
				t.Fatalf("join notify: %+v", n.Racer)
			}
		}
	}
	if !notified {
		t.Fatal("master never saw the join")
	}
}

func TestStartRaceCountdownAndNotify(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 60)
	bob := fx.seedRacer(t, "bob", 30)
	r := fx.makeRoom(protocol.GameModeSpeed, 1)
	fx.enter(t, 1, alice, r.UID())
	fx.enter(t, 2, bob, r.UID())

	// Non-master start is ignored.
	_ = fx.d.handleStartRace(2, protocol.RaceStartRace{})
	if fx.d.instances[r.UID()].stage != StageWaiting {
		t.Fatal("non-master started the race")
	}

	_ = fx.d.handleStartRace(1, protocol.RaceStartRace{})
	if !r.IsPlaying() {
		t.Fatal("room not marked playing")
	}
	cd, ok := fx.transport.last(2).(protocol.RaceRoomCountdown)
	if !ok || cd.CountdownMs != 3000 || cd.MapBlockID != 1 {
		t.Fatalf("countdown: %+v", fx.transport.last(2))
	}

	// The roster notify fires when the countdown task comes due.
	fx.d.Tick(time.Now().Add(4 * time.Second))
	var start *protocol.RaceStartRaceNotify
	for _, m := range fx.transport.messages(2) {
		if s, ok := m.(protocol.RaceStartRaceNotify); ok {
			start = &s
		}
	}
	if start == nil {
		t.Fatal("no start notify")
	}
	if len(start.Racers) != 2 || len(start.Skills) != 2 {
		t.Fatalf("roster: %+v", start)
	}
	bobOID := fx.racerOID(t, r.UID(), bob)
	if start.HostOID != bobOID {
		t.Fatalf("host oid = %d, want recipient's own %d", start.HostOID, bobOID)
	}
}

func (fx *raceFixture) racerOID(t *testing.T, roomUID, charUID uint32) uint16 {
	t.Helper()
	racer, ok := fx.d.instances[roomUID].tracker.Racer(charUID)
	if !ok {
		t.Fatalf("character %d not tracked", charUID)
	}
	return racer.OID
}

func TestPseudoCourseResolvesFromPool(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 15)
	r := fx.makeRoom(protocol.GameModeSpeed, 10002)
	fx.enter(t, 1, alice, r.UID())

	_ = fx.d.handleStartRace(1, protocol.RaceStartRace{})
	got := fx.d.instances[r.UID()].mapBlockID
	// Level 15 master: block 3 needs level 20 and is excluded.
	if got != 1 && got != 2 {
		t.Fatalf("map block = %d, want 1 or 2", got)
	}
}

func TestLoadTimeoutDemotesStragglers(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 60)
	bob := fx.seedRacer(t, "bob", 30)
	r := fx.makeRoom(protocol.GameModeSpeed, 1)
	fx.enter(t, 1, alice, r.UID())
	fx.enter(t, 2, bob, r.UID())

	_ = fx.d.handleStartRace(1, protocol.RaceStartRace{})
	_ = fx.d.handleLoadingComplete(1, protocol.RaceLoadingComplete{})

	// Not everyone is loaded yet, so nothing moves on a prompt tick.
	fx.d.Tick(time.Now())
	if fx.d.instances[r.UID()].stage != StageLoading {
		t.Fatal("left loading early")
	}

	fx.d.Tick(time.Now().Add(31 * time.Second))
	inst := fx.d.instances[r.UID()]
	if inst.stage != StageRacing {
		t.Fatalf("stage = %d, want racing", inst.stage)
	}
	straggler, _ := inst.tracker.Racer(bob)
	if straggler.Status != tracker.StatusDisconnected {
		t.Fatalf("straggler status = %d, want disconnected", straggler.Status)
	}
	var countdown bool
	for _, m := range fx.transport.messages(1) {
		if _, ok := m.(protocol.RaceCountdown); ok {
			countdown = true
		}
	}
	if !countdown {
		t.Fatal("no race countdown broadcast")
	}
}

func TestRaceFinishesIntoScoreboard(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 60)
	bob := fx.seedRacer(t, "bob", 30)
	r := fx.makeRoom(protocol.GameModeSpeed, 1)
	fx.enter(t, 1, alice, r.UID())
	fx.enter(t, 2, bob, r.UID())
	fx.startRace(t, r, 1, 2)

	// Bob crosses first with the better time.
	_ = fx.d.handleUserRaceFinal(2, protocol.RaceUserRaceFinal{CourseTime: 61000})
	_ = fx.d.handleUserRaceFinal(1, protocol.RaceUserRaceFinal{CourseTime: 64000})

	fx.d.Tick(time.Now())
	fx.d.Tick(time.Now())

	inst := fx.d.instances[r.UID()]
	if inst.stage != StageWaiting {
		t.Fatalf("stage = %d, want waiting", inst.stage)
	}
	if r.IsPlaying() {
		t.Fatal("room still marked playing")
	}

	var result *protocol.RaceResultNotify
	for _, m := range fx.transport.messages(1) {
		if res, ok := m.(protocol.RaceResultNotify); ok {
			result = &res
		}
	}
	if result == nil {
		t.Fatal("no result notify")
	}
	if len(result.Scores) != 2 || result.Scores[0].Name != "bob" || result.Scores[1].Name != "alice" {
		t.Fatalf("scoreboard: %+v", result.Scores)
	}
	if result.Scores[0].Bitset&protocol.ScoreConnected == 0 {
		t.Fatal("finisher not marked connected")
	}
}

func TestStageSequenceIsMonotonic(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 60)
	r := fx.makeRoom(protocol.GameModeSpeed, 1)
	fx.enter(t, 1, alice, r.UID())

	inst := fx.d.instances[r.UID()]
	seen := []Stage{inst.stage}
	observe := func() {
		if inst.stage != seen[len(seen)-1] {
			seen = append(seen, inst.stage)
		}
	}

	_ = fx.d.handleStartRace(1, protocol.RaceStartRace{})
	observe()
	_ = fx.d.handleLoadingComplete(1, protocol.RaceLoadingComplete{})
	fx.d.Tick(time.Now())
	observe()
	_ = fx.d.handleUserRaceFinal(1, protocol.RaceUserRaceFinal{CourseTime: 60000})
	fx.d.Tick(time.Now())
	observe()
	fx.d.Tick(time.Now())
	observe()

	want := []Stage{StageWaiting, StageLoading, StageRacing, StageFinishing, StageWaiting}
	if len(seen) != len(want) {
		t.Fatalf("stages %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("stages %v, want %v", seen, want)
		}
	}
}

func TestLeaveRoomPromotesEarliestJoiner(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 60)
	bob := fx.seedRacer(t, "bob", 30)
	carol := fx.seedRacer(t, "carol", 20)
	r := fx.makeRoom(protocol.GameModeSpeed, 1)
	fx.enter(t, 1, alice, r.UID())
	fx.enter(t, 2, bob, r.UID())
	fx.enter(t, 3, carol, r.UID())

	_ = fx.d.handleLeaveRoom(1, protocol.RaceLeaveRoom{})
	if _, ok := fx.transport.last(1).(protocol.RaceLeaveRoomOK); !ok {
		t.Fatalf("got %T, want leave ok", fx.transport.last(1))
	}

	inst := fx.d.instances[r.UID()]
	if inst.masterUID != bob {
		t.Fatalf("master = %d, want bob %d", inst.masterUID, bob)
	}
	var sawLeave, sawMaster bool
	for _, m := range fx.transport.messages(3) {
		switch n := m.(type) {
		case protocol.RaceLeaveRoomNotify:
			sawLeave = n.CharacterUID == alice
		case protocol.RaceChangeMasterNotify:
			sawMaster = n.CharacterUID == bob
		}
	}
	if !sawLeave || !sawMaster {
		t.Fatalf("leave=%v master=%v", sawLeave, sawMaster)
	}
}

func TestLastLeaverDeletesRoom(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 60)
	r := fx.makeRoom(protocol.GameModeSpeed, 1)
	fx.enter(t, 1, alice, r.UID())

	fx.d.HandleClientDisconnected(1)
	if _, ok := fx.rooms.Get(r.UID()); ok {
		t.Fatal("room survived its last player")
	}
	if len(fx.d.instances) != 0 {
		t.Fatal("instance survived its last player")
	}
}

func TestRoomChatIsSanitizedAndFansOut(t *testing.T) {
	fx := newRaceFixture(t)
	alice := fx.seedRacer(t, "alice", 60)
	bob := fx.seedRacer(t, "bob", 60)
	r := fx.makeRoom(protocol.GameModeSpeed, 1)
	fx.enter(t, 1, alice, r.UID())
	fx.enter(t, 2, bob, r.UID())

	if err := fx.d.handleChat(2, protocol.RaceChat{Message: "  go\x01 fast  "}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	msg, ok := fx.transport.last(1).(protocol.RaceChatNotify)
	if !ok || msg.Name != "bob" || msg.Message != "go fast" {
		t.Fatalf("chat notify: %+v", fx.transport.last(1))
	}

	// Nothing sayable after sanitation: dropped, not broadcast.
	before := fx.transport.count(1)
	if err := fx.d.handleChat(2, protocol.RaceChat{Message: " \x02\x03 "}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if fx.transport.count(1) != before {
		t.Fatal("empty-after-sanitation chat was delivered")
	}
}
