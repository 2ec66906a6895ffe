package lobby

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"gallop.gg/internal/config"
	"gallop.gg/internal/data"
	"gallop.gg/internal/infraction"
	"gallop.gg/internal/otp"
	"gallop.gg/internal/protocol"
	"gallop.gg/internal/registry"
	"gallop.gg/internal/room"
	"gallop.gg/internal/transport/tcp"
)

type fakeTransport struct {
	mu           sync.Mutex
	sent         map[tcp.ClientID][]protocol.Clientbound
	keys         map[tcp.ClientID][][4]byte
	disconnected []tcp.ClientID
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent: make(map[tcp.ClientID][]protocol.Clientbound),
		keys: make(map[tcp.ClientID][][4]byte),
	}
}

func (f *fakeTransport) Queue(client tcp.ClientID, msg protocol.Clientbound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[client] = append(f.sent[client], msg)
}

func (f *fakeTransport) SetCode(client tcp.ClientID, key [4]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[client] = append(f.keys[client], key)
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

type lobbyFixture struct {
	d         *Director
	transport *fakeTransport
	store     *data.MemoryStore
}

func newLobbyFixture(t *testing.T) *lobbyFixture {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	store := data.NewMemoryStore()
	transport := newFakeTransport()
	d := NewDirector(Deps{
		Log:       logger,
		Transport: transport,
		Data:      data.NewDirector(store, logger),
		Rooms:     room.NewSystem(),
		Registry:  registry.Default(),
		OTP:       otp.NewRegistry(),
		Config:    config.Defaults(),
	})
	return &lobbyFixture{d: d, transport: transport, store: store}
}

// seedPlayer installs an account with a created character and mount.
func (fx *lobbyFixture) seedPlayer(t *testing.T, name, nickname string) uint32 {
	t.Helper()
	ctx := context.Background()
	horseUID, err := fx.store.CreateHorse(ctx, data.Horse{Horse: protocol.Horse{TID: 20002, Name: "Star"}})
	if err != nil {
		t.Fatalf("create horse: %v", err)
	}
	charUID, err := fx.store.CreateCharacter(ctx, data.Character{
		UserName: name, Name: nickname, Level: 60, Carrots: 10000, HorseUID: horseUID,
	})
	if err != nil {
		t.Fatalf("create character: %v", err)
	}
	fx.store.SeedUser(data.User{Name: name, Token: "tok", CharacterUID: charUID})
	return charUID
}

// tickUntil pumps the director until cond holds.
func tickUntil(t *testing.T, d *Director, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		d.Tick(time.Now())
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition never reached")
		}
		time.Sleep(time.Millisecond)
	}
}

func login(t *testing.T, fx *lobbyFixture, client tcp.ClientID, name, token string) {
	t.Helper()
	err := fx.d.handleLogin(client, protocol.LobbyLogin{
		Constant0: protocol.LoginConstant0,
		Constant1: protocol.LoginConstant1,
		LoginID:   name,
		AuthKey:   token,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
}

func loginAndSettle(t *testing.T, fx *lobbyFixture, client tcp.ClientID, name string) {
	t.Helper()
	login(t, fx, client, name, "tok")
	tickUntil(t, fx.d, func() bool {
		for _, msg := range fx.transport.messages(client) {
			if _, ok := msg.(protocol.LobbyLoginOK); ok {
				return true
			}
		}
		return false
	})
}

func TestLoginHappyPath(t *testing.T) {
	fx := newLobbyFixture(t)
	charUID := fx.seedPlayer(t, "alice", "Rider")

	loginAndSettle(t, fx, 1, "alice")

	msgs := fx.transport.messages(1)
	ok, isOK := msgs[0].(protocol.LobbyLoginOK)
	if !isOK {
		t.Fatalf("first message %T, want LobbyLoginOK", msgs[0])
	}
	if ok.UID != charUID || ok.Name != "Rider" || ok.Level != 60 {
		t.Fatalf("login payload: %+v", ok)
	}
	if ok.Horse.Name != "Star" {
		t.Fatalf("mount not in payload: %+v", ok.Horse)
	}
	if _, isPresets := msgs[len(msgs)-1].(protocol.LobbySkillCardPresetList); !isPresets {
		t.Fatalf("last message %T, want skill presets", msgs[len(msgs)-1])
	}
	if keys := fx.transport.keys[1]; len(keys) != 1 {
		t.Fatalf("SetCode calls = %d, want 1", len(keys))
	}
	if fx.d.PlayersOnline() != 1 {
		t.Fatalf("players online = %d", fx.d.PlayersOnline())
	}
}

func TestLoginRejectsBadVersionAndEmptyID(t *testing.T) {
	fx := newLobbyFixture(t)

	_ = fx.d.handleLogin(1, protocol.LobbyLogin{Constant0: 49, Constant1: 281, LoginID: "a", AuthKey: "t"})
	if c, ok := fx.transport.last(1).(protocol.LobbyLoginCancel); !ok || c.Reason != protocol.LoginCancelInvalidVersion {
		t.Fatalf("got %+v, want invalid version cancel", fx.transport.last(1))
	}

	login(t, fx, 2, "", "t")
	if c, ok := fx.transport.last(2).(protocol.LobbyLoginCancel); !ok || c.Reason != protocol.LoginCancelInvalidLoginID {
		t.Fatalf("got %+v, want invalid login id cancel", fx.transport.last(2))
	}
}

func TestLoginUnknownUserCancelsGeneric(t *testing.T) {
	fx := newLobbyFixture(t)
	login(t, fx, 1, "ghost", "tok")
	tickUntil(t, fx.d, func() bool { return len(fx.transport.messages(1)) > 0 })
	if c, ok := fx.transport.last(1).(protocol.LobbyLoginCancel); !ok || c.Reason != protocol.LoginCancelGeneric {
		t.Fatalf("got %+v, want generic cancel", fx.transport.last(1))
	}
}

func TestLoginWrongTokenCancelsInvalidUser(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	login(t, fx, 1, "alice", "wrong")
	tickUntil(t, fx.d, func() bool { return len(fx.transport.messages(1)) > 0 })
	if c, ok := fx.transport.last(1).(protocol.LobbyLoginCancel); !ok || c.Reason != protocol.LoginCancelInvalidUser {
		t.Fatalf("got %+v, want invalid user cancel", fx.transport.last(1))
	}
}

func TestLoginJoinBanDisconnects(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	_ = fx.store.AddInfraction(context.Background(), "alice", infraction.Infraction{Kind: infraction.KindJoinBan})

	login(t, fx, 1, "alice", "tok")
	tickUntil(t, fx.d, func() bool { return len(fx.transport.messages(1)) > 0 })
	if c, ok := fx.transport.last(1).(protocol.LobbyLoginCancel); !ok || c.Reason != protocol.LoginCancelDisconnectYourself {
		t.Fatalf("got %+v, want disconnect-yourself cancel", fx.transport.last(1))
	}
}

func TestLoginDuplicateUser(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	loginAndSettle(t, fx, 1, "alice")

	login(t, fx, 2, "alice", "tok")
	if c, ok := fx.transport.last(2).(protocol.LobbyLoginCancel); !ok || c.Reason != protocol.LoginCancelDuplicated {
		t.Fatalf("got %+v, want duplicated cancel", fx.transport.last(2))
	}
}

func TestFreshAccountRoutedToNicknameCreator(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.store.SeedUser(data.User{Name: "newbie", Token: "tok"})

	login(t, fx, 1, "newbie", "tok")
	tickUntil(t, fx.d, func() bool { return len(fx.transport.messages(1)) > 0 })
	if _, ok := fx.transport.last(1).(protocol.LobbyCreateNicknameNotify); !ok {
		t.Fatalf("got %T, want create nickname notify", fx.transport.last(1))
	}

	err := fx.d.handleCreateNickname(1, protocol.LobbyCreateNickname{
		Nickname:  "Fresh",
		Character: protocol.Character{Parts: protocol.CharacterParts{ModelID: 2}},
	})
	if err != nil {
		t.Fatalf("create nickname: %v", err)
	}

	msgs := fx.transport.messages(1)
	var ok *protocol.LobbyLoginOK
	for _, m := range msgs {
		if v, is := m.(protocol.LobbyLoginOK); is {
			ok = &v
		}
	}
	if ok == nil {
		t.Fatal("no login payload after nickname creation")
	}
	if ok.Name != "Fresh" || ok.Level != 60 || ok.Carrots != 10000 {
		t.Fatalf("starter payload: %+v", ok)
	}
	if ok.Horse.TID != 20002 || ok.Horse.Stamina != 3500 || ok.Horse.GrowthPoints != 150 {
		t.Fatalf("starter mount: %+v", ok.Horse)
	}
}

func TestForcedCharacterReentersCreator(t *testing.T) {
	fx := newLobbyFixture(t)
	charUID := fx.seedPlayer(t, "alice", "Rider")
	fx.d.ForceCharacterCreator(charUID, true)

	login(t, fx, 1, "alice", "tok")
	tickUntil(t, fx.d, func() bool { return len(fx.transport.messages(1)) > 0 })
	if _, ok := fx.transport.last(1).(protocol.LobbyCreateNicknameNotify); !ok {
		t.Fatalf("got %T, want create nickname notify", fx.transport.last(1))
	}
	if fx.d.IsCharacterForcedIntoCreator(charUID) {
		t.Fatal("flag must be consumed by the login it redirects")
	}

	err := fx.d.handleCreateNickname(1, protocol.LobbyCreateNickname{
		Nickname:  "Renamed",
		Character: protocol.Character{Parts: protocol.CharacterParts{ModelID: 3}},
	})
	if err != nil {
		t.Fatalf("create nickname: %v", err)
	}
	var ok *protocol.LobbyLoginOK
	for _, m := range fx.transport.messages(1) {
		if v, is := m.(protocol.LobbyLoginOK); is {
			ok = &v
		}
	}
	if ok == nil {
		t.Fatal("no login payload after re-customization")
	}
	// Same character, new identity. No starter character is created.
	if ok.UID != charUID || ok.Name != "Renamed" {
		t.Fatalf("re-customized payload: %+v", ok)
	}

	// The next login goes straight through.
	fx.d.HandleClientDisconnected(1)
	loginAndSettle(t, fx, 2, "alice")
}

func TestForceCharacterCreatorCanBeCleared(t *testing.T) {
	fx := newLobbyFixture(t)
	charUID := fx.seedPlayer(t, "alice", "Rider")
	fx.d.ForceCharacterCreator(charUID, true)
	fx.d.ForceCharacterCreator(charUID, false)
	if fx.d.IsCharacterForcedIntoCreator(charUID) {
		t.Fatal("cleared flag still pending")
	}
	loginAndSettle(t, fx, 1, "alice")
}

func TestCreateNicknameRejectsInvalidName(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.store.SeedUser(data.User{Name: "newbie", Token: "tok"})
	login(t, fx, 1, "newbie", "tok")
	tickUntil(t, fx.d, func() bool { return len(fx.transport.messages(1)) > 0 })

	_ = fx.d.handleCreateNickname(1, protocol.LobbyCreateNickname{Nickname: "x"})
	if _, ok := fx.transport.last(1).(protocol.LobbyCreateNicknameCancel); !ok {
		t.Fatalf("got %T, want nickname cancel", fx.transport.last(1))
	}
}

func TestPipelineAdvancesOneLoginPerTick(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	fx.seedPlayer(t, "bob", "Bobby")

	login(t, fx, 1, "alice", "tok")
	login(t, fx, 2, "bob", "tok")

	// Let both account loads settle before ticking.
	deadline := time.Now().Add(5 * time.Second)
	for {
		sa, _ := fx.d.data.UserLoadState("alice")
		sb, _ := fx.d.data.UserLoadState("bob")
		if sa == data.LoadReady && sb == data.LoadReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("loads never settled")
		}
		time.Sleep(time.Millisecond)
	}

	// Tick 1 moves alice to the response stage only.
	fx.d.Tick(time.Now())
	if len(fx.transport.messages(1)) != 0 && fx.d.PlayersOnline() != 0 {
		t.Fatal("nobody should be authenticated after one tick")
	}

	tickUntil(t, fx.d, func() bool { return fx.d.PlayersOnline() == 2 })

	// Alice authenticated before bob.
	var aliceOK, bobOK bool
	for _, m := range fx.transport.messages(1) {
		if _, ok := m.(protocol.LobbyLoginOK); ok {
			aliceOK = true
		}
	}
	for _, m := range fx.transport.messages(2) {
		if _, ok := m.(protocol.LobbyLoginOK); ok {
			bobOK = true
		}
	}
	if !aliceOK || !bobOK {
		t.Fatalf("logins incomplete: alice=%v bob=%v", aliceOK, bobOK)
	}
}

func TestCheckWaitingSeqnoReportsPosition(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	login(t, fx, 1, "alice", "tok")

	_ = fx.d.handleCheckWaitingSeqno(1, protocol.LobbyCheckWaitingSeqno{UID: 9})
	ok, is := fx.transport.last(1).(protocol.LobbyCheckWaitingSeqnoOK)
	if !is || ok.UID != 9 || ok.Position != 1 {
		t.Fatalf("got %+v, want position 1", fx.transport.last(1))
	}
}

func TestMakeRoomGrantsHandoff(t *testing.T) {
	fx := newLobbyFixture(t)
	charUID := fx.seedPlayer(t, "alice", "Rider")
	loginAndSettle(t, fx, 1, "alice")

	_ = fx.d.handleMakeRoom(1, protocol.LobbyMakeRoom{
		Name:        "fun run",
		PlayerCount: 4,
		GameMode:    protocol.GameModeSpeed,
	})
	ok, is := fx.transport.last(1).(protocol.LobbyMakeRoomOK)
	if !is {
		t.Fatalf("got %+v, want make room ok", fx.transport.last(1))
	}
	if ok.RoomUID == 0 || ok.OneTimePassword == 0 {
		t.Fatalf("payload: %+v", ok)
	}

	r, found := fx.d.rooms.Get(ok.RoomUID)
	if !found {
		t.Fatal("room not registered")
	}
	if !r.IsFull() && r.Describe().PlayerCount != 1 {
		t.Fatalf("creator reservation missing: %+v", r.Describe())
	}
	if !fx.d.otp.Authorize(otp.Combine(otp.IdentityHash(charUID), ok.RoomUID), ok.OneTimePassword) {
		t.Fatal("granted code does not authorize")
	}
}

func TestMakeRoomRequiresNameForMultiplayer(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	loginAndSettle(t, fx, 1, "alice")

	_ = fx.d.handleMakeRoom(1, protocol.LobbyMakeRoom{Name: "", PlayerCount: 4})
	if _, is := fx.transport.last(1).(protocol.LobbyMakeRoomCancel); !is {
		t.Fatalf("got %+v, want cancel", fx.transport.last(1))
	}

	_ = fx.d.handleMakeRoom(1, protocol.LobbyMakeRoom{Name: "", PlayerCount: 1})
	if _, is := fx.transport.last(1).(protocol.LobbyMakeRoomOK); !is {
		t.Fatalf("got %+v, want ok for solo practice room", fx.transport.last(1))
	}
}

func TestEnterRoomChecksPasswordAndCapacity(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	fx.seedPlayer(t, "bob", "Bobby")
	fx.seedPlayer(t, "carol", "Carrie")
	loginAndSettle(t, fx, 1, "alice")
	loginAndSettle(t, fx, 2, "bob")
	loginAndSettle(t, fx, 3, "carol")

	_ = fx.d.handleMakeRoom(1, protocol.LobbyMakeRoom{Name: "duo", Password: "pw", PlayerCount: 2})
	made := fx.transport.last(1).(protocol.LobbyMakeRoomOK)

	_ = fx.d.handleEnterRoom(2, protocol.LobbyEnterRoom{RoomUID: 999})
	if c := fx.transport.last(2).(protocol.LobbyEnterRoomCancel); c.Status != protocol.RoomCancelInvalidRoom {
		t.Fatalf("unknown room status = %d", c.Status)
	}
	_ = fx.d.handleEnterRoom(2, protocol.LobbyEnterRoom{RoomUID: made.RoomUID, Password: "nope"})
	if c := fx.transport.last(2).(protocol.LobbyEnterRoomCancel); c.Status != protocol.RoomCancelBadPassword {
		t.Fatalf("bad password status = %d", c.Status)
	}
	_ = fx.d.handleEnterRoom(2, protocol.LobbyEnterRoom{RoomUID: made.RoomUID, Password: "pw"})
	if _, is := fx.transport.last(2).(protocol.LobbyEnterRoomOK); !is {
		t.Fatalf("got %+v, want enter ok", fx.transport.last(2))
	}

	_ = fx.d.handleEnterRoom(3, protocol.LobbyEnterRoom{RoomUID: made.RoomUID, Password: "pw"})
	if c := fx.transport.last(3).(protocol.LobbyEnterRoomCancel); c.Status != protocol.RoomCancelCrowdedRoom {
		t.Fatalf("full room status = %d", c.Status)
	}
}

func TestUnclaimedReservationIsReleased(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	loginAndSettle(t, fx, 1, "alice")

	_ = fx.d.handleMakeRoom(1, protocol.LobbyMakeRoom{Name: "fun", PlayerCount: 4})
	made := fx.transport.last(1).(protocol.LobbyMakeRoomOK)

	// The grace task fires once the tick clock passes the deadline. The
	// creator never reached the race endpoint, so the room dissolves.
	fx.d.Tick(time.Now().Add(8 * time.Second))
	if _, found := fx.d.rooms.Get(made.RoomUID); found {
		t.Fatal("empty room survived reservation reconciliation")
	}
}

func TestEnterRanchGrantsOwnRanch(t *testing.T) {
	fx := newLobbyFixture(t)
	charUID := fx.seedPlayer(t, "alice", "Rider")
	loginAndSettle(t, fx, 1, "alice")

	_ = fx.d.handleEnterRanch(1, protocol.LobbyEnterRanch{RancherUID: 0})
	ok, is := fx.transport.last(1).(protocol.LobbyEnterRanchOK)
	if !is || ok.RancherUID != charUID {
		t.Fatalf("got %+v", fx.transport.last(1))
	}
	if !fx.d.otp.Authorize(otp.IdentityHash(charUID), ok.OneTimePassword) {
		t.Fatal("ranch code does not authorize")
	}
}

func TestEnterRanchRespectsLock(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	bobUID := fx.seedPlayer(t, "bob", "Bobby")
	loginAndSettle(t, fx, 1, "alice")
	loginAndSettle(t, fx, 2, "bob")

	_ = fx.d.handleChangeRanchOption(2, protocol.LobbyChangeRanchOption{Option: 1})
	_ = fx.d.handleEnterRanch(1, protocol.LobbyEnterRanch{RancherUID: bobUID})
	if _, is := fx.transport.last(1).(protocol.LobbyEnterRanchCancel); !is {
		t.Fatalf("got %+v, want cancel for locked ranch", fx.transport.last(1))
	}
}

func TestDisconnectTearsDownSession(t *testing.T) {
	fx := newLobbyFixture(t)
	fx.seedPlayer(t, "alice", "Rider")
	loginAndSettle(t, fx, 1, "alice")

	fx.d.HandleClientDisconnected(1)
	if fx.d.PlayersOnline() != 0 {
		t.Fatal("session survived disconnect")
	}

	// The account can log in again afterwards.
	loginAndSettle(t, fx, 2, "alice")
	if fx.d.PlayersOnline() != 1 {
		t.Fatal("relogin failed")
	}
}
