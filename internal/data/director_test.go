package data

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"gallop.gg/internal/infraction"
	"gallop.gg/internal/protocol"
)

func newTestDirector(t *testing.T) (*Director, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewDirector(store, log.New(io.Discard, "", 0)), store
}

func waitUserState(t *testing.T, d *Director, name string, want LoadState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if state, ok := d.UserLoadState(name); ok && state == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("user %q never reached state %d", name, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitCharacterState(t *testing.T, d *Director, uid uint32, want LoadState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if state, ok := d.CharacterLoadState(uid); ok && state == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("character %d never reached state %d", uid, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestUserLoadLifecycle(t *testing.T) {
	d, store := newTestDirector(t)
	store.SeedUser(User{Name: "alice", Token: "tok"})
	_ = store.AddInfraction(context.Background(), "alice", infraction.Infraction{Kind: infraction.KindWarning})

	if _, ok := d.UserLoadState("alice"); ok {
		t.Fatal("state known before any request")
	}
	d.RequestLoadUser("alice")
	waitUserState(t, d, "alice", LoadReady)

	rec, ok := d.User("alice")
	if !ok {
		t.Fatal("ready user not returned")
	}
	if got := rec.Value(); got.Token != "tok" {
		t.Fatalf("token = %q", got.Token)
	}
	if list := d.UserInfractions("alice"); len(list) != 1 {
		t.Fatalf("infractions = %d, want 1", len(list))
	}
}

func TestUnknownUserLoadFails(t *testing.T) {
	d, _ := newTestDirector(t)
	d.RequestLoadUser("ghost")
	waitUserState(t, d, "ghost", LoadFailed)
	if _, ok := d.User("ghost"); ok {
		t.Fatal("failed load must not yield a record")
	}

	// Eviction lets a later login retry.
	d.ForgetUser("ghost")
	if _, ok := d.UserLoadState("ghost"); ok {
		t.Fatal("forgotten user still tracked")
	}
}

func TestCharacterLoadPullsHorseAndGuild(t *testing.T) {
	d, store := newTestDirector(t)
	store.SeedGuild(Guild{UID: 5, Name: "Windriders"})
	horseUID, err := store.CreateHorse(context.Background(), Horse{Horse: protocol.Horse{TID: 20002, Name: "Star"}})
	if err != nil {
		t.Fatalf("create horse: %v", err)
	}
	charUID, err := store.CreateCharacter(context.Background(), Character{
		UserName: "alice", Name: "Rider", HorseUID: horseUID, GuildUID: 5,
	})
	if err != nil {
		t.Fatalf("create character: %v", err)
	}

	d.RequestLoadCharacter(charUID)
	waitCharacterState(t, d, charUID, LoadReady)

	if _, ok := d.Horse(horseUID); !ok {
		t.Fatal("mount not cached with its character")
	}
	g, ok := d.Guild(5)
	if !ok || g.Name != "Windriders" {
		t.Fatalf("guild not cached: %+v ok=%v", g, ok)
	}
}

func TestCreateCharacterBindsAccount(t *testing.T) {
	d, store := newTestDirector(t)
	store.SeedUser(User{Name: "bob", Token: "tok"})
	d.RequestLoadUser("bob")
	waitUserState(t, d, "bob", LoadReady)

	c, err := d.CreateCharacter(context.Background(), Character{UserName: "bob", Name: "Bobby", Level: 60}, protocol.Horse{TID: 20002, Name: "Star"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.UID == 0 || c.HorseUID == 0 {
		t.Fatalf("uids not allocated: %+v", c)
	}

	u, err := store.UserByName(context.Background(), "bob")
	if err != nil || u.CharacterUID != c.UID {
		t.Fatalf("account not bound: %+v err=%v", u, err)
	}
	if _, ok := d.Character(c.UID); !ok {
		t.Fatal("created character not cached ready")
	}

	stored, err := store.Horse(context.Background(), c.HorseUID)
	if err != nil {
		t.Fatalf("horse: %v", err)
	}
	if stored.OwnerUID != c.UID {
		t.Fatalf("horse owner = %d, want %d", stored.OwnerUID, c.UID)
	}
}

func TestPersistCharacterWritesBack(t *testing.T) {
	d, store := newTestDirector(t)
	uid, err := store.CreateCharacter(context.Background(), Character{UserName: "alice", Name: "Rider", Carrots: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	d.RequestLoadCharacter(uid)
	waitCharacterState(t, d, uid, LoadReady)

	rec, _ := d.Character(uid)
	rec.Mutable(func(c *Character) { c.Carrots = 42 })
	d.PersistCharacter(uid)

	deadline := time.Now().Add(5 * time.Second)
	for {
		c, err := store.Character(context.Background(), uid)
		if err == nil && c.Carrots == 42 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("write-back never landed, carrots = %d", c.Carrots)
		}
		time.Sleep(time.Millisecond)
	}
}
