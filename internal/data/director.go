package data

import (
	"context"
	"log"
	"sync"
	"time"

	"gallop.gg/internal/infraction"
	"gallop.gg/internal/protocol"
)

// LoadState tracks an asynchronous record load.
type LoadState uint8

const (
	LoadPending LoadState = iota
	LoadReady
	LoadFailed
)

type userSlot struct {
	state       LoadState
	rec         *Record[User]
	infractions []infraction.Infraction
}

type charSlot struct {
	state LoadState
	rec   *Record[Character]
}

// Director is the record cache shared by the endpoint directors. Loads
// run on their own goroutines; the endpoint ticks poll the load state and
// act once a record settles.
type Director struct {
	store Store
	log   *log.Logger

	mu         sync.Mutex
	users      map[string]*userSlot
	characters map[uint32]*charSlot
	horses     map[uint32]*Record[Horse]
	guilds     map[uint32]Guild
}

func NewDirector(store Store, logger *log.Logger) *Director {
	return &Director{
		store:      store,
		log:        logger,
		users:      make(map[string]*userSlot),
		characters: make(map[uint32]*charSlot),
		horses:     make(map[uint32]*Record[Horse]),
		guilds:     make(map[uint32]Guild),
	}
}

const loadTimeout = 10 * time.Second

// RequestLoadUser starts loading the account and its infractions unless
// a load is already in flight or settled.
func (d *Director) RequestLoadUser(name string) {
	d.mu.Lock()
	if _, in := d.users[name]; in {
		d.mu.Unlock()
		return
	}
	d.users[name] = &userSlot{state: LoadPending}
	d.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		u, err := d.store.UserByName(ctx, name)
		if err != nil {
			if err != ErrNotFound {
				d.log.Printf("user %q load: %v", name, err)
			}
			d.settleUser(name, nil, nil, LoadFailed)
			return
		}
		infractions, err := d.store.Infractions(ctx, name)
		if err != nil {
			d.log.Printf("user %q infractions: %v", name, err)
			d.settleUser(name, nil, nil, LoadFailed)
			return
		}
		d.settleUser(name, NewRecord(u), infractions, LoadReady)
	}()
}

func (d *Director) settleUser(name string, rec *Record[User], infractions []infraction.Infraction, state LoadState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot := d.users[name]
	if slot == nil {
		return
	}
	slot.state = state
	slot.rec = rec
	slot.infractions = infractions
}

// UserLoadState reports the load state; ok is false when no load was
// ever requested.
func (d *Director) UserLoadState(name string) (LoadState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot, in := d.users[name]
	if !in {
		return LoadPending, false
	}
	return slot.state, true
}

// User returns the cached account record once its load settled ready.
func (d *Director) User(name string) (*Record[User], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot, in := d.users[name]
	if !in || slot.state != LoadReady {
		return nil, false
	}
	return slot.rec, true
}

// UserInfractions returns the sanctions loaded with the account.
func (d *Director) UserInfractions(name string) []infraction.Infraction {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot, in := d.users[name]
	if !in || slot.state != LoadReady {
		return nil
	}
	return slot.infractions
}

// ForgetUser evicts a failed load so a later login can retry.
func (d *Director) ForgetUser(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, name)
}

// RequestLoadCharacter starts loading the character together with its
// mount and guild.
func (d *Director) RequestLoadCharacter(uid uint32) {
	d.mu.Lock()
	if _, in := d.characters[uid]; in {
		d.mu.Unlock()
		return
	}
	d.characters[uid] = &charSlot{state: LoadPending}
	d.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		c, err := d.store.Character(ctx, uid)
		if err != nil {
			if err != ErrNotFound {
				d.log.Printf("character %d load: %v", uid, err)
			}
			d.settleCharacter(uid, nil, LoadFailed)
			return
		}

		var horse *Record[Horse]
		if c.HorseUID != 0 {
			h, err := d.store.Horse(ctx, c.HorseUID)
			if err != nil {
				d.log.Printf("character %d horse %d load: %v", uid, c.HorseUID, err)
				d.settleCharacter(uid, nil, LoadFailed)
				return
			}
			horse = NewRecord(h)
		}
		var guild *Guild
		if c.GuildUID != 0 {
			g, err := d.store.Guild(ctx, c.GuildUID)
			if err == nil {
				guild = &g
			} else if err != ErrNotFound {
				d.log.Printf("character %d guild %d load: %v", uid, c.GuildUID, err)
			}
		}

		d.mu.Lock()
		if horse != nil {
			d.horses[c.HorseUID] = horse
		}
		if guild != nil {
			d.guilds[guild.UID] = *guild
		}
		d.mu.Unlock()
		d.settleCharacter(uid, NewRecord(c), LoadReady)
	}()
}

func (d *Director) settleCharacter(uid uint32, rec *Record[Character], state LoadState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot := d.characters[uid]
	if slot == nil {
		return
	}
	slot.state = state
	slot.rec = rec
}

func (d *Director) CharacterLoadState(uid uint32) (LoadState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot, in := d.characters[uid]
	if !in {
		return LoadPending, false
	}
	return slot.state, true
}

func (d *Director) Character(uid uint32) (*Record[Character], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot, in := d.characters[uid]
	if !in || slot.state != LoadReady {
		return nil, false
	}
	return slot.rec, true
}

func (d *Director) Horse(uid uint32) (*Record[Horse], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, in := d.horses[uid]
	return rec, in
}

func (d *Director) Guild(uid uint32) (Guild, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, in := d.guilds[uid]
	return g, in
}

// CreateCharacter persists a fresh character with its starter horse and
// binds both to the account. The new records enter the cache ready.
func (d *Director) CreateCharacter(ctx context.Context, c Character, mount protocol.Horse) (Character, error) {
	horseUID, err := d.store.CreateHorse(ctx, Horse{Horse: mount})
	if err != nil {
		return Character{}, err
	}
	c.HorseUID = horseUID
	uid, err := d.store.CreateCharacter(ctx, c)
	if err != nil {
		return Character{}, err
	}
	c.UID = uid

	userRec, ok := d.User(c.UserName)
	if !ok {
		return Character{}, ErrNotFound
	}
	var u User
	userRec.Mutable(func(r *User) {
		r.CharacterUID = uid
		u = *r
	})
	if err := d.store.SaveUser(ctx, u); err != nil {
		return Character{}, err
	}

	h := Horse{UID: horseUID, OwnerUID: uid, Horse: mount}
	h.Horse.UID = horseUID
	_ = d.store.SaveHorse(ctx, h)

	d.mu.Lock()
	d.characters[uid] = &charSlot{state: LoadReady, rec: NewRecord(c)}
	d.horses[horseUID] = NewRecord(h)
	d.mu.Unlock()
	return c, nil
}

// PersistCharacter writes the cached character record back to the store.
func (d *Director) PersistCharacter(uid uint32) {
	rec, ok := d.Character(uid)
	if !ok {
		return
	}
	c := rec.Value()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if err := d.store.SaveCharacter(ctx, c); err != nil {
			d.log.Printf("character %d save: %v", uid, err)
		}
	}()
}

// PersistHorse writes the cached horse record back to the store.
func (d *Director) PersistHorse(uid uint32) {
	rec, ok := d.Horse(uid)
	if !ok {
		return
	}
	h := rec.Value()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		if err := d.store.SaveHorse(ctx, h); err != nil {
			d.log.Printf("horse %d save: %v", uid, err)
		}
	}()
}
