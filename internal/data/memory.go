package data

import (
	"context"
	"sync"

	"gallop.gg/internal/infraction"
)

// MemoryStore keeps records in process. It backs tests and servers run
// without a records_path.
type MemoryStore struct {
	mu          sync.Mutex
	users       map[string]User
	characters  map[uint32]Character
	horses      map[uint32]Horse
	guilds      map[uint32]Guild
	infractions map[string][]infraction.Infraction
	charSeq     uint32
	horseSeq    uint32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]User),
		characters:  make(map[uint32]Character),
		horses:      make(map[uint32]Horse),
		guilds:      make(map[uint32]Guild),
		infractions: make(map[string][]infraction.Infraction),
	}
}

// SeedUser installs an account directly, for boot-time fixtures.
func (s *MemoryStore) SeedUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Name] = u
}

// SeedGuild installs a guild directly.
func (s *MemoryStore) SeedGuild(g Guild) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[g.UID] = g
}

func (s *MemoryStore) UserByName(_ context.Context, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Name] = u
	return nil
}

func (s *MemoryStore) Character(_ context.Context, uid uint32) (Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[uid]
	if !ok {
		return Character{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) CreateCharacter(_ context.Context, c Character) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charSeq++
	c.UID = s.charSeq
	s.characters[c.UID] = c
	return c.UID, nil
}

func (s *MemoryStore) SaveCharacter(_ context.Context, c Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.characters[c.UID]; !ok {
		return ErrNotFound
	}
	s.characters[c.UID] = c
	return nil
}

func (s *MemoryStore) Horse(_ context.Context, uid uint32) (Horse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.horses[uid]
	if !ok {
		return Horse{}, ErrNotFound
	}
	return h, nil
}

func (s *MemoryStore) CreateHorse(_ context.Context, h Horse) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.horseSeq++
	h.UID = s.horseSeq
	h.Horse.UID = h.UID
	s.horses[h.UID] = h
	return h.UID, nil
}

func (s *MemoryStore) SaveHorse(_ context.Context, h Horse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.horses[h.UID]; !ok {
		return ErrNotFound
	}
	s.horses[h.UID] = h
	return nil
}

func (s *MemoryStore) Guild(_ context.Context, uid uint32) (Guild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guilds[uid]
	if !ok {
		return Guild{}, ErrNotFound
	}
	return g, nil
}

func (s *MemoryStore) Infractions(_ context.Context, userName string) ([]infraction.Infraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.infractions[userName]
	out := make([]infraction.Infraction, len(list))
	copy(out, list)
	return out, nil
}

func (s *MemoryStore) AddInfraction(_ context.Context, userName string, inf infraction.Infraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infractions[userName] = append(s.infractions[userName], inf)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
