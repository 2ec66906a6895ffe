package data

import (
	"context"
	"errors"

	"gallop.gg/internal/infraction"
)

// ErrNotFound marks a missing record; callers turn it into the protocol
// cancel appropriate for their endpoint.
var ErrNotFound = errors.New("data: record not found")

// Store is the durable record backend. Implementations must be safe for
// concurrent use; the directors call them from load goroutines.
type Store interface {
	UserByName(ctx context.Context, name string) (User, error)
	SaveUser(ctx context.Context, u User) error

	Character(ctx context.Context, uid uint32) (Character, error)
	// CreateCharacter allocates the uid and persists the record.
	CreateCharacter(ctx context.Context, c Character) (uint32, error)
	SaveCharacter(ctx context.Context, c Character) error

	Horse(ctx context.Context, uid uint32) (Horse, error)
	CreateHorse(ctx context.Context, h Horse) (uint32, error)
	SaveHorse(ctx context.Context, h Horse) error

	Guild(ctx context.Context, uid uint32) (Guild, error)

	Infractions(ctx context.Context, userName string) ([]infraction.Infraction, error)
	AddInfraction(ctx context.Context, userName string, inf infraction.Infraction) error

	Close() error
}
