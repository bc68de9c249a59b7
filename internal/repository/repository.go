package repository

import (
	"context"

	"github.com/dmoren/ludoteca/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*model.User, error)
}

// GameRepository is the data layer for collection entries.
//
// The owner-scoped methods (GetOwned, Update, Delete) take the caller's user
// key and match it in the query itself. A wrong owner behaves exactly like a
// missing row: ErrNotFound, no mutation.
type GameRepository interface {
	Create(ctx context.Context, game *model.Game) error
	// Get looks a game up by key regardless of owner (covers are visible to
	// everyone who can see the listing).
	Get(ctx context.Context, id int64) (*model.Game, error)
	// GetOwned looks a game up by key, constrained to the given owner.
	GetOwned(ctx context.Context, id, ownerID int64) (*model.Game, error)
	// List returns every game in the store ordered by added date ascending,
	// ties broken by key.
	List(ctx context.Context) ([]model.Game, error)
	// Update overwrites the mutable fields of a game, constrained to the
	// owner recorded in the struct. Owner and added date are never written.
	Update(ctx context.Context, game *model.Game) error
	Delete(ctx context.Context, id, ownerID int64) error
}
