package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmoren/ludoteca/internal/apperror"
	"github.com/dmoren/ludoteca/internal/model"
	"github.com/dmoren/ludoteca/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user and fills in the store-assigned key.
//
// provider_id carries a UNIQUE constraint: two concurrent first logins for the
// same identity race at the store, one INSERT wins and the other reports a
// conflict. EnsureUser in the service layer retries the lookup on conflict,
// which makes lazy creation idempotent without any locking here.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (provider_id, name, created_at) VALUES (?, ?, ?)`,
		user.ProviderID,
		user.Name,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "provider id already registered")
		}
		return fmt.Errorf("sqlite: inserting user (providerID=%s): %w", user.ProviderID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading user insert id: %w", err)
	}
	user.ID = id

	return nil
}

// GetByID retrieves a user by their numeric key.
// Returns apperror.ErrNotFound if no user exists with that key.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, provider_id, name, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.ProviderID, &u.Name, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}

	return &u, nil
}

// GetByProviderID retrieves a user by the identity provider's stable ID.
func (db *DB) GetByProviderID(ctx context.Context, providerID string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, provider_id, name, created_at FROM users WHERE provider_id = ?`,
		providerID,
	).Scan(&u.ID, &u.ProviderID, &u.Name, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("user not found with provider id %s", providerID),
			}
		}
		return nil, fmt.Errorf("sqlite: getting user by provider id %s: %w", providerID, err)
	}

	return &u, nil
}
