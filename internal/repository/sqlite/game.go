package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmoren/ludoteca/internal/apperror"
	"github.com/dmoren/ludoteca/internal/model"
	"github.com/dmoren/ludoteca/internal/repository"
)

// compile-time check that *DB implements repository.GameRepository
var _ repository.GameRepository = (*DB)(nil)

const gameColumns = `id, title, developer, platform, owner_id, rating, cover_image, added_date`

// Create inserts a new game and fills in the store-assigned key.
//
// Rating is a *int: a nil pointer becomes NULL, which is how "unrated" is
// persisted. Same for a nil CoverImage slice. The callers never pass sentinel
// values like 0 or "".
func (db *DB) Create(ctx context.Context, game *model.Game) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO games (title, developer, platform, owner_id, rating, cover_image, added_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		game.Title,
		game.Developer,
		game.Platform,
		game.OwnerID,
		game.Rating,
		game.CoverImage,
		game.AddedDate,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating game: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading game insert id: %w", err)
	}
	game.ID = id

	return nil
}

// Get retrieves a game by its key regardless of owner.
func (db *DB) Get(ctx context.Context, id int64) (*model.Game, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`, id)

	game, err := scanGame(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("game", id)
		}
		return nil, fmt.Errorf("sqlite: getting game %d: %w", id, err)
	}

	return game, nil
}

// GetOwned retrieves a game by its key, constrained to the given owner.
//
// A game that exists but belongs to someone else is indistinguishable from a
// game that doesn't exist: both are ErrNotFound. The delete/edit paths must
// not leak whether a foreign key is in use.
func (db *DB) GetOwned(ctx context.Context, id, ownerID int64) (*model.Game, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ? AND owner_id = ?`, id, ownerID)

	game, err := scanGame(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("game", id)
		}
		return nil, fmt.Errorf("sqlite: getting game %d for owner %d: %w", id, ownerID, err)
	}

	return game, nil
}

// List returns every game in the store, ordered by added date ascending.
// Ties on the date are broken by key, so the listing order is deterministic
// (insertion order for games added the same day).
func (db *DB) List(ctx context.Context) ([]model.Game, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY added_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning game row: %w", err)
		}
		games = append(games, *game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating games: %w", err)
	}

	return games, nil
}

// Update overwrites the mutable fields of a game, constrained to the owner
// recorded in the struct. owner_id and added_date are never in the SET list.
//
// RowsAffected distinguishes "updated" from "no such game for this owner":
// zero rows means the WHERE clause matched nothing, which the caller surfaces
// as not found rather than a fault.
func (db *DB) Update(ctx context.Context, game *model.Game) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE games
		 SET title = ?, developer = ?, platform = ?, rating = ?, cover_image = ?
		 WHERE id = ? AND owner_id = ?`,
		game.Title,
		game.Developer,
		game.Platform,
		game.Rating,
		game.CoverImage,
		game.ID,
		game.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating game %d: %w", game.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("game", game.ID)
	}

	return nil
}

// Delete removes a game, constrained to the given owner.
// Deleting a missing (or foreign) game returns ErrNotFound, never a fault;
// repeating a successful delete is a no-op at the handler level.
func (db *DB) Delete(ctx context.Context, id, ownerID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM games WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting game %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("game", id)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows, so scanGame serves the
// single-row and multi-row query paths alike.
type scanner interface {
	Scan(dest ...any) error
}

func scanGame(s scanner) (*model.Game, error) {
	var (
		g      model.Game
		rating sql.NullInt64
	)

	if err := s.Scan(
		&g.ID,
		&g.Title,
		&g.Developer,
		&g.Platform,
		&g.OwnerID,
		&rating,
		&g.CoverImage,
		&g.AddedDate,
	); err != nil {
		return nil, err
	}

	if rating.Valid {
		r := int(rating.Int64)
		g.Rating = &r
	}

	return &g, nil
}
