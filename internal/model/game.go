package model

import "time"

// Game is one entry in the collection.
//
// Rating and CoverImage are optional: nil means unrated / no cover, and both
// map to NULL columns in the store. OwnerID and AddedDate are set on create
// and never change; only the owner may edit or delete a game, which the
// repository enforces in its WHERE clauses.
type Game struct {
	ID         int64     `db:"id"` // store-assigned numeric key
	Title      string    `db:"title"`
	Developer  string    `db:"developer"`
	Platform   string    `db:"platform"`
	OwnerID    int64     `db:"owner_id"`
	Rating     *int      `db:"rating"`      // nil = unrated
	CoverImage []byte    `db:"cover_image"` // nil = no cover
	AddedDate  time.Time `db:"added_date"`
}

// HasCover reports whether a cover image was uploaded for this game.
// Templates use it to decide whether to render an <img> pointing at /cover.
func (g Game) HasCover() bool {
	return len(g.CoverImage) > 0
}
