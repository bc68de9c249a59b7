package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmoren/ludoteca/internal/apperror"
	"github.com/dmoren/ludoteca/internal/model"
	"github.com/dmoren/ludoteca/internal/repository"
)

const (
	MaxTitleLength = 200
	MaxNameLength  = 120     // developer / platform
	MaxCoverBytes  = 5 << 20 // 5 MiB per cover image
)

// GameInput carries the parsed form fields for adding or editing a game.
// Rating and Cover are optional; nil means "not supplied".
type GameInput struct {
	Title     string
	Developer string
	Platform  string
	Rating    *int
	Cover     []byte
}

// CollectionService handles the business rules of the shared collection:
// validation, ownership enforcement, and owner resolution for the listing.
type CollectionService struct {
	games  repository.GameRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewCollectionService(
	games repository.GameRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CollectionService {
	return &CollectionService{
		games:  games,
		users:  users,
		logger: logger,
	}
}

// List returns every game in the collection ordered by added date, together
// with a parallel slice of owners: owners[i] is the User who owns games[i].
//
// Owners are resolved one lookup per game. The listing is everyone's games
// (the collection is shared for viewing, per-user only for mutation), and the
// games → users foreign key guarantees every lookup succeeds.
func (s *CollectionService) List(ctx context.Context) ([]model.Game, []model.User, error) {
	games, err := s.games.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing games: %w", err)
	}

	owners := make([]model.User, 0, len(games))
	for _, g := range games {
		owner, err := s.users.GetByID(ctx, g.OwnerID)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving owner of game %d: %w", g.ID, err)
		}
		owners = append(owners, *owner)
	}

	return games, owners, nil
}

// Add validates and persists a new game owned by ownerID. The added date is
// set to the current date and never changes afterwards.
func (s *CollectionService) Add(ctx context.Context, ownerID int64, in GameInput) (*model.Game, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	game := &model.Game{
		Title:      in.Title,
		Developer:  in.Developer,
		Platform:   in.Platform,
		OwnerID:    ownerID,
		Rating:     in.Rating,
		CoverImage: in.Cover,
		AddedDate:  time.Now(),
	}

	if err := s.games.Create(ctx, game); err != nil {
		s.logger.Error("failed to add game",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding game: %w", err)
	}

	s.logger.Info("game added",
		slog.Int64("gameID", game.ID),
		slog.Int64("ownerID", ownerID),
		slog.String("title", game.Title),
	)

	return game, nil
}

// Get fetches a game for its owner. Non-owners get ErrNotFound, same as a
// missing key, so the edit form cannot reveal foreign games.
func (s *CollectionService) Get(ctx context.Context, id, ownerID int64) (*model.Game, error) {
	return s.games.GetOwned(ctx, id, ownerID)
}

// Update overwrites the mutable fields of a game owned by ownerID.
//
// The edit form requires a rating (unlike Add, where it's optional), so a nil
// Rating here is a validation error. A nil Cover means "keep the existing
// image": the cover is only replaced when a new upload was supplied.
// Owner and added date are never written here.
func (s *CollectionService) Update(ctx context.Context, id, ownerID int64, in GameInput) (*model.Game, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if in.Rating == nil {
		return nil, apperror.ValidationFailed("nota", "rating is required")
	}

	game, err := s.games.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	game.Title = in.Title
	game.Developer = in.Developer
	game.Platform = in.Platform
	game.Rating = in.Rating
	if len(in.Cover) > 0 {
		game.CoverImage = in.Cover
	}

	if err := s.games.Update(ctx, game); err != nil {
		s.logger.Error("failed to update game",
			slog.Int64("gameID", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating game %d: %w", id, err)
	}

	s.logger.Info("game updated",
		slog.Int64("gameID", game.ID),
		slog.Int64("ownerID", ownerID),
	)

	return game, nil
}

// Remove deletes a game owned by ownerID. A missing or foreign key returns
// ErrNotFound; the handler turns that into a silent redirect.
func (s *CollectionService) Remove(ctx context.Context, id, ownerID int64) error {
	if err := s.games.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.logger.Info("game deleted",
		slog.Int64("gameID", id),
		slog.Int64("ownerID", ownerID),
	)
	return nil
}

// Cover returns the stored cover image for a game, or ErrNotFound when the
// game has none. Covers are visible to anyone who can see the listing, so
// there is no owner constraint here.
func (s *CollectionService) Cover(ctx context.Context, id int64) ([]byte, error) {
	game, err := s.games.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !game.HasCover() {
		return nil, apperror.NotFound("cover", id)
	}
	return game.CoverImage, nil
}

func validateInput(in *GameInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Developer = strings.TrimSpace(in.Developer)
	in.Platform = strings.TrimSpace(in.Platform)

	if in.Title == "" {
		return apperror.ValidationFailed("titulo", "title is required")
	}
	if len(in.Title) > MaxTitleLength {
		return apperror.ValidationFailed("titulo",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if in.Developer == "" {
		return apperror.ValidationFailed("desarrolladora", "developer is required")
	}
	if len(in.Developer) > MaxNameLength {
		return apperror.ValidationFailed("desarrolladora",
			fmt.Sprintf("developer must be %d characters or less", MaxNameLength))
	}
	if in.Platform == "" {
		return apperror.ValidationFailed("plataforma", "platform is required")
	}
	if len(in.Platform) > MaxNameLength {
		return apperror.ValidationFailed("plataforma",
			fmt.Sprintf("platform must be %d characters or less", MaxNameLength))
	}
	if len(in.Cover) > MaxCoverBytes {
		return apperror.ValidationFailed("portada", "cover image is too large")
	}
	return nil
}
