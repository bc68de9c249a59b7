package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/dmoren/ludoteca/internal/apperror"
	"github.com/dmoren/ludoteca/internal/model"
)

// Hand-written in-memory mocks for the repository interfaces. The services
// only see the interfaces, so these stand in for the sqlite store without
// any setup cost.

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type mockUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.ProviderID == user.ProviderID {
			return apperror.Conflict("user", "provider id already registered")
		}
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByProviderID(_ context.Context, providerID string) (*model.User, error) {
	for _, u := range m.users {
		if u.ProviderID == providerID {
			result := *u
			return &result, nil
		}
	}
	return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
}

type mockGameRepo struct {
	games  map[int64]*model.Game
	nextID int64
}

func newMockGameRepo() *mockGameRepo {
	return &mockGameRepo{games: make(map[int64]*model.Game)}
}

func (m *mockGameRepo) Create(_ context.Context, game *model.Game) error {
	m.nextID++
	game.ID = m.nextID
	stored := *game
	m.games[game.ID] = &stored
	return nil
}

func (m *mockGameRepo) Get(_ context.Context, id int64) (*model.Game, error) {
	g, ok := m.games[id]
	if !ok {
		return nil, apperror.NotFound("game", id)
	}
	result := *g
	return &result, nil
}

func (m *mockGameRepo) GetOwned(_ context.Context, id, ownerID int64) (*model.Game, error) {
	g, ok := m.games[id]
	if !ok || g.OwnerID != ownerID {
		return nil, apperror.NotFound("game", id)
	}
	result := *g
	return &result, nil
}

func (m *mockGameRepo) List(_ context.Context) ([]model.Game, error) {
	result := make([]model.Game, 0, len(m.games))
	for _, g := range m.games {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].AddedDate.Equal(result[j].AddedDate) {
			return result[i].AddedDate.Before(result[j].AddedDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *mockGameRepo) Update(_ context.Context, game *model.Game) error {
	existing, ok := m.games[game.ID]
	if !ok || existing.OwnerID != game.OwnerID {
		return apperror.NotFound("game", game.ID)
	}
	stored := *game
	stored.OwnerID = existing.OwnerID
	stored.AddedDate = existing.AddedDate
	m.games[game.ID] = &stored
	return nil
}

func (m *mockGameRepo) Delete(_ context.Context, id, ownerID int64) error {
	g, ok := m.games[id]
	if !ok || g.OwnerID != ownerID {
		return apperror.NotFound("game", id)
	}
	delete(m.games, id)
	return nil
}
