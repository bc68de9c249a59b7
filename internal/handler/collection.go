package handler

import (
	"log/slog"
	"net/http"

	"github.com/dmoren/ludoteca/internal/auth"
	"github.com/dmoren/ludoteca/internal/service"
)

// CollectionHandler renders the main listing page.
type CollectionHandler struct {
	renderer   *Renderer
	collection *service.CollectionService
	identity   *service.IdentityService
	logger     *slog.Logger
}

func NewCollectionHandler(
	renderer *Renderer,
	collection *service.CollectionService,
	identity *service.IdentityService,
	logger *slog.Logger,
) *CollectionHandler {
	return &CollectionHandler{
		renderer:   renderer,
		collection: collection,
		identity:   identity,
		logger:     logger,
	}
}

// HandleCollection serves GET /coleccion. Runs under RequireAuth.
//
// The listing shows every user's games (the collection is shared for
// viewing); owners[i] is the User owning games[i], which the template joins
// by index. The add/del/edi/game query parameters are passed straight
// through to the template as display hints for the action that was just
// performed; they have no effect on what is listed.
func (h *CollectionHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.identity.CurrentUser(r.Context(), userID)
	if err != nil {
		// A session referencing a user the store no longer knows:
		// treat as logged out.
		h.logger.Warn("session for unknown user", slog.Int64("userID", userID))
		clearSessionCookie(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	games, owners, err := h.collection.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list collection", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	h.renderer.Render(w, "coleccion", map[string]any{
		"Title":  "Ludoteca — colección",
		"User":   user,
		"Games":  games,
		"Owners": owners,
		"Add":    q.Get("add"),
		"Del":    q.Get("del"),
		"Edi":    q.Get("edi"),
		"Game":   q.Get("game"),
	})
}
