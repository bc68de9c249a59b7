package handler

import (
	"log/slog"
	"net/http"

	"github.com/dmoren/ludoteca/internal/auth"
	"github.com/dmoren/ludoteca/internal/service"
)

// HomeHandler serves "/": the login page for anonymous visitors, a redirect
// to the collection for anyone with a valid session.
//
// User creation does not happen here: by the time a session exists, the
// login flow has already run IdentityService.EnsureUser. Home never touches
// the store.
type HomeHandler struct {
	renderer     *Renderer
	identity     *service.IdentityService
	githubLogin  bool // whether the GitHub OAuth provider is configured
	logger       *slog.Logger
}

func NewHomeHandler(renderer *Renderer, identity *service.IdentityService, githubLogin bool, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{
		renderer:    renderer,
		identity:    identity,
		githubLogin: githubLogin,
		logger:      logger,
	}
}

// HandleHome serves GET /. Runs under OptionalAuth.
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/coleccion", http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	h.renderer.Render(w, "login", map[string]any{
		"Title":       "Ludoteca",
		"GitHubLogin": h.githubLogin,
		"GitHubURL":   "/auth/github/login",
		"LocalLogin":  h.identity.LocalLoginEnabled(),
		"AuthDenied":  q.Get("auth") == "denied",
		"LoginFailed": q.Get("login") == "failed",
	})
}
