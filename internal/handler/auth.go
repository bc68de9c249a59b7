package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/dmoren/ludoteca/internal/auth"
	"github.com/dmoren/ludoteca/internal/service"
)

// AuthHandler manages the login flows and session cookie lifecycle.
//
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → verify state, exchange the code, ensure the user,
//     set the session cookie
//   - HandleLocalLogin     → fallback form login (when OAuth isn't configured)
//   - HandleLogout         → clear the session cookie
type AuthHandler struct {
	github   *auth.GitHubProvider // nil when OAuth credentials aren't configured
	identity *service.IdentityService
	logger   *slog.Logger
}

func NewAuthHandler(github *auth.GitHubProvider, identity *service.IdentityService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		github:   github,
		identity: identity,
		logger:   logger,
	}
}

// HandleGitHubLogin serves GET /auth/github/login.
//
// A random state nonce goes into a short-lived cookie before the redirect;
// the callback verifies GitHub echoed the same value, which proves the
// callback belongs to a flow this server started.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback serves GET /auth/github/callback?code=xxx&state=yyy.
//
// Identity-provider failures on this path are treated as "not logged in":
// the user lands back on the login page, never on an error page (denials get
// a hint via ?auth=denied).
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch or missing state cookie")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ident, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?login=failed", http.StatusSeeOther)
		return
	}

	res, err := h.identity.Login(r.Context(), ident)
	if err != nil {
		h.logger.Error("auth callback: login failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?login=failed", http.StatusSeeOther)
		return
	}

	setSessionCookie(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLocalLogin serves POST /auth/login: the fallback form login.
func (h *AuthHandler) HandleLocalLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/?login=failed", http.StatusSeeOther)
		return
	}

	res, err := h.identity.LoginLocal(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		h.logger.Warn("local login rejected", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?login=failed", http.StatusSeeOther)
		return
	}

	setSessionCookie(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout serves POST /auth/logout.
//
// POST, not GET: logout changes state, and GET links get pre-fetched by
// browsers. "Logout" for a stateless session just means deleting the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// setSessionCookie stores the session JWT in an HttpOnly cookie.
// HttpOnly keeps it away from page scripts; SameSite=Lax withholds it on
// cross-site POSTs.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable when serving over HTTPS
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
