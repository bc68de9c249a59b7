package handler_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmoren/ludoteca/internal/auth"
	"github.com/dmoren/ludoteca/internal/handler"
	"github.com/dmoren/ludoteca/internal/repository/sqlite"
	"github.com/dmoren/ludoteca/internal/service"
)

// newAuthHandler builds an AuthHandler with the local form login enabled
// (username "admin", password "correct horse") and, optionally, a GitHub
// provider with dummy credentials.
func newAuthHandler(t *testing.T, withGitHub bool) *handler.AuthHandler {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	passwords := auth.NewPasswordServiceForTest(4)

	hash, err := passwords.Hash("correct horse")
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	identity := service.NewIdentityService(db, tokens, passwords, "admin", hash, logger)

	var github *auth.GitHubProvider
	if withGitHub {
		github = auth.NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback")
	}

	return handler.NewAuthHandler(github, identity, logger)
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	return nil
}

func TestHandleLocalLogin(t *testing.T) {
	h := newAuthHandler(t, false)

	req := postForm("/auth/login", url.Values{
		"username": {"admin"},
		"password": {"correct horse"},
	})
	rr := httptest.NewRecorder()

	h.HandleLocalLogin(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	c := sessionCookie(rr)
	if assert.NotNil(t, c, "successful login should set the session cookie") {
		assert.NotEmpty(t, c.Value)
		assert.True(t, c.HttpOnly)
	}
}

func TestHandleLocalLogin_WrongPassword(t *testing.T) {
	h := newAuthHandler(t, false)

	req := postForm("/auth/login", url.Values{
		"username": {"admin"},
		"password": {"wrong"},
	})
	rr := httptest.NewRecorder()

	h.HandleLocalLogin(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?login=failed", rr.Header().Get("Location"))
	assert.Nil(t, sessionCookie(rr))
}

func TestHandleLogout(t *testing.T) {
	h := newAuthHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rr := httptest.NewRecorder()

	h.HandleLogout(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	c := sessionCookie(rr)
	if assert.NotNil(t, c) {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestHandleGitHubLogin(t *testing.T) {
	h := newAuthHandler(t, true)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/login", nil)
	rr := httptest.NewRecorder()

	h.HandleGitHubLogin(rr, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	loc := rr.Header().Get("Location")
	assert.Contains(t, loc, "github.com")

	// The state in the redirect URL must match the state cookie.
	var state string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c.Value
		}
	}
	assert.NotEmpty(t, state)
	assert.Contains(t, loc, "state="+state)
}

func TestHandleGitHubLogin_NotConfigured(t *testing.T) {
	h := newAuthHandler(t, false)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/login", nil)
	rr := httptest.NewRecorder()

	h.HandleGitHubLogin(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestHandleGitHubCallback_StateMismatch(t *testing.T) {
	h := newAuthHandler(t, true)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "expected"})
	rr := httptest.NewRecorder()

	h.HandleGitHubCallback(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Nil(t, sessionCookie(rr))
}

func TestHandleGitHubCallback_UserDenied(t *testing.T) {
	h := newAuthHandler(t, true)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?error=access_denied&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	rr := httptest.NewRecorder()

	h.HandleGitHubCallback(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
}
