package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dmoren/ludoteca/internal/apperror"
	"github.com/dmoren/ludoteca/internal/auth"
)

func newTestIdentityService(t *testing.T, users *mockUserRepo, localUser, localHash string) *IdentityService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)
	return NewIdentityService(users, tokens, passwords, localUser, localHash, testLogger())
}

func TestEnsureUser_CreatesOnFirstLogin(t *testing.T) {
	users := newMockUserRepo()
	s := newTestIdentityService(t, users, "", "")

	user, err := s.EnsureUser(context.Background(), &auth.Identity{
		ProviderID: "u1",
		Nickname:   "alice@example.com",
	})
	if err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}

	if user.ProviderID != "u1" {
		t.Errorf("ProviderID = %q, want %q", user.ProviderID, "u1")
	}
	// Nickname truncated at the first "@".
	if user.Name != "alice" {
		t.Errorf("Name = %q, want %q", user.Name, "alice")
	}
}

func TestEnsureUser_IdempotentPerProviderID(t *testing.T) {
	users := newMockUserRepo()
	s := newTestIdentityService(t, users, "", "")

	ident := &auth.Identity{ProviderID: "u1", Nickname: "alice@example.com"}

	first, err := s.EnsureUser(context.Background(), ident)
	if err != nil {
		t.Fatalf("first EnsureUser() error = %v", err)
	}
	second, err := s.EnsureUser(context.Background(), ident)
	if err != nil {
		t.Fatalf("second EnsureUser() error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("repeat login created a new user: %d then %d", first.ID, second.ID)
	}
	if len(users.users) != 1 {
		t.Errorf("store has %d users, want 1", len(users.users))
	}
}

func TestEnsureUser_NeverRenames(t *testing.T) {
	users := newMockUserRepo()
	s := newTestIdentityService(t, users, "", "")

	if _, err := s.EnsureUser(context.Background(), &auth.Identity{
		ProviderID: "u1", Nickname: "alice@example.com",
	}); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}

	// Same identity comes back with a changed nickname; the stored name
	// must stay what it was at creation.
	user, err := s.EnsureUser(context.Background(), &auth.Identity{
		ProviderID: "u1", Nickname: "renamed@example.com",
	})
	if err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	if user.Name != "alice" {
		t.Errorf("Name = %q after nickname change, want original %q", user.Name, "alice")
	}
}

func TestLogin_IssuesValidToken(t *testing.T) {
	users := newMockUserRepo()
	s := newTestIdentityService(t, users, "", "")

	res, err := s.Login(context.Background(), &auth.Identity{
		ProviderID: "u1", Nickname: "alice",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Token == "" {
		t.Error("Login() returned empty token")
	}
	if res.User == nil || res.User.ID == 0 {
		t.Fatal("Login() returned no user")
	}
}

func TestLoginLocal_Disabled(t *testing.T) {
	s := newTestIdentityService(t, newMockUserRepo(), "", "")

	_, err := s.LoginLocal(context.Background(), "admin", "whatever")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("LoginLocal() error = %v, want ErrForbidden", err)
	}
}

func TestLoginLocal(t *testing.T) {
	passwords := auth.NewPasswordServiceForTest(4)
	hash, err := passwords.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	users := newMockUserRepo()
	s := newTestIdentityService(t, users, "admin", hash)

	t.Run("correct credentials", func(t *testing.T) {
		res, err := s.LoginLocal(context.Background(), "admin", "hunter2")
		if err != nil {
			t.Fatalf("LoginLocal() error = %v", err)
		}
		if res.User.ProviderID != "local:admin" {
			t.Errorf("ProviderID = %q, want %q", res.User.ProviderID, "local:admin")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.LoginLocal(context.Background(), "admin", "wrong")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("LoginLocal() error = %v, want ErrValidation", err)
		}
	})

	t.Run("wrong username", func(t *testing.T) {
		_, err := s.LoginLocal(context.Background(), "root", "hunter2")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("LoginLocal() error = %v, want ErrValidation", err)
		}
	})
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		nickname string
		want     string
	}{
		{"alice@example.com", "alice"},
		{"bob", "bob"},
		{"carol@corp@weird", "carol"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := displayName(tt.nickname); got != tt.want {
			t.Errorf("displayName(%q) = %q, want %q", tt.nickname, got, tt.want)
		}
	}
}
