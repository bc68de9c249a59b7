package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Identity is what the identity provider tells us about the caller: a stable
// user ID and a display nickname. Everything else about a user lives in our
// own store.
type Identity struct {
	// ProviderID is stable across logins and never changes for a person.
	ProviderID string
	// Nickname is the provider's display handle. It may be an email-style
	// string; the service layer truncates it at the first "@" for display.
	Nickname string
}

// githubUser is the portion of the GitHub /user API response we care about.
type githubUser struct {
	ID    int64  `json:"id"`    // GitHub's numeric user ID, stable across renames
	Login string `json:"login"` // GitHub username, e.g. "dmoren"
	Email string `json:"email"` // Primary email (empty if hidden in GitHub settings)
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow. The server redirects the browser to GitHub, GitHub redirects back with
// a short-lived code, and Exchange trades that code for the user's identity.
// The token exchange happens server to server, so the access token never
// reaches the browser.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider with the given OAuth app
// credentials. callbackURL must match the authorization callback URL
// registered with GitHub exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
	}
}

// AuthURL returns the provider URL to redirect the user to for authorization.
//
// The state is a random nonce the caller stores in a cookie before
// redirecting; the callback handler verifies the provider echoed the same
// value. That binds the callback to a flow this server started (CSRF guard).
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for the
// caller's identity.
//
// The provider ID is prefixed with "github:" so identities from different
// providers (GitHub, the local fallback login) can never collide in the store.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// Config.Client returns an *http.Client that attaches the bearer token
	// to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser githubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	// Prefer the email as nickname when public: the display-name rule
	// (truncate at "@") then yields the mailbox name, matching what users
	// expect from provider-based logins. Fall back to the login handle.
	nickname := ghUser.Email
	if nickname == "" {
		nickname = ghUser.Login
	}

	return &Identity{
		ProviderID: fmt.Sprintf("github:%d", ghUser.ID),
		Nickname:   nickname,
	}, nil
}
