// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account created on first login.
//
// The identity provider (GitHub OAuth, or the local fallback login) supplies a
// stable external identifier, stored in ProviderID. We never key anything on
// the nickname; nicknames can change, provider IDs cannot.
//
// Name is the provider nickname truncated at the first "@". For an email-style
// nickname like "alice@example.com" we only ever display "alice".
//
// Lifecycle: created lazily by IdentityService.EnsureUser the first time a
// provider ID is seen. Never updated or deleted afterwards.
type User struct {
	ID         int64     `db:"id"`          // store-assigned numeric key
	ProviderID string    `db:"provider_id"` // identity provider's stable user ID
	Name       string    `db:"name"`        // display name, nickname before "@"
	CreatedAt  time.Time `db:"created_at"`
}
