package hosting

import (
	"context"
	"time"
)

// Pattern: Strategy -- swap git hosting platform without
// changing the publishing logic.

// Repository is the hosting API representation of a
// repository owned by the authenticated user.
type Repository struct {
	// Name is the repository name (without owner).
	Name string
	// CloneURL is the HTTPS clone URL.
	CloneURL string
	// HTMLURL is the browser URL of the repository.
	HTMLURL string
}

// User is the hosting API representation of the
// authenticated account.
type User struct {
	// ID is the numeric account identifier.
	ID int64
	// Login is the account login name.
	Login string
	// Email is the public commit email. Empty when the
	// account does not expose one.
	Email string
	// CreatedAt is the account creation time.
	CreatedAt time.Time
}

// Provider manages repositories, webhooks, and the
// authenticated user on a git hosting platform.
type Provider interface {
	// Name is the provider key (e.g. "github"); it is
	// also the token lookup key for git credentials.
	Name() string

	// GetRepository returns the named repository under
	// the authenticated user, or (nil, nil) when it
	// does not exist. Any non-not-found failure is
	// returned as an error.
	GetRepository(
		ctx context.Context,
		name string,
	) (*Repository, error)

	// CreateRepository creates the named repository
	// under the authenticated user.
	CreateRepository(
		ctx context.Context,
		name string,
	) (*Repository, error)

	// CreateWebhook registers an active JSON webhook on
	// the named repository targeting url.
	CreateWebhook(
		ctx context.Context,
		repoName string,
		url string,
	) error

	// CurrentUser returns the authenticated user.
	CurrentUser(ctx context.Context) (*User, error)

	// NoReplyHost is the host used to synthesize
	// noreply commit addresses
	// (login@users.noreply.<host>).
	NoReplyHost() string
}
