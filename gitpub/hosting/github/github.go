package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitpub/gitpub/hosting"
)

// defaultHost is the noreply host for github.com
// accounts.
const defaultHost = "github.com"

// Config holds the settings needed to create a GitHub
// hosting provider.
type Config struct {
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// BaseURL overrides the API base URL entirely.
	// Takes precedence over EnterpriseHost. Mainly
	// useful for tests.
	BaseURL string
}

// Provider manages repositories, webhooks, and the
// authenticated user on GitHub.
//
// Pattern: Strategy -- implements hosting.Provider.
type Provider struct {
	client *gh.Client
	host   string
}

// NewProvider validates cfg and returns a Provider
// ready to use.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.AccessToken)

	host := defaultHost

	switch {
	case cfg.BaseURL != "":
		var err error

		client, err = client.WithEnterpriseURLs(
			cfg.BaseURL, cfg.BaseURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: base url: %w", errCtx, err,
			)
		}

		if cfg.EnterpriseHost != "" {
			host = cfg.EnterpriseHost
		}

	case cfg.EnterpriseHost != "":
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}

		host = cfg.EnterpriseHost
	}

	return &Provider{
		client: client,
		host:   host,
	}, nil
}

// Name returns the provider key.
func (p *Provider) Name() string {
	return "github"
}

// NoReplyHost returns the host used for synthesized
// noreply commit addresses.
func (p *Provider) NoReplyHost() string {
	return p.host
}

// GetRepository returns the named repository under the
// authenticated user, or (nil, nil) when it does not
// exist (HTTP 404).
func (p *Provider) GetRepository(
	ctx context.Context,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "getting github repository"

	login, err := p.login(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	repo, resp, err := p.client.Repositories.Get(
		ctx, login, name,
	)
	if err != nil {
		// HTTP 404: absence, not failure.
		if resp != nil &&
			resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return convertRepository(repo), nil
}

// CreateRepository creates the named repository under
// the authenticated user.
func (p *Provider) CreateRepository(
	ctx context.Context,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "creating github repository"

	repo, _, err := p.client.Repositories.Create(
		ctx, "", &gh.Repository{Name: &name},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"created repository",
		"url", repo.GetHTMLURL(),
	)

	return convertRepository(repo), nil
}

// CreateWebhook registers an active "web" hook with JSON
// content type on the named repository.
func (p *Provider) CreateWebhook(
	ctx context.Context,
	repoName string,
	url string,
) error {
	const errCtx = "creating github webhook"

	login, err := p.login(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	hookName := "web"
	contentType := "json"
	active := true

	hook := &gh.Hook{
		Name:   &hookName,
		Active: &active,
		Config: &gh.HookConfig{
			URL:         &url,
			ContentType: &contentType,
		},
	}

	created, _, err := p.client.Repositories.CreateHook(
		ctx, login, repoName, hook,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"created webhook",
		"repo", repoName,
		"id", created.GetID(),
	)

	return nil
}

// CurrentUser returns the authenticated user.
func (p *Provider) CurrentUser(
	ctx context.Context,
) (*hosting.User, error) {
	const errCtx = "getting github user"

	user, _, err := p.client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &hosting.User{
		ID:        user.GetID(),
		Login:     user.GetLogin(),
		Email:     user.GetEmail(),
		CreatedAt: user.GetCreatedAt().Time,
	}, nil
}

// login resolves the authenticated user's login name.
func (p *Provider) login(
	ctx context.Context,
) (string, error) {
	user, _, err := p.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf(
			"getting authenticated user: %w", err,
		)
	}

	return user.GetLogin(), nil
}

// convertRepository maps the API representation to the
// hosting carrier.
func convertRepository(
	repo *gh.Repository,
) *hosting.Repository {
	return &hosting.Repository{
		Name:     repo.GetName(),
		CloneURL: repo.GetCloneURL(),
		HTMLURL:  repo.GetHTMLURL(),
	}
}
