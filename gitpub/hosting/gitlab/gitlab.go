// Package gitlab implements a hosting.Provider backed by the GitLab
// API. Repositories map to projects in the authenticated user's
// personal namespace.
package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/gitpub/gitpub/hosting"
)

// defaultHost is the noreply host for gitlab.com
// accounts.
const defaultHost = "gitlab.com"

// Config holds the settings needed to create a GitLab
// hosting provider.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// AccessToken is a personal or project access
	// token used for authentication.
	AccessToken string
}

// Provider manages projects, hooks, and the
// authenticated user on GitLab.
//
// Pattern: Strategy -- implements hosting.Provider.
type Provider struct {
	client *gl.Client
	host   string
}

// NewProvider validates cfg and returns a Provider
// ready to use.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://" + defaultHost
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	noReply := defaultHost
	if parsed, parseErr := url.Parse(host); parseErr == nil &&
		parsed.Host != "" {
		noReply = parsed.Hostname()
	}

	return &Provider{
		client: client,
		host:   noReply,
	}, nil
}

// Name returns the provider key.
func (p *Provider) Name() string {
	return "gitlab"
}

// NoReplyHost returns the host used for synthesized
// noreply commit addresses.
func (p *Provider) NoReplyHost() string {
	return p.host
}

// GetRepository returns the named project in the
// authenticated user's namespace, or (nil, nil) when it
// does not exist (HTTP 404).
func (p *Provider) GetRepository(
	ctx context.Context,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "getting gitlab project"

	user, _, err := p.client.Users.CurrentUser(
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	pid := user.Username + "/" + name

	project, resp, err := p.client.Projects.GetProject(
		pid, nil, gl.WithContext(ctx),
	)
	if err != nil {
		// HTTP 404: absence, not failure.
		if resp != nil &&
			resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return convertProject(project), nil
}

// CreateRepository creates the named project in the
// authenticated user's namespace.
func (p *Provider) CreateRepository(
	ctx context.Context,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "creating gitlab project"

	project, _, err := p.client.Projects.CreateProject(
		&gl.CreateProjectOptions{
			Name: gl.Ptr(name),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"created project",
		"url", project.WebURL,
	)

	return convertProject(project), nil
}

// CreateWebhook registers an active push hook on the
// named project.
func (p *Provider) CreateWebhook(
	ctx context.Context,
	repoName string,
	hookURL string,
) error {
	const errCtx = "creating gitlab hook"

	user, _, err := p.client.Users.CurrentUser(
		gl.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	pid := user.Username + "/" + repoName

	hook, _, err := p.client.Projects.AddProjectHook(
		pid,
		&gl.AddProjectHookOptions{
			URL:        gl.Ptr(hookURL),
			PushEvents: gl.Ptr(true),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"created hook",
		"project", pid,
		"id", hook.ID,
	)

	return nil
}

// CurrentUser returns the authenticated user. GitLab
// exposes both a primary and an optional public email;
// the public one wins when present.
func (p *Provider) CurrentUser(
	ctx context.Context,
) (*hosting.User, error) {
	const errCtx = "getting gitlab user"

	user, _, err := p.client.Users.CurrentUser(
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	email := user.PublicEmail
	if email == "" {
		email = user.Email
	}

	converted := &hosting.User{
		ID:    int64(user.ID),
		Login: user.Username,
		Email: email,
	}

	if user.CreatedAt != nil {
		converted.CreatedAt = *user.CreatedAt
	}

	return converted, nil
}

// convertProject maps the API representation to the
// hosting carrier.
func convertProject(
	project *gl.Project,
) *hosting.Repository {
	return &hosting.Repository{
		Name:     project.Path,
		CloneURL: project.HTTPURLToRepo,
		HTMLURL:  project.WebURL,
	}
}
