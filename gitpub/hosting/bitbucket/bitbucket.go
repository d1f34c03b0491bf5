// Package bitbucket implements a hosting.Provider for Bitbucket
// Server using its REST API directly. Repositories live in the
// authenticated user's personal project ("~user").
package bitbucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/gitpub/gitpub/hosting"
)

// Config holds the settings needed to create a
// Bitbucket Server hosting provider.
type Config struct {
	// APIBase is the base URL of the Bitbucket Server
	// instance (e.g. "https://bb.example.com").
	APIBase string
	// User is the Bitbucket API username.
	User string
	// Password is the Bitbucket API password (or
	// personal access token).
	Password string
}

// Provider manages repositories, webhooks, and the
// authenticated user on Bitbucket Server.
//
// Pattern: Strategy -- implements hosting.Provider.
type Provider struct {
	base     string
	user     string
	password string
	host     string
}

type repository struct {
	Slug  string `json:"slug,omitempty"`
	Name  string `json:"name,omitempty"`
	ScmID string `json:"scmId,omitempty"`
	Links *links `json:"links,omitempty"`
}

type links struct {
	Clone []link `json:"clone,omitempty"`
	Self  []link `json:"self,omitempty"`
}

type link struct {
	Href string `json:"href,omitempty"`
	Name string `json:"name,omitempty"`
}

type webhook struct {
	Name   string   `json:"name,omitempty"`
	URL    string   `json:"url,omitempty"`
	Active bool     `json:"active"`
	Events []string `json:"events,omitempty"`
}

type apiUser struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// NewProvider validates cfg and returns a Provider
// ready to use.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating bitbucket provider"

	if cfg.APIBase == "" {
		return nil, fmt.Errorf(
			"%s: api base must be set", errCtx,
		)
	}

	if cfg.User == "" {
		return nil, fmt.Errorf(
			"%s: user must be set", errCtx,
		)
	}

	if cfg.Password == "" {
		return nil, fmt.Errorf(
			"%s: password must be set", errCtx,
		)
	}

	host := ""
	if parsed, err := url.Parse(cfg.APIBase); err == nil {
		host = parsed.Hostname()
	}

	return &Provider{
		base:     strings.TrimSuffix(cfg.APIBase, "/"),
		user:     cfg.User,
		password: cfg.Password,
		host:     host,
	}, nil
}

// Name returns the provider key.
func (p *Provider) Name() string {
	return "bitbucket"
}

// NoReplyHost returns the host used for synthesized
// noreply commit addresses.
func (p *Provider) NoReplyHost() string {
	return p.host
}

// GetRepository returns the named repository from the
// user's personal project, or (nil, nil) when it does
// not exist (HTTP 404).
func (p *Provider) GetRepository(
	ctx context.Context,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "getting bitbucket repository"

	status, body, err := p.do(
		ctx, http.MethodGet, p.repoPath(name), nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	// HTTP 404: absence, not failure.
	if status == http.StatusNotFound {
		return nil, nil
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf(
			"%s: unexpected status %d",
			errCtx, status,
		)
	}

	var repo repository
	if err := json.Unmarshal(body, &repo); err != nil {
		return nil, fmt.Errorf(
			"%s: parse response: %w", errCtx, err,
		)
	}

	return p.convert(&repo), nil
}

// CreateRepository creates the named git repository in
// the user's personal project.
func (p *Provider) CreateRepository(
	ctx context.Context,
	name string,
) (*hosting.Repository, error) {
	const errCtx = "creating bitbucket repository"

	payload, err := json.Marshal(&repository{
		Name:  name,
		ScmID: "git",
	})
	if err != nil {
		return nil, fmt.Errorf(
			"%s: marshal request: %w", errCtx, err,
		)
	}

	status, body, err := p.do(
		ctx,
		http.MethodPost,
		"/rest/api/1.0/projects/~"+p.user+"/repos",
		payload,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if status != http.StatusCreated {
		return nil, fmt.Errorf(
			"%s: unexpected status %d",
			errCtx, status,
		)
	}

	var repo repository
	if err := json.Unmarshal(body, &repo); err != nil {
		return nil, fmt.Errorf(
			"%s: parse response: %w", errCtx, err,
		)
	}

	slog.Info(
		"created repository",
		"slug", repo.Slug,
	)

	return p.convert(&repo), nil
}

// CreateWebhook registers an active push webhook on the
// named repository.
func (p *Provider) CreateWebhook(
	ctx context.Context,
	repoName string,
	hookURL string,
) error {
	const errCtx = "creating bitbucket webhook"

	payload, err := json.Marshal(&webhook{
		Name:   "web",
		URL:    hookURL,
		Active: true,
		Events: []string{"repo:refs_changed"},
	})
	if err != nil {
		return fmt.Errorf(
			"%s: marshal request: %w", errCtx, err,
		)
	}

	status, _, err := p.do(
		ctx,
		http.MethodPost,
		p.repoPath(repoName)+"/webhooks",
		payload,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if status != http.StatusCreated {
		return fmt.Errorf(
			"%s: unexpected status %d",
			errCtx, status,
		)
	}

	slog.Info("created webhook", "repo", repoName)

	return nil
}

// CurrentUser returns the configured user as reported
// by the users endpoint. Bitbucket Server does not
// expose an account creation date, so CreatedAt stays
// zero and downstream noreply synthesis falls back to
// the legacy address format.
func (p *Provider) CurrentUser(
	ctx context.Context,
) (*hosting.User, error) {
	const errCtx = "getting bitbucket user"

	status, body, err := p.do(
		ctx,
		http.MethodGet,
		"/rest/api/1.0/users/"+p.user,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf(
			"%s: unexpected status %d",
			errCtx, status,
		)
	}

	var user apiUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf(
			"%s: parse response: %w", errCtx, err,
		)
	}

	return &hosting.User{
		ID:    user.ID,
		Login: user.Name,
		Email: user.EmailAddress,
	}, nil
}

// repoPath returns the REST path of a repository in the
// user's personal project.
func (p *Provider) repoPath(name string) string {
	return "/rest/api/1.0/projects/~" +
		p.user + "/repos/" + name
}

// do sends an authenticated request and returns the
// status code and response body.
func (p *Provider) do(
	ctx context.Context,
	method string,
	path string,
	payload []byte,
) (int, []byte, error) {
	const errCtx = "calling bitbucket api"

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, p.base+path, reqBody,
	)
	if err != nil {
		return 0, nil, fmt.Errorf(
			"%s: build request: %w", errCtx, err,
		)
	}

	if payload != nil {
		req.Header.Set(
			"Content-Type",
			"application/json; charset=utf-8",
		)
	}

	req.SetBasicAuth(p.user, p.password)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf(
			"%s: send request: %w", errCtx, err,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf(
			"%s: read response: %w", errCtx, err,
		)
	}

	return resp.StatusCode, body, nil
}

// convert maps the API representation to the hosting
// carrier. The HTTP clone link and the self link carry
// the URLs.
func (p *Provider) convert(
	repo *repository,
) *hosting.Repository {
	out := &hosting.Repository{
		Name: repo.Slug,
	}

	if repo.Links == nil {
		return out
	}

	for _, ln := range repo.Links.Clone {
		if ln.Name == "http" || ln.Name == "https" {
			out.CloneURL = ln.Href

			break
		}
	}

	if len(repo.Links.Self) > 0 {
		out.HTMLURL = repo.Links.Self[0].Href
	}

	return out
}
