package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/byte4ever/gitpub/gitpub/git"
	"github.com/byte4ever/gitpub/gitpub/hosting"
	"github.com/byte4ever/gitpub/gitpub/templating"
	"github.com/byte4ever/gitpub/gitpub/tokens"
)

// ErrServer marks any collaborator failure surfaced by
// CreateOrUpdateProjectFiles. Check with errors.Is.
var ErrServer = errors.New("server error")

// noReplyEmailCutoff separates the two noreply address
// formats: accounts created on or before this date use
// login@users.noreply.<host>, later accounts use
// id+login@users.noreply.<host>.
var noReplyEmailCutoff = time.Date(
	2017, time.July, 18, 0, 0, 0, 0, time.UTC,
)

// FileWriter is the git workflow engine contract: it
// performs the clone, write, commit, push sequence for
// one publication.
type FileWriter interface {
	CreateFiles(
		ctx context.Context,
		pub git.Publication,
	) error
}

// Request describes one publish call. Immutable once
// received; the publisher keeps no state across calls.
type Request struct {
	// RepoName is the repository name under the
	// authenticated user.
	RepoName string

	// Author is the commit author identity.
	Author git.Author

	// CommitMessage is the base commit message.
	CommitMessage string

	// FileContents maps repository-relative paths to
	// file contents.
	FileContents map[string]string

	// WebhookURL is registered when the repository is
	// newly created. Required in that case.
	WebhookURL string

	// Variables are substituted into {{VAR}}
	// placeholders in file contents before publishing.
	Variables map[string]string
}

// Config wires the publisher's collaborators.
type Config struct {
	// Provider is the git hosting platform.
	Provider hosting.Provider

	// Writer is the git workflow engine.
	Writer FileWriter

	// Tokens resolves the git access token for the
	// provider.
	Tokens tokens.Source
}

// Publisher publishes project files into repositories
// on a git hosting platform.
type Publisher struct {
	provider hosting.Provider
	writer   FileWriter
	tokens   tokens.Source
}

// New validates cfg and returns a Publisher.
func New(cfg Config) (*Publisher, error) {
	const errCtx = "creating publisher"

	if cfg.Provider == nil {
		return nil, fmt.Errorf(
			"%s: provider must be set", errCtx,
		)
	}

	if cfg.Writer == nil {
		return nil, fmt.Errorf(
			"%s: writer must be set", errCtx,
		)
	}

	if cfg.Tokens == nil {
		return nil, fmt.Errorf(
			"%s: token source must be set", errCtx,
		)
	}

	return &Publisher{
		provider: cfg.Provider,
		writer:   cfg.Writer,
		tokens:   cfg.Tokens,
	}, nil
}

// CreateOrUpdateProjectFiles publishes the files of req
// into the named repository, creating the repository
// and registering its webhook when it does not exist
// yet. Returns the clone URL. Every failure wraps
// ErrServer.
func (p *Publisher) CreateOrUpdateProjectFiles(
	ctx context.Context,
	req Request,
) (string, error) {
	if req.RepoName == "" {
		return "", launder(fmt.Errorf(
			"repo name must be set",
		))
	}

	if len(req.FileContents) == 0 {
		return "", launder(fmt.Errorf(
			"no files to publish",
		))
	}

	repo, err := p.provider.GetRepository(
		ctx, req.RepoName,
	)
	if err != nil {
		return "", launder(err)
	}

	created := false

	if repo == nil {
		// A brand-new repository must end up with a
		// webhook; refuse before creating anything.
		if req.WebhookURL == "" {
			return "", launder(fmt.Errorf(
				"webhook url is required when "+
					"setting up a new repository",
			))
		}

		repo, err = p.provider.CreateRepository(
			ctx, req.RepoName,
		)
		if err != nil {
			return "", launder(err)
		}

		created = true
	}

	if err := p.writeFiles(ctx, req, repo); err != nil {
		return "", launder(err)
	}

	// The webhook is registered iff the repository did
	// not exist at the start of the call.
	if created {
		if err := p.provider.CreateWebhook(
			ctx, req.RepoName, req.WebhookURL,
		); err != nil {
			return "", launder(err)
		}
	}

	slog.Info(
		"published project files",
		"repo", req.RepoName,
		"created", created,
		"clone_url", repo.CloneURL,
	)

	return repo.CloneURL, nil
}

// CloneURL returns the clone URL of the named
// repository, or empty string (no error) when the
// repository does not exist.
func (p *Publisher) CloneURL(
	ctx context.Context,
	name string,
) (string, error) {
	const errCtx = "getting clone url"

	repo, err := p.provider.GetRepository(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if repo == nil {
		return "", nil
	}

	return repo.CloneURL, nil
}

// APIUser returns the authenticated hosting account.
// When the account exposes no public email, a
// deterministic noreply address is synthesized from the
// account id, login, and creation date.
func (p *Publisher) APIUser(
	ctx context.Context,
) (*hosting.User, error) {
	const errCtx = "getting api user"

	user, err := p.provider.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if user.Email == "" {
		user.Email = noReplyEmail(
			user, p.provider.NoReplyHost(),
		)
	}

	return user, nil
}

// writeFiles expands template variables, resolves the
// provider token, and hands the publication to the git
// workflow engine.
func (p *Publisher) writeFiles(
	ctx context.Context,
	req Request,
	repo *hosting.Repository,
) error {
	token, err := p.tokens.Token(p.provider.Name())
	if err != nil {
		return err
	}

	files := templating.ExpandAll(
		req.FileContents, req.Variables,
	)

	// A bare token authenticates as the username; a
	// "user:password" token fills both fields.
	cred := git.Credential{Username: token}
	if user, pass, ok := strings.Cut(
		token, ":",
	); ok {
		cred = git.Credential{
			Username: user,
			Password: pass,
		}
	}

	return p.writer.CreateFiles(ctx, git.Publication{
		RemoteURL:     repo.CloneURL,
		RepoName:      req.RepoName,
		Author:        req.Author,
		CommitMessage: req.CommitMessage,
		Files:         files,
		Credential:    cred,
	})
}

// noReplyEmail synthesizes the platform noreply commit
// address. Accounts created after the cutoff date carry
// the numeric id prefix; older accounts (and accounts
// without a known creation date) use the legacy form.
func noReplyEmail(
	user *hosting.User,
	host string,
) string {
	domain := "users.noreply." + host

	createdDay := user.CreatedAt.UTC().
		Truncate(24 * time.Hour)

	if createdDay.After(noReplyEmailCutoff) {
		return fmt.Sprintf(
			"%d+%s@%s", user.ID, user.Login, domain,
		)
	}

	return user.Login + "@" + domain
}

// launder collapses any collaborator failure into the
// single server error kind exposed by
// CreateOrUpdateProjectFiles.
func launder(err error) error {
	const errCtx = "publishing project files"

	return fmt.Errorf(
		"%s: %w: %w", errCtx, ErrServer, err,
	)
}
