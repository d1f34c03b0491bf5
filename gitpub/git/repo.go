package git

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/byte4ever/gitpub/gitpub/exec"
)

// Credential authenticates git operations against an
// HTTPS remote. A bare access token goes into Username
// with an empty Password.
type Credential struct {
	Username string
	Password string
}

// secrets returns the non-empty credential values for
// log redaction.
func (c Credential) secrets() []string {
	var out []string

	if c.Username != "" {
		out = append(out, c.Username)
	}

	if c.Password != "" {
		out = append(out, c.Password)
	}

	return out
}

// Author is the commit author identity.
type Author struct {
	Name  string
	Email string
}

// Repo is a local clone of a git repository. Create
// with Clone, and call Clean when done.
type Repo struct {
	// Dir is the filesystem location of the clone.
	Dir string
	// RemoteName is the name of the upstream remote.
	RemoteName string

	secrets []string
}

// Clone clones a repository into dir. Pass the full
// repository URL as remote (e.g.
// "https://github.com/org/repo.git"). The credential is
// embedded into HTTPS remote URLs. A just-created empty
// repository clones fine; the first push then creates
// the default branch.
func Clone(
	ctx context.Context,
	remote string,
	dir string,
	cred Credential,
) (*Repo, error) {
	const errCtx = "cloning repository"

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf(
			"%s: remove dir: %w", errCtx, err,
		)
	}

	remoteName := "origin"

	authRemote, err := authenticatedURL(remote, cred)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := exec.ExRedacted(
		ctx, "", cred.secrets(),
		"git", "clone",
		"--origin", remoteName,
		authRemote, dir,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Repo{
		Dir:        dir,
		RemoteName: remoteName,
		secrets:    cred.secrets(),
	}, nil
}

// Clean removes the local clone directory.
func (r *Repo) Clean() error {
	const errCtx = "cleaning repository"

	if err := os.RemoveAll(r.Dir); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Commit stages all changes and commits them with the
// given author identity. Returns true when changes were
// committed, false when the tree was clean.
func (r *Repo) Commit(
	ctx context.Context,
	message string,
	author Author,
) (bool, error) {
	const errCtx = "committing changes"

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "add", "-A",
	); err != nil {
		return false, fmt.Errorf(
			"%s: stage: %w", errCtx, err,
		)
	}

	clean, err := r.IsClean(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	if clean {
		return false, nil
	}

	if _, err := exec.Ex(
		ctx, r.Dir, "git",
		"-c", "user.name="+author.Name,
		"-c", "user.email="+author.Email,
		"commit", "-m", message,
	); err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return true, nil
}

// LastCommitMessage returns the most recent commit
// message on the current branch. Returns empty string
// on error (e.g. no commits yet).
func (r *Repo) LastCommitMessage(
	ctx context.Context,
) string {
	msg, err := exec.Ex(
		ctx, r.Dir, "git", "log", "-1", "--pretty=%B",
	)
	if err != nil {
		return ""
	}

	return msg
}

// IsClean reports whether the working tree has no
// uncommitted changes (staged or unstaged).
func (r *Repo) IsClean(
	ctx context.Context,
) (bool, error) {
	const errCtx = "checking repo status"

	out, err := exec.Ex(
		ctx, r.Dir, "git", "status", "--porcelain",
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return strings.TrimSpace(out) == "", nil
}

// Push pushes the current branch to the remote, setting
// the upstream on first push. All changes should be
// committed before calling Push.
func (r *Repo) Push(ctx context.Context) error {
	const errCtx = "pushing branch"

	if _, err := exec.ExRedacted(
		ctx, r.Dir, r.secrets,
		"git", "push",
		"--set-upstream", r.RemoteName, "HEAD",
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// authenticatedURL embeds cred into an HTTPS remote
// URL. Non-HTTP remotes (local paths, ssh) are returned
// unchanged.
func authenticatedURL(
	remote string,
	cred Credential,
) (string, error) {
	if cred.Username == "" && cred.Password == "" {
		return remote, nil
	}

	parsed, err := url.Parse(remote)
	if err != nil {
		return "", fmt.Errorf(
			"parsing remote url: %w", err,
		)
	}

	if parsed.Scheme != "http" &&
		parsed.Scheme != "https" {
		return remote, nil
	}

	if cred.Password == "" {
		parsed.User = url.User(cred.Username)
	} else {
		parsed.User = url.UserPassword(
			cred.Username, cred.Password,
		)
	}

	return parsed.String(), nil
}
