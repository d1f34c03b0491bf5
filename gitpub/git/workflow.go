package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/byte4ever/gitpub/gitpub/commitmsg"
	"github.com/byte4ever/gitpub/gitpub/digester"
)

// Publication describes one set of project files to
// publish into a repository.
type Publication struct {
	// RemoteURL is the repository URL to push to.
	RemoteURL string

	// RepoName is the repository name, used for the
	// local clone directory.
	RepoName string

	// Author is the commit author identity.
	Author Author

	// CommitMessage is the base commit message; the
	// published file list is appended as a marker
	// block.
	CommitMessage string

	// Files maps repository-relative paths to file
	// contents.
	Files map[string]string

	// Credential authenticates clone and push.
	Credential Credential
}

// Workflow performs the clone, write, commit, push
// sequence for a Publication.
type Workflow struct {
	// TmpDir is the directory for temporary clones.
	// Empty means the system temp directory.
	TmpDir string
}

// CreateFiles clones the repository, writes the files
// of pub, commits them with the author identity, and
// pushes. Files whose content already matches the
// working tree are skipped; when nothing changed at all
// the call succeeds without committing or pushing.
func (w *Workflow) CreateFiles(
	ctx context.Context,
	pub Publication,
) error {
	const errCtx = "creating project files"

	if pub.RemoteURL == "" {
		return fmt.Errorf(
			"%s: remote url must be set", errCtx,
		)
	}

	if pub.RepoName == "" {
		return fmt.Errorf(
			"%s: repo name must be set", errCtx,
		)
	}

	if len(pub.Files) == 0 {
		return fmt.Errorf(
			"%s: no files to publish", errCtx,
		)
	}

	tmpDir := w.TmpDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	cloneDir := filepath.Join(tmpDir, pub.RepoName)

	repo, err := Clone(
		ctx, pub.RemoteURL, cloneDir, pub.Credential,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if cleanErr := repo.Clean(); cleanErr != nil {
			slog.Error(
				"failed to clean repo",
				"error", cleanErr,
			)
		}
	}()

	changed, err := writeFiles(repo.Dir, pub.Files)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(changed) == 0 {
		slog.Info(
			"all files up to date, nothing to publish",
			"repo", pub.RepoName,
		)

		return nil
	}

	msg := pub.CommitMessage +
		commitmsg.Generate(changed)

	committed, err := repo.Commit(
		ctx, msg, pub.Author,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if !committed {
		slog.Info(
			"working tree clean, nothing to push",
			"repo", pub.RepoName,
		)

		return nil
	}

	if err := repo.Push(ctx); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"published files",
		"repo", pub.RepoName,
		"count", len(changed),
	)

	return nil
}

// writeFiles writes the given contents under dir,
// creating parent directories as needed, and returns
// the paths whose content actually changed. Paths are
// processed in sorted order.
func writeFiles(
	dir string,
	files map[string]string,
) ([]string, error) {
	const errCtx = "writing files"

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	var changed []string

	for _, path := range paths {
		if err := validatePath(path); err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		content := []byte(files[path])
		abs := filepath.Join(dir, path)

		same, err := digester.ContentMatches(
			abs, content,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %s: %w", errCtx, path, err,
			)
		}

		if same {
			continue
		}

		if err := os.MkdirAll(
			filepath.Dir(abs), 0o755,
		); err != nil {
			return nil, fmt.Errorf(
				"%s: %s: %w", errCtx, path, err,
			)
		}

		//nolint:gosec // project files are world-readable
		if err := os.WriteFile(
			abs, content, 0o644,
		); err != nil {
			return nil, fmt.Errorf(
				"%s: %s: %w", errCtx, path, err,
			)
		}

		changed = append(changed, path)
	}

	return changed, nil
}

// validatePath rejects absolute paths and paths that
// escape the repository root.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path")
	}

	if filepath.IsAbs(path) {
		return fmt.Errorf(
			"absolute file path %q", path,
		)
	}

	clean := filepath.Clean(path)
	if clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf(
			"file path %q escapes repository", path,
		)
	}

	return nil
}
