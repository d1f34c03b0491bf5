package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
)

// Manifest describes one publish request.
type Manifest struct {
	// Repository is the target repository name.
	Repository string `yaml:"repository" json:"repository"`

	// CommitMessage is the base commit message.
	CommitMessage string `yaml:"commit_message" json:"commit_message"`

	// WebhookURL is registered when the repository is
	// newly created. Required for first-time publishes.
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`

	// Author overrides the commit author identity.
	// When empty the hosting account identity is used.
	Author Author `yaml:"author" json:"author"`

	// Variables are substituted into file contents.
	Variables map[string]string `yaml:"variables" json:"variables"`

	// Files is the set of files to publish.
	Files []File `yaml:"files" json:"files"`
}

// Author is a commit author identity in the manifest.
type Author struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
}

// File is one file entry: a repository-relative path
// plus either inline content or a local source path.
type File struct {
	Path    string `yaml:"path" json:"path"`
	Content string `yaml:"content" json:"content"`
	From    string `yaml:"from" json:"from"`
}

// Load reads and validates a manifest. Files ending in
// .json are parsed as JSON, everything else as YAML.
func Load(path string) (*Manifest, error) {
	const errCtx = "loading manifest"

	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flags
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var mf Manifest

	if strings.EqualFold(
		filepath.Ext(path), ".json",
	) {
		if err := json.Unmarshal(data, &mf); err != nil {
			return nil, fmt.Errorf(
				"%s: parse json: %w", errCtx, err,
			)
		}
	} else {
		if err := yaml.Unmarshal(data, &mf); err != nil {
			return nil, fmt.Errorf(
				"%s: parse yaml: %w", errCtx, err,
			)
		}
	}

	if err := mf.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &mf, nil
}

// validate checks structural requirements before any
// network or filesystem work happens.
func (m *Manifest) validate() error {
	if m.Repository == "" {
		return fmt.Errorf("repository must be set")
	}

	if len(m.Files) == 0 {
		return fmt.Errorf("at least one file required")
	}

	seen := make(map[string]struct{}, len(m.Files))

	for i, f := range m.Files {
		if f.Path == "" {
			return fmt.Errorf(
				"files[%d]: path must be set", i,
			)
		}

		if _, dup := seen[f.Path]; dup {
			return fmt.Errorf(
				"files[%d]: duplicate path %q",
				i, f.Path,
			)
		}

		seen[f.Path] = struct{}{}

		hasContent := f.Content != ""
		hasFrom := f.From != ""

		if hasContent == hasFrom {
			return fmt.Errorf(
				"files[%d] %q: exactly one of "+
					"content or from must be set",
				i, f.Path,
			)
		}
	}

	return nil
}

// FileContents materialises the file set as a path to
// content map. "from" entries are read relative to
// baseDir (normally the manifest's directory).
func (m *Manifest) FileContents(
	baseDir string,
) (map[string]string, error) {
	const errCtx = "reading manifest files"

	out := make(map[string]string, len(m.Files))

	for _, f := range m.Files {
		if f.From == "" {
			out[f.Path] = f.Content

			continue
		}

		src := f.From
		if !filepath.IsAbs(src) {
			src = filepath.Join(baseDir, src)
		}

		data, err := os.ReadFile(src) //nolint:gosec // paths from manifest by design
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %s: %w", errCtx, f.Path, err,
			)
		}

		out[f.Path] = string(data)
	}

	return out, nil
}
