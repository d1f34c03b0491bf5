// Package tokens resolves git access tokens keyed by hosting
// provider name. Sources cover environment variables, secret files
// mounted into a directory, and static values for flags and tests.
package tokens

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source resolves the access token for a named hosting
// provider.
type Source interface {
	Token(provider string) (string, error)
}

// Static is a fixed provider to token mapping.
type Static map[string]string

// Token returns the configured token for provider.
func (s Static) Token(provider string) (string, error) {
	tok, ok := s[provider]
	if !ok || tok == "" {
		return "", fmt.Errorf(
			"no token configured for provider %q",
			provider,
		)
	}

	return tok, nil
}

// EnvSource reads tokens from environment variables
// named <Prefix><PROVIDER> (provider upper-cased).
type EnvSource struct {
	// Prefix defaults to "GITPUB_TOKEN_".
	Prefix string
}

// Token reads the token from the environment.
func (s EnvSource) Token(
	provider string,
) (string, error) {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "GITPUB_TOKEN_"
	}

	key := prefix + strings.ToUpper(provider)

	tok := os.Getenv(key)
	if tok == "" {
		return "", fmt.Errorf(
			"environment variable %s is not set", key,
		)
	}

	return tok, nil
}

// FileSource reads tokens from one file per provider
// under Dir, e.g. a mounted secret volume.
type FileSource struct {
	Dir string
}

// Token reads and trims the token file for provider.
func (s FileSource) Token(
	provider string,
) (string, error) {
	const errCtx = "reading token file"

	fp := filepath.Join(s.Dir, provider)

	by, err := os.ReadFile(fp) //nolint:gosec // path from configuration
	if err != nil {
		return "", fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	tok := strings.TrimSpace(string(by))
	if tok == "" {
		return "", fmt.Errorf(
			"%s: %s is empty", errCtx, fp,
		)
	}

	return tok, nil
}

// Chain tries each source in order and returns the
// first token found. The last error is returned when
// every source fails.
func Chain(sources ...Source) Source {
	return chain(sources)
}

type chain []Source

func (c chain) Token(provider string) (string, error) {
	const errCtx = "resolving token"

	var lastErr error

	for _, src := range c {
		tok, err := src.Token(provider)
		if err == nil {
			return tok, nil
		}

		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no sources configured")
	}

	return "", fmt.Errorf("%s: %w", errCtx, lastErr)
}
