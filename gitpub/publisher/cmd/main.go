// Command publish pushes a set of project files into a
// repository on a git hosting platform. It reads a
// project manifest, looks the repository up under the
// authenticated user, creates it when absent, writes
// and pushes the files, registers a webhook for newly
// created repositories, and prints the clone URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/byte4ever/gitpub/gitpub/git"
	"github.com/byte4ever/gitpub/gitpub/hosting"
	"github.com/byte4ever/gitpub/gitpub/hosting/bitbucket"
	"github.com/byte4ever/gitpub/gitpub/hosting/github"
	"github.com/byte4ever/gitpub/gitpub/hosting/gitlab"
	"github.com/byte4ever/gitpub/gitpub/manifest"
	"github.com/byte4ever/gitpub/gitpub/publisher"
	"github.com/byte4ever/gitpub/gitpub/templating"
	"github.com/byte4ever/gitpub/gitpub/tokens"
)

// sliceFlag implements flag.Value for multi-value
// string flags (repeated --flag=val usage).
type sliceFlag []string

// String returns the flag value as a comma-separated
// string representation.
func (s *sliceFlag) String() string {
	if s == nil {
		return ""
	}

	return strings.Join(*s, ",")
}

// Set appends a value to the slice.
func (s *sliceFlag) Set(val string) error {
	*s = append(*s, val)

	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running publish"

	manifestPath := flag.String(
		"manifest", "",
		"Path to the project manifest (YAML or JSON)",
	)
	tmpDir := flag.String(
		"tmp_dir", os.TempDir(),
		"Temporary directory for clones",
	)
	tokenDir := flag.String(
		"token_dir", "",
		"Directory with one token file per provider",
	)
	cloneURLOnly := flag.Bool(
		"clone_url_only", false,
		"Only resolve and print the clone URL",
	)

	var varFiles sliceFlag

	flag.Var(
		&varFiles,
		"var_file",
		"KEY VALUE variable file (repeatable)",
	)

	// Hosting provider selection.
	server := flag.String(
		"server", "github",
		"Git hosting platform: github, gitlab, "+
			"or bitbucket",
	)

	// GitHub-specific flags.
	ghToken := flag.String(
		"github_access_token", "",
		"GitHub personal access token",
	)
	ghEnterprise := flag.String(
		"github_enterprise_host", "",
		"GitHub Enterprise hostname",
	)

	// GitLab-specific flags.
	glHost := flag.String(
		"gitlab_host", "",
		"GitLab instance URL",
	)
	glToken := flag.String(
		"gitlab_access_token", "",
		"GitLab personal access token",
	)

	// Bitbucket-specific flags.
	bbBase := flag.String(
		"bitbucket_api_base", "",
		"Bitbucket Server base URL",
	)
	bbUser := flag.String(
		"bitbucket_user", "",
		"Bitbucket API username",
	)
	bbPassword := flag.String(
		"bitbucket_password", "",
		"Bitbucket API password or token",
	)

	flag.Parse()

	if *manifestPath == "" {
		return fmt.Errorf(
			"%s: -manifest must be set", errCtx,
		)
	}

	// Flag-supplied tokens win over the environment
	// and the token directory.
	source := newTokenSource(tokenFlags{
		ghToken:    *ghToken,
		glToken:    *glToken,
		bbUser:     *bbUser,
		bbPassword: *bbPassword,
		tokenDir:   *tokenDir,
	})

	provider, err := newHostingProvider(
		*server,
		providerFlags{
			ghEnterprise: *ghEnterprise,
			glHost:       *glHost,
			bbBase:       *bbBase,
			bbUser:       *bbUser,
			bbPassword:   *bbPassword,
		},
		source,
	)
	if err != nil {
		return fmt.Errorf(
			"%s: create provider: %w", errCtx, err,
		)
	}

	mf, err := manifest.Load(*manifestPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	pub, err := publisher.New(publisher.Config{
		Provider: provider,
		Writer:   &git.Workflow{TmpDir: *tmpDir},
		Tokens:   source,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	ctx := context.Background()

	if *cloneURLOnly {
		url, urlErr := pub.CloneURL(
			ctx, mf.Repository,
		)
		if urlErr != nil {
			return fmt.Errorf(
				"%s: %w", errCtx, urlErr,
			)
		}

		if url == "" {
			return fmt.Errorf(
				"%s: repository %q does not exist",
				errCtx, mf.Repository,
			)
		}

		fmt.Println(url)

		return nil
	}

	req, err := buildRequest(ctx, pub, mf, varFiles)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	files, err := mf.FileContents(
		filepath.Dir(*manifestPath),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	req.FileContents = files

	cloneURL, err := pub.CreateOrUpdateProjectFiles(
		ctx, req,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	fmt.Println(cloneURL)

	return nil
}

// buildRequest assembles the publish request from the
// manifest and variable files. When the manifest names
// no author, the hosting account identity is used.
func buildRequest(
	ctx context.Context,
	pub *publisher.Publisher,
	mf *manifest.Manifest,
	varFiles []string,
) (publisher.Request, error) {
	const errCtx = "building request"

	author := git.Author{
		Name:  mf.Author.Name,
		Email: mf.Author.Email,
	}

	if author.Name == "" || author.Email == "" {
		user, err := pub.APIUser(ctx)
		if err != nil {
			return publisher.Request{}, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		if author.Name == "" {
			author.Name = user.Login
		}

		if author.Email == "" {
			author.Email = user.Email
		}
	}

	vars, err := templating.LoadVars(varFiles)
	if err != nil {
		return publisher.Request{}, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	// Manifest variables override variable files.
	for key, val := range mf.Variables {
		vars[key] = val
	}

	msg := mf.CommitMessage
	if msg == "" {
		msg = "publish project files"
	}

	return publisher.Request{
		RepoName:      mf.Repository,
		Author:        author,
		CommitMessage: msg,
		WebhookURL:    mf.WebhookURL,
		Variables:     vars,
	}, nil
}

// tokenFlags bundles token-related flag values.
type tokenFlags struct {
	ghToken    string
	glToken    string
	bbUser     string
	bbPassword string
	tokenDir   string
}

// newTokenSource builds the token resolution chain:
// flags, then environment, then token directory.
func newTokenSource(tf tokenFlags) tokens.Source {
	static := tokens.Static{}

	if tf.ghToken != "" {
		static["github"] = tf.ghToken
	}

	if tf.glToken != "" {
		static["gitlab"] = tf.glToken
	}

	if tf.bbUser != "" && tf.bbPassword != "" {
		static["bitbucket"] = tf.bbUser +
			":" + tf.bbPassword
	}

	sources := []tokens.Source{
		static,
		tokens.EnvSource{},
	}

	if tf.tokenDir != "" {
		sources = append(
			sources,
			tokens.FileSource{Dir: tf.tokenDir},
		)
	}

	return tokens.Chain(sources...)
}

// providerFlags bundles provider-specific flag values
// to keep newHostingProvider small.
type providerFlags struct {
	ghEnterprise string
	glHost       string
	bbBase       string
	bbUser       string
	bbPassword   string
}

// newHostingProvider creates a hosting.Provider based
// on the server name. Pattern: Factory -- selects
// platform implementation at runtime.
func newHostingProvider(
	server string,
	pf providerFlags,
	source tokens.Source,
) (hosting.Provider, error) {
	const errCtx = "creating hosting provider"

	switch server {
	case "github":
		token, err := source.Token("github")
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		p, err := github.NewProvider(github.Config{
			AccessToken:    token,
			EnterpriseHost: pf.ghEnterprise,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	case "gitlab":
		token, err := source.Token("gitlab")
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		p, err := gitlab.NewProvider(gitlab.Config{
			Host:        pf.glHost,
			AccessToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	case "bitbucket":
		p, err := bitbucket.NewProvider(
			bitbucket.Config{
				APIBase:  pf.bbBase,
				User:     pf.bbUser,
				Password: pf.bbPassword,
			},
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return p, nil

	default:
		return nil, fmt.Errorf(
			"%s: unknown server %q", errCtx, server,
		)
	}
}
