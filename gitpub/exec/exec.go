// Package exec provides shell command execution helpers
// with credential redaction for commands that embed
// secrets in their arguments.
package exec

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Ex executes the named command in the given directory and
// returns combined stdout+stderr output. Pass empty dir to
// use the current working directory.
func Ex(
	ctx context.Context,
	dir string,
	name string,
	arg ...string,
) (string, error) {
	return ExRedacted(ctx, dir, nil, name, arg...)
}

// ExRedacted behaves like Ex but masks every occurrence of
// the given secrets in logged arguments, output, and the
// returned error. Remote URLs carrying access tokens must
// be executed through this variant.
func ExRedacted(
	ctx context.Context,
	dir string,
	secrets []string,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	shown := redact(strings.Join(arg, " "), secrets)

	slog.Info(
		"executing",
		"cmd", name,
		"args", shown,
	)

	cmd := exec.CommandContext(ctx, name, arg...)
	if dir != "" {
		cmd.Dir = dir
	}

	by, err := cmd.CombinedOutput()

	out := redact(string(by), secrets)

	slog.Info("output", "result", out)

	if err != nil {
		return out, fmt.Errorf(
			"%s: %s %s: %w",
			errCtx, name, shown, err,
		)
	}

	return out, nil
}

// MustEx executes the command and panics on failure.
func MustEx(
	ctx context.Context,
	dir string,
	name string,
	arg ...string,
) {
	if _, err := Ex(ctx, dir, name, arg...); err != nil {
		panic(fmt.Sprintf("command failed: %v", err))
	}
}

// redact replaces each secret in s with a mask. Empty
// secrets are skipped.
func redact(s string, secrets []string) string {
	for _, sec := range secrets {
		if sec == "" {
			continue
		}

		s = strings.ReplaceAll(s, sec, "********")
	}

	return s
}
