// Package git implements the git workflow engine behind the
// publisher. Repo wraps a local clone with methods for committing and
// pushing; Clone handles freshly created, still-empty remote
// repositories. Workflow drives the full clone-or-update, write,
// commit, push sequence for a set of project files. Credentials are
// injected into HTTPS remote URLs and redacted from all logging.
package git
