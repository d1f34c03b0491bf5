// Package hosting defines the strategy interface for git hosting
// platforms together with the passive data carriers the publisher
// works with.
//
// The Provider interface abstracts repository lookup and creation,
// webhook registration, and authenticated-user resolution.
// Implementations exist for GitHub, GitLab, and Bitbucket Server in
// sub-packages. Carriers mirror the hosting API resource
// representations; they are fetched fresh per call and never cached
// by callers.
package hosting
