// Package publisher orchestrates publishing project files into a
// hosted git repository. It looks the repository up under the
// authenticated user, creates it when absent, delegates the actual
// clone/commit/push to a git workflow engine, registers a webhook
// exactly when the repository was newly created, and resolves the
// commit identity of the hosting account, synthesizing the platform
// noreply address when no public email is set.
package publisher
