// Package manifest loads the project manifest consumed by the publish
// CLI. A manifest names the target repository, the commit message and
// author, an optional webhook URL and template variables, and the set
// of files to publish, either inline or read from local paths. Both
// YAML and JSON forms are accepted.
package manifest
