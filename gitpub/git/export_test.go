package git

// Exported aliases for testing unexported functions
// from the git_test package.

// AuthenticatedURLForTest exposes authenticatedURL.
var AuthenticatedURLForTest = authenticatedURL

// ValidatePathForTest exposes validatePath.
var ValidatePathForTest = validatePath

// WriteFilesForTest exposes writeFiles.
var WriteFilesForTest = writeFiles
