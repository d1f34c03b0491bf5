// Package digester calculates SHA256 digests of files and in-memory
// content. The git workflow uses it to skip rewriting files whose
// incoming content matches the working tree, so unchanged publishes
// produce no commit.
package digester
