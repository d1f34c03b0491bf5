// Package commitmsg generates and parses published file lists embedded in
// git commit messages. File paths are encoded between marker lines so that
// a later publish run can tell which project files the previous commit
// carried.
package commitmsg
