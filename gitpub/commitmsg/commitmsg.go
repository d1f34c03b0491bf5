package commitmsg

import (
	"log/slog"
	"sort"
	"strings"
)

const (
	begin = "--- published files begin ---"
	end   = "--- published files end ---"
)

// ExtractFiles extracts the list of published file paths
// from a commit message delimited by begin/end markers.
func ExtractFiles(msg string) []string {
	var files []string

	betweenMarkers := false

	for _, line := range strings.Split(msg, "\n") {
		switch line {
		case begin:
			betweenMarkers = true
		case end:
			betweenMarkers = false
		default:
			if betweenMarkers {
				files = append(files, line)
			}
		}
	}

	if betweenMarkers {
		slog.Warn(
			"unable to find end marker in commit message",
		)

		return nil
	}

	return files
}

// Generate produces a commit message section containing
// the given file paths between begin/end markers. Paths
// are sorted for deterministic output.
func Generate(files []string) string {
	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)

	var sb strings.Builder

	sb.WriteByte('\n')
	sb.WriteString(begin)
	sb.WriteByte('\n')

	for _, f := range sorted {
		sb.WriteString(f)
		sb.WriteByte('\n')
	}

	sb.WriteString(end)
	sb.WriteByte('\n')

	return sb.String()
}
