// Package templating expands {{VAR}} placeholders in project file
// contents before they are committed. Variables come from the publish
// request or from KEY VALUE variable files loaded by the CLI. Unknown
// placeholders are preserved as-is.
package templating

import (
	"fmt"
	"os"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// Expand substitutes {{VAR}} placeholders in content using
// vars. Returns content unchanged when vars is empty.
func Expand(
	content string,
	vars map[string]string,
) string {
	if len(vars) == 0 {
		return content
	}

	ctx := make(map[string]interface{}, len(vars))
	for key, val := range vars {
		ctx[key] = val
	}

	return fasttemplate.ExecuteStringStd(
		content, startTag, endTag, ctx,
	)
}

// ExpandAll applies Expand to every entry of a path to
// content map, returning a new map.
func ExpandAll(
	files map[string]string,
	vars map[string]string,
) map[string]string {
	out := make(map[string]string, len(files))

	for path, content := range files {
		out[path] = Expand(content, vars)
	}

	return out
}

// LoadVars reads variable files and merges them into a
// single map. Each line is "KEY VALUE" with the first
// space as delimiter. Lines without a space are silently
// skipped. Later files override earlier ones.
func LoadVars(
	varFiles []string,
) (map[string]string, error) {
	const errCtx = "loading variables"

	vars := make(map[string]string)

	for _, vf := range varFiles {
		content, err := os.ReadFile(vf) //nolint:gosec // paths from CLI flags
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		for _, line := range strings.Split(
			string(content), "\n",
		) {
			parts := strings.SplitN(line, " ", 2)
			if len(parts) == 2 {
				vars[parts[0]] = parts[1]
			}
		}
	}

	return vars, nil
}
