package digester_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/byte4ever/gitpub/gitpub/digester"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDigest_missing_file(t *testing.T) {
	t.Parallel()

	got, err := digester.CalculateDigest(
		filepath.Join(t.TempDir(), "nope.txt"),
	)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCalculateDigest_matches_content_digest(t *testing.T) {
	t.Parallel()

	content := []byte("hello world\n")
	fp := filepath.Join(t.TempDir(), "f.txt")

	require.NoError(t, os.WriteFile(fp, content, 0o600))

	fileDigest, err := digester.CalculateDigest(fp)
	require.NoError(t, err)

	assert.Equal(
		t, digester.DigestContent(content), fileDigest,
	)
}

func TestContentMatches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fp := filepath.Join(dir, "f.txt")

	require.NoError(
		t, os.WriteFile(fp, []byte("same"), 0o600),
	)

	tests := []struct {
		name    string
		path    string
		content []byte
		want    bool
	}{
		{
			name:    "identical content matches",
			path:    fp,
			content: []byte("same"),
			want:    true,
		},
		{
			name:    "different content does not match",
			path:    fp,
			content: []byte("other"),
			want:    false,
		},
		{
			name:    "missing file never matches",
			path:    filepath.Join(dir, "absent"),
			content: []byte("same"),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := digester.ContentMatches(
				tt.path, tt.content,
			)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
