package git_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitpub/gitpub/exec"
	"github.com/byte4ever/gitpub/gitpub/git"
)

// newBareRepo initialises a bare repository acting as
// the remote.
func newBareRepo(t *testing.T) string {
	t.Helper()

	bare := t.TempDir()
	exec.MustEx(
		context.Background(),
		bare, "git", "init", "--bare",
	)

	return bare
}

// remoteCommitCount counts commits on all branches of
// the bare repository.
func remoteCommitCount(t *testing.T, bare string) string {
	t.Helper()

	out, err := exec.Ex(
		context.Background(),
		bare, "git", "rev-list", "--count", "--all",
	)
	require.NoError(t, err)

	return strings.TrimSpace(out)
}

func testPublication(
	bare string,
	files map[string]string,
) git.Publication {
	return git.Publication{
		RemoteURL: bare,
		RepoName:  "demo",
		Author: git.Author{
			Name:  "alice",
			Email: "alice@example.com",
		},
		CommitMessage: "publish project files",
		Files:         files,
	}
}

func TestWorkflow_CreateFiles_into_empty_repo(
	t *testing.T,
) {
	t.Parallel()

	ctx := context.Background()
	bare := newBareRepo(t)

	wf := &git.Workflow{TmpDir: t.TempDir()}

	err := wf.CreateFiles(
		ctx,
		testPublication(bare, map[string]string{
			"pom.xml":          "<project/>",
			"src/main/app.txt": "hello",
		}),
	)

	require.NoError(t, err)
	assert.Equal(t, "1", remoteCommitCount(t, bare))

	// Clone the remote to verify content and message.
	verify := filepath.Join(t.TempDir(), "verify")

	rp, err := git.Clone(
		ctx, bare, verify, git.Credential{},
	)
	require.NoError(t, err)

	content, err := os.ReadFile(
		filepath.Join(rp.Dir, "src/main/app.txt"),
	)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	msg := rp.LastCommitMessage(ctx)
	assert.Contains(t, msg, "publish project files")
	assert.Contains(
		t, msg, "--- published files begin ---",
	)
	assert.Contains(t, msg, "pom.xml")
	assert.Contains(t, msg, "src/main/app.txt")
}

func TestWorkflow_CreateFiles_unchanged_is_noop(
	t *testing.T,
) {
	t.Parallel()

	ctx := context.Background()
	bare := newBareRepo(t)

	wf := &git.Workflow{TmpDir: t.TempDir()}
	files := map[string]string{"pom.xml": "<project/>"}

	require.NoError(t, wf.CreateFiles(
		ctx, testPublication(bare, files),
	))
	require.Equal(t, "1", remoteCommitCount(t, bare))

	// Second run with identical content publishes
	// nothing.
	require.NoError(t, wf.CreateFiles(
		ctx, testPublication(bare, files),
	))
	assert.Equal(t, "1", remoteCommitCount(t, bare))
}

func TestWorkflow_CreateFiles_update_commits_changes(
	t *testing.T,
) {
	t.Parallel()

	ctx := context.Background()
	bare := newBareRepo(t)

	wf := &git.Workflow{TmpDir: t.TempDir()}

	require.NoError(t, wf.CreateFiles(
		ctx,
		testPublication(bare, map[string]string{
			"pom.xml":   "<project/>",
			"README.md": "# demo",
		}),
	))

	require.NoError(t, wf.CreateFiles(
		ctx,
		testPublication(bare, map[string]string{
			"pom.xml":   "<project version=\"2\"/>",
			"README.md": "# demo",
		}),
	))

	assert.Equal(t, "2", remoteCommitCount(t, bare))

	// Only the changed file appears in the second
	// commit's marker block.
	verify := filepath.Join(t.TempDir(), "verify")

	rp, err := git.Clone(
		ctx, bare, verify, git.Credential{},
	)
	require.NoError(t, err)

	msg := rp.LastCommitMessage(ctx)
	assert.Contains(t, msg, "pom.xml")
	assert.NotContains(t, msg, "README.md")
}

func TestWorkflow_CreateFiles_validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	wf := &git.Workflow{TmpDir: t.TempDir()}

	tests := []struct {
		name    string
		pub     git.Publication
		wantErr string
	}{
		{
			name: "missing remote url",
			pub: git.Publication{
				RepoName: "demo",
				Files: map[string]string{
					"a": "b",
				},
			},
			wantErr: "remote url",
		},
		{
			name: "missing repo name",
			pub: git.Publication{
				RemoteURL: "https://example.com/r.git",
				Files: map[string]string{
					"a": "b",
				},
			},
			wantErr: "repo name",
		},
		{
			name: "no files",
			pub: git.Publication{
				RemoteURL: "https://example.com/r.git",
				RepoName:  "demo",
			},
			wantErr: "no files",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := wf.CreateFiles(ctx, tt.pub)

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestWorkflow_CreateFiles_rejects_escaping_path(
	t *testing.T,
) {
	t.Parallel()

	bare := newBareRepo(t)
	wf := &git.Workflow{TmpDir: t.TempDir()}

	err := wf.CreateFiles(
		context.Background(),
		testPublication(bare, map[string]string{
			"../outside.txt": "nope",
		}),
	)

	assert.ErrorContains(t, err, "escapes repository")
}

func TestWriteFiles_reports_changed_only(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "same.txt"),
		[]byte("same"),
		0o600,
	))

	changed, err := git.WriteFilesForTest(
		dir,
		map[string]string{
			"same.txt": "same",
			"new.txt":  "new",
		},
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"new.txt"}, changed)
}
