package gitlab_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	glprov "github.com/byte4ever/gitpub/gitpub/hosting/gitlab"
)

func TestNewProvider_valid(t *testing.T) {
	t.Parallel()

	pv, err := glprov.NewProvider(glprov.Config{
		AccessToken: "tok",
	})

	require.NoError(t, err)
	assert.NotNil(t, pv)
	assert.Equal(t, "gitlab", pv.Name())
	assert.Equal(t, "gitlab.com", pv.NoReplyHost())
}

func TestNewProvider_missing_token(t *testing.T) {
	t.Parallel()

	pv, err := glprov.NewProvider(glprov.Config{})

	assert.Nil(t, pv)
	assert.ErrorContains(t, err, "access token")
}

func TestNewProvider_custom_host(t *testing.T) {
	t.Parallel()

	pv, err := glprov.NewProvider(glprov.Config{
		Host:        "https://git.corp.example.com",
		AccessToken: "tok",
	})

	require.NoError(t, err)
	assert.Equal(
		t,
		"git.corp.example.com",
		pv.NoReplyHost(),
	)
}

// newTestProvider starts a fake GitLab API server and
// returns a provider pointed at it. The client appends
// /api/v4/ to the base URL.
func newTestProvider(
	t *testing.T,
	handler func(http.ResponseWriter, *http.Request),
) *glprov.Provider {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(ts.Close)

	pv, err := glprov.NewProvider(glprov.Config{
		Host:        ts.URL,
		AccessToken: "tok",
	})
	require.NoError(t, err)

	return pv
}

func TestProvider_GetRepository_found(t *testing.T) {
	t.Parallel()

	pv := newTestProvider(
		t,
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v4/user":
				//nolint:errcheck // test handler
				w.Write([]byte(
					`{"id":3,"username":"alice"}`,
				))
			case "/api/v4/projects/alice/demo":
				//nolint:errcheck // test handler
				w.Write([]byte(`{
					"path": "demo",
					"http_url_to_repo": "https://gitlab.com/alice/demo.git",
					"web_url": "https://gitlab.com/alice/demo"
				}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		},
	)

	repo, err := pv.GetRepository(
		context.Background(), "demo",
	)

	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, "demo", repo.Name)
	assert.Equal(
		t,
		"https://gitlab.com/alice/demo.git",
		repo.CloneURL,
	)
}

func TestProvider_GetRepository_absent(t *testing.T) {
	t.Parallel()

	pv := newTestProvider(
		t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v4/user" {
				//nolint:errcheck // test handler
				w.Write([]byte(
					`{"id":3,"username":"alice"}`,
				))

				return
			}

			w.WriteHeader(http.StatusNotFound)
		},
	)

	repo, err := pv.GetRepository(
		context.Background(), "missing",
	)

	require.NoError(t, err)
	assert.Nil(t, repo)
}

func TestProvider_GetRepository_forbidden(t *testing.T) {
	t.Parallel()

	pv := newTestProvider(
		t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v4/user" {
				//nolint:errcheck // test handler
				w.Write([]byte(
					`{"id":3,"username":"alice"}`,
				))

				return
			}

			w.WriteHeader(http.StatusForbidden)
		},
	)

	repo, err := pv.GetRepository(
		context.Background(), "demo",
	)

	assert.Nil(t, repo)
	assert.ErrorContains(
		t, err, "getting gitlab project",
	)
}

func TestProvider_CreateRepository(t *testing.T) {
	t.Parallel()

	var gotBody []byte

	pv := newTestProvider(
		t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v4/projects" &&
				r.Method == http.MethodPost {
				var err error

				gotBody, err = io.ReadAll(r.Body)
				require.NoError(t, err)

				w.WriteHeader(http.StatusCreated)
				//nolint:errcheck // test handler
				w.Write([]byte(`{
					"path": "demo",
					"http_url_to_repo": "https://gitlab.com/alice/demo.git"
				}`))

				return
			}

			w.WriteHeader(http.StatusNotFound)
		},
	)

	repo, err := pv.CreateRepository(
		context.Background(), "demo",
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		"https://gitlab.com/alice/demo.git",
		repo.CloneURL,
	)
	assert.Contains(t, string(gotBody), `"name":"demo"`)
}

func TestProvider_CreateWebhook(t *testing.T) {
	t.Parallel()

	var gotBody []byte

	pv := newTestProvider(
		t,
		func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/api/v4/user":
				//nolint:errcheck // test handler
				w.Write([]byte(
					`{"id":3,"username":"alice"}`,
				))
			case r.URL.Path ==
				"/api/v4/projects/alice/demo/hooks" &&
				r.Method == http.MethodPost:
				var err error

				gotBody, err = io.ReadAll(r.Body)
				require.NoError(t, err)

				w.WriteHeader(http.StatusCreated)
				//nolint:errcheck // test handler
				w.Write([]byte(`{"id": 9}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		},
	)

	err := pv.CreateWebhook(
		context.Background(),
		"demo",
		"https://ci.example.com/hook",
	)

	require.NoError(t, err)
	assert.Contains(
		t, string(gotBody),
		`"url":"https://ci.example.com/hook"`,
	)
	assert.Contains(
		t, string(gotBody), `"push_events":true`,
	)
}

func TestProvider_CurrentUser_prefers_public_email(
	t *testing.T,
) {
	t.Parallel()

	pv := newTestProvider(
		t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v4/user" {
				//nolint:errcheck // test handler
				w.Write([]byte(`{
					"id": 3,
					"username": "alice",
					"email": "private@example.com",
					"public_email": "public@example.com",
					"created_at": "2016-01-02T15:04:05Z"
				}`))

				return
			}

			w.WriteHeader(http.StatusNotFound)
		},
	)

	user, err := pv.CurrentUser(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "alice", user.Login)
	assert.Equal(t, "public@example.com", user.Email)
	assert.Equal(t, 2016, user.CreatedAt.Year())
}
