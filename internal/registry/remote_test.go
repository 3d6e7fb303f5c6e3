package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/formulary/cli/internal/errors"
	"github.com/formulary/cli/internal/formula"
)

// withMethod emulates Go 1.22+ ServeMux method patterns ("GET /path") on the
// Go 1.21 mux, which treats them as literal paths.
func withMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	hits := new(int)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/formulas/demo", withMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		json.NewEncoder(w).Encode(metadataResponse{
			Name:     "demo",
			Versions: []string{"1.0.0", "1.2.0"},
		})
	}))
	mux.HandleFunc("/v1/formulas/demo/1.2.0", withMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		f := testFormula("demo", "1.2.0")
		json.NewEncoder(w).Encode(fetchResponse{Formula: f, Digest: ContentDigest(f)})
	}))
	mux.HandleFunc("/v1/formulas/demo/6.6.6", withMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		f := testFormula("demo", "6.6.6")
		json.NewEncoder(w).Encode(fetchResponse{Formula: f, Digest: "sha256:corrupted"})
	}))
	mux.HandleFunc("/v1/formulas/secret", withMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token123" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(metadataResponse{Name: "secret", Versions: []string{"1.0.0"}})
	}))
	mux.HandleFunc("/v1/formulas/broken", withMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	mux.HandleFunc("/v1/search", withMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Info{{Name: "demo", Version: "1.2.0"}})
	}))
	mux.HandleFunc("/v1/formulas", withMethod("POST", func(w http.ResponseWriter, r *http.Request) {
		var body fetchResponse
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Formula.Version == "1.0.0" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestRemoteVersionsCached(t *testing.T) {
	srv, hits := newTestServer(t)
	reg := NewRemote(srv.URL, "", 0)
	ctx := context.Background()

	versions, err := reg.Versions(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.0", "1.0.0"}, versions)

	_, err = reg.Versions(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 1, *hits)
}

func TestRemoteFetchVerifiesDigest(t *testing.T) {
	srv, _ := newTestServer(t)
	reg := NewRemote(srv.URL, "", 0)
	ctx := context.Background()

	f, err := reg.Fetch(ctx, "demo", "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "demo@1.2.0", f.Ref())

	_, err = reg.Fetch(ctx, "demo", "6.6.6")
	assert.ErrorIs(t, err, oerrors.ErrIntegrity)
}

func TestRemoteStatusMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	reg := NewRemote(srv.URL, "", 0)
	_, err := reg.Versions(ctx, "missing")
	assert.ErrorIs(t, err, oerrors.ErrNotFound)

	_, err = reg.Versions(ctx, "secret")
	assert.ErrorIs(t, err, oerrors.ErrPermission)

	_, err = reg.Versions(ctx, "broken")
	assert.ErrorIs(t, err, oerrors.ErrRegistry)
}

func TestRemoteAuthToken(t *testing.T) {
	srv, _ := newTestServer(t)
	reg := NewRemote(srv.URL, "token123", 0)

	versions, err := reg.Versions(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0"}, versions)
}

func TestRemoteTransportErrorIsNetwork(t *testing.T) {
	reg := NewRemote("http://127.0.0.1:1", "", 0)

	_, err := reg.Versions(context.Background(), "demo")
	assert.ErrorIs(t, err, oerrors.ErrNetwork)
}

func TestRemotePublish(t *testing.T) {
	srv, _ := newTestServer(t)
	reg := NewRemote(srv.URL, "", 0)
	ctx := context.Background()

	require.NoError(t, reg.Publish(ctx, testFormula("demo", "1.3.0")))

	err := reg.Publish(ctx, testFormula("demo", "1.0.0"))
	assert.ErrorIs(t, err, oerrors.ErrAlreadyExists)
}

func TestRemoteSearch(t *testing.T) {
	srv, _ := newTestServer(t)
	reg := NewRemote(srv.URL, "", 0)

	hits, err := reg.Search(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "remote", hits[0].Source)
}

func TestContentDigestOrderIndependent(t *testing.T) {
	a := &formula.Formula{Files: []formula.File{
		{Path: "a.md", Content: "1"},
		{Path: "b.md", Content: "2"},
	}}
	b := &formula.Formula{Files: []formula.File{
		{Path: "b.md", Content: "2"},
		{Path: "a.md", Content: "1"},
	}}
	assert.Equal(t, ContentDigest(a), ContentDigest(b))

	b.Files[0].Content = "changed"
	assert.NotEqual(t, ContentDigest(a), ContentDigest(b))
}
