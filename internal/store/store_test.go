package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/stretchr/testify/require"

	"github.com/ygalaxyy/bookmarkbot/internal/db"
)

// exerciseStore runs the contract every driver must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Read(ctx, "index.html")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Create(ctx, "index.html", "v1", "seed"))
	require.ErrorIs(t, s.Create(ctx, "index.html", "again", "seed"), ErrConflict)

	doc, err := s.Read(ctx, "index.html")
	require.NoError(t, err)
	require.Equal(t, "v1", doc.Content)

	require.NoError(t, s.Write(ctx, "index.html", "v2", doc.Version, "update"))

	// The version read before the update is stale now.
	require.ErrorIs(t, s.Write(ctx, "index.html", "v3", doc.Version, "update"), ErrConflict)

	doc2, err := s.Read(ctx, "index.html")
	require.NoError(t, err)
	require.Equal(t, "v2", doc2.Content)
	require.NotEqual(t, doc.Version, doc2.Version)

	require.ErrorIs(t, s.Write(ctx, "other.html", "x", doc2.Version, "update"), ErrNotFound)
}

func TestSQLite_Contract(t *testing.T) {
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	exerciseStore(t, NewSQLite(database))
}

func TestSQLite_InvalidVersion(t *testing.T) {
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	s := NewSQLite(database)
	require.NoError(t, s.Create(context.Background(), "doc", "x", ""))
	require.ErrorIs(t, s.Write(context.Background(), "doc", "y", "etag-ish", ""), ErrConflict)
}

func TestMemory_Contract(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	require.Equal(t, []string{"seed", "update"}, m.Messages())
}

// fakeGitHub serves the subset of the contents API the driver uses.
type fakeGitHub struct {
	mu      sync.Mutex
	files   map[string]contentsFile
	commits []contentsUpdate
	token   string
	seq     int
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/repos/acme/pages/contents/")
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("ref") != "main" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, ok := f.files[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(file)

	case http.MethodPut:
		var u contentsUpdate
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &u); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		current, exists := f.files[path]
		switch {
		case u.SHA == "" && exists:
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		case u.SHA != "" && !exists:
			w.WriteHeader(http.StatusNotFound)
			return
		case u.SHA != "" && u.SHA != current.SHA:
			w.WriteHeader(http.StatusConflict)
			return
		}
		f.seq++
		// Mimic GitHub's line-wrapped base64.
		encoded := u.Content
		if len(encoded) > 4 {
			encoded = encoded[:4] + "\n" + encoded[4:]
		}
		f.files[path] = contentsFile{SHA: "sha" + string(rune('0'+f.seq)), Content: encoded, Encoding: "base64"}
		f.commits = append(f.commits, u)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestGitHub_Contract(t *testing.T) {
	fake := &fakeGitHub{files: map[string]contentsFile{}, token: "secret"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	g, err := NewGitHub("acme/pages", "", "secret", srv.URL)
	require.NoError(t, err)

	exerciseStore(t, g)

	require.Len(t, fake.commits, 2)
	require.Equal(t, "update", fake.commits[1].Message)
	require.Equal(t, "main", fake.commits[1].Branch)
	decoded, err := base64.StdEncoding.DecodeString(fake.commits[1].Content)
	require.NoError(t, err)
	require.Equal(t, "v2", string(decoded))
}

func TestGitHub_Unauthorized(t *testing.T) {
	fake := &fakeGitHub{files: map[string]contentsFile{}, token: "secret"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	g, err := NewGitHub("acme/pages", "main", "wrong", srv.URL)
	require.NoError(t, err)

	_, err = g.Read(context.Background(), "index.html")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestNewGitHub_InvalidRepo(t *testing.T) {
	for _, repo := range []string{"", "acme", "/pages", "acme/"} {
		_, err := NewGitHub(repo, "main", "t", "")
		require.Error(t, err, repo)
	}
}

func TestGitHub_ContentsURLEscapes(t *testing.T) {
	g, err := NewGitHub("acme/pages", "main", "t", "https://api.example/")
	require.NoError(t, err)
	require.Equal(t,
		"https://api.example/repos/acme/pages/contents/docs/my%20page.html",
		g.contentsURL("/docs/my page.html"))
}

func TestMapAzureError(t *testing.T) {
	tests := []struct {
		code bloberror.Code
		want error
	}{
		{bloberror.BlobNotFound, ErrNotFound},
		{bloberror.ContainerNotFound, ErrNotFound},
		{bloberror.ConditionNotMet, ErrConflict},
		{bloberror.BlobAlreadyExists, ErrConflict},
		{bloberror.AuthenticationFailed, ErrUnauthorized},
		{bloberror.AuthorizationFailure, ErrUnauthorized},
	}
	for _, tt := range tests {
		err := mapAzureError("op", &azcore.ResponseError{ErrorCode: string(tt.code)})
		require.ErrorIs(t, err, tt.want, string(tt.code))
	}

	other := errors.New("network down")
	err := mapAzureError("op", other)
	require.ErrorIs(t, err, other)
	require.NotErrorIs(t, err, ErrConflict)
}

func TestASCIIOnly(t *testing.T) {
	require.Equal(t, "Add: ?? [DEV]", asciiOnly("Add: ты [DEV]"))
}
