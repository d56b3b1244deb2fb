package preset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	serveJSON := func(w http.ResponseWriter, v any) {
		body, err := sonic.Marshal(v)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
	mux.HandleFunc("/presets", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(w, []FileDescriptor{
			{Name: "long-range", Path: "presets/long-range", Type: "dir"},
			{Name: "broken", Path: "presets/broken", Type: "dir"},
			{Name: "README.md", Path: "presets/README.md", Type: "file", DownloadURL: srv.URL + "/raw/README.md"},
		})
	})
	mux.HandleFunc("/presets/long-range", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(w, []FileDescriptor{
			{Name: ManifestName, Path: "presets/long-range/preset.yaml", Type: "file", DownloadURL: srv.URL + "/raw/long-range"},
		})
	})
	mux.HandleFunc("/presets/broken", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(w, []FileDescriptor{
			{Name: ManifestName, Path: "presets/broken/preset.yaml", Type: "file", DownloadURL: srv.URL + "/raw/broken"},
		})
	})
	mux.HandleFunc("/raw/long-range", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(longRange))
	})
	mux.HandleFunc("/raw/broken", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("name: broken\nfiles:\n  nope.cfg:\n    a: 1\n"))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchIndex(t *testing.T) {
	srv := repoServer(t)
	repo := NewRepository(srv.Client(), 100)

	index, err := repo.FetchIndex(context.Background(), srv.URL+"/presets")
	require.NoError(t, err)
	require.Len(t, index, 3)
	assert.Equal(t, FileDescriptor{Name: "long-range", Path: "presets/long-range", Type: "dir"}, index[0])
	assert.Equal(t, srv.URL+"/raw/README.md", index[2].DownloadURL)

	_, err = repo.FetchIndex(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestSync(t *testing.T) {
	srv := repoServer(t)
	repo := NewRepository(srv.Client(), 100)
	dir := t.TempDir()

	n, err := repo.Sync(context.Background(), srv.URL+"/presets", dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	body, err := os.ReadFile(filepath.Join(dir, "long-range", ManifestName))
	require.NoError(t, err)
	assert.Equal(t, longRange, string(body))
	assert.NoDirExists(t, filepath.Join(dir, "broken"))

	presets, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, presets, 1)
	assert.Equal(t, "Long Range", presets[0].Name)
}
