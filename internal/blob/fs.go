package blob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/matheus3301/chatsync/internal/remote"
)

// FS keeps blobs on the local filesystem and serves them over HTTP.
type FS struct {
	root    string
	baseURL string
}

var _ remote.Blobs = (*FS)(nil)

// NewFS stores blobs under root. baseURL is the public prefix the HTTP
// handler is mounted at, e.g. "http://127.0.0.1:7380/blobs".
func NewFS(root, baseURL string) (*FS, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FS{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes data under key and returns its download URL.
func (f *FS) Upload(_ context.Context, data []byte, key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if err := checkSize(data); err != nil {
		return "", err
	}
	path := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit blob: %w", err)
	}
	return f.URL(key), nil
}

// URL returns the download URL for key.
func (f *FS) URL(key string) string {
	return f.baseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}

// Routes mounts GET /{key...} serving stored blobs.
func (f *FS) Routes(r chi.Router) {
	r.Get("/*", f.serve)
}

func (f *FS) serve(w http.ResponseWriter, r *http.Request) {
	key, err := CleanKey(chi.URLParam(r, "*"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	path := filepath.Join(f.root, filepath.FromSlash(key))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, path)
}
