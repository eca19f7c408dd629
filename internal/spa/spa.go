// Package spa serves the pre-built front-end.
package spa

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

const indexFile = "index.html"

// Handler serves files under dir. Unknown paths get index.html so the
// client-side router can resolve them; if index.html is missing too the
// response is a plain-text 404.
type Handler struct {
	dir string
}

func New(dir string) *Handler {
	return &Handler{dir: dir}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	// Clean against a rooted path so ".." cannot climb out of dir.
	name := path.Clean("/" + r.URL.Path)
	if name != "/" && h.serveFile(w, r, name) {
		return
	}
	if h.serveFile(w, r, "/"+indexFile) {
		return
	}
	http.Error(w, "index.html not found", http.StatusNotFound)
}

// serveFile writes the regular file at name and reports whether it existed.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := os.Open(filepath.Join(h.dir, filepath.FromSlash(name)))
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	if path.Base(name) == indexFile {
		w.Header().Set("Cache-Control", "no-cache")
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

// HasIndex reports whether dir contains index.html.
func HasIndex(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, indexFile))
	return err == nil && info.Mode().IsRegular()
}
