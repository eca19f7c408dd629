package spa

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func TestServesAssets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html>app</html>")
	writeFile(t, dir, "assets/app.js", "console.log(1)")
	h := New(dir)

	tests := []struct {
		path string
		want string
	}{
		{"/", "<html>app</html>"},
		{"/assets/app.js", "console.log(1)"},
		{"/notes/42", "<html>app</html>"},
		{"/assets", "<html>app</html>"},
		{"/../../etc/passwd", "<html>app</html>"},
	}

	for _, tt := range tests {
		rec := get(t, h, tt.path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, http.StatusOK)
			continue
		}
		if got := rec.Body.String(); got != tt.want {
			t.Errorf("%s: body = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html></html>")
	writeFile(t, dir, "style.css", "body{}")

	rec := get(t, New(dir), "/style.css")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("Content-Type = %q, want text/css", ct)
	}
}

func TestMissingIndex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "favicon.ico", "ico")
	h := New(dir)

	if rec := get(t, h, "/favicon.ico"); rec.Code != http.StatusOK {
		t.Errorf("existing asset status = %d, want 200", rec.Code)
	}

	rec := get(t, h, "/anything")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "index.html not found" {
		t.Errorf("body = %q, want %q", got, "index.html not found")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

func TestMissingDirectory(t *testing.T) {
	h := New(filepath.Join(t.TempDir(), "nope"))
	if rec := get(t, h, "/"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if HasIndex(filepath.Join(t.TempDir(), "nope")) {
		t.Error("HasIndex reported true for a missing directory")
	}
}

func TestRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "x")

	rec := httptest.NewRecorder()
	New(dir).ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
