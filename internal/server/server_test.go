package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dukerupert/jotter/internal/database"
	"github.com/dukerupert/jotter/internal/middleware"
	"github.com/dukerupert/jotter/internal/model"
)

type echoAssistant struct{}

func (echoAssistant) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return "zh:" + text, nil
}

func (echoAssistant) Complete(ctx context.Context, prefix string, maxTokens int) (string, error) {
	return prefix + "...", nil
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.Open(database.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>jotter</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(db, database.SQLite, echoAssistant{}, Config{StaticDir: static}, slog.New(slog.DiscardHandler))
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return ts
}

func request(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(data)
}

func TestNoteLifecycle(t *testing.T) {
	ts := setupServer(t)

	resp, body := request(t, "POST", ts.URL+"/api/notes", `{"title":"T","content":"C"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var created model.Note
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	notePath := fmt.Sprintf("%s/api/notes/%d", ts.URL, created.ID)

	resp, body = request(t, "PUT", notePath, `{"content":"C2"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d: %s", resp.StatusCode, body)
	}
	var updated model.Note
	json.Unmarshal([]byte(body), &updated)
	if updated.Title != "T" || updated.Content != "C2" {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("updated_at did not advance")
	}

	resp, body = request(t, "GET", ts.URL+"/api/notes/search?q=C2", "")
	var found []model.Note
	json.Unmarshal([]byte(body), &found)
	if resp.StatusCode != http.StatusOK || len(found) != 1 {
		t.Errorf("search status = %d, results = %d", resp.StatusCode, len(found))
	}

	resp, body = request(t, "POST", ts.URL+"/api/notes/translate", fmt.Sprintf(`{"note_id":%d}`, created.ID))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"translation":"zh:C2"`) {
		t.Errorf("translate status = %d body = %s", resp.StatusCode, body)
	}

	resp, _ = request(t, "DELETE", notePath, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp, _ = request(t, "GET", notePath, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
}

func TestFallbacks(t *testing.T) {
	ts := setupServer(t)

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
		wantType   string
	}{
		{"GET", "/", http.StatusOK, "<html>jotter</html>", "text/html"},
		{"GET", "/some/client/route", http.StatusOK, "<html>jotter</html>", "text/html"},
		{"GET", "/api/unknown", http.StatusNotFound, `{"error":"not found"}`, "application/json"},
		{"PATCH", "/api/notes/1", http.StatusNotFound, `{"error":"not found"}`, "application/json"},
		{"GET", "/health", http.StatusOK, `{"status":"ok"}`, "application/json"},
	}

	for _, tt := range tests {
		resp, body := request(t, tt.method, ts.URL+tt.path, "")
		if resp.StatusCode != tt.wantStatus {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.wantStatus)
		}
		if strings.TrimSpace(body) != tt.wantBody {
			t.Errorf("%s %s body = %q, want %q", tt.method, tt.path, body, tt.wantBody)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.wantType) {
			t.Errorf("%s %s Content-Type = %q, want %s", tt.method, tt.path, ct, tt.wantType)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupServer(t)

	request(t, "GET", ts.URL+"/api/notes", "")
	resp, body := request(t, "GET", ts.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		`jotter_http_requests_total{method="GET",route="GET /api/notes",status="200"} 1`,
		"jotter_websocket_clients 0",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
