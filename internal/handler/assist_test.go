package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/jotter/internal/websocket"
)

type fakeAssistant struct {
	calls      int
	lastText   string
	lastSource string
	lastTarget string
	lastTokens int
	err        error
}

func (f *fakeAssistant) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.calls++
	f.lastText, f.lastSource, f.lastTarget = text, sourceLang, targetLang
	if f.err != nil {
		return "", f.err
	}
	return "[translated] " + text, nil
}

func (f *fakeAssistant) Complete(ctx context.Context, prefix string, maxTokens int) (string, error) {
	f.calls++
	f.lastText, f.lastTokens = prefix, maxTokens
	if f.err != nil {
		return "", f.err
	}
	return prefix + " and then some", nil
}

// dialFeed connects to the change feed and streams decoded events.
func dialFeed(t *testing.T, url string, hub *websocket.Hub) <-chan websocket.Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("feed client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	events := make(chan websocket.Event, 8)
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var ev websocket.Event
			if json.Unmarshal(data, &ev) == nil {
				events <- ev
			}
		}
	}()
	return events
}

func TestTranslateContent(t *testing.T) {
	assistant := &fakeAssistant{}
	mux := newTestMux(newFakeNotes(), assistant, nil)

	rec := do(t, mux, "POST", "/api/notes/translate", `{"content":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["translation"] != "[translated] hello" {
		t.Errorf("translation = %q", body["translation"])
	}
	if assistant.lastSource != "" || assistant.lastTarget != "" {
		t.Errorf("languages = %q/%q, want defaults left to the gateway", assistant.lastSource, assistant.lastTarget)
	}
}

func TestTranslateLanguages(t *testing.T) {
	assistant := &fakeAssistant{}
	mux := newTestMux(newFakeNotes(), assistant, nil)

	do(t, mux, "POST", "/api/notes/translate", `{"content":"hello","source_lang":"English","target_lang":"French"}`)
	if assistant.lastSource != "English" || assistant.lastTarget != "French" {
		t.Errorf("languages = %q/%q, want English/French", assistant.lastSource, assistant.lastTarget)
	}
}

func TestTranslateByNoteID(t *testing.T) {
	notes := newFakeNotes()
	n := notes.seed(t, "Greeting", "good morning")
	assistant := &fakeAssistant{}
	mux := newTestMux(notes, assistant, nil)

	rec := do(t, mux, "POST", "/api/notes/translate", fmt.Sprintf(`{"note_id":%d}`, n.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if assistant.lastText != "good morning" {
		t.Errorf("gateway text = %q, want the stored content", assistant.lastText)
	}

	stored, _ := notes.GetByID(context.Background(), n.ID)
	if stored.Content != "good morning" || !stored.UpdatedAt.Equal(n.UpdatedAt) {
		t.Errorf("note mutated by translate: %+v", stored)
	}
}

func TestAssistErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantErr    string
	}{
		{"translate empty", "/api/notes/translate", `{}`, http.StatusBadRequest, "content or note_id required"},
		{"translate no body", "/api/notes/translate", ``, http.StatusBadRequest, "content or note_id required"},
		{"translate malformed", "/api/notes/translate", `{"content":`, http.StatusBadRequest, "content or note_id required"},
		{"translate missing note", "/api/notes/translate", `{"note_id":999}`, http.StatusNotFound, "note not found"},
		{"complete empty", "/api/notes/complete", `{"content":""}`, http.StatusBadRequest, "content or note_id required"},
		{"complete missing note", "/api/notes/complete", `{"note_id":42}`, http.StatusNotFound, "note not found"},
		{"complete negative tokens", "/api/notes/complete", `{"content":"x","max_tokens":-1}`, http.StatusBadRequest, "max_tokens must be 0 or more"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assistant := &fakeAssistant{}
			mux := newTestMux(newFakeNotes(), assistant, nil)

			rec := do(t, mux, "POST", tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if body := decodeBody[map[string]string](t, rec); body["error"] != tt.wantErr {
				t.Errorf("error = %q, want %q", body["error"], tt.wantErr)
			}
			if assistant.calls != 0 {
				t.Errorf("gateway called %d times, want 0", assistant.calls)
			}
		})
	}
}

func TestCompleteContent(t *testing.T) {
	assistant := &fakeAssistant{}
	mux := newTestMux(newFakeNotes(), assistant, nil)

	rec := do(t, mux, "POST", "/api/notes/complete", `{"content":"Once upon a time","max_tokens":50}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["completion"] != "Once upon a time and then some" {
		t.Errorf("completion = %q", body["completion"])
	}
	if assistant.lastTokens != 50 {
		t.Errorf("max_tokens = %d, want 50", assistant.lastTokens)
	}
}

func TestGatewayFailure(t *testing.T) {
	notes := newFakeNotes()
	n := notes.seed(t, "Draft", "text")
	assistant := &fakeAssistant{err: errors.New("dial tcp: connection refused")}
	mux := newTestMux(notes, assistant, nil)

	tests := []struct {
		path    string
		wantErr string
	}{
		{"/api/notes/translate", "translation failed"},
		{"/api/notes/complete", "completion failed"},
	}
	for _, tt := range tests {
		rec := do(t, mux, "POST", tt.path, fmt.Sprintf(`{"note_id":%d}`, n.ID))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s status = %d, want 500", tt.path, rec.Code)
		}
		body := decodeBody[map[string]string](t, rec)
		if body["error"] != tt.wantErr {
			t.Errorf("%s error = %q, want %q", tt.path, body["error"], tt.wantErr)
		}
		if !strings.Contains(body["detail"], "connection refused") {
			t.Errorf("%s detail = %q", tt.path, body["detail"])
		}
	}

	stored, _ := notes.GetByID(context.Background(), n.ID)
	if stored.Content != "text" {
		t.Errorf("note mutated after gateway failure: %+v", stored)
	}
}
