package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Assistant transforms note text through an LLM.
type Assistant interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Complete(ctx context.Context, prefix string, maxTokens int) (string, error)
}

// AssistHandler serves translate and complete. Results are previews and
// are never written back to the note.
type AssistHandler struct {
	notes     NoteRepository
	assistant Assistant
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewAssistHandler(notes NoteRepository, assistant Assistant, logger *slog.Logger) *AssistHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssistHandler{
		notes:     notes,
		assistant: assistant,
		validate:  newValidator(),
		logger:    logger.With("component", "assist"),
	}
}

type translateRequest struct {
	Content    string `json:"content"`
	NoteID     int64  `json:"note_id"`
	SourceLang string `json:"source_lang" validate:"max=40"`
	TargetLang string `json:"target_lang" validate:"max=40"`
}

type completeRequest struct {
	Content   string `json:"content"`
	NoteID    int64  `json:"note_id"`
	MaxTokens int    `json:"max_tokens" validate:"gte=0,lte=4000"`
}

func (h *AssistHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	// Malformed bodies are treated as empty.
	if err := decodeJSON(w, r, &req); err != nil {
		req = translateRequest{}
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	content, ok := h.resolveContent(w, r, req.Content, req.NoteID)
	if !ok {
		return
	}

	translation, err := h.assistant.Translate(r.Context(), content, req.SourceLang, req.TargetLang)
	if err != nil {
		h.logger.Error("translate", "note_id", req.NoteID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "translation failed",
			"detail": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"translation": translation})
}

func (h *AssistHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		req = completeRequest{}
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	content, ok := h.resolveContent(w, r, req.Content, req.NoteID)
	if !ok {
		return
	}

	completion, err := h.assistant.Complete(r.Context(), content, req.MaxTokens)
	if err != nil {
		h.logger.Error("complete", "note_id", req.NoteID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "completion failed",
			"detail": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"completion": completion})
}

// resolveContent returns content, or the stored content of noteID when
// content is empty. It writes the error response and returns false when
// there is nothing to send.
func (h *AssistHandler) resolveContent(w http.ResponseWriter, r *http.Request, content string, noteID int64) (string, bool) {
	if content == "" && noteID != 0 {
		note, err := h.notes.GetByID(r.Context(), noteID)
		if err != nil {
			h.logger.Error("get note", "id", noteID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get note")
			return "", false
		}
		if note == nil {
			writeError(w, http.StatusNotFound, "note not found")
			return "", false
		}
		content = note.Content
	}
	if content == "" {
		writeError(w, http.StatusBadRequest, "content or note_id required")
		return "", false
	}
	return content, true
}
