package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/jotter/internal/model"
	"github.com/dukerupert/jotter/internal/store"
	"github.com/dukerupert/jotter/internal/websocket"
)

// NoteRepository is the persistence the note handlers depend on.
type NoteRepository interface {
	List(ctx context.Context) ([]model.Note, error)
	GetByID(ctx context.Context, id int64) (*model.Note, error)
	Create(ctx context.Context, title, content string) (*model.Note, error)
	Update(ctx context.Context, id int64, title, content *string) (*model.Note, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string) ([]model.Note, error)
}

type NoteHandler struct {
	notes    NoteRepository
	hub      *websocket.Hub
	validate *validator.Validate
	logger   *slog.Logger
}

// NewNoteHandler wires note routes. hub may be nil.
func NewNoteHandler(notes NoteRepository, hub *websocket.Hub, logger *slog.Logger) *NoteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteHandler{
		notes:    notes,
		hub:      hub,
		validate: newValidator(),
		logger:   logger.With("component", "notes"),
	}
}

func (h *NoteHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type createNoteRequest struct {
	Title   string `json:"title" validate:"required,max=100"`
	Content string `json:"content" validate:"required"`
}

type updateNoteRequest struct {
	Title   *string `json:"title" validate:"omitnil,max=100"`
	Content *string `json:"content"`
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.List(r.Context())
	if err != nil {
		h.logger.Error("list notes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	note, err := h.notes.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get note")
		return
	}
	if note == nil {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = ""
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	note, err := h.notes.Create(r.Context(), req.Title, req.Content)
	if errors.Is(err, store.ErrInvalidNote) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("create note", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create note")
		return
	}

	h.broadcast(websocket.NoteEvent(websocket.ActionCreated, note.ID, note))

	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.notes.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get note")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}

	var req updateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if errors.Is(err, errEmptyBody) {
			writeError(w, http.StatusBadRequest, "no data provided")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == nil && req.Content == nil {
		writeError(w, http.StatusBadRequest, "no data provided")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	note, err := h.notes.Update(r.Context(), id, req.Title, req.Content)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "note not found")
		return
	case errors.Is(err, store.ErrInvalidNote):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("update note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}

	h.broadcast(websocket.NoteEvent(websocket.ActionUpdated, id, note))

	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.notes.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	if err != nil {
		h.logger.Error("delete note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}

	h.broadcast(websocket.NoteEvent(websocket.ActionDeleted, id, nil))

	w.WriteHeader(http.StatusNoContent)
}

func (h *NoteHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	notes, err := h.notes.Search(r.Context(), q)
	if err != nil {
		h.logger.Error("search notes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to search notes")
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}
