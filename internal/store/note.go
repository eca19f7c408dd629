package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/jotter/internal/database"
	"github.com/dukerupert/jotter/internal/model"
)

type NoteStore struct {
	db      *sql.DB
	backend database.Backend
	now     func() time.Time
}

func NewNoteStore(db *sql.DB, backend database.Backend) *NoteStore {
	return &NoteStore{db: db, backend: backend, now: time.Now}
}

func scanNote(scanner interface{ Scan(...any) error }) (*model.Note, error) {
	var n model.Note
	err := scanner.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

const noteCols = `id, title, content, created_at, updated_at`

func validateNote(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidNote)
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidNote, model.MaxTitleLength)
	}
	if content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidNote)
	}
	return nil
}

// timestamp returns the current time at microsecond precision, strictly
// after prev.
func (s *NoteStore) timestamp(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (s *NoteStore) Create(ctx context.Context, title, content string) (*model.Note, error) {
	if err := validateNote(title, content); err != nil {
		return nil, err
	}

	now := s.timestamp(time.Time{})
	const insert = `INSERT INTO notes (title, content, created_at, updated_at) VALUES (?, ?, ?, ?)`

	var id int64
	if s.backend.SupportsReturning() {
		err := s.db.QueryRowContext(ctx, s.backend.Rebind(insert+` RETURNING id`), title, content, now, now).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert note: %w", err)
		}
	} else {
		result, err := s.db.ExecContext(ctx, insert, title, content, now, now)
		if err != nil {
			return nil, fmt.Errorf("insert note: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the note with the given id, or nil if there is none.
func (s *NoteStore) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	row := s.db.QueryRowContext(ctx, s.backend.Rebind(`SELECT `+noteCols+` FROM notes WHERE id = ?`), id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// List returns every note, most recently updated first.
func (s *NoteStore) List(ctx context.Context) ([]model.Note, error) {
	notes, err := s.query(ctx, `SELECT `+noteCols+` FROM notes ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Search returns notes whose title or content contains query, most recently
// updated first. An empty query matches nothing.
func (s *NoteStore) Search(ctx context.Context, query string) ([]model.Note, error) {
	if query == "" {
		return []model.Note{}, nil
	}

	pattern := "%" + escapeLike(query) + "%"
	notes, err := s.query(ctx,
		`SELECT `+noteCols+` FROM notes
		 WHERE title LIKE ? ESCAPE '!' OR content LIKE ? ESCAPE '!'
		 ORDER BY updated_at DESC, id DESC`,
		pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return notes, nil
}

// escapeLike makes LIKE wildcards in s match literally, using ! as the
// escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

func (s *NoteStore) query(ctx context.Context, query string, args ...any) ([]model.Note, error) {
	rows, err := s.db.QueryContext(ctx, s.backend.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// Update overwrites the non-nil fields of the note and refreshes updated_at.
// The read and the write share one transaction.
func (s *NoteStore) Update(ctx context.Context, id int64, title, content *string) (*model.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, s.backend.Rebind(`SELECT `+noteCols+` FROM notes WHERE id = ?`), id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	if title != nil {
		n.Title = *title
	}
	if content != nil {
		n.Content = *content
	}
	if err := validateNote(n.Title, n.Content); err != nil {
		return nil, err
	}
	n.UpdatedAt = s.timestamp(n.UpdatedAt)

	_, err = tx.ExecContext(ctx,
		s.backend.Rebind(`UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ?`),
		n.Title, n.Content, n.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return n, nil
}

func (s *NoteStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.backend.Rebind(`DELETE FROM notes WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("delete note %d: %w", id, ErrNotFound)
	}
	return nil
}
