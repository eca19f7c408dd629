package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/jotter/internal/database"
	"github.com/dukerupert/jotter/internal/model"
)

const minPasswordLength = 8

type UserStore struct {
	db      *sql.DB
	backend database.Backend
	cost    int
}

func NewUserStore(db *sql.DB, backend database.Backend) *UserStore {
	return &UserStore{db: db, backend: backend, cost: bcrypt.DefaultCost}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

const userCols = `id, username, password_hash, created_at`

// Create stores a new user with a bcrypt hash of password.
func (s *UserStore) Create(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > model.MaxUsernameLength {
		return nil, fmt.Errorf("%w: username must be 1-%d characters", ErrInvalidUser, model.MaxUsernameLength)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, minPasswordLength)
	}

	existing, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	const insert = `INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`

	var id int64
	if s.backend.SupportsReturning() {
		err = s.db.QueryRowContext(ctx, s.backend.Rebind(insert+` RETURNING id`), username, string(hash), now).Scan(&id)
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		if err != nil {
			return nil, fmt.Errorf("insert user: %w", err)
		}
	} else {
		result, err := s.db.ExecContext(ctx, insert, username, string(hash), now)
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		if err != nil {
			return nil, fmt.Errorf("insert user: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.backend.Rebind(`SELECT `+userCols+` FROM users WHERE id = ?`), id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.backend.Rebind(`SELECT `+userCols+` FROM users WHERE username = ?`), username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when password matches the stored hash.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
