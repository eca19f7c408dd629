package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Backend names one of the supported relational databases.
type Backend string

const (
	SQLite   Backend = "sqlite"
	Postgres Backend = "postgres"
	MySQL    Backend = "mysql"
)

// ParseBackend accepts a backend name, case-insensitively. "postgresql" and
// "sqlite3" are accepted as aliases.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return "", fmt.Errorf("unknown database backend %q (want sqlite, postgres or mysql)", s)
	}
}

func (b Backend) driverName() string {
	switch b {
	case Postgres:
		return "pgx"
	case MySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

func (b Backend) gooseDialect() string {
	switch b {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return "sqlite3"
	}
}

// SupportsReturning reports whether INSERT ... RETURNING is available.
func (b Backend) SupportsReturning() bool {
	return b != MySQL
}

// Rebind rewrites ? placeholders into the backend's bind syntax. Queries
// must not contain a literal question mark.
func (b Backend) Rebind(query string) string {
	if b != Postgres {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}
