// Package sqlite implements a SQLite-backed storage.Repository on
// modernc.org/sqlite (pure Go, no cgo). The pool is limited to a single
// connection: per-connection pragmas then hold for every statement, and a
// ":memory:" database is not silently replaced by a fresh one.
package sqlite

import (
	"context"
	"fmt"

	"ddlsim/internal/storage/sqlrepo"

	_ "modernc.org/sqlite"
)

var dialect = sqlrepo.Dialect{
	Name:        "sqlite",
	Driver:      "sqlite",
	QuoteIdent:  sqlrepo.QuoteDouble,
	Placeholder: sqlrepo.QuestionMark,
	VersionTableDDL: `CREATE TABLE IF NOT EXISTS %s (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  checksum TEXT NOT NULL,
  applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	MaxOpenConns: 1,
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	*sqlrepo.Repository
	cfg Config
}

// NewRepository opens the database, applies the connection pragmas and
// returns the repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	db, err := sqlrepo.Open(ctx, dialect, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = db.Close() }

	var pragmas []string
	if cfg.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	if cfg.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	return &Repository{Repository: sqlrepo.New(db, dialect, cfg.VersionTable), cfg: cfg}, closeFn, nil
}
