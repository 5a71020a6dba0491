// Package mysql implements the migration repository for MySQL and MariaDB on
// github.com/go-sql-driver/mysql.
//
// MySQL commits DDL implicitly, so ApplyMigration is only atomic for the
// version row; a migration that fails half way must be repaired by hand.
package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"ddlsim/internal/storage/sqlrepo"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN          string
	VersionTable string
	// ANSIQuotes adds ANSI_QUOTES to the session sql_mode so that the
	// double-quoted identifiers in generated migrations are accepted.
	ANSIQuotes bool
}

var dialect = sqlrepo.Dialect{
	Name:        "mysql",
	Driver:      "mysql",
	QuoteIdent:  myIdent,
	Placeholder: sqlrepo.QuestionMark,
	VersionTableDDL: `CREATE TABLE IF NOT EXISTS %s (
  version BIGINT NOT NULL PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  checksum VARCHAR(32) NOT NULL,
  applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	*sqlrepo.Repository
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsn, err := sessionDSN(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlrepo.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, nil, myDetail(err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{Repository: sqlrepo.New(db, dialect, cfg.VersionTable), cfg: cfg}, closeFn, nil
}

// sessionDSN validates the DSN and sets the session options migrations rely
// on: parseTime, no multi-statement packets, and optionally ANSI_QUOTES.
func sessionDSN(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return "", fmt.Errorf("mysql: DSN must not be empty")
	}
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return "", fmt.Errorf("mysql: parse dsn: %w", err)
	}
	mc.ParseTime = true
	mc.MultiStatements = false
	if cfg.ANSIQuotes {
		if mc.Params == nil {
			mc.Params = map[string]string{}
		}
		mc.Params["sql_mode"] = "CONCAT(@@sql_mode, ',ANSI_QUOTES')"
	}
	return mc.FormatDSN(), nil
}

// myDetail prefixes server errors with their error number.
func myDetail(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Errorf("mysql error %d: %w", myErr.Number, err)
	}
	return err
}

// myIdent quotes a single identifier with backticks.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
