// Package mssql implements the migration repository for Microsoft SQL Server
// on github.com/microsoft/go-mssqldb. SQL Server runs DDL inside
// transactions, so ApplyMigration is atomic.
package mssql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"ddlsim/internal/storage/sqlrepo"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN          string
	VersionTable string
}

var dialect = sqlrepo.Dialect{
	Name:        "mssql",
	Driver:      "sqlserver",
	QuoteIdent:  msIdent,
	Placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
	VersionTableDDL: `IF OBJECT_ID(N'%[1]s', N'U') IS NULL
CREATE TABLE %[1]s (
  version BIGINT NOT NULL PRIMARY KEY,
  name NVARCHAR(255) NOT NULL,
  checksum NVARCHAR(32) NOT NULL,
  applied_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
)`,
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	*sqlrepo.Repository
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql: parse dsn: %w", err)
	}
	db, err := sqlrepo.Open(ctx, dialect, cfg.DSN)
	if err != nil {
		return nil, nil, msDetail(err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{Repository: sqlrepo.New(db, dialect, cfg.VersionTable), cfg: cfg}, closeFn, nil
}

// msDetail prefixes server errors with their error number.
func msDetail(err error) error {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return fmt.Errorf("mssql error %d: %w", msErr.Number, err)
	}
	return err
}

// msIdent quotes a single identifier with brackets.
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }
