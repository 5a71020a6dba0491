// Package sqlrepo implements the storage.Repository bookkeeping on top of
// database/sql. The sqlite, mysql and mssql backends differ only in driver,
// identifier quoting, placeholders and the version table DDL, which they pass
// in as a Dialect.
package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ddlsim/internal/storage"
)

// Dialect describes what varies between database/sql backends.
type Dialect struct {
	// Name prefixes error messages, e.g. "sqlite".
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// QuoteIdent quotes one identifier segment.
	QuoteIdent func(string) string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// VersionTableDDL is a format string whose only operand is the quoted
	// table name (use %[1]s to repeat it). It must be idempotent.
	VersionTableDDL string
	// MaxOpenConns limits the pool; zero leaves the driver default.
	MaxOpenConns int
}

// QuoteFQN quotes each dotted segment of name.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// Repository is a storage.Repository over a *sql.DB. It has no Close; the
// backend adapters own the pool.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// Open opens and pings a pool for d.Driver.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", d.Name)
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Name, err)
	}
	if d.MaxOpenConns > 0 {
		db.SetMaxOpenConns(d.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Name, err)
	}
	return db, nil
}

// New wraps an open pool. table is the unquoted version table name.
func New(db *sql.DB, d Dialect, table string) *Repository {
	return &Repository{db: db, dialect: d, table: table}
}

// DB exposes the pool to backend code and tests.
func (r *Repository) DB() *sql.DB { return r.db }

// Exec runs one statement. Blank statements are ignored.
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: exec: %w", r.dialect.Name, err)
	}
	return nil
}

func (r *Repository) EnsureVersionTable(ctx context.Context) error {
	stmt := fmt.Sprintf(r.dialect.VersionTableDDL, r.dialect.QuoteFQN(r.table))
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: create version table %s: %w", r.dialect.Name, r.table, err)
	}
	return nil
}

func (r *Repository) AppliedVersions(ctx context.Context) ([]storage.AppliedVersion, error) {
	q := fmt.Sprintf("SELECT version, name, checksum FROM %s", r.dialect.QuoteFQN(r.table))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: read versions: %w", r.dialect.Name, err)
	}
	defer rows.Close()

	var out []storage.AppliedVersion
	for rows.Next() {
		var v storage.AppliedVersion
		if err := rows.Scan(&v.Version, &v.Name, &v.Checksum); err != nil {
			return nil, fmt.Errorf("%s: scan version: %w", r.dialect.Name, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: read versions: %w", r.dialect.Name, err)
	}
	storage.SortVersions(out)
	return out, nil
}

// ApplyMigration runs the statements and the version insert in one
// transaction. Backends without transactional DDL (MySQL) commit each DDL
// statement implicitly, so a failure there can leave earlier statements
// applied without a version row.
func (r *Repository) ApplyMigration(ctx context.Context, m storage.Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", r.dialect.Name, err)
	}
	for i, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: migration %d statement %d: %w", r.dialect.Name, m.Version, i+1, err)
		}
	}
	insert := fmt.Sprintf(
		"INSERT INTO %s (version, name, checksum) VALUES (%s, %s, %s)",
		r.dialect.QuoteFQN(r.table),
		r.dialect.Placeholder(1), r.dialect.Placeholder(2), r.dialect.Placeholder(3),
	)
	if _, err := tx.ExecContext(ctx, insert, m.Version, m.Name, m.Checksum); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: record version %d: %w", r.dialect.Name, m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", r.dialect.Name, err)
	}
	return nil
}

// QuestionMark is the placeholder style of sqlite and mysql.
func QuestionMark(int) string { return "?" }

// QuoteDouble quotes with ANSI double quotes.
func QuoteDouble(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
