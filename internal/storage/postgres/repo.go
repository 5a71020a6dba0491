// Package postgres implements the migration repository on pgx v5. Postgres
// runs DDL transactionally, so a failed migration leaves neither schema
// changes nor a version row behind.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ddlsim/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
	// VersionTable is the unquoted, possibly schema-qualified version table,
	// e.g. "public.schema_migrations".
	VersionTable string
	// MaxConns caps the pool; zero keeps the pgxpool default.
	MaxConns int32
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", pgDetail(err))
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", pgDetail(err))
	}
	return nil
}

func (r *Repository) EnsureVersionTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  version BIGINT PRIMARY KEY,
  name TEXT NOT NULL,
  checksum TEXT NOT NULL,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, pgFQN(r.cfg.VersionTable))
	if _, err := r.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: create version table %s: %w", r.cfg.VersionTable, pgDetail(err))
	}
	return nil
}

func (r *Repository) AppliedVersions(ctx context.Context) ([]storage.AppliedVersion, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT version, name, checksum FROM %s ORDER BY version", pgFQN(r.cfg.VersionTable)))
	if err != nil {
		return nil, fmt.Errorf("postgres: read versions: %w", pgDetail(err))
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.AppliedVersion, error) {
		var v storage.AppliedVersion
		err := row.Scan(&v.Version, &v.Name, &v.Checksum)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: read versions: %w", pgDetail(err))
	}
	return out, nil
}

func (r *Repository) ApplyMigration(ctx context.Context, m storage.Migration) error {
	insert := fmt.Sprintf("INSERT INTO %s (version, name, checksum) VALUES ($1, $2, $3)", pgFQN(r.cfg.VersionTable))
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i, stmt := range m.Statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("postgres: migration %d statement %d: %w", m.Version, i+1, pgDetail(err))
			}
		}
		if _, err := tx.Exec(ctx, insert, m.Version, m.Name, m.Checksum); err != nil {
			return fmt.Errorf("postgres: record version %d: %w", m.Version, pgDetail(err))
		}
		return nil
	})
}

// pgDetail appends the server's DETAIL line, which pgconn.PgError.Error
// leaves out.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s)", err, pgErr.Detail)
	}
	return err
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.schema_migrations"
// to "public"."schema_migrations".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}
