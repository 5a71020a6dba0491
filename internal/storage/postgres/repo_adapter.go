package postgres

// This file wires the Postgres backend into the storage-agnostic factory by
// registering a constructor and a type mapper at init time. The CLI obtains a
// Repository via storage.New(...) without importing this package directly.

import (
	"context"

	"ddlsim/internal/storage"
	pgddl "ddlsim/internal/storage/postgres/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to the concrete
// *postgres.Repository while providing a Close method that calls the close
// function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Options read from storage.options:
//
//	max_conns  int  pool size cap (default: pgxpool's)
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:          cfg.DSN,
			VersionTable: cfg.Table(),
			MaxConns:     int32(cfg.Options.Int("max_conns", 0)),
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterTypeMapper("postgres", pgddl.MapType)
}
