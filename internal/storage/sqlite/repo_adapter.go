package sqlite

import (
	"context"
	"time"

	"ddlsim/internal/storage"
	sqliteddl "ddlsim/internal/storage/sqlite/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid opening a database.
var newRepository = NewRepository

// wrappedRepo adapts *sqlite.Repository to storage.Repository, adding a Close
// method that calls the cleanup function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Options read from storage.options:
//
//	busy_timeout_ms  int   (default 5000)
//	foreign_keys     bool  (default true)
func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:          cfg.DSN,
			VersionTable: cfg.Table(),
			BusyTimeout:  time.Duration(cfg.Options.Int("busy_timeout_ms", 5000)) * time.Millisecond,
			ForeignKeys:  cfg.Options.Bool("foreign_keys", true),
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterTypeMapper("sqlite", sqliteddl.MapType)
}
