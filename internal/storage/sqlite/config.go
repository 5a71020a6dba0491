package sqlite

import "time"

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a file path or URI understood by modernc.org/sqlite, e.g.
	// "migrate.db", "file:migrate.db?mode=rwc" or ":memory:".
	DSN string
	// VersionTable is the unquoted version table name.
	VersionTable string
	// BusyTimeout makes writers wait for a locked database instead of failing
	// immediately. Zero keeps the driver default.
	BusyTimeout time.Duration
	// ForeignKeys turns on PRAGMA foreign_keys for the connection.
	ForeignKeys bool
}
