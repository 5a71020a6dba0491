// Package storage is the backend-agnostic side of applying migrations: the
// Repository contract, a kind→factory registry that backends fill in from
// their init functions, and a registry of per-backend logical type mappers.
//
// Callers import ddlsim/internal/storage/all for its side effects and then
// open a repository by kind:
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn})
//	if err != nil { ... }
//	defer repo.Close()
package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"ddlsim/internal/config"
)

// Migration is one migration file ready to be executed.
type Migration struct {
	Version  int64
	Name     string
	Checksum string
	// Statements are executed in order inside one transaction where the
	// backend supports transactional DDL.
	Statements []string
}

// AppliedVersion is one row of the version table.
type AppliedVersion struct {
	Version  int64
	Name     string
	Checksum string
}

// Repository executes migrations against one database and records which
// versions have been applied.
type Repository interface {
	// Exec runs a single statement outside any migration bookkeeping.
	Exec(ctx context.Context, sql string) error
	// EnsureVersionTable creates the version table when it is missing.
	EnsureVersionTable(ctx context.Context) error
	// AppliedVersions returns the recorded versions in ascending order.
	AppliedVersions(ctx context.Context) ([]AppliedVersion, error)
	// ApplyMigration runs m and records its version. Either both happen or,
	// on backends with transactional DDL, neither does.
	ApplyMigration(ctx context.Context, m Migration) error
	Close()
}

// Config is the backend-neutral open request.
type Config struct {
	Kind string
	DSN  string
	// VersionTable defaults to config.DefaultVersionTable.
	VersionTable string
	// Options carries backend-specific knobs from the project file.
	Options config.Options
}

// Table returns VersionTable or the default.
func (c Config) Table() string {
	if strings.TrimSpace(c.VersionTable) == "" {
		return config.DefaultVersionTable
	}
	return c.VersionTable
}

// Factory opens a Repository for one backend.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a repository with the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// SortVersions orders applied versions ascending; backends call it so that
// AppliedVersions never depends on the database's row order.
func SortVersions(vs []AppliedVersion) {
	slices.SortFunc(vs, func(a, b AppliedVersion) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	})
}
