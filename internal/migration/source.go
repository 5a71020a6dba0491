// Package migration turns a directory of versioned SQL files into a projected
// schema, generates new files from the difference between that schema and the
// desired model, and applies pending files to a database.
//
// Files are named <version>_<name>.sql where version is a decimal integer.
// Generated files use the UTC timestamp yyyymmddhhmmss as version, so they
// sort after hand-numbered ones.
package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
)

// File is one loaded migration.
type File struct {
	Version int64
	Name    string
	Path    string
	// SQL is the raw file content.
	SQL string
	// Statements is SQL split into single statements without the trailing ';'.
	Statements []string
	// Checksum is the hex xxh3-128 of SQL.
	Checksum string
}

// Base returns the file name without directory.
func (f File) Base() string {
	if f.Path != "" {
		return filepath.Base(f.Path)
	}
	return fmt.Sprintf("%d_%s.sql", f.Version, f.Name)
}

var fileNamePattern = regexp.MustCompile(`^(\d+)_([^/\\]+)\.sql$`)

// Loader reads a migrations directory.
type Loader struct {
	// Workers bounds concurrent file reads. Zero means runtime.NumCPU().
	Workers int
}

// LoadDir reads every migration in dir with the default Loader.
func LoadDir(ctx context.Context, dir string) ([]File, error) {
	return Loader{}.Load(ctx, dir)
}

// Load reads, checksums and splits every *.sql file in dir and returns them
// sorted by version. Other files and subdirectories are ignored. A .sql file
// that does not follow the naming scheme, or two files sharing a version, is
// an error.
func (l Loader) Load(ctx context.Context, dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("migration: read dir %s: %w", dir, err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("migration: %s: name must be <version>_<name>.sql", e.Name())
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration: %s: version: %w", e.Name(), err)
		}
		files = append(files, File{
			Version: v,
			Name:    m[2],
			Path:    filepath.Join(dir, e.Name()),
		})
	}

	slices.SortFunc(files, func(a, b File) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	})
	for i := 1; i < len(files); i++ {
		if files[i].Version == files[i-1].Version {
			return nil, fmt.Errorf("migration: version %d used by both %s and %s",
				files[i].Version, files[i-1].Base(), files[i].Base())
		}
	}

	workers := l.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range files {
		f := &files[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return f.read()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// read fills SQL, Checksum and Statements from Path.
func (f *File) read() error {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("migration: read %s: %w", f.Base(), err)
	}
	f.SQL = string(b)
	f.Checksum = Checksum(b)
	stmts, err := Split(f.SQL)
	if err != nil {
		return fmt.Errorf("migration: %s: %w", f.Base(), err)
	}
	f.Statements = stmts
	return nil
}

// Checksum returns the hex encoded xxh3-128 hash of b.
func Checksum(b []byte) string {
	h := xxh3.Hash128(b)
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}
