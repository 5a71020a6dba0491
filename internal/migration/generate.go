package migration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"ddlsim/internal/config"
	"ddlsim/internal/ddl"
	"ddlsim/internal/metrics"
	"ddlsim/internal/simulator"
)

// LockFile is created in the migrations directory and flocked while a
// migration is generated.
const LockFile = ".migrate.lock"

const versionLayout = "20060102150405"

var (
	// ErrNoChanges is returned by Generate when the replayed schema already
	// matches the model.
	ErrNoChanges = errors.New("migration: schema is up to date")
	// ErrLocked is returned when another process is generating into the
	// same directory.
	ErrLocked = errors.New("migration: directory is locked by another generator")
)

var nameSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateInput describes one generation request.
type GenerateInput struct {
	// Dir is the migrations directory. It is created when missing.
	Dir string
	// Name becomes the file name suffix after sanitizing to snake_case.
	Name  string
	Model config.Model
	// MapType resolves logical model types to SQL types.
	MapType ddl.MapType
	// Baseline seeds the replay, e.g. with tables created outside migrations.
	Baseline *simulator.Schema
	// Job labels metrics.
	Job string
	// Workers bounds concurrent file reads; see Loader.
	Workers int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Generated is a migration file written by Generate.
type Generated struct {
	Path       string
	Version    int64
	Statements []string
	Changes    []ddl.Change
}

// Generate replays the migrations in Dir, diffs the result against Model and
// writes the difference as a new migration file. Before writing, the new
// statements are replayed on top of the projected schema and diffed again; a
// non-empty second diff means the rendering cannot be trusted and nothing is
// written. ErrNoChanges is returned when there is nothing to do.
func Generate(ctx context.Context, in GenerateInput) (*Generated, error) {
	name := sanitizeName(in.Name)
	if name == "" {
		return nil, fmt.Errorf("migration: name %q has no usable characters", in.Name)
	}
	if err := os.MkdirAll(in.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("migration: create dir: %w", err)
	}

	unlock, err := lockDir(in.Dir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	files, err := Loader{Workers: in.Workers}.Load(ctx, in.Dir)
	if err != nil {
		return nil, err
	}
	current, err := Replay(files, in.Baseline)
	if err != nil {
		return nil, err
	}
	metrics.RecordStatements(in.Job, "replayed", countStatements(files))

	desired, err := ddl.FromModel(in.Model, in.MapType)
	if err != nil {
		return nil, err
	}
	changes := ddl.Diff(ddl.FromSchema(current), desired)
	if len(changes) == 0 {
		return nil, ErrNoChanges
	}

	stmts := make([]string, 0, len(changes))
	for _, c := range changes {
		s, err := c.SQL()
		if err != nil {
			return nil, fmt.Errorf("migration: render %s %s: %w", c.Kind, c.Table, err)
		}
		stmts = append(stmts, s)
	}

	now := time.Now
	if in.Now != nil {
		now = in.Now
	}
	at := now().UTC()
	version := nextVersion(at, files)
	out := &Generated{
		Path:       filepath.Join(in.Dir, fmt.Sprintf("%d_%s.sql", version, name)),
		Version:    version,
		Statements: stmts,
		Changes:    changes,
	}

	if err := verify(current, desired, out); err != nil {
		return nil, err
	}
	if err := writeFile(out.Path, render(name, at, stmts)); err != nil {
		return nil, err
	}
	metrics.RecordStatements(in.Job, "generated", len(stmts))
	log.Printf("migration: generated file=%s changes=%d", filepath.Base(out.Path), len(changes))
	return out, nil
}

// verify replays g on top of current and checks that nothing is left to do.
func verify(current *simulator.Schema, desired []ddl.TableDef, g *Generated) error {
	after, err := Replay([]File{{Version: g.Version, Path: g.Path, Statements: g.Statements}}, current)
	if err != nil {
		return fmt.Errorf("migration: generated statements do not replay: %w", err)
	}
	if rest := ddl.Diff(ddl.FromSchema(after), desired); len(rest) > 0 {
		return fmt.Errorf("migration: generated statements leave %d differences, first %s %s",
			len(rest), rest[0].Kind, rest[0].Table)
	}
	return nil
}

// nextVersion uses the timestamp unless an existing file already has an
// equal or later version.
func nextVersion(at time.Time, files []File) int64 {
	v, _ := strconv.ParseInt(at.Format(versionLayout), 10, 64)
	if n := len(files); n > 0 && files[n-1].Version >= v {
		v = files[n-1].Version + 1
	}
	return v
}

func render(name string, at time.Time, stmts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s\n-- generated %s\n", name, at.Format(time.RFC3339))
	for _, s := range stmts {
		b.WriteString("\n")
		b.WriteString(s)
		if !strings.HasSuffix(s, ";") {
			b.WriteString(";")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// writeFile writes through a temporary file so a crash never leaves a
// truncated migration behind.
func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("migration: %s already exists", filepath.Base(path))
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pending-*.tmp")
	if err != nil {
		return fmt.Errorf("migration: create temp file: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("migration: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("migration: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("migration: rename to %s: %w", filepath.Base(path), err)
	}
	return nil
}

// lockDir takes a non-blocking exclusive flock on dir/LockFile.
func lockDir(dir string) (func(), error) {
	f, err := os.OpenFile(filepath.Join(dir, LockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("migration: open lock: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("migration: lock %s: %w", dir, err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}

func sanitizeName(s string) string {
	s = nameSeparators.ReplaceAllString(strings.ToLower(s), "_")
	return strings.Trim(s, "_")
}
