package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ddlsim/internal/config"
	"ddlsim/internal/ddl"
	"ddlsim/internal/metrics"
	"ddlsim/internal/migration"
	"ddlsim/internal/simulator"
	"ddlsim/internal/storage"
)

// openRepository is a test hook that points to storage.New by default.
var openRepository = storage.New

// runner executes one command against a validated project.
type runner struct {
	project config.Project
	out     io.Writer
	verbose bool
	dryRun  bool
}

func (r *runner) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "check":
		return r.check(ctx)
	case "schema":
		return r.schema(ctx)
	case "generate":
		if len(args) != 1 {
			return errors.New("usage: generate <name>")
		}
		return r.generate(ctx, args[0])
	case "apply":
		return r.apply(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// load reads the migrations directory and logs what it found.
func (r *runner) load(ctx context.Context) ([]migration.File, error) {
	start := time.Now()
	files, err := migration.Loader{Workers: r.loadWorkers()}.Load(ctx, r.project.Migrations.Dir)
	metrics.RecordStep(r.project.Job, "load", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	if r.verbose {
		var size int
		for _, f := range files {
			size += len(f.SQL)
		}
		log.Printf("migrate: dir=%s files=%d size=%s", r.project.Migrations.Dir,
			len(files), humanize.Bytes(uint64(size)))
	}
	return files, nil
}

// replay replays files from an empty schema.
func (r *runner) replay(files []migration.File) (*simulator.Schema, error) {
	start := time.Now()
	s, err := migration.Replay(files, nil)
	metrics.RecordStep(r.project.Job, "replay", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	metrics.RecordStatements(r.project.Job, "replayed", statementCount(files))
	return s, nil
}

func (r *runner) check(ctx context.Context) error {
	files, err := r.load(ctx)
	if err != nil {
		return err
	}
	schema, err := r.replay(files)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "ok: %s migrations, %s statements, %s tables\n",
		humanize.Comma(int64(len(files))),
		humanize.Comma(int64(statementCount(files))),
		humanize.Comma(int64(len(schema.Tables))))

	if len(r.project.Model.Tables) == 0 {
		return nil
	}
	mapType, err := r.typeMapper()
	if err != nil {
		return err
	}
	desired, err := ddl.FromModel(r.project.Model, mapType)
	if err != nil {
		return err
	}
	if changes := ddl.Diff(ddl.FromSchema(schema), desired); len(changes) > 0 {
		fmt.Fprintf(r.out, "model differs from migrations: %d pending changes\n", len(changes))
		for _, c := range changes {
			fmt.Fprintf(r.out, "  %s %s", c.Kind, c.Table)
			if c.Column.Name != "" {
				fmt.Fprintf(r.out, ".%s", c.Column.Name)
			}
			fmt.Fprintln(r.out)
		}
	}
	return nil
}

func (r *runner) schema(ctx context.Context) error {
	files, err := r.load(ctx)
	if err != nil {
		return err
	}
	schema, err := r.replay(files)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(schema)
}

func (r *runner) generate(ctx context.Context, name string) error {
	mapType, err := r.typeMapper()
	if err != nil {
		return err
	}

	start := time.Now()
	g, err := migration.Generate(ctx, migration.GenerateInput{
		Dir:     r.project.Migrations.Dir,
		Name:    name,
		Model:   r.project.Model,
		MapType: mapType,
		Job:     r.project.Job,
		Workers: r.loadWorkers(),
	})
	if errors.Is(err, migration.ErrNoChanges) {
		fmt.Fprintln(r.out, "schema is up to date; nothing generated")
		return nil
	}
	if err != nil {
		return err
	}
	if r.verbose {
		log.Printf("migrate: generated version=%d changes=%d in %s",
			g.Version, len(g.Changes), time.Since(start).Truncate(time.Millisecond))
	}
	fmt.Fprintln(r.out, g.Path)
	return nil
}

func (r *runner) apply(ctx context.Context) error {
	files, err := r.load(ctx)
	if err != nil {
		return err
	}

	s := r.project.Storage
	repo, err := openRepository(ctx, storage.Config{
		Kind:         s.Kind,
		DSN:          s.DB.DSN,
		VersionTable: r.project.Migrations.VersionTable(),
		Options:      s.Options,
	})
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := migration.Applier{Job: r.project.Job, DryRun: r.dryRun}.Apply(ctx, repo, files)
	if r.dryRun {
		fmt.Fprintf(r.out, "%d pending migrations\n", n)
	} else {
		fmt.Fprintf(r.out, "applied %d migrations\n", n)
	}
	return err
}

// typeMapper picks the mapper for Model.Dialect, then Storage.Kind, then
// postgres.
func (r *runner) typeMapper() (ddl.MapType, error) {
	dialect := firstNonEmpty(r.project.Model.Dialect, r.project.Storage.Kind, "postgres")
	fn, ok := storage.TypeMapper(dialect)
	if !ok {
		return nil, fmt.Errorf("no type mapper for dialect %q (known: %s)",
			dialect, strings.Join(storage.ListKinds(), ", "))
	}
	return ddl.MapType(fn), nil
}

// loadWorkers prefers the project setting, then MIGRATE_LOAD_WORKERS.
func (r *runner) loadWorkers() int {
	return pickInt(r.project.Runtime.LoadWorkers, getenvInt("MIGRATE_LOAD_WORKERS", 0))
}

// resolveDir makes a relative migrations dir relative to the config file.
func resolveDir(cfgPath, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(filepath.Dir(cfgPath), dir)
}

func statementCount(files []migration.File) int {
	n := 0
	for _, f := range files {
		n += len(f.Statements)
	}
	return n
}

// getenvInt returns the integer value of key, or def when unset or invalid.
func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func pickInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
