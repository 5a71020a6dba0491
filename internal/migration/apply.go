package migration

import (
	"context"
	"fmt"
	"log"

	"ddlsim/internal/metrics"
	"ddlsim/internal/storage"
)

// Applier applies migration files to a repository.
type Applier struct {
	// Job labels metrics.
	Job string
	// DryRun reports pending files without executing them.
	DryRun bool
}

// Apply applies pending files with a default Applier.
func Apply(ctx context.Context, repo storage.Repository, files []File) (int, error) {
	return Applier{}.Apply(ctx, repo, files)
}

// Apply makes sure the version table exists, checks that every applied
// version still has an unchanged file, and then applies the remaining files
// in version order, one transaction per file. It returns how many files were
// applied (or would be, with DryRun) before the first error.
func (a Applier) Apply(ctx context.Context, repo storage.Repository, files []File) (int, error) {
	if err := repo.EnsureVersionTable(ctx); err != nil {
		return 0, err
	}
	applied, err := repo.AppliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	pending, err := Pending(files, applied)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, f := range pending {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if a.DryRun {
			log.Printf("migration: pending version=%d name=%s statements=%d", f.Version, f.Name, len(f.Statements))
			n++
			continue
		}
		err := repo.ApplyMigration(ctx, storage.Migration{
			Version:    f.Version,
			Name:       f.Name,
			Checksum:   f.Checksum,
			Statements: f.Statements,
		})
		if err != nil {
			return n, fmt.Errorf("migration: apply %s: %w", f.Base(), err)
		}
		n++
		metrics.RecordMigrations(a.Job, 1)
		metrics.RecordStatements(a.Job, "executed", len(f.Statements))
		log.Printf("migration: applied version=%d name=%s statements=%d", f.Version, f.Name, len(f.Statements))
	}
	return n, nil
}

// Pending returns the files whose versions are not in applied. An applied
// version without a file, or whose file checksum changed since it was
// applied, is an error.
func Pending(files []File, applied []storage.AppliedVersion) ([]File, error) {
	byVersion := make(map[int64]File, len(files))
	for _, f := range files {
		byVersion[f.Version] = f
	}

	done := make(map[int64]struct{}, len(applied))
	for _, av := range applied {
		f, ok := byVersion[av.Version]
		if !ok {
			return nil, fmt.Errorf("migration: version %d (%s) is applied but has no file", av.Version, av.Name)
		}
		if av.Checksum != "" && av.Checksum != f.Checksum {
			return nil, fmt.Errorf("migration: %s changed after it was applied: checksum %s, recorded %s",
				f.Base(), f.Checksum, av.Checksum)
		}
		done[av.Version] = struct{}{}
	}

	var out []File
	for _, f := range files {
		if _, ok := done[f.Version]; !ok {
			out = append(out, f)
		}
	}
	return out, nil
}
