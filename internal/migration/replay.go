package migration

import (
	"fmt"

	"ddlsim/internal/simulator"
)

// ReplayError locates the statement that failed to replay.
type ReplayError struct {
	File string
	// Index is the 1-based statement position within File.
	Index     int
	Statement string
	Err       error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("migration: replay %s statement %d: %v", e.File, e.Index, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// Replay feeds every statement of files, in order, to a simulator seeded with
// a copy of baseline (nil means empty) and returns the resulting schema.
// baseline is never modified.
//
// Each statement is atomic: on failure the schema is restored to its state
// before that statement and returned together with a *ReplayError.
func Replay(files []File, baseline *simulator.Schema) (*simulator.Schema, error) {
	sim := simulator.New()
	if baseline != nil {
		sim.SetSchema(baseline.Clone())
	}

	for _, f := range files {
		stmts := f.Statements
		if stmts == nil && f.SQL != "" {
			var err error
			if stmts, err = Split(f.SQL); err != nil {
				return sim.Schema(), &ReplayError{File: f.Base(), Err: err}
			}
		}
		for i, stmt := range stmts {
			snapshot := sim.Schema().Clone()
			if err := sim.SimulateQuery(stmt); err != nil {
				sim.SetSchema(snapshot)
				return sim.Schema(), &ReplayError{File: f.Base(), Index: i + 1, Statement: stmt, Err: err}
			}
		}
	}
	return sim.Schema(), nil
}

// countStatements sums the statements of files.
func countStatements(files []File) int {
	n := 0
	for _, f := range files {
		n += len(f.Statements)
	}
	return n
}
