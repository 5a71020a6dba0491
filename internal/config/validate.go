package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// project, e.g. "model.tables[1].columns[0].type".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// KnownStorageKinds lists the backends the migrate binary links in.
var KnownStorageKinds = []string{"postgres", "sqlite", "mysql", "mssql"}

var referentialActions = map[string]struct{}{
	"NO ACTION":   {},
	"RESTRICT":    {},
	"CASCADE":     {},
	"SET NULL":    {},
	"SET DEFAULT": {},
}

// referencePattern accepts "table", "schema.table" and either followed by
// "(column)".
var referencePattern = regexp.MustCompile(`^\s*[^\s()]+\s*(\(\s*[^\s()]+\s*\))?\s*$`)

var tableNamePattern = regexp.MustCompile(`^\w+(\.\w+)?$`)

// ValidateProject lints a decoded Project without touching the filesystem or
// a database. Callers decide whether warnings are fatal.
//
//	issues := config.ValidateProject(p)
//	for _, iss := range issues {
//	    fmt.Fprintln(os.Stderr, iss)
//	}
//	if config.HasErrors(issues) { os.Exit(1) }
func ValidateProject(p Project) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and logs",
		})
	}
	issues = append(issues, validateMigrations(p.Migrations)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateModel(p.Model)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateMigrations(m Migrations) []Issue {
	var issues []Issue

	if strings.TrimSpace(m.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "migrations.dir",
			Message:  "migrations.dir must not be empty",
		})
	}
	if m.Table != "" && !tableNamePattern.MatchString(m.Table) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "migrations.table",
			Message:  fmt.Sprintf("version table %q is not a plain identifier", m.Table),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  "storage.kind is empty; apply is unavailable",
		})
		return issues
	}
	if !slices.Contains(KnownStorageKinds, s.Kind) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn is empty; apply will fail",
		})
	}
	return issues
}

func validateModel(m Model) []Issue {
	var issues []Issue

	if m.Dialect != "" {
		if !slices.Contains(KnownStorageKinds, m.Dialect) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "model.dialect",
				Message:  fmt.Sprintf("unknown dialect %q; logical types may not map", m.Dialect),
			})
		}
	}
	if len(m.Tables) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "model.tables",
			Message:  "model has no tables; generate will drop every table the migrations created",
		})
		return issues
	}

	tables := map[string]int{}
	for i, t := range m.Tables {
		path := fmt.Sprintf("model.tables[%d]", i)
		name := strings.TrimSpace(t.Name)
		if name == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".name",
				Message:  "table name must not be empty",
			})
		} else if prev, dup := tables[name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".name",
				Message:  fmt.Sprintf("table %q already declared at model.tables[%d]", name, prev),
			})
		} else {
			tables[name] = i
		}

		if len(t.Columns) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".columns",
				Message:  "table must declare at least one column",
			})
			continue
		}
		cols := map[string]struct{}{}
		for j, c := range t.Columns {
			issues = append(issues, validateColumn(fmt.Sprintf("%s.columns[%d]", path, j), c, cols)...)
		}
	}
	return issues
}

func validateColumn(path string, c ModelColumn, seen map[string]struct{}) []Issue {
	var issues []Issue

	name := strings.TrimSpace(c.Name)
	switch {
	case name == "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".name",
			Message:  "column name must not be empty",
		})
	default:
		if _, dup := seen[name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".name",
				Message:  fmt.Sprintf("column %q declared twice", name),
			})
		}
		seen[name] = struct{}{}
	}

	if strings.TrimSpace(c.Type) == "" && strings.TrimSpace(c.SQLType) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".type",
			Message:  "one of type or sql_type is required",
		})
	}
	if c.PrimaryKey && c.Nullable {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".nullable",
			Message:  "primary key columns cannot be nullable",
		})
	}
	if c.References != "" && !referencePattern.MatchString(c.References) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".references",
			Message:  fmt.Sprintf("references %q must look like table or table(column)", c.References),
		})
	}
	if c.OnDelete != "" {
		if c.References == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".on_delete",
				Message:  "on_delete has no effect without references",
			})
		}
		if _, ok := referentialActions[strings.ToUpper(c.OnDelete)]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".on_delete",
				Message:  fmt.Sprintf("unknown referential action %q", c.OnDelete),
			})
		}
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	if r.LoadWorkers < 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "runtime.load_workers",
			Message:  "load_workers must not be negative",
		}}
	}
	return nil
}
