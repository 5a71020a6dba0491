package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validProject() Project {
	return Project{
		Job:        "billing",
		Migrations: Migrations{Dir: "migrations"},
		Storage: Storage{
			Kind: "postgres",
			DB:   DBConfig{DSN: "postgres://user@localhost/db"},
		},
		Model: Model{Tables: []ModelTable{{
			Name: "public.account",
			Columns: []ModelColumn{
				{Name: "id", Type: "bigint", PrimaryKey: true},
				{Name: "owner_id", Type: "bigint", Nullable: true, References: "public.owner(id)", OnDelete: "cascade"},
			},
		}}},
	}
}

func TestValidateProject_Valid(t *testing.T) {
	t.Parallel()

	if issues := ValidateProject(validProject()); len(issues) != 0 {
		t.Fatalf("ValidateProject() = %+v, want no issues", issues)
	}
}

func TestValidateProject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Project)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{
			name:   "missing job",
			mutate: func(p *Project) { p.Job = " " },
			sev:    SeverityError, path: "job", msg: "must not be empty",
		},
		{
			name:   "missing migrations dir",
			mutate: func(p *Project) { p.Migrations.Dir = "" },
			sev:    SeverityError, path: "migrations.dir", msg: "must not be empty",
		},
		{
			name:   "bad version table",
			mutate: func(p *Project) { p.Migrations.Table = "drop table x;" },
			sev:    SeverityError, path: "migrations.table", msg: "not a plain identifier",
		},
		{
			name:   "no storage kind",
			mutate: func(p *Project) { p.Storage.Kind = "" },
			sev:    SeverityWarning, path: "storage.kind", msg: "apply is unavailable",
		},
		{
			name:   "unknown storage kind",
			mutate: func(p *Project) { p.Storage.Kind = "oracle" },
			sev:    SeverityWarning, path: "storage.kind", msg: "unknown storage kind",
		},
		{
			name:   "no dsn",
			mutate: func(p *Project) { p.Storage.DB.DSN = "" },
			sev:    SeverityWarning, path: "storage.db.dsn", msg: "apply will fail",
		},
		{
			name:   "unknown dialect",
			mutate: func(p *Project) { p.Model.Dialect = "db2" },
			sev:    SeverityWarning, path: "model.dialect", msg: "unknown dialect",
		},
		{
			name:   "empty model",
			mutate: func(p *Project) { p.Model.Tables = nil },
			sev:    SeverityWarning, path: "model.tables", msg: "drop every table",
		},
		{
			name: "duplicate table",
			mutate: func(p *Project) {
				p.Model.Tables = append(p.Model.Tables, p.Model.Tables[0])
			},
			sev: SeverityError, path: "model.tables[1].name", msg: "already declared at model.tables[0]",
		},
		{
			name:   "table without columns",
			mutate: func(p *Project) { p.Model.Tables[0].Columns = nil },
			sev:    SeverityError, path: "model.tables[0].columns", msg: "at least one column",
		},
		{
			name: "duplicate column",
			mutate: func(p *Project) {
				p.Model.Tables[0].Columns[1].Name = "id"
			},
			sev: SeverityError, path: "model.tables[0].columns[1].name", msg: "declared twice",
		},
		{
			name:   "missing type",
			mutate: func(p *Project) { p.Model.Tables[0].Columns[0].Type = "" },
			sev:    SeverityError, path: "model.tables[0].columns[0].type", msg: "type or sql_type",
		},
		{
			name:   "nullable primary key",
			mutate: func(p *Project) { p.Model.Tables[0].Columns[0].Nullable = true },
			sev:    SeverityError, path: "model.tables[0].columns[0].nullable", msg: "cannot be nullable",
		},
		{
			name:   "malformed reference",
			mutate: func(p *Project) { p.Model.Tables[0].Columns[1].References = "owner(id" },
			sev:    SeverityError, path: "model.tables[0].columns[1].references", msg: "table(column)",
		},
		{
			name:   "unknown referential action",
			mutate: func(p *Project) { p.Model.Tables[0].Columns[1].OnDelete = "explode" },
			sev:    SeverityError, path: "model.tables[0].columns[1].on_delete", msg: "unknown referential action",
		},
		{
			name:   "on_delete without references",
			mutate: func(p *Project) { p.Model.Tables[0].Columns[1].References = "" },
			sev:    SeverityWarning, path: "model.tables[0].columns[1].on_delete", msg: "no effect",
		},
		{
			name:   "negative workers",
			mutate: func(p *Project) { p.Runtime.LoadWorkers = -1 },
			sev:    SeverityError, path: "runtime.load_workers", msg: "must not be negative",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validProject()
			tt.mutate(&p)
			issues := ValidateProject(p)
			if !hasIssue(issues, tt.sev, tt.path, tt.msg) {
				t.Fatalf("want %s at %s containing %q; got %+v", tt.sev, tt.path, tt.msg, issues)
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	t.Parallel()

	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatal("HasErrors(warnings only) = true")
	}
	if !HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatal("HasErrors(with error) = false")
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "job", Message: "job must not be empty"}
	if got, want := iss.Error(), "error at job: job must not be empty"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
