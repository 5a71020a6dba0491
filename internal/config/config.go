// Package config defines the JSON project file read by the migrate binary.
//
// A project names the migrations directory, the database the migrations are
// applied to, and the desired table model that new migrations are generated
// from. Decoding uses encoding/json only; backend-specific knobs go in the
// free-form Options bag so that adding a backend never changes this package.
//
// Example (trimmed):
//
//	{
//	  "job": "billing",
//	  "migrations": { "dir": "migrations" },
//	  "storage": { "kind": "postgres", "db": { "dsn": "postgres://..." },
//	               "options": { "max_conns": 4 } },
//	  "model": {
//	    "dialect": "postgres",
//	    "tables": [
//	      { "name": "public.account", "columns": [
//	        { "name": "id", "type": "bigint", "primary_key": true },
//	        { "name": "email", "type": "text", "unique": true }
//	      ] }
//	    ]
//	  }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultVersionTable records applied migrations when Migrations.Table is empty.
const DefaultVersionTable = "schema_migrations"

// Project is the top-level object of a project file.
type Project struct {
	// Job labels metrics and log lines for this project.
	Job        string        `json:"job"`
	Migrations Migrations    `json:"migrations"`
	Storage    Storage       `json:"storage"`
	Model      Model         `json:"model"`
	Runtime    RuntimeConfig `json:"runtime"`
}

// Migrations locates the migration files.
type Migrations struct {
	// Dir holds files named <version>_<name>.sql.
	Dir string `json:"dir"`
	// Table is the version bookkeeping table. Defaults to DefaultVersionTable.
	Table string `json:"table"`
}

// VersionTable returns Table or the default.
func (m Migrations) VersionTable() string {
	if m.Table == "" {
		return DefaultVersionTable
	}
	return m.Table
}

// Storage selects the database migrations are applied to.
type Storage struct {
	// Kind selects the backend: postgres, sqlite, mysql or mssql.
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
	// Options carries backend-specific settings, e.g. max_conns for postgres
	// or busy_timeout_ms for sqlite.
	Options Options `json:"options"`
}

// DBConfig holds the connection settings shared by every backend.
type DBConfig struct {
	// DSN is the driver connection string. It is only needed by apply.
	DSN string `json:"dsn"`
}

// Model is the desired schema.
type Model struct {
	// Dialect picks the type mapper for logical column types. Defaults to
	// Storage.Kind, then to postgres.
	Dialect string `json:"dialect"`
	// NormalizeNames folds table and column names to ASCII snake_case.
	NormalizeNames bool         `json:"normalize_names"`
	Tables         []ModelTable `json:"tables"`
}

// ModelTable is one desired table. Name may be schema-qualified.
type ModelTable struct {
	Name    string        `json:"name"`
	Columns []ModelColumn `json:"columns"`
}

// ModelColumn is one desired column.
type ModelColumn struct {
	Name string `json:"name"`
	// Type is a logical type (text, int, bigint, bool, numeric, date,
	// timestamp, ...) resolved through the dialect's type mapper.
	Type string `json:"type"`
	// SQLType, when set, is used verbatim instead of mapping Type.
	SQLType    string `json:"sql_type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
	Unique     bool   `json:"unique"`
	Default    string `json:"default"`
	Check      string `json:"check"`
	// References is "table(column)" or just "table".
	References string `json:"references"`
	// OnDelete is the referential action for References, e.g. CASCADE.
	OnDelete string `json:"on_delete"`
}

// RuntimeConfig controls concurrency.
type RuntimeConfig struct {
	// LoadWorkers bounds concurrent migration file reads. Zero means one per CPU.
	LoadWorkers int `json:"load_workers"`
}

// Load reads and decodes a project file. It does not validate; see
// ValidateProject.
func Load(path string) (Project, error) {
	var p Project
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return p, nil
}

// Options fetches typed values from a free-form JSON object, returning the
// default when a key is absent or has another type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json decodes numbers as
// float64, which is truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringSlice returns the string elements of an array value, or nil.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	}
	return nil
}

// UnmarshalJSON decodes a missing or null object to an empty, non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
