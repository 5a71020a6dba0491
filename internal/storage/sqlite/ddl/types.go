// Package ddl maps logical model types to SQLite column types.
//
// SQLite types are affinities, so the mapping only has to pick the right one
// of INTEGER, REAL, NUMERIC, TEXT and BLOB. Dates and timestamps are stored as
// ISO-8601 TEXT.
package ddl

import "strings"

var affinities = map[string]string{
	"int":         "INTEGER",
	"integer":     "INTEGER",
	"bigint":      "INTEGER",
	"smallint":    "INTEGER",
	"bool":        "INTEGER",
	"boolean":     "INTEGER",
	"float":       "REAL",
	"double":      "REAL",
	"real":        "REAL",
	"numeric":     "NUMERIC",
	"decimal":     "NUMERIC",
	"blob":        "BLOB",
	"bytes":       "BLOB",
	"date":        "TEXT",
	"timestamp":   "TEXT",
	"timestamptz": "TEXT",
	"datetime":    "TEXT",
}

// MapType returns the SQLite affinity for a logical type; anything unknown,
// including uuid and json, is TEXT.
func MapType(kind string) string {
	if t, ok := affinities[strings.ToLower(strings.TrimSpace(kind))]; ok {
		return t
	}
	return "TEXT"
}
