// Package ddl maps logical model types to Postgres column types.
package ddl

import "strings"

// MapType normalizes a loosely-specified logical type into a Postgres SQL type.
//
//	"int"/"integer"/"bigint"  -> BIGINT
//	"smallint"                -> SMALLINT
//	"bool"/"boolean"          -> BOOLEAN
//	"float"/"double"/"real"   -> DOUBLE PRECISION
//	"numeric"/"decimal"       -> NUMERIC
//	"date"                    -> DATE
//	"timestamp"/"timestamptz" -> TIMESTAMPTZ
//	"uuid"                    -> UUID
//	"json"/"jsonb"            -> JSONB
//	"bytes"/"blob"            -> BYTEA
//	everything else           -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "smallint":
		return "SMALLINT"
	case "bool", "boolean":
		return "BOOLEAN"
	case "float", "double", "real":
		return "DOUBLE PRECISION"
	case "numeric", "decimal":
		return "NUMERIC"
	case "date":
		return "DATE"
	case "timestamp", "timestamptz", "datetime":
		return "TIMESTAMPTZ"
	case "uuid":
		return "UUID"
	case "json", "jsonb":
		return "JSONB"
	case "bytes", "blob":
		return "BYTEA"
	default:
		return "TEXT"
	}
}
