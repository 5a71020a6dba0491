// Package ddl maps logical model types to MySQL column types.
package ddl

import "strings"

// MapType maps a logical type to a MySQL type. Text defaults to TEXT rather
// than VARCHAR, so indexed or unique text columns should set sql_type.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "smallint":
		return "SMALLINT"
	case "bool", "boolean":
		return "TINYINT(1)"
	case "float", "double", "real":
		return "DOUBLE"
	case "numeric", "decimal":
		return "DECIMAL(38, 10)"
	case "date":
		return "DATE"
	case "timestamp", "timestamptz", "datetime":
		return "DATETIME(6)"
	case "uuid":
		return "CHAR(36)"
	case "json", "jsonb":
		return "JSON"
	case "bytes", "blob":
		return "LONGBLOB"
	default:
		return "TEXT"
	}
}
