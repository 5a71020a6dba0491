// Package ddl maps logical model types to SQL Server column types.
package ddl

import "strings"

var msTypes = map[string]string{
	"int":         "BIGINT",
	"integer":     "BIGINT",
	"bigint":      "BIGINT",
	"smallint":    "SMALLINT",
	"bool":        "BIT",
	"boolean":     "BIT",
	"float":       "FLOAT",
	"double":      "FLOAT",
	"real":        "REAL",
	"numeric":     "DECIMAL(38, 10)",
	"decimal":     "DECIMAL(38, 10)",
	"date":        "DATE",
	"timestamp":   "DATETIME2",
	"datetime":    "DATETIME2",
	"timestamptz": "DATETIMEOFFSET",
	"uuid":        "UNIQUEIDENTIFIER",
	"bytes":       "VARBINARY(MAX)",
	"blob":        "VARBINARY(MAX)",
}

// MapType maps a logical type string into a SQL Server column type. Unknown
// or empty kinds fall back to NVARCHAR(MAX).
func MapType(kind string) string {
	if t, ok := msTypes[strings.ToLower(strings.TrimSpace(kind))]; ok {
		return t
	}
	return "NVARCHAR(MAX)"
}
