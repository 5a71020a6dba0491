package ddl

// ForeignKey is the target of a column-level REFERENCES constraint.
type ForeignKey struct {
	Table string
	// Column may be empty, meaning the referenced table's primary key.
	Column   string
	OnDelete string
}

// ColumnDef describes a single column.
//
// Fields:
//   - Name: column name (unquoted; quoting happens at render time)
//   - SQLType: SQL type as it should appear in DDL (e.g., TEXT, NUMERIC(10, 2))
//   - Nullable: whether NULL is allowed; primary key columns never are
//   - PrimaryKey: part of the table's primary key
//   - Unique: carries a single-column UNIQUE constraint
//   - Default: raw default expression (e.g., 'anon', now())
//   - Check: raw CHECK expression without the surrounding parentheses
//   - References: foreign key target, or nil
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Unique     bool
	Default    string
	Check      string
	References *ForeignKey
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is in dotted form (e.g., "schema.table") and is quoted per
// segment by the renderers.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Column returns the named column.
func (t TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// MapType turns a logical type name into a SQL type for one dialect.
type MapType func(logical string) string
