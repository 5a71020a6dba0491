package simulator

import (
	"fmt"
	"maps"
	"slices"
)

// ConstraintKind tags a Constraint. A column holds at most one constraint of
// each kind.
type ConstraintKind int

const (
	NotNull ConstraintKind = iota + 1
	Null
	Check
	Default
	Unique
	PrimaryKey
	References
)

var constraintKindNames = map[ConstraintKind]string{
	NotNull:    "notNull",
	Null:       "null",
	Check:      "check",
	Default:    "default",
	Unique:     "unique",
	PrimaryKey: "primaryKey",
	References: "references",
}

func (k ConstraintKind) String() string {
	if n, ok := constraintKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ConstraintKind(%d)", int(k))
}

// MarshalText lets ConstraintKind key JSON objects.
func (k ConstraintKind) MarshalText() ([]byte, error) {
	if _, ok := constraintKindNames[k]; !ok {
		return nil, fmt.Errorf("unknown constraint kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *ConstraintKind) UnmarshalText(b []byte) error {
	for kind, name := range constraintKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown constraint kind %q", b)
}

// Parameter is one entry of a WITH (key = value, ...) storage parameter list.
// Value is nil when the key was given without "= value".
type Parameter struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// Reference is the target of a REFERENCES / FOREIGN KEY constraint.
type Reference struct {
	Table     string `json:"table"`
	Column    string `json:"column,omitempty"`
	MatchType string `json:"matchType,omitempty"`
	OnDelete  string `json:"onDelete,omitempty"`
	OnUpdate  string `json:"onUpdate,omitempty"`
}

// Constraint is a column (or table) constraint. Which fields are meaningful
// depends on Kind; every value is the text as written in the statement.
type Constraint struct {
	Kind ConstraintKind `json:"kind"`
	// Name is set when the clause was introduced by CONSTRAINT name.
	Name string `json:"name,omitempty"`
	// Expression is the CHECK or DEFAULT expression.
	Expression string `json:"expression,omitempty"`
	// Parameters is the UNIQUE / PRIMARY KEY WITH (...) list.
	Parameters []Parameter `json:"parameters,omitempty"`
	// Tablespace is from USING INDEX TABLESPACE.
	Tablespace string `json:"tablespace,omitempty"`
	// Columns lists every member column when the constraint was declared at
	// table level, e.g. PRIMARY KEY (a, b).
	Columns   []string   `json:"columns,omitempty"`
	Reference *Reference `json:"reference,omitempty"`
	// Deferrable is "DEFERRABLE" or "NOT DEFERRABLE".
	Deferrable string `json:"deferrable,omitempty"`
	// Initially is "DEFERRED" or "IMMEDIATE".
	Initially string `json:"initially,omitempty"`
}

func (c Constraint) clone() Constraint {
	out := c
	if c.Parameters != nil {
		out.Parameters = make([]Parameter, len(c.Parameters))
		for i, p := range c.Parameters {
			out.Parameters[i] = Parameter{Key: p.Key}
			if p.Value != nil {
				v := *p.Value
				out.Parameters[i].Value = &v
			}
		}
	}
	out.Columns = slices.Clone(c.Columns)
	if c.Reference != nil {
		r := *c.Reference
		out.Reference = &r
	}
	return out
}

// Column is one column of a Table.
type Column struct {
	Name string `json:"name"`
	// DataType is the type exactly as written, e.g. "NUMERIC(10, 2)".
	DataType    string                        `json:"dataType"`
	Collation   string                        `json:"collation,omitempty"`
	Constraints map[ConstraintKind]Constraint `json:"constraints"`
}

func NewColumn(name, dataType string) *Column {
	return &Column{
		Name:        name,
		DataType:    dataType,
		Constraints: map[ConstraintKind]Constraint{},
	}
}

// Constraint returns the constraint of the given kind.
func (c *Column) Constraint(kind ConstraintKind) (Constraint, bool) {
	con, ok := c.Constraints[kind]
	return con, ok
}

func (c *Column) Has(kind ConstraintKind) bool {
	_, ok := c.Constraints[kind]
	return ok
}

// SetConstraint adds con, replacing any constraint of the same kind.
func (c *Column) SetConstraint(con Constraint) {
	if c.Constraints == nil {
		c.Constraints = map[ConstraintKind]Constraint{}
	}
	c.Constraints[con.Kind] = con
}

func (c *Column) DropConstraint(kind ConstraintKind) {
	delete(c.Constraints, kind)
}

func (c *Column) clone() *Column {
	out := &Column{
		Name:        c.Name,
		DataType:    c.DataType,
		Collation:   c.Collation,
		Constraints: make(map[ConstraintKind]Constraint, len(c.Constraints)),
	}
	for k, con := range c.Constraints {
		out.Constraints[k] = con.clone()
	}
	return out
}

// Table is a table and its columns.
type Table struct {
	Name    string             `json:"name"`
	Columns map[string]*Column `json:"columns"`
	// Constraints holds table-level constraints that bind to no single
	// column, such as CHECK (a < b).
	Constraints []Constraint `json:"constraints,omitempty"`
}

func NewTable(name string) *Table {
	return &Table{Name: name, Columns: map[string]*Column{}}
}

// setColumn stores col under its name.
func (t *Table) setColumn(col *Column) {
	if t.Columns == nil {
		t.Columns = map[string]*Column{}
	}
	t.Columns[col.Name] = col
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	return t.Columns[name]
}

// ColumnNames returns the column names in sorted order.
func (t *Table) ColumnNames() []string {
	return slices.Sorted(maps.Keys(t.Columns))
}

func (t *Table) clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: make(map[string]*Column, len(t.Columns)),
	}
	for name, c := range t.Columns {
		out.Columns[name] = c.clone()
	}
	for _, con := range t.Constraints {
		out.Constraints = append(out.Constraints, con.clone())
	}
	return out
}

// Schema maps table names to tables.
type Schema struct {
	Tables map[string]*Table `json:"tables"`
}

func NewSchema() *Schema {
	return &Schema{Tables: map[string]*Table{}}
}

// Table returns the named table or nil.
func (s *Schema) Table(name string) *Table {
	return s.Tables[name]
}

// TableNames returns the table names in sorted order.
func (s *Schema) TableNames() []string {
	return slices.Sorted(maps.Keys(s.Tables))
}

// Clone returns a deep copy that shares nothing with s.
func (s *Schema) Clone() *Schema {
	out := &Schema{Tables: make(map[string]*Table, len(s.Tables))}
	for name, t := range s.Tables {
		out.Tables[name] = t.clone()
	}
	return out
}

// rename moves a table to a new key. The current key is looked up by
// identity when t.Name does not match it.
func (s *Schema) rename(t *Table, name string) {
	key, found := t.Name, s.Tables[t.Name] == t
	if !found {
		for k, v := range s.Tables {
			if v == t {
				key, found = k, true
				break
			}
		}
	}
	if !found {
		return
	}
	delete(s.Tables, key)
	t.Name = name
	s.Tables[name] = t
}

// normalize repairs a schema built outside the simulator, e.g. decoded from
// JSON: nil maps are allocated, nil entries become empty ones and every
// table and column takes its name from its map key.
func (s *Schema) normalize() {
	if s.Tables == nil {
		s.Tables = map[string]*Table{}
	}
	for key, t := range s.Tables {
		if t == nil {
			s.Tables[key] = NewTable(key)
			continue
		}
		t.Name = key
		if t.Columns == nil {
			t.Columns = map[string]*Column{}
		}
		for name, c := range t.Columns {
			if c == nil {
				t.Columns[name] = NewColumn(name, "")
				continue
			}
			c.Name = name
			if c.Constraints == nil {
				c.Constraints = map[ConstraintKind]Constraint{}
			}
		}
	}
}
