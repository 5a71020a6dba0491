// Package simulator replays DDL statements against an in-memory schema model
// without touching a database. Feeding it every migration generated so far
// yields the schema those migrations would produce, which the generator then
// diffs against the desired model.
//
// Only the DDL subset used by migrations is understood: CREATE TABLE,
// ALTER TABLE and DROP TABLE in the Postgres flavour. Values such as data
// types and default expressions are recorded as written; nothing is type
// checked and referenced tables are not required to exist.
//
// A Simulator is not safe for concurrent use. A statement that fails to parse
// may leave the schema partially modified; callers that need atomic replay
// should Clone the schema before each statement and restore it on error.
package simulator

import "strings"

// Simulator owns one Schema and applies statements to it.
type Simulator struct {
	schema *Schema
}

// New returns a Simulator holding an empty schema.
func New() *Simulator {
	return &Simulator{schema: NewSchema()}
}

// Schema returns the live schema. It is modified by later SimulateQuery calls.
func (s *Simulator) Schema() *Schema {
	return s.schema
}

// SetSchema replaces the schema, e.g. to start from a known baseline. A nil
// schema resets to empty. The schema is normalized in place: map keys win
// over stored names and nil maps are allocated.
func (s *Simulator) SetSchema(schema *Schema) {
	if schema == nil {
		schema = NewSchema()
	}
	schema.normalize()
	s.schema = schema
}

// Reset discards the current schema and starts over from an empty one.
func (s *Simulator) Reset() {
	s.schema = NewSchema()
}

// SimulateQuery parses a single statement and applies it to the schema.
// A trailing ';' is allowed; anything after it is an error.
func (s *Simulator) SimulateQuery(stmt string) error {
	p := &parser{cur: newCursor(stmt), schema: s.schema}
	verb, err := expectToken(p, verbs)
	if err != nil {
		return err
	}
	switch verb {
	case verbCreate:
		err = p.createTable()
	case verbAlter:
		err = p.alterTable()
	case verbDrop:
		err = p.dropTable()
	}
	if err != nil {
		return err
	}
	p.optionalToken(";")
	if !p.cur.done() {
		return &UnexpectedTokenError{Expected: []string{"end of statement"}, Remaining: p.cur.rest}
	}
	return nil
}

// parser is the per-statement state: the cursor and the schema it mutates.
type parser struct {
	cur    *cursor
	schema *Schema

	// deferBind is set while a CREATE TABLE element list is parsed. Table
	// constraints are then queued in pending and bound once every column
	// is known, since they may precede the columns they name.
	deferBind bool
	pending   []pendingConstraint
}

type verb int

const (
	verbCreate verb = iota + 1
	verbAlter
	verbDrop
)

var verbs = []branch[verb]{
	{"CREATE", verbCreate},
	{"ALTER", verbAlter},
	{"DROP", verbDrop},
}

// unqualified returns the last dotted segment of a name.
func unqualified(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
