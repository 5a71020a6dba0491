package simulator

import "strings"

// columnStops ends the data type of a column definition.
var columnStops = []string{
	"CONSTRAINT", "NOT NULL", "NULL", "CHECK", "DEFAULT", "UNIQUE",
	"PRIMARY KEY", "REFERENCES", "COLLATE", "NOT DEFERRABLE", "DEFERRABLE",
	"INITIALLY",
}

var columnConstraints = []branch[ConstraintKind]{
	{"NOT NULL", NotNull},
	{"NULL", Null},
	{"CHECK", Check},
	{"DEFAULT", Default},
	{"UNIQUE", Unique},
	{"PRIMARY KEY", PrimaryKey},
	{"REFERENCES", References},
}

// tableConstraints may appear in a CREATE TABLE element list or after
// ALTER TABLE ... ADD. FOREIGN KEY is recorded as a References constraint.
var tableConstraints = []branch[ConstraintKind]{
	{"UNIQUE", Unique},
	{"PRIMARY KEY", PrimaryKey},
	{"FOREIGN KEY", References},
	{"CHECK", Check},
}

type referenceClause int

const (
	refMatch referenceClause = iota + 1
	refOnDelete
	refOnUpdate
)

var referenceClauses = []branch[referenceClause]{
	{"MATCH", refMatch},
	{"ON DELETE", refOnDelete},
	{"ON UPDATE", refOnUpdate},
}

// getColumn parses
//
//	name type [COLLATE c] [[CONSTRAINT n] constraint ...]
func (p *parser) getColumn() (*Column, error) {
	name, err := p.getIdentifier()
	if err != nil {
		return nil, err
	}
	dataType, err := p.getUntil(columnStops...)
	if err != nil {
		return nil, err
	}
	col := NewColumn(name, dataType)
	err = p.ifToken([]string{"COLLATE"}, func(string) (err error) {
		col.Collation, err = p.getIdentifier()
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	err = p.repeat(func() (bool, error) {
		con, ok, err := p.columnConstraint()
		if err != nil || !ok {
			return false, err
		}
		col.SetConstraint(con)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return col, nil
}

// columnConstraint parses one constraint clause. ok is false when no clause
// starts at the cursor.
func (p *parser) columnConstraint() (con Constraint, ok bool, err error) {
	if p.optionalToken("CONSTRAINT") {
		if con.Name, err = p.getIdentifier(); err != nil {
			return con, false, err
		}
		con.Kind, err = expectToken(p, columnConstraints)
		if err != nil {
			return con, false, err
		}
	} else if con.Kind, ok = switchToken(p, columnConstraints); !ok {
		return con, false, nil
	}

	switch con.Kind {
	case Check:
		con.Expression, err = p.checkExpression()
	case Default:
		con.Expression, err = p.getExpression()
	case Unique, PrimaryKey:
		err = p.indexParameters(&con)
	case References:
		con.Reference, err = p.reference()
	}
	if err != nil {
		return con, false, err
	}
	if err := p.deferrable(&con); err != nil {
		return con, false, err
	}
	return con, true, nil
}

// checkExpression parses "(expr) [NO INHERIT]" after CHECK.
func (p *parser) checkExpression() (string, error) {
	if _, err := p.getToken("("); err != nil {
		return "", err
	}
	expr, err := p.getInScope()
	if err != nil {
		return "", err
	}
	p.optionalToken("NO INHERIT")
	return expr, nil
}

// indexParameters parses the optional
//
//	WITH (key [= value], ...) USING INDEX TABLESPACE name
//
// tail of UNIQUE and PRIMARY KEY.
func (p *parser) indexParameters(con *Constraint) error {
	if p.optionalToken("WITH") {
		params, err := p.storageParameters()
		if err != nil {
			return err
		}
		con.Parameters = params
	}
	if p.optionalToken("USING INDEX TABLESPACE") {
		ts, err := p.getIdentifier()
		if err != nil {
			return err
		}
		con.Tablespace = ts
	}
	return nil
}

func (p *parser) storageParameters() ([]Parameter, error) {
	var params []Parameter
	err := p.requireScope(func() error {
		return p.commaList(func() error {
			key, err := p.getIdentifier()
			if err != nil {
				return err
			}
			param := Parameter{Key: key}
			if p.optionalToken("=") {
				v, err := p.getExpression()
				if err != nil {
					return err
				}
				param.Value = &v
			}
			params = append(params, param)
			return nil
		})
	})
	return params, err
}

// reference parses the part after REFERENCES:
//
//	table [(column)] [MATCH type] [ON DELETE action] [ON UPDATE action]
func (p *parser) reference() (*Reference, error) {
	table, err := p.getIdentifier()
	if err != nil {
		return nil, err
	}
	ref := &Reference{Table: table}
	_, err = p.scope(func() error {
		cols, err := p.identifierList()
		ref.Column = strings.Join(cols, ", ")
		return err
	})
	if err != nil {
		return nil, err
	}
	err = p.repeat(func() (bool, error) {
		clause, ok := switchToken(p, referenceClauses)
		if !ok {
			return false, nil
		}
		var err error
		switch clause {
		case refMatch:
			ref.MatchType, err = p.getToken("FULL", "PARTIAL", "SIMPLE")
		case refOnDelete:
			ref.OnDelete, err = p.referentialAction()
		case refOnUpdate:
			ref.OnUpdate, err = p.referentialAction()
		}
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (p *parser) referentialAction() (string, error) {
	return p.getToken("NO ACTION", "RESTRICT", "CASCADE", "SET NULL", "SET DEFAULT")
}

// deferrable records the optional DEFERRABLE / INITIALLY tail of a
// constraint.
func (p *parser) deferrable(con *Constraint) error {
	if tok, ok := p.findToken("NOT DEFERRABLE", "DEFERRABLE"); ok {
		con.Deferrable = tok
	}
	if p.optionalToken("INITIALLY") {
		tok, err := p.getToken("DEFERRED", "IMMEDIATE")
		if err != nil {
			return err
		}
		con.Initially = tok
	}
	return nil
}

// tableElement parses one entry of a CREATE TABLE list, or what follows
// ALTER TABLE ... ADD, and applies it to t. With ifNotExists an existing
// column of the same name is left alone.
func (p *parser) tableElement(t *Table, ifNotExists bool) error {
	if p.optionalToken("CONSTRAINT") {
		name, err := p.getIdentifier()
		if err != nil {
			return err
		}
		return p.tableConstraint(t, name)
	}
	if p.lookahead("UNIQUE", "PRIMARY KEY", "FOREIGN KEY", "CHECK") {
		return p.tableConstraint(t, "")
	}
	col, err := p.getColumn()
	if err != nil {
		return err
	}
	if ifNotExists && t.Column(col.Name) != nil {
		return nil
	}
	t.setColumn(col)
	return nil
}

// tableConstraint parses a table-level constraint and copies it onto every
// column it names, or queues it while deferBind is set. CHECK stays on the
// table since it binds no column.
func (p *parser) tableConstraint(t *Table, name string) error {
	kind, err := expectToken(p, tableConstraints)
	if err != nil {
		return err
	}
	con := Constraint{Kind: kind, Name: name}
	var cols []string

	switch kind {
	case Check:
		if con.Expression, err = p.checkExpression(); err != nil {
			return err
		}
		if err := p.deferrable(&con); err != nil {
			return err
		}
		t.Constraints = append(t.Constraints, con)
		return nil
	case Unique, PrimaryKey:
		err = p.requireScope(func() (err error) {
			cols, err = p.identifierList()
			return err
		})
		if err == nil {
			err = p.indexParameters(&con)
		}
	case References:
		err = p.requireScope(func() (err error) {
			cols, err = p.identifierList()
			return err
		})
		if err == nil {
			_, err = p.getToken("REFERENCES")
		}
		if err == nil {
			con.Reference, err = p.reference()
		}
	}
	if err != nil {
		return err
	}
	if err := p.deferrable(&con); err != nil {
		return err
	}

	if len(cols) > 1 {
		con.Columns = cols
	}
	if p.deferBind {
		p.pending = append(p.pending, pendingConstraint{con: con, cols: cols})
		return nil
	}
	bindConstraint(t, con, cols)
	return nil
}

type pendingConstraint struct {
	con  Constraint
	cols []string
}

// bindConstraint copies con onto each named column of t. Missing columns
// are skipped.
func bindConstraint(t *Table, con Constraint, cols []string) {
	for _, name := range cols {
		if col := t.Column(name); col != nil {
			col.SetConstraint(con.clone())
		}
	}
}
