package simulator

import (
	"slices"
	"strings"
)

type tableOption int

const (
	optInherits tableOption = iota + 1
	optWith
	optWithoutOIDs
	optTablespace
	optOnCommit
)

var tableOptions = []branch[tableOption]{
	{"INHERITS", optInherits},
	{"WITHOUT OIDS", optWithoutOIDs},
	{"WITH", optWith},
	{"TABLESPACE", optTablespace},
	{"ON COMMIT", optOnCommit},
}

// createTable parses
//
//	CREATE [GLOBAL|LOCAL] [TEMPORARY|TEMP|UNLOGGED] TABLE [IF NOT EXISTS]
//	    name ( element [, ...] ) [options]
//
// and registers the table, replacing any table of the same name.
func (p *parser) createTable() error {
	p.optionalToken("GLOBAL", "LOCAL")
	p.optionalToken("TEMPORARY", "TEMP", "UNLOGGED")
	if _, err := p.getToken("TABLE"); err != nil {
		return err
	}
	p.optionalToken("IF NOT EXISTS")
	name, err := p.getIdentifier()
	if err != nil {
		return err
	}

	t := NewTable(name)
	p.deferBind, p.pending = true, nil
	err = p.requireScope(func() error {
		if p.lookahead(")") {
			return nil
		}
		return p.commaList(func() error { return p.tableElement(t, false) })
	})
	p.deferBind = false
	if err != nil {
		return err
	}
	for _, pc := range p.pending {
		bindConstraint(t, pc.con, pc.cols)
	}
	p.pending = nil
	if err := p.tableOptions(); err != nil {
		return err
	}
	p.schema.Tables[name] = t
	return nil
}

// tableOptions skips the storage options that may follow a CREATE TABLE
// element list. None of them affect the modelled schema.
func (p *parser) tableOptions() error {
	return p.repeat(func() (bool, error) {
		opt, ok := switchToken(p, tableOptions)
		if !ok {
			return false, nil
		}
		var err error
		switch opt {
		case optInherits:
			err = p.requireScope(func() error {
				_, err := p.identifierList()
				return err
			})
		case optWith:
			_, err = p.storageParameters()
		case optTablespace:
			_, err = p.getIdentifier()
		case optOnCommit:
			_, err = p.getToken("PRESERVE ROWS", "DELETE ROWS", "DROP")
		}
		return err == nil, err
	})
}

type alterForm int

const (
	formRename alterForm = iota + 1
	formSetSchema
)

var alterForms = []branch[alterForm]{
	{"RENAME", formRename},
	{"SET SCHEMA", formSetSchema},
}

type renameTarget int

const (
	renameColumn renameTarget = iota
	renameConstraint
	renameTable
)

var renameTargets = []branch[renameTarget]{
	{"CONSTRAINT", renameConstraint},
	{"TO", renameTable},
	{"COLUMN", renameColumn},
}

type alterAction int

const (
	actionAdd alterAction = iota + 1
	actionDrop
	actionAlter
)

var alterActions = []branch[alterAction]{
	{"ADD", actionAdd},
	{"DROP", actionDrop},
	{"ALTER", actionAlter},
}

type columnChange int

const (
	changeType columnChange = iota + 1
	changeSetDefault
	changeDropDefault
	changeSetNotNull
	changeDropNotNull
)

var columnChanges = []branch[columnChange]{
	{"SET DATA TYPE", changeType},
	{"TYPE", changeType},
	{"SET DEFAULT", changeSetDefault},
	{"DROP DEFAULT", changeDropDefault},
	{"SET NOT NULL", changeSetNotNull},
	{"DROP NOT NULL", changeDropNotNull},
}

// alterTable parses ALTER TABLE in its rename, set-schema, tablespace-move
// and action-list forms. When the table does not exist the statement is
// still parsed in full, against a table that is not part of the schema.
func (p *parser) alterTable() error {
	if _, err := p.getToken("TABLE"); err != nil {
		return err
	}
	if p.optionalToken("ALL IN TABLESPACE") {
		return p.moveTablespace()
	}
	p.optionalToken("IF EXISTS")
	p.optionalToken("ONLY")
	name, err := p.getIdentifier()
	if err != nil {
		return err
	}
	p.optionalToken("*")

	t := p.schema.Table(name)
	if t == nil {
		t = NewTable(name)
	}

	if form, ok := switchToken(p, alterForms); ok {
		switch form {
		case formRename:
			return p.rename(t)
		case formSetSchema:
			schema, err := p.getIdentifier()
			if err != nil {
				return err
			}
			p.schema.rename(t, schema+"."+unqualified(t.Name))
			return nil
		}
	}
	return p.commaList(func() error { return p.alterAction(t) })
}

// moveTablespace parses the rest of
//
//	ALTER TABLE ALL IN TABLESPACE name [OWNED BY role, ...]
//	    SET TABLESPACE new [NOWAIT]
//
// Tablespaces are not modelled, so the schema is not touched.
func (p *parser) moveTablespace() error {
	if _, err := p.getIdentifier(); err != nil {
		return err
	}
	err := p.ifToken([]string{"OWNED BY"}, func(string) error {
		_, err := p.identifierList()
		return err
	}, nil)
	if err != nil {
		return err
	}
	if _, err := p.getToken("SET TABLESPACE"); err != nil {
		return err
	}
	if _, err := p.getIdentifier(); err != nil {
		return err
	}
	p.optionalToken("NOWAIT")
	return nil
}

func (p *parser) rename(t *Table) error {
	target, _ := switchToken(p, renameTargets)
	switch target {
	case renameTable:
		name, err := p.getIdentifier()
		if err != nil {
			return err
		}
		// A bare new name keeps the table in its current schema.
		if !strings.Contains(name, ".") && strings.Contains(t.Name, ".") {
			name = t.Name[:strings.LastIndexByte(t.Name, '.')+1] + name
		}
		p.schema.rename(t, name)
		return nil
	case renameConstraint:
		from, to, err := p.renamePair()
		if err != nil {
			return err
		}
		renameConstraints(t, from, to)
		return nil
	default:
		from, to, err := p.renamePair()
		if err != nil {
			return err
		}
		if col := t.Column(from); col != nil {
			delete(t.Columns, from)
			col.Name = to
			t.setColumn(col)
			renameMembers(t, from, to)
		}
		return nil
	}
}

// renamePair parses "old TO new".
func (p *parser) renamePair() (string, string, error) {
	from, err := p.getIdentifier()
	if err != nil {
		return "", "", err
	}
	if _, err := p.getToken("TO"); err != nil {
		return "", "", err
	}
	to, err := p.getIdentifier()
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}

func (p *parser) alterAction(t *Table) error {
	action, err := expectToken(p, alterActions)
	if err != nil {
		return err
	}
	switch action {
	case actionAdd:
		p.optionalToken("COLUMN")
		ifNotExists := p.optionalToken("IF NOT EXISTS")
		return p.tableElement(t, ifNotExists)

	case actionDrop:
		return p.ifToken([]string{"CONSTRAINT"},
			func(string) error { return p.dropConstraint(t) },
			func() error { return p.dropColumn(t) })

	default:
		p.optionalToken("COLUMN")
		name, err := p.getIdentifier()
		if err != nil {
			return err
		}
		col := t.Column(name)
		if col == nil {
			col = NewColumn(name, "")
		}
		return p.alterColumn(col)
	}
}

func (p *parser) alterColumn(col *Column) error {
	change, err := expectToken(p, columnChanges)
	if err != nil {
		return err
	}
	switch change {
	case changeType:
		dataType, err := p.getUntil("COLLATE", "USING")
		if err != nil {
			return err
		}
		col.DataType = dataType
		if p.optionalToken("COLLATE") {
			if col.Collation, err = p.getIdentifier(); err != nil {
				return err
			}
		}
		if p.optionalToken("USING") {
			if _, err := p.getExpression(); err != nil {
				return err
			}
		}
	case changeSetDefault:
		expr, err := p.getExpression()
		if err != nil {
			return err
		}
		col.SetConstraint(Constraint{Kind: Default, Expression: expr})
	case changeDropDefault:
		col.DropConstraint(Default)
	case changeSetNotNull:
		col.DropConstraint(Null)
		col.SetConstraint(Constraint{Kind: NotNull})
	case changeDropNotNull:
		col.DropConstraint(NotNull)
	}
	return nil
}

// dropTable parses DROP TABLE [IF EXISTS] name [, ...] [CASCADE|RESTRICT].
// Missing tables are ignored whether or not IF EXISTS was given.
func (p *parser) dropTable() error {
	if _, err := p.getToken("TABLE"); err != nil {
		return err
	}
	p.optionalToken("IF EXISTS")
	names, err := p.identifierList()
	if err != nil {
		return err
	}
	p.optionalToken("CASCADE", "RESTRICT")
	for _, name := range names {
		delete(p.schema.Tables, name)
	}
	return nil
}

// dropConstraint parses the rest of DROP CONSTRAINT [IF EXISTS] name.
func (p *parser) dropConstraint(t *Table) error {
	p.optionalToken("IF EXISTS")
	name, err := p.getIdentifier()
	if err != nil {
		return err
	}
	p.optionalToken("RESTRICT", "CASCADE")
	dropConstraints(t, name)
	return nil
}

// dropColumn parses the rest of DROP [COLUMN] [IF EXISTS] name. Multi-column
// constraints the column belonged to go with it.
func (p *parser) dropColumn(t *Table) error {
	p.optionalToken("COLUMN")
	p.optionalToken("IF EXISTS", "IF NOT EXISTS")
	name, err := p.getIdentifier()
	if err != nil {
		return err
	}
	p.optionalToken("RESTRICT", "CASCADE")
	if t.Column(name) == nil {
		return nil
	}
	delete(t.Columns, name)
	for _, col := range t.Columns {
		for kind, con := range col.Constraints {
			if slices.Contains(con.Columns, name) {
				delete(col.Constraints, kind)
			}
		}
	}
	return nil
}

// renameMembers rewrites from to to in the member lists of t's multi-column
// constraints.
func renameMembers(t *Table, from, to string) {
	for _, col := range t.Columns {
		for kind, con := range col.Constraints {
			if i := slices.Index(con.Columns, from); i >= 0 {
				con.Columns = slices.Clone(con.Columns)
				con.Columns[i] = to
				col.Constraints[kind] = con
			}
		}
	}
}

// renameConstraints renames every constraint of t called from.
func renameConstraints(t *Table, from, to string) {
	for _, col := range t.Columns {
		for kind, con := range col.Constraints {
			if con.Name == from {
				con.Name = to
				col.Constraints[kind] = con
			}
		}
	}
	for i := range t.Constraints {
		if t.Constraints[i].Name == from {
			t.Constraints[i].Name = to
		}
	}
}

// dropConstraints removes every constraint of t called name.
func dropConstraints(t *Table, name string) {
	for _, col := range t.Columns {
		for kind, con := range col.Constraints {
			if con.Name == name {
				delete(col.Constraints, kind)
			}
		}
	}
	kept := t.Constraints[:0]
	for _, con := range t.Constraints {
		if con.Name != name {
			kept = append(kept, con)
		}
	}
	t.Constraints = kept
}
