package ddl

import (
	"fmt"
	"slices"
	"strings"
)

// ChangeKind classifies a Change.
type ChangeKind int

const (
	CreateTable ChangeKind = iota + 1
	DropTable
	AddColumn
	DropColumn
	AlterType
	SetNotNull
	DropNotNull
	SetDefault
	DropDefault
	AddUnique
	AddPrimaryKey
	AddForeignKey
)

var changeKindNames = map[ChangeKind]string{
	CreateTable:   "create_table",
	DropTable:     "drop_table",
	AddColumn:     "add_column",
	DropColumn:    "drop_column",
	AlterType:     "alter_type",
	SetNotNull:    "set_not_null",
	DropNotNull:   "drop_not_null",
	SetDefault:    "set_default",
	DropDefault:   "drop_default",
	AddUnique:     "add_unique",
	AddPrimaryKey: "add_primary_key",
	AddForeignKey: "add_foreign_key",
}

func (k ChangeKind) String() string {
	if n, ok := changeKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change is one schema difference. Which fields are set depends on Kind:
// CreateTable carries Def; AddPrimaryKey carries Columns; the column-level
// kinds carry Column.
type Change struct {
	Kind    ChangeKind
	Table   string
	Def     TableDef
	Column  ColumnDef
	Columns []string
}

// SQL renders the change as one statement terminated by ';'.
func (c Change) SQL() (string, error) {
	switch c.Kind {
	case CreateTable:
		return BuildCreateTableSQL(c.Def)
	case DropTable:
		return BuildDropTableSQL(c.Table)
	case AddColumn:
		return BuildAddColumnSQL(c.Table, c.Column)
	case DropColumn:
		return BuildDropColumnSQL(c.Table, c.Column.Name), nil
	case AlterType:
		return BuildAlterTypeSQL(c.Table, c.Column.Name, c.Column.SQLType), nil
	case SetNotNull, DropNotNull:
		return BuildSetNotNullSQL(c.Table, c.Column.Name, c.Kind == SetNotNull), nil
	case SetDefault, DropDefault:
		expr := c.Column.Default
		if c.Kind == DropDefault {
			expr = ""
		}
		return BuildSetDefaultSQL(c.Table, c.Column.Name, expr), nil
	case AddUnique:
		return BuildAddUniqueSQL(c.Table, c.Column.Name), nil
	case AddPrimaryKey:
		return BuildAddPrimaryKeySQL(c.Table, c.Columns), nil
	case AddForeignKey:
		if c.Column.References == nil {
			return "", fmt.Errorf("ddl: add_foreign_key on %s.%s without a reference", c.Table, c.Column.Name)
		}
		return BuildAddForeignKeySQL(c.Table, c.Column.Name, *c.Column.References), nil
	default:
		return "", fmt.Errorf("ddl: unknown change kind %v", c.Kind)
	}
}

// Diff returns the changes that turn current into desired, in an order that
// can be applied top to bottom:
//
//  1. CREATE TABLE for missing tables, referenced tables first
//  2. per existing table: added columns, altered columns, new primary key,
//     dropped columns
//  3. DROP TABLE for tables no longer desired
//
// Unnamed UNIQUE, PRIMARY KEY and FOREIGN KEY constraints are only ever
// added: removing or retargeting them would need the name the database
// picked. CHECK expressions on existing columns are not compared for the
// same reason.
func Diff(current, desired []TableDef) []Change {
	cur := make(map[string]TableDef, len(current))
	for _, t := range current {
		cur[t.FQN] = t
	}
	want := make(map[string]struct{}, len(desired))
	for _, t := range desired {
		want[t.FQN] = struct{}{}
	}

	var changes []Change

	var created []TableDef
	for _, t := range desired {
		if _, ok := cur[t.FQN]; !ok {
			created = append(created, t)
		}
	}
	for _, t := range orderByReference(created) {
		changes = append(changes, Change{Kind: CreateTable, Table: t.FQN, Def: t})
	}

	for _, t := range desired {
		if c, ok := cur[t.FQN]; ok {
			changes = append(changes, diffTable(c, t)...)
		}
	}

	var dropped []string
	for _, t := range current {
		if _, ok := want[t.FQN]; !ok {
			dropped = append(dropped, t.FQN)
		}
	}
	slices.Sort(dropped)
	for _, name := range dropped {
		changes = append(changes, Change{Kind: DropTable, Table: name})
	}
	return changes
}

func diffTable(cur, want TableDef) []Change {
	var changes []Change
	add := func(kind ChangeKind, col ColumnDef) {
		changes = append(changes, Change{Kind: kind, Table: want.FQN, Column: col})
	}

	curHasPK := slices.ContainsFunc(cur.Columns, func(c ColumnDef) bool { return c.PrimaryKey })
	var newPK []string

	for _, w := range want.Columns {
		c, ok := cur.Column(w.Name)
		if !ok {
			add(AddColumn, w)
			if w.PrimaryKey {
				newPK = append(newPK, w.Name)
			}
			continue
		}
		if normalizeType(c.SQLType) != normalizeType(w.SQLType) {
			add(AlterType, w)
		}
		switch {
		case c.Nullable && !w.Nullable:
			add(SetNotNull, w)
		case !c.Nullable && w.Nullable && !c.PrimaryKey:
			add(DropNotNull, w)
		}
		cd, wd := normalizeDefault(c.Default), normalizeDefault(w.Default)
		switch {
		case wd == "" && cd != "":
			add(DropDefault, w)
		case wd != cd:
			add(SetDefault, w)
		}
		if w.Unique && !c.Unique && !w.PrimaryKey {
			add(AddUnique, w)
		}
		if w.References != nil && c.References == nil {
			add(AddForeignKey, w)
		}
		if w.PrimaryKey && !c.PrimaryKey {
			newPK = append(newPK, w.Name)
		}
	}

	if len(newPK) > 0 && !curHasPK {
		changes = append(changes, Change{Kind: AddPrimaryKey, Table: want.FQN, Columns: newPK})
	}

	var dropped []ColumnDef
	for _, c := range cur.Columns {
		if _, ok := want.Column(c.Name); !ok {
			dropped = append(dropped, c)
		}
	}
	slices.SortFunc(dropped, func(a, b ColumnDef) int { return strings.Compare(a.Name, b.Name) })
	for _, c := range dropped {
		add(DropColumn, c)
	}
	return changes
}

// orderByReference sorts tables so that a table comes after the tables it
// references, keeping the input order otherwise. Reference cycles are
// emitted in input order.
func orderByReference(tables []TableDef) []TableDef {
	pending := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		pending[t.FQN] = struct{}{}
	}
	ready := func(t TableDef) bool {
		for _, c := range t.Columns {
			if c.References == nil || c.References.Table == t.FQN {
				continue
			}
			if _, waiting := pending[c.References.Table]; waiting {
				return false
			}
		}
		return true
	}

	out := make([]TableDef, 0, len(tables))
	rest := slices.Clone(tables)
	for len(rest) > 0 {
		i := slices.IndexFunc(rest, ready)
		if i < 0 {
			i = 0
		}
		out = append(out, rest[i])
		delete(pending, rest[i].FQN)
		rest = slices.Delete(rest, i, i+1)
	}
	return out
}

// normalizeType lower-cases a type and drops insignificant whitespace, so
// "NUMERIC(10, 2)" and "numeric(10,2)" compare equal.
func normalizeType(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	for _, p := range []string{"(", ")", ","} {
		s = strings.ReplaceAll(s, " "+p, p)
		s = strings.ReplaceAll(s, p+" ", p)
	}
	return s
}

// normalizeDefault puts a default expression in its rendered form.
func normalizeDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return defaultExpr(s)
}
