package ddl

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"ddlsim/internal/config"
	"ddlsim/internal/simulator"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var referenceSyntax = regexp.MustCompile(`^\s*([^\s()]+)\s*(?:\(\s*([^\s()]+)\s*\))?\s*$`)

// FromModel builds the desired table definitions from the project model.
// Logical column types are resolved with mapType unless the column carries an
// explicit sql_type. Tables keep model order; columns keep declaration order.
func FromModel(m config.Model, mapType MapType) ([]TableDef, error) {
	name := func(s string) string { return strings.TrimSpace(s) }
	if m.NormalizeNames {
		name = normalizeFQN
	}

	defs := make([]TableDef, 0, len(m.Tables))
	seen := map[string]struct{}{}
	for _, mt := range m.Tables {
		fqn := name(mt.Name)
		if fqn == "" {
			return nil, fmt.Errorf("ddl: model table %q has an empty name", mt.Name)
		}
		if _, dup := seen[fqn]; dup {
			return nil, fmt.Errorf("ddl: model table %s declared twice", fqn)
		}
		seen[fqn] = struct{}{}
		if len(mt.Columns) == 0 {
			return nil, fmt.Errorf("ddl: model table %s has no columns", fqn)
		}

		t := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(mt.Columns))}
		for _, mc := range mt.Columns {
			c, err := columnFromModel(fqn, mc, name, mapType)
			if err != nil {
				return nil, err
			}
			if _, dup := t.Column(c.Name); dup {
				return nil, fmt.Errorf("ddl: column %s.%s declared twice", fqn, c.Name)
			}
			t.Columns = append(t.Columns, c)
		}
		defs = append(defs, t)
	}
	return defs, nil
}

func columnFromModel(fqn string, mc config.ModelColumn, name func(string) string, mapType MapType) (ColumnDef, error) {
	c := ColumnDef{
		Name:       name(mc.Name),
		SQLType:    strings.TrimSpace(mc.SQLType),
		Nullable:   mc.Nullable && !mc.PrimaryKey,
		PrimaryKey: mc.PrimaryKey,
		Unique:     mc.Unique,
		Default:    strings.TrimSpace(mc.Default),
		Check:      strings.TrimSpace(mc.Check),
	}
	if c.Name == "" {
		return c, fmt.Errorf("ddl: table %s has a column with an empty name", fqn)
	}
	if c.SQLType == "" {
		if strings.TrimSpace(mc.Type) == "" {
			return c, fmt.Errorf("ddl: column %s.%s has no type", fqn, c.Name)
		}
		if mapType == nil {
			return c, fmt.Errorf("ddl: column %s.%s needs a type mapper for %q", fqn, c.Name, mc.Type)
		}
		c.SQLType = mapType(mc.Type)
	}
	if mc.References != "" {
		m := referenceSyntax.FindStringSubmatch(mc.References)
		if m == nil {
			return c, fmt.Errorf("ddl: column %s.%s: malformed reference %q", fqn, c.Name, mc.References)
		}
		c.References = &ForeignKey{
			Table:    name(m[1]),
			Column:   name(m[2]),
			OnDelete: strings.ToUpper(strings.TrimSpace(mc.OnDelete)),
		}
	}
	return c, nil
}

// FromSchema projects a replayed schema onto table definitions. Tables and
// columns come out sorted by name. Constraints the model cannot express, such
// as table-level CHECKs, are left out.
func FromSchema(s *simulator.Schema) []TableDef {
	if s == nil {
		return nil
	}
	defs := make([]TableDef, 0, len(s.Tables))
	for _, tname := range s.TableNames() {
		t := s.Table(tname)
		def := TableDef{FQN: tname, Columns: make([]ColumnDef, 0, len(t.Columns))}
		for _, cname := range t.ColumnNames() {
			col := t.Column(cname)
			c := ColumnDef{
				Name:       cname,
				SQLType:    col.DataType,
				Nullable:   !col.Has(simulator.NotNull) && !col.Has(simulator.PrimaryKey),
				PrimaryKey: col.Has(simulator.PrimaryKey),
				Unique:     col.Has(simulator.Unique),
			}
			if con, ok := col.Constraint(simulator.Default); ok {
				c.Default = con.Expression
			}
			if con, ok := col.Constraint(simulator.Check); ok {
				c.Check = con.Expression
			}
			if con, ok := col.Constraint(simulator.References); ok && con.Reference != nil {
				c.References = &ForeignKey{
					Table:    con.Reference.Table,
					Column:   con.Reference.Column,
					OnDelete: strings.ToUpper(con.Reference.OnDelete),
				}
			}
			def.Columns = append(def.Columns, c)
		}
		defs = append(defs, def)
	}
	return defs
}

// normalizeFQN normalizes each dotted segment of a table name.
func normalizeFQN(s string) string {
	parts := strings.Split(strings.TrimSpace(s), ".")
	out := parts[:0]
	for _, p := range parts {
		if n := normalizeName(p); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, ".")
}

// normalizeName folds an identifier to lower-case ASCII snake_case:
// accents are stripped, runs of separators become one '_', anything else is
// dropped. "Číslo Účtu" becomes "cislo_uctu".
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-':
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
