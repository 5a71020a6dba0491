// Package ddl is the backend-agnostic table model used to generate
// migrations: it infers table definitions from the project model, projects
// them from a replayed schema, diffs the two and renders the differences as
// DDL statements.
//
// Rendering targets the PostgreSQL dialect, which is also what the replay
// simulator understands, so every statement produced here can be replayed.
// Identifiers are double-quoted per dotted segment. Default and check
// expressions are raw SQL; the caller is responsible for their correctness.
package ddl

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// BuildCreateTableSQL renders a CREATE TABLE statement:
//
//	CREATE TABLE "schema"."table" (
//	  "col1" TYPE NOT NULL,
//	  "col2" TYPE DEFAULT x UNIQUE,
//	  PRIMARY KEY ("col1")
//	);
//
// Primary key columns are always NOT NULL and are collected into one
// table-level PRIMARY KEY clause in declaration order.
func BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		def, err := columnSQL(fqn, c)
		if err != nil {
			return "", err
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pks = append(pks, quoteIdent(strings.TrimSpace(c.Name)))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n);",
		quoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildDropTableSQL renders DROP TABLE.
func BuildDropTableSQL(fqn string) (string, error) {
	fqn = strings.TrimSpace(fqn)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	return fmt.Sprintf("DROP TABLE %s;", quoteFQN(fqn)), nil
}

// BuildAddColumnSQL renders ALTER TABLE ... ADD COLUMN with the column's
// inline constraints. A primary key flag is ignored here; see
// BuildAddPrimaryKeySQL.
func BuildAddColumnSQL(fqn string, c ColumnDef) (string, error) {
	c.PrimaryKey = false
	def, err := columnSQL(fqn, c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", quoteFQN(fqn), def), nil
}

// BuildDropColumnSQL renders ALTER TABLE ... DROP COLUMN.
func BuildDropColumnSQL(fqn, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", quoteFQN(fqn), quoteIdent(column))
}

// BuildAlterTypeSQL renders ALTER TABLE ... ALTER COLUMN ... TYPE.
func BuildAlterTypeSQL(fqn, column, sqlType string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;", quoteFQN(fqn), quoteIdent(column), sqlType)
}

// BuildSetNotNullSQL renders SET NOT NULL, or DROP NOT NULL when notNull is
// false.
func BuildSetNotNullSQL(fqn, column string, notNull bool) string {
	verb := "DROP"
	if notNull {
		verb = "SET"
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s NOT NULL;", quoteFQN(fqn), quoteIdent(column), verb)
}

// BuildSetDefaultSQL renders SET DEFAULT, or DROP DEFAULT for an empty
// expression.
func BuildSetDefaultSQL(fqn, column, expr string) string {
	if strings.TrimSpace(expr) == "" {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", quoteFQN(fqn), quoteIdent(column))
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", quoteFQN(fqn), quoteIdent(column), defaultExpr(expr))
}

// BuildAddUniqueSQL renders ALTER TABLE ... ADD UNIQUE (column).
func BuildAddUniqueSQL(fqn, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD UNIQUE (%s);", quoteFQN(fqn), quoteIdent(column))
}

// BuildAddPrimaryKeySQL renders ALTER TABLE ... ADD PRIMARY KEY (cols).
func BuildAddPrimaryKeySQL(fqn string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", quoteFQN(fqn), strings.Join(quoted, ", "))
}

// BuildAddForeignKeySQL renders ALTER TABLE ... ADD FOREIGN KEY.
func BuildAddForeignKeySQL(fqn, column string, ref ForeignKey) string {
	return fmt.Sprintf("ALTER TABLE %s ADD FOREIGN KEY (%s) %s;", quoteFQN(fqn), quoteIdent(column), referenceSQL(ref))
}

// columnSQL renders
//
//	"name" TYPE [NOT NULL] [DEFAULT x] [UNIQUE] [CHECK (e)] [REFERENCES ...]
func columnSQL(fqn string, c ColumnDef) (string, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
	}
	typ := strings.TrimSpace(c.SQLType)
	if typ == "" {
		return "", fmt.Errorf("ddl: column %s missing SQLType", name)
	}

	var sb strings.Builder
	sb.WriteString(quoteIdent(name))
	sb.WriteByte(' ')
	sb.WriteString(typ)
	if !c.Nullable || c.PrimaryKey {
		sb.WriteString(" NOT NULL")
	}
	if def := strings.TrimSpace(c.Default); def != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(defaultExpr(def))
	}
	if c.Unique {
		sb.WriteString(" UNIQUE")
	}
	if chk := strings.TrimSpace(c.Check); chk != "" {
		sb.WriteString(" CHECK (")
		sb.WriteString(chk)
		sb.WriteByte(')')
	}
	if c.References != nil {
		sb.WriteByte(' ')
		sb.WriteString(referenceSQL(*c.References))
	}
	return sb.String(), nil
}

func referenceSQL(ref ForeignKey) string {
	var sb strings.Builder
	sb.WriteString("REFERENCES ")
	sb.WriteString(quoteFQN(ref.Table))
	if ref.Column != "" {
		sb.WriteString(" (")
		sb.WriteString(quoteIdent(ref.Column))
		sb.WriteByte(')')
	}
	if ref.OnDelete != "" {
		sb.WriteString(" ON DELETE ")
		sb.WriteString(strings.ToUpper(ref.OnDelete))
	}
	return sb.String()
}

// defaultExpr wraps an expression in parentheses when it contains top-level
// whitespace or commas, so that it reads back as one expression token.
func defaultExpr(expr string) string {
	expr = strings.TrimSpace(expr)
	depth := 0
	var quote rune
	for _, r := range expr {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case depth == 0 && (r == ',' || unicode.IsSpace(r)):
			return "(" + expr + ")"
		}
	}
	return expr
}

// quoteIdent quotes a single identifier segment, e.g.:
//
//	quoteIdent(`users`)      => `"users"`
//	quoteIdent(`weird"name`) => `"weird""name"`
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteFQN quotes a possibly schema-qualified name like "public.users" to
// `"public"."users"`. Empty segments are ignored.
func quoteFQN(f string) string {
	parts := strings.Split(strings.TrimSpace(f), ".")
	parts = slices.DeleteFunc(parts, func(p string) bool { return p == "" })
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}
