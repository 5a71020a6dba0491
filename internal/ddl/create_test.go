package ddl

import (
	"strconv"
	"strings"
	"testing"
)

// TestBuildCreateTableSQL verifies the CREATE TABLE rendering and the errors
// for invalid definitions.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		wantErr     bool
		errContains string
	}{
		{
			name: "empty FQN returns error",
			def: TableDef{
				FQN:     "",
				Columns: []ColumnDef{{Name: "id", SQLType: "INT"}},
			},
			wantErr:     true,
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "public.t"},
			wantErr:     true,
			errContains: "at least one column is required",
		},
		{
			name: "column with empty name returns error",
			def: TableDef{
				FQN:     "t",
				Columns: []ColumnDef{{Name: "", SQLType: "INT"}},
			},
			wantErr:     true,
			errContains: "column with empty name",
		},
		{
			name: "column with empty type returns error",
			def: TableDef{
				FQN:     "t",
				Columns: []ColumnDef{{Name: "id", SQLType: ""}},
			},
			wantErr:     true,
			errContains: "missing SQLType",
		},
		{
			name: "single nullable column",
			def: TableDef{
				FQN:     "t",
				Columns: []ColumnDef{{Name: "id", SQLType: "INT", Nullable: true}},
			},
			wantSQL: "CREATE TABLE \"t\" (\n  \"id\" INT\n);",
		},
		{
			name: "non-nullable column with default",
			def: TableDef{
				FQN: "t",
				Columns: []ColumnDef{
					{Name: "created_at", SQLType: "TIMESTAMP", Default: "CURRENT_TIMESTAMP"},
				},
			},
			wantSQL: "CREATE TABLE \"t\" (\n  \"created_at\" TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP\n);",
		},
		{
			name: "composite primary key",
			def: TableDef{
				FQN: "t",
				Columns: []ColumnDef{
					{Name: "id", SQLType: "INT", PrimaryKey: true},
					{Name: "tenant_id", SQLType: "INT", PrimaryKey: true, Nullable: true},
					{Name: "payload", SQLType: "TEXT", Nullable: true},
				},
			},
			wantSQL: "CREATE TABLE \"t\" (\n  \"id\" INT NOT NULL,\n  \"tenant_id\" INT NOT NULL,\n  \"payload\" TEXT,\n  PRIMARY KEY (\"id\", \"tenant_id\")\n);",
		},
		{
			name: "schema-qualified name and trimmed fields",
			def: TableDef{
				FQN:     "  my_schema.my_table  ",
				Columns: []ColumnDef{{Name: "  col1  ", SQLType: "  INT  ", Nullable: true}},
			},
			wantSQL: "CREATE TABLE \"my_schema\".\"my_table\" (\n  \"col1\" INT\n);",
		},
		{
			name: "every inline constraint",
			def: TableDef{
				FQN: "public.account",
				Columns: []ColumnDef{{
					Name:       "owner_id",
					SQLType:    "BIGINT",
					Nullable:   true,
					Unique:     true,
					Default:    "0",
					Check:      "owner_id >= 0",
					References: &ForeignKey{Table: "public.owner", Column: "id", OnDelete: "cascade"},
				}},
			},
			wantSQL: "CREATE TABLE \"public\".\"account\" (\n  \"owner_id\" BIGINT DEFAULT 0 UNIQUE CHECK (owner_id >= 0) REFERENCES \"public\".\"owner\" (\"id\") ON DELETE CASCADE\n);",
		},
		{
			name: "multi-word default is parenthesised",
			def: TableDef{
				FQN: "t",
				Columns: []ColumnDef{
					{Name: "at", SQLType: "TIMESTAMP", Nullable: true, Default: "now() AT TIME ZONE 'utc'"},
				},
			},
			wantSQL: "CREATE TABLE \"t\" (\n  \"at\" TIMESTAMP DEFAULT (now() AT TIME ZONE 'utc')\n);",
		},
		{
			name: "embedded quote in identifier",
			def: TableDef{
				FQN:     "t",
				Columns: []ColumnDef{{Name: `we"ird`, SQLType: "TEXT", Nullable: true}},
			},
			wantSQL: "CREATE TABLE \"t\" (\n  \"we\"\"ird\" TEXT\n);",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotSQL, err := BuildCreateTableSQL(tt.def)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BuildCreateTableSQL() error = nil, want non-nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("BuildCreateTableSQL() error = %q, want substring %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", gotSQL, tt.wantSQL)
			}
		})
	}
}

func TestAlterBuilders(t *testing.T) {
	t.Parallel()

	addCol, err := BuildAddColumnSQL("public.account", ColumnDef{Name: "id", SQLType: "BIGINT", PrimaryKey: true})
	if err != nil {
		t.Fatalf("BuildAddColumnSQL() error = %v", err)
	}
	dropTable, err := BuildDropTableSQL("public.account")
	if err != nil {
		t.Fatalf("BuildDropTableSQL() error = %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"add column drops primary key", addCol, `ALTER TABLE "public"."account" ADD COLUMN "id" BIGINT NOT NULL;`},
		{"drop table", dropTable, `DROP TABLE "public"."account";`},
		{"drop column", BuildDropColumnSQL("t", "c"), `ALTER TABLE "t" DROP COLUMN "c";`},
		{"alter type", BuildAlterTypeSQL("t", "c", "NUMERIC(12, 2)"), `ALTER TABLE "t" ALTER COLUMN "c" TYPE NUMERIC(12, 2);`},
		{"set not null", BuildSetNotNullSQL("t", "c", true), `ALTER TABLE "t" ALTER COLUMN "c" SET NOT NULL;`},
		{"drop not null", BuildSetNotNullSQL("t", "c", false), `ALTER TABLE "t" ALTER COLUMN "c" DROP NOT NULL;`},
		{"set default", BuildSetDefaultSQL("t", "c", "'x'"), `ALTER TABLE "t" ALTER COLUMN "c" SET DEFAULT 'x';`},
		{"empty default drops", BuildSetDefaultSQL("t", "c", "  "), `ALTER TABLE "t" ALTER COLUMN "c" DROP DEFAULT;`},
		{"add unique", BuildAddUniqueSQL("t", "c"), `ALTER TABLE "t" ADD UNIQUE ("c");`},
		{"add primary key", BuildAddPrimaryKeySQL("t", []string{"a", "b"}), `ALTER TABLE "t" ADD PRIMARY KEY ("a", "b");`},
		{
			"add foreign key",
			BuildAddForeignKeySQL("t", "owner_id", ForeignKey{Table: "owner"}),
			`ALTER TABLE "t" ADD FOREIGN KEY ("owner_id") REFERENCES "owner";`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Fatalf("got  %s\nwant %s", tt.got, tt.want)
			}
		})
	}
}

func TestDropTableEmptyName(t *testing.T) {
	t.Parallel()

	if _, err := BuildDropTableSQL(" "); err == nil {
		t.Fatal("BuildDropTableSQL(blank) error = nil")
	}
}

func TestDefaultExpr(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"0":                    "0",
		"'a b'":                "'a b'",
		"now()":                "now()",
		"coalesce(a, b)":       "coalesce(a, b)",
		"1 + 2":                "(1 + 2)",
		"  'x'  ":              "'x'",
		"ARRAY[1,2]":           "ARRAY[1,2]",
		"'{}'::jsonb":          "'{}'::jsonb",
		"nextval('s'), 1":      "(nextval('s'), 1)",
		"(already wrapped it)": "(already wrapped it)",
	}
	for in, want := range tests {
		if got := defaultExpr(in); got != want {
			t.Errorf("defaultExpr(%q) = %q, want %q", in, got, want)
		}
	}
}

var benchmarkSink string

// BenchmarkBuildCreateTableSQL_LargeSchema measures rendering of a wide table.
func BenchmarkBuildCreateTableSQL_LargeSchema(b *testing.B) {
	cols := make([]ColumnDef, 0, 64)
	for i := 0; i < 64; i++ {
		cols = append(cols, ColumnDef{
			Name:     "col_" + strconv.Itoa(i),
			SQLType:  "TEXT",
			Nullable: true,
		})
	}
	def := TableDef{FQN: "large_table", Columns: cols}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sql, err := BuildCreateTableSQL(def)
		if err != nil {
			b.Fatalf("BuildCreateTableSQL() error = %v", err)
		}
		benchmarkSink = sql
	}
}
