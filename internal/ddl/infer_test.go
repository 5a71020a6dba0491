package ddl

import (
	"reflect"
	"strings"
	"testing"

	"ddlsim/internal/config"
	"ddlsim/internal/simulator"
)

// upperType is a stand-in type mapper.
func upperType(logical string) string { return strings.ToUpper(logical) }

func TestFromModel(t *testing.T) {
	t.Parallel()

	m := config.Model{Tables: []config.ModelTable{{
		Name: " public.account ",
		Columns: []config.ModelColumn{
			{Name: "id", Type: "bigint", PrimaryKey: true, Nullable: true},
			{Name: "balance", SQLType: "NUMERIC(12, 2)", Type: "ignored", Default: " 0 ", Check: "balance >= 0"},
			{Name: "owner_id", Type: "bigint", Nullable: true, References: "public.owner ( id )", OnDelete: "cascade"},
			{Name: "parent", Type: "bigint", Nullable: true, Unique: true, References: "public.account"},
		},
	}}}

	got, err := FromModel(m, upperType)
	if err != nil {
		t.Fatalf("FromModel() error = %v", err)
	}
	want := []TableDef{{
		FQN: "public.account",
		Columns: []ColumnDef{
			{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "balance", SQLType: "NUMERIC(12, 2)", Default: "0", Check: "balance >= 0"},
			{Name: "owner_id", SQLType: "BIGINT", Nullable: true, References: &ForeignKey{Table: "public.owner", Column: "id", OnDelete: "CASCADE"}},
			{Name: "parent", SQLType: "BIGINT", Nullable: true, Unique: true, References: &ForeignKey{Table: "public.account"}},
		},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromModel() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestFromModelNormalizeNames(t *testing.T) {
	t.Parallel()

	m := config.Model{
		NormalizeNames: true,
		Tables: []config.ModelTable{{
			Name: "Finance.Účty Klientů",
			Columns: []config.ModelColumn{
				{Name: "Číslo Účtu", Type: "text", PrimaryKey: true},
				{Name: "Vlastník--ID", Type: "int", References: "Finance.Vlastník(ID)"},
			},
		}},
	}
	got, err := FromModel(m, upperType)
	if err != nil {
		t.Fatalf("FromModel() error = %v", err)
	}
	if got[0].FQN != "finance.ucty_klientu" {
		t.Errorf("FQN = %q, want finance.ucty_klientu", got[0].FQN)
	}
	if got[0].Columns[0].Name != "cislo_uctu" {
		t.Errorf("column 0 = %q, want cislo_uctu", got[0].Columns[0].Name)
	}
	if got[0].Columns[1].Name != "vlastnik_id" {
		t.Errorf("column 1 = %q, want vlastnik_id", got[0].Columns[1].Name)
	}
	ref := got[0].Columns[1].References
	if ref == nil || ref.Table != "finance.vlastnik" || ref.Column != "id" {
		t.Errorf("reference = %+v, want finance.vlastnik(id)", ref)
	}
}

func TestFromModelErrors(t *testing.T) {
	t.Parallel()

	col := config.ModelColumn{Name: "id", Type: "int"}
	tests := []struct {
		name    string
		tables  []config.ModelTable
		mapType MapType
		wantErr string
	}{
		{
			name:    "empty table name",
			tables:  []config.ModelTable{{Name: " ", Columns: []config.ModelColumn{col}}},
			mapType: upperType,
			wantErr: "empty name",
		},
		{
			name: "duplicate table",
			tables: []config.ModelTable{
				{Name: "t", Columns: []config.ModelColumn{col}},
				{Name: "t", Columns: []config.ModelColumn{col}},
			},
			mapType: upperType,
			wantErr: "declared twice",
		},
		{
			name:    "no columns",
			tables:  []config.ModelTable{{Name: "t"}},
			mapType: upperType,
			wantErr: "has no columns",
		},
		{
			name:    "duplicate column",
			tables:  []config.ModelTable{{Name: "t", Columns: []config.ModelColumn{col, col}}},
			mapType: upperType,
			wantErr: "column t.id declared twice",
		},
		{
			name:    "empty column name",
			tables:  []config.ModelTable{{Name: "t", Columns: []config.ModelColumn{{Type: "int"}}}},
			mapType: upperType,
			wantErr: "column with an empty name",
		},
		{
			name:    "no type",
			tables:  []config.ModelTable{{Name: "t", Columns: []config.ModelColumn{{Name: "id"}}}},
			mapType: upperType,
			wantErr: "has no type",
		},
		{
			name:    "no mapper",
			tables:  []config.ModelTable{{Name: "t", Columns: []config.ModelColumn{col}}},
			wantErr: "needs a type mapper",
		},
		{
			name: "malformed reference",
			tables: []config.ModelTable{{Name: "t", Columns: []config.ModelColumn{
				{Name: "id", Type: "int", References: "owner(id"},
			}}},
			mapType: upperType,
			wantErr: "malformed reference",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := FromModel(config.Model{Tables: tt.tables}, tt.mapType)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("FromModel() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestFromSchema(t *testing.T) {
	t.Parallel()

	sim := simulator.New()
	for _, stmt := range []string{
		`CREATE TABLE owner (id BIGINT PRIMARY KEY, name TEXT NOT NULL DEFAULT 'anon')`,
		`CREATE TABLE pet (
			name TEXT UNIQUE CHECK (length(name) > 0),
			owner_id BIGINT REFERENCES owner (id) ON DELETE cascade,
			CHECK (name <> 'x')
		)`,
	} {
		if err := sim.SimulateQuery(stmt); err != nil {
			t.Fatalf("SimulateQuery() error = %v", err)
		}
	}

	got := FromSchema(sim.Schema())
	want := []TableDef{
		{FQN: "owner", Columns: []ColumnDef{
			{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "name", SQLType: "TEXT", Default: "'anon'"},
		}},
		{FQN: "pet", Columns: []ColumnDef{
			{Name: "name", SQLType: "TEXT", Nullable: true, Unique: true, Check: "length(name) > 0"},
			{Name: "owner_id", SQLType: "BIGINT", Nullable: true, References: &ForeignKey{Table: "owner", Column: "id", OnDelete: "CASCADE"}},
		}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromSchema() =\n%+v\nwant\n%+v", got, want)
	}

	if FromSchema(nil) != nil {
		t.Fatal("FromSchema(nil) != nil")
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Číslo Účtu":     "cislo_uctu",
		"  Already_ok  ": "already_ok",
		"a - b":          "a_b",
		"__lead":         "lead",
		"trail__":        "trail",
		"Straße #1":      "strae_1",
		"":               "",
	}
	for in, want := range tests {
		if got := normalizeName(in); got != want {
			t.Errorf("normalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
