package ddl

import (
	"reflect"
	"testing"

	"ddlsim/internal/config"
	"ddlsim/internal/simulator"
)

func testTypes(logical string) string {
	switch logical {
	case "bigint":
		return "BIGINT"
	case "timestamp":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func modelV1() config.Model {
	return config.Model{Tables: []config.ModelTable{
		{Name: "public.account", Columns: []config.ModelColumn{
			{Name: "id", Type: "bigint", PrimaryKey: true},
			{Name: "owner_id", Type: "bigint", Nullable: true, References: "public.owner(id)", OnDelete: "cascade"},
			{Name: "email", Type: "text", Nullable: true, Unique: true},
			{Name: "balance", SQLType: "NUMERIC(12, 2)", Default: "0", Check: "balance >= 0"},
			{Name: "created_at", Type: "timestamp", Default: "now() AT TIME ZONE 'utc'"},
		}},
		{Name: "public.owner", Columns: []config.ModelColumn{
			{Name: "id", Type: "bigint", PrimaryKey: true},
			{Name: "name", Type: "text"},
		}},
		{Name: "public.audit", Columns: []config.ModelColumn{
			{Name: "id", Type: "bigint", PrimaryKey: true},
		}},
	}}
}

func modelV2() config.Model {
	return config.Model{Tables: []config.ModelTable{
		{Name: "public.account", Columns: []config.ModelColumn{
			{Name: "id", Type: "bigint", PrimaryKey: true},
			{Name: "owner_id", Type: "bigint", Nullable: true, References: "public.owner(id)", OnDelete: "cascade"},
			{Name: "email", Type: "text", Unique: true},
			{Name: "balance", SQLType: "numeric(14,2)", Check: "balance >= 0"},
			{Name: "note", Type: "text", Nullable: true},
		}},
		{Name: "public.owner", Columns: []config.ModelColumn{
			{Name: "id", Type: "bigint", PrimaryKey: true},
			{Name: "name", Type: "text"},
		}},
		{Name: "public.tag", Columns: []config.ModelColumn{
			{Name: "id", Type: "bigint", PrimaryKey: true},
			{Name: "account_id", Type: "bigint", References: "public.account"},
		}},
	}}
}

func mustModel(t *testing.T, m config.Model) []TableDef {
	t.Helper()
	defs, err := FromModel(m, testTypes)
	if err != nil {
		t.Fatalf("FromModel() error = %v", err)
	}
	return defs
}

// apply renders changes and replays them on sim.
func apply(t *testing.T, sim *simulator.Simulator, changes []Change) {
	t.Helper()
	for _, c := range changes {
		stmt, err := c.SQL()
		if err != nil {
			t.Fatalf("%v.SQL() error = %v", c.Kind, err)
		}
		if err := sim.SimulateQuery(stmt); err != nil {
			t.Fatalf("SimulateQuery(%s) error = %v", stmt, err)
		}
	}
}

func changeKinds(changes []Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Kind.String() + " " + c.Table
		if c.Column.Name != "" {
			out[i] += "." + c.Column.Name
		}
	}
	return out
}

// TestDiffRoundTrip generates migrations from the model, replays them and
// checks that diffing the replayed schema against the model yields nothing.
func TestDiffRoundTrip(t *testing.T) {
	t.Parallel()

	sim := simulator.New()

	v1 := mustModel(t, modelV1())
	first := Diff(nil, v1)
	wantFirst := []string{
		"create_table public.owner",
		"create_table public.account",
		"create_table public.audit",
	}
	if got := changeKinds(first); !reflect.DeepEqual(got, wantFirst) {
		t.Fatalf("initial Diff() = %v, want %v", got, wantFirst)
	}
	apply(t, sim, first)
	if again := Diff(FromSchema(sim.Schema()), v1); len(again) != 0 {
		t.Fatalf("Diff() after replaying v1 = %v, want none", changeKinds(again))
	}

	v2 := mustModel(t, modelV2())
	second := Diff(FromSchema(sim.Schema()), v2)
	wantSecond := []string{
		"create_table public.tag",
		"set_not_null public.account.email",
		"alter_type public.account.balance",
		"drop_default public.account.balance",
		"add_column public.account.note",
		"drop_column public.account.created_at",
		"drop_table public.audit",
	}
	if got := changeKinds(second); !reflect.DeepEqual(got, wantSecond) {
		t.Fatalf("incremental Diff() =\n%v\nwant\n%v", got, wantSecond)
	}
	apply(t, sim, second)
	if again := Diff(FromSchema(sim.Schema()), v2); len(again) != 0 {
		t.Fatalf("Diff() after replaying v2 = %v, want none", changeKinds(again))
	}
}

func TestDiffConstraints(t *testing.T) {
	t.Parallel()

	cur := []TableDef{{FQN: "t", Columns: []ColumnDef{
		{Name: "a", SQLType: "INT", Nullable: true},
		{Name: "b", SQLType: "INT", Nullable: true, Unique: true},
		{Name: "c", SQLType: "INT", PrimaryKey: true},
	}}}

	tests := []struct {
		name string
		want []ColumnDef
		kind []string
	}{
		{
			name: "unchanged",
			want: cur[0].Columns,
		},
		{
			name: "add unique and foreign key",
			want: []ColumnDef{
				{Name: "a", SQLType: "INT", Nullable: true, Unique: true, References: &ForeignKey{Table: "o"}},
				{Name: "b", SQLType: "INT", Nullable: true, Unique: true},
				{Name: "c", SQLType: "INT", PrimaryKey: true},
			},
			kind: []string{"add_unique t.a", "add_foreign_key t.a"},
		},
		{
			name: "unique and primary key are never removed",
			want: []ColumnDef{
				{Name: "a", SQLType: "INT", Nullable: true},
				{Name: "b", SQLType: "INT", Nullable: true},
				{Name: "c", SQLType: "INT"},
			},
		},
		{
			name: "primary key is not added when one exists",
			want: []ColumnDef{
				{Name: "a", SQLType: "INT", PrimaryKey: true},
				{Name: "b", SQLType: "INT", Nullable: true, Unique: true},
				{Name: "c", SQLType: "INT", PrimaryKey: true},
			},
			kind: []string{"set_not_null t.a"},
		},
		{
			name: "type spelling is normalised",
			want: []ColumnDef{
				{Name: "a", SQLType: " int ", Nullable: true},
				{Name: "b", SQLType: "int", Nullable: true, Unique: true},
				{Name: "c", SQLType: "Int", PrimaryKey: true},
			},
		},
		{
			name: "default set and check ignored",
			want: []ColumnDef{
				{Name: "a", SQLType: "INT", Nullable: true, Default: "1 + 1", Check: "a > 0"},
				{Name: "b", SQLType: "INT", Nullable: true, Unique: true},
				{Name: "c", SQLType: "INT", PrimaryKey: true},
			},
			kind: []string{"set_default t.a"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := changeKinds(Diff(cur, []TableDef{{FQN: "t", Columns: tt.want}}))
			if len(got) == 0 && len(tt.kind) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.kind) {
				t.Fatalf("Diff() = %v, want %v", got, tt.kind)
			}
		})
	}
}

func TestDiffAddPrimaryKey(t *testing.T) {
	t.Parallel()

	cur := []TableDef{{FQN: "t", Columns: []ColumnDef{{Name: "a", SQLType: "INT"}}}}
	want := []TableDef{{FQN: "t", Columns: []ColumnDef{
		{Name: "a", SQLType: "INT", PrimaryKey: true},
		{Name: "b", SQLType: "INT", PrimaryKey: true},
	}}}

	changes := Diff(cur, want)
	if got, wantKinds := changeKinds(changes), []string{"add_column t.b", "add_primary_key t"}; !reflect.DeepEqual(got, wantKinds) {
		t.Fatalf("Diff() = %v, want %v", got, wantKinds)
	}
	sql, err := changes[1].SQL()
	if err != nil {
		t.Fatalf("SQL() error = %v", err)
	}
	if want := `ALTER TABLE "t" ADD PRIMARY KEY ("a", "b");`; sql != want {
		t.Fatalf("SQL() = %s, want %s", sql, want)
	}
}

func TestOrderByReferenceCycle(t *testing.T) {
	t.Parallel()

	ref := func(table string) *ForeignKey { return &ForeignKey{Table: table} }
	tables := []TableDef{
		{FQN: "a", Columns: []ColumnDef{{Name: "b_id", References: ref("b")}}},
		{FQN: "b", Columns: []ColumnDef{{Name: "a_id", References: ref("a")}}},
		{FQN: "c", Columns: []ColumnDef{{Name: "self", References: ref("c")}}},
	}

	var got []string
	for _, tbl := range orderByReference(tables) {
		got = append(got, tbl.FQN)
	}
	if want := []string{"c", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("orderByReference() = %v, want %v", got, want)
	}
}

func TestChangeSQLErrors(t *testing.T) {
	t.Parallel()

	if _, err := (Change{Kind: AddForeignKey, Table: "t", Column: ColumnDef{Name: "a"}}).SQL(); err == nil {
		t.Error("AddForeignKey without reference: error = nil")
	}
	if _, err := (Change{Kind: ChangeKind(99)}).SQL(); err == nil {
		t.Error("unknown kind: error = nil")
	}
	if got := ChangeKind(99).String(); got != "ChangeKind(99)" {
		t.Errorf("String() = %q", got)
	}
}
