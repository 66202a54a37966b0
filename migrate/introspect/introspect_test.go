package introspect

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/query/sqlgen"
	"github.com/satishbabariya/godal/runtime/driver"
	"github.com/satishbabariya/godal/runtime/driver/sqldb"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

func ptr(s string) *string { return &s }

// createShop builds the shop schema in a fresh SQLite database.
func createShop(t *testing.T) driver.Session {
	t.Helper()
	ctx := context.Background()
	d, err := sqldb.Open("sqlite://" + filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	s, err := d.Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	reg := schema.NewRegistry()
	reg.MustDefineTable("person",
		schema.NewField("nickname", types.StringType(32)),
	)
	reg.MustDefineTable("thing",
		schema.NewField("name", types.StringType(64), schema.Unique(), schema.NotNull()),
		schema.NewField("price", types.DecimalType(10, 2), schema.Default(0)),
		schema.NewField("created_at", types.DateTimeType(), schema.DefaultExpr(schema.CurrentTimestamp)),
		schema.NewField("owner", types.ReferenceType("person"), schema.OnDelete(schema.SetNull)),
		schema.Index("thing_price", "price"),
	)
	require.NoError(t, reg.Finalize())

	dialect, err := sqlgen.New("sqlite", sqlgen.Options{})
	require.NoError(t, err)
	for _, table := range reg.Tables() {
		stmts, err := dialect.RenderCreateTable(table)
		require.NoError(t, err)
		for _, stmt := range stmts {
			_, err := s.Exec(ctx, stmt)
			require.NoError(t, err, stmt)
		}
	}
	return s
}

func TestSQLiteListTables(t *testing.T) {
	in, err := New("sqlite", createShop(t))
	require.NoError(t, err)

	tables, err := in.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "thing"}, tables)
}

func TestSQLiteDescribeTable(t *testing.T) {
	in := NewSQLite(createShop(t))

	desc, err := in.DescribeTable(context.Background(), "thing")
	require.NoError(t, err)

	wantColumns := []Column{
		{Name: "id", Type: "INTEGER", AutoIncrement: true, PrimaryKey: true},
		{Name: "name", Type: "VARCHAR(64)"},
		{Name: "price", Type: "NUMERIC(10,2)", Nullable: true, Default: ptr("0")},
		{Name: "created_at", Type: "TIMESTAMP", Nullable: true, Default: ptr("CURRENT_TIMESTAMP")},
		{Name: "owner", Type: "INTEGER", Nullable: true},
	}
	if diff := cmp.Diff(wantColumns, desc.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"id"}, desc.PrimaryKey)

	price := desc.Index("thing_price")
	require.NotNil(t, price)
	assert.Equal(t, Index{Name: "thing_price", Columns: []string{"price"}}, *price)

	var unique []Index
	for _, idx := range desc.Indexes {
		if idx.Constraint {
			unique = append(unique, idx)
		}
	}
	require.Len(t, unique, 1)
	assert.True(t, unique[0].Unique)
	assert.Equal(t, []string{"name"}, unique[0].Columns)

	wantFKs := []ForeignKey{{
		Columns:    []string{"owner"},
		RefTable:   "person",
		RefColumns: []string{"id"},
		OnDelete:   "SET NULL",
	}}
	if diff := cmp.Diff(wantFKs, desc.ForeignKeys); diff != "" {
		t.Errorf("foreign keys mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotDescribesEveryTable(t *testing.T) {
	tables, err := Snapshot(context.Background(), NewSQLite(createShop(t)))
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "person", tables[0].Name)
	assert.Equal(t, []string{"id", "nickname"}, []string{tables[0].Columns[0].Name, tables[0].Columns[1].Name})
}

func TestDescribeMissingTable(t *testing.T) {
	_, err := NewSQLite(createShop(t)).DescribeTable(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, dalerr.ErrIntrospection)
	assert.ErrorIs(t, err, ErrTableNotFound)

	var ie *dalerr.IntrospectionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "ghost", ie.Table)
}

type brokenQueryer struct{}

func (brokenQueryer) Query(context.Context, string, ...any) (driver.Rows, error) {
	return nil, errors.New("connection refused")
}

func TestQueryFailuresAreIntrospectionErrors(t *testing.T) {
	for _, name := range sqlgen.Names() {
		in, err := New(name, brokenQueryer{})
		require.NoError(t, err, name)

		_, err = in.ListTables(context.Background())
		assert.ErrorIs(t, err, dalerr.ErrIntrospection, name)
		_, err = in.DescribeTable(context.Background(), "thing")
		assert.ErrorIs(t, err, dalerr.ErrIntrospection, name)
	}

	_, err := New("db2", brokenQueryer{})
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestNativeTypeReconstruction(t *testing.T) {
	assert.Equal(t, "nvarchar(64)", mssqlType("nvarchar", 128, 0, 0))
	assert.Equal(t, "nvarchar(max)", mssqlType("NVARCHAR", -1, 0, 0))
	assert.Equal(t, "decimal(10,2)", mssqlType("decimal", 9, 10, 2))
	assert.Equal(t, "int", mssqlType("int", 4, 10, 0))

	assert.Equal(t, "DOUBLE PRECISION", firebirdType(27, 0, 8, 0, 0))
	assert.Equal(t, "NUMERIC(10,2)", firebirdType(8, 1, 4, 10, -2))
	assert.Equal(t, "DECIMAL(18,4)", firebirdType(16, 2, 8, 18, -4))
	assert.Equal(t, "VARCHAR(64)", firebirdType(37, 0, 64, 0, 0))
	assert.Equal(t, "BLOB SUB_TYPE 1", firebirdType(261, 1, 8, 0, 0))
}
