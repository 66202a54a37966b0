package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/godal/config"
	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/migrate/planner"
	"github.com/satishbabariya/godal/query/ast"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

func shopRegistry(t *testing.T, withLabel bool) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	_, err := reg.DefineTable("person",
		schema.NewField("nickname", types.StringType(32), schema.NotNull()),
	)
	require.NoError(t, err)

	items := []schema.TableItem{
		schema.NewField("name", types.StringType(64), schema.NotNull()),
		schema.NewField("price", types.IntegerType(), schema.Default(0)),
		schema.NewField("token", types.StringType(36), schema.DefaultFunc(func() any { return "generated" })),
		schema.NewField("owner", types.ReferenceType("person"), schema.OnDelete(schema.SetNull)),
	}
	if withLabel {
		items = append(items, schema.NewField("label", types.StringType(16)))
	}
	_, err = reg.DefineTable("thing", items...)
	require.NoError(t, err)
	return reg
}

func sqliteConfig(t *testing.T, mode config.Mode) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.URI = "sqlite://" + filepath.Join(t.TempDir(), "shop.db")
	cfg.Migrate = mode
	cfg.PoolSize = 4
	return cfg
}

func open(t *testing.T, cfg config.Config, reg *schema.Registry) *Client {
	t.Helper()
	c, err := Open(cfg, reg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := sqliteConfig(t, config.MigrateOff)
	cfg.PoolSize = 0
	_, err := Open(cfg, shopRegistry(t, false))
	assert.ErrorIs(t, err, dalerr.ErrConfig)
}

func TestFirstStatementReconcilesSchema(t *testing.T) {
	c := open(t, sqliteConfig(t, config.MigrateAdditive), shopRegistry(t, false))
	ctx := context.Background()
	assert.Equal(t, 0, c.Stats().InUse)

	id, err := c.Insert(ctx, "person", map[string]any{"nickname": "ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	tables, err := c.Introspect(ctx)
	require.NoError(t, err)
	var names []string
	for _, tbl := range tables {
		names = append(names, tbl.Name)
	}
	assert.Subset(t, names, []string{"person", "thing"})

	records, err := c.History(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "additive", records[0].Mode)
}

func TestMigrateOffLeavesDatabaseUntouched(t *testing.T) {
	c := open(t, sqliteConfig(t, config.MigrateOff), shopRegistry(t, false))
	_, err := c.Insert(context.Background(), "person", map[string]any{"nickname": "ada"})
	assert.Error(t, err)
}

func TestInsertSelectUpdateDelete(t *testing.T) {
	reg := shopRegistry(t, false)
	c := open(t, sqliteConfig(t, config.MigrateAdditive), reg)
	ctx := context.Background()
	thing := reg.Table("thing")

	owner, err := c.Insert(ctx, "person", map[string]any{"nickname": "ada"})
	require.NoError(t, err)
	for i, name := range []string{"lamp", "desk", "chair"} {
		_, err := c.Insert(ctx, "thing", map[string]any{"name": name, "price": (i + 1) * 10, "owner": owner})
		require.NoError(t, err)
	}

	rows, err := c.Select(ctx, ast.From(thing).
		Where(thing.Field("price").Gt(10)).
		OrderBy(thing.Field("price").Desc()))
	require.NoError(t, err)
	assert.Equal(t, []any{"chair", "desk"}, rows.Values("name"))
	assert.Equal(t, "generated", rows.Records[0]["token"])

	n, err := c.Update(ctx, "thing", thing.Field("name").Eq("lamp"), map[string]any{"price": 99})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = c.Delete(ctx, "thing", thing.Field("price").Lt(25))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	count, err := c.Count(ctx, ast.From(thing))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, err = c.Insert(ctx, "nowhere", map[string]any{"x": 1})
	assert.Error(t, err)
}

func TestPagesDoNotOverlap(t *testing.T) {
	reg := shopRegistry(t, false)
	c := open(t, sqliteConfig(t, config.MigrateAdditive), reg)
	ctx := context.Background()
	thing := reg.Table("thing")

	for i := range 25 {
		_, err := c.Insert(ctx, "thing", map[string]any{"name": fmt.Sprintf("thing-%02d", i)})
		require.NoError(t, err)
	}

	seen := make(map[any]bool)
	base := ast.From(thing).OrderBy(thing.Field("id").Asc())
	for offset := int64(0); offset < 30; offset += 10 {
		rows, err := c.Select(ctx, base.Page(10, offset))
		require.NoError(t, err)
		for _, id := range rows.Values("id") {
			assert.False(t, seen[id], "id %v returned twice", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, 25)

	count, err := c.Count(ctx, base.Page(10, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 25, count)
}

func TestTransactionRollsBack(t *testing.T) {
	reg := shopRegistry(t, false)
	c := open(t, sqliteConfig(t, config.MigrateAdditive), reg)
	ctx := context.Background()
	boom := errors.New("boom")

	err := c.Transaction(ctx, func(s *Session) error {
		assert.True(t, s.InTx())
		if _, err := s.Insert(ctx, "person", map[string]any{"nickname": "ada"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := c.Count(ctx, ast.From(reg.Table("person")))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestNestedTransactionRevertsToSavepoint(t *testing.T) {
	reg := shopRegistry(t, false)
	c := open(t, sqliteConfig(t, config.MigrateAdditive), reg)
	ctx := context.Background()
	person := reg.Table("person")

	err := c.Transaction(ctx, func(s *Session) error {
		if _, err := s.Insert(ctx, "person", map[string]any{"nickname": "kept"}); err != nil {
			return err
		}
		err := s.Transaction(ctx, func(s *Session) error {
			if _, err := s.Insert(ctx, "person", map[string]any{"nickname": "dropped"}); err != nil {
				return err
			}
			return errors.New("inner failure")
		})
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)

	rows, err := c.Select(ctx, ast.From(person).Columns(person.Field("nickname").Col()))
	require.NoError(t, err)
	assert.Equal(t, []any{"kept"}, rows.Values("nickname"))
}

func TestConcurrentInserts(t *testing.T) {
	reg := shopRegistry(t, false)
	c := open(t, sqliteConfig(t, config.MigrateAdditive), reg)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Insert(ctx, "person", map[string]any{"nickname": fmt.Sprintf("p%d", i)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	n, err := c.Count(ctx, ast.From(reg.Table("person")))
	require.NoError(t, err)
	assert.EqualValues(t, 20, n)
	assert.Equal(t, 0, c.Stats().InUse)
	assert.LessOrEqual(t, c.Stats().Idle, 4)
}

func TestMiddleware(t *testing.T) {
	reg := shopRegistry(t, false)
	c := open(t, sqliteConfig(t, config.MigrateAdditive), reg)
	ctx := context.Background()

	var events []QueryEvent
	c.Use(TimingMiddleware(func(e QueryEvent) { events = append(events, e) }))

	_, err := c.Insert(ctx, "person", map[string]any{"nickname": "ada"})
	require.NoError(t, err)
	_, err = c.Select(ctx, ast.From(reg.Table("person")))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "insert", events[0].Operation)
	assert.Equal(t, "person", events[0].Table)
	assert.Contains(t, events[0].Query, "INSERT INTO")
	assert.Equal(t, "select", events[1].Operation)
	assert.NoError(t, events[1].Error)

	c.Use(ReadOnlyMiddleware())
	_, err = c.Delete(ctx, "person", reg.Table("person").Field("nickname").Eq("ada"))
	var ro *ReadOnlyError
	require.ErrorAs(t, err, &ro)
	assert.Equal(t, "delete", ro.Operation)
}

func TestPlanReportsPendingDrop(t *testing.T) {
	cfg := sqliteConfig(t, config.MigrateAdditive)
	ctx := context.Background()

	first := open(t, cfg, shopRegistry(t, true))
	_, err := first.Insert(ctx, "person", map[string]any{"nickname": "ada"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := open(t, cfg, shopRegistry(t, false))
	p, err := second.Plan(ctx, planner.Options{})
	require.NoError(t, err)
	assert.Empty(t, p.Steps)
	require.Len(t, p.Pending, 1)
	assert.Equal(t, "drop column thing.label", p.Pending[0].String())
	assert.ErrorIs(t, p.Blocked(), dalerr.ErrDestructiveChangeBlocked)

	res, err := second.Migrate(ctx, MigrateOptions{Options: planner.Options{Mode: planner.Destructive}})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)

	p, err = second.Plan(ctx, planner.Options{})
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

type thingRow struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Price *int
	Owner *int64 `db:"owner"`
	Extra string `db:"-"`
}

func TestDecode(t *testing.T) {
	reg := shopRegistry(t, false)
	c := open(t, sqliteConfig(t, config.MigrateAdditive), reg)
	ctx := context.Background()
	thing := reg.Table("thing")

	_, err := c.Insert(ctx, "thing", map[string]any{"name": "lamp", "price": 12})
	require.NoError(t, err)

	rows, err := c.Select(ctx, ast.From(thing))
	require.NoError(t, err)
	got, err := Decode[thingRow](rows)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "lamp", got[0].Name)
	require.NotNil(t, got[0].Price)
	assert.Equal(t, 12, *got[0].Price)
	assert.Nil(t, got[0].Owner)

	_, err = Decode[int](rows)
	assert.Error(t, err)
}
