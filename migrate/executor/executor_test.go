package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/migrate/history"
	"github.com/satishbabariya/godal/migrate/plan"
	"github.com/satishbabariya/godal/query/sqlgen"
	"github.com/satishbabariya/godal/runtime/driver"
	"github.com/satishbabariya/godal/runtime/driver/sqldb"
	"github.com/satishbabariya/godal/schema"
	"github.com/satishbabariya/godal/types"
)

type emptyRows struct{}

func (emptyRows) Columns() ([]string, error) { return nil, nil }
func (emptyRows) Next() bool                 { return false }
func (emptyRows) Scan(...any) error          { return errors.New("no rows") }
func (emptyRows) Err() error                 { return nil }
func (emptyRows) Close() error               { return nil }

type result struct{}

func (result) LastInsertId() (int64, error) { return 0, nil }
func (result) RowsAffected() (int64, error) { return 0, nil }

// recorder logs every statement sent to it.
type recorder struct {
	log         []string
	failOn      string
	rollbackErr error
}

func (r *recorder) Query(_ context.Context, query string, _ ...any) (driver.Rows, error) {
	r.log = append(r.log, query)
	return emptyRows{}, nil
}

func (r *recorder) Exec(_ context.Context, query string, _ ...any) (driver.Result, error) {
	r.log = append(r.log, query)
	if r.failOn != "" && strings.Contains(query, r.failOn) {
		return nil, errors.New("boom")
	}
	return result{}, nil
}

func (r *recorder) Begin(context.Context) error {
	r.log = append(r.log, "BEGIN")
	return nil
}

func (r *recorder) Commit() error {
	r.log = append(r.log, "COMMIT")
	return nil
}

func (r *recorder) Rollback() error {
	r.log = append(r.log, "ROLLBACK")
	return r.rollbackErr
}

func widgetPlan(t *testing.T, d sqlgen.Dialect) *plan.Plan {
	t.Helper()
	reg := schema.NewRegistry()
	widget := reg.MustDefineTable("widget", schema.NewField("label", types.StringType(20)))
	require.NoError(t, reg.Finalize())
	op := plan.CreateTable{Table: widget}
	stmts, err := d.RenderAlter(op)
	require.NoError(t, err)
	return &plan.Plan{Dialect: d.Name(), Steps: []plan.Step{plan.NewStep(op, stmts, !d.TransactionalDDL())}}
}

func dialect(t *testing.T, name string) sqlgen.Dialect {
	t.Helper()
	d, err := sqlgen.New(name, sqlgen.Options{})
	require.NoError(t, err)
	return d
}

func TestApplyHoldsAdvisoryLockAroundTransaction(t *testing.T) {
	d := dialect(t, "postgres")
	e, err := New(d)
	require.NoError(t, err)
	conn := &recorder{}

	res, err := e.Apply(context.Background(), conn, widgetPlan(t, d), Options{Mode: "additive"})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	require.NotNil(t, res.Record)
	assert.Equal(t, "additive", res.Record.Mode)

	first, last := conn.log[0], conn.log[len(conn.log)-1]
	assert.Equal(t, "SELECT pg_advisory_lock(hashtext($1))", first)
	assert.Contains(t, last, "pg_advisory_unlock")

	begin := indexOf(conn.log, "BEGIN")
	commit := indexOf(conn.log, "COMMIT")
	create := indexOfPrefix(conn.log, `CREATE TABLE "widget"`)
	insert := indexOfPrefix(conn.log, `INSERT INTO "godal_migrations"`)
	require.True(t, begin >= 0 && commit >= 0 && create >= 0 && insert >= 0, conn.log)
	assert.True(t, begin < create && create < insert && insert < commit, conn.log)
	assert.Less(t, indexOfPrefix(conn.log, `CREATE TABLE "godal_migrations"`), begin)
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	d := dialect(t, "postgres")
	e, err := New(d)
	require.NoError(t, err)
	conn := &recorder{failOn: `CREATE TABLE "widget"`}

	res, err := e.Apply(context.Background(), conn, widgetPlan(t, d), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table widget")
	assert.Empty(t, res.Applied)
	assert.Contains(t, conn.log, "ROLLBACK")
	assert.NotContains(t, conn.log, "COMMIT")
	assert.Equal(t, -1, indexOfPrefix(conn.log, `INSERT INTO "godal_migrations"`))
}

func TestApplyReportsRollbackFailure(t *testing.T) {
	d := dialect(t, "postgres")
	e, err := New(d)
	require.NoError(t, err)
	lost := errors.New("connection lost")
	conn := &recorder{failOn: `CREATE TABLE "widget"`, rollbackErr: lost}

	_, err = e.Apply(context.Background(), conn, widgetPlan(t, d), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, lost)
	assert.Contains(t, err.Error(), "create table widget")
	assert.Contains(t, err.Error(), "rollback: connection lost")
}

func TestRedefinitionDisablesForeignKeysAroundTransaction(t *testing.T) {
	d := dialect(t, "sqlite")
	e, err := New(d)
	require.NoError(t, err)

	reg := schema.NewRegistry()
	widget := reg.MustDefineTable("widget", schema.NewField("label", types.StringType(20)))
	require.NoError(t, reg.Finalize())
	op := plan.RedefineTable{Table: widget, Copy: []plan.CopyColumn{{From: "id", To: "id"}, {From: "label", To: "label", Convert: true}}}
	stmts, err := d.RenderAlter(op)
	require.NoError(t, err)
	p := &plan.Plan{Dialect: d.Name(), Steps: []plan.Step{plan.NewStep(op, stmts, false)}}

	conn := &recorder{}
	_, err = e.Apply(context.Background(), conn, p, Options{})
	require.NoError(t, err)

	off := indexOf(conn.log, "PRAGMA foreign_keys = OFF")
	begin := indexOf(conn.log, "BEGIN")
	create := indexOfPrefix(conn.log, `CREATE TABLE "widget__new"`)
	check := indexOf(conn.log, "PRAGMA foreign_key_check")
	commit := indexOf(conn.log, "COMMIT")
	on := indexOf(conn.log, "PRAGMA foreign_keys = ON")
	require.True(t, off >= 0 && create >= 0 && check >= 0 && on >= 0, conn.log)
	assert.True(t, off < begin && begin < create && create < check && check < commit && commit < on, conn.log)

	conn = &recorder{}
	_, err = e.Apply(context.Background(), conn, widgetPlan(t, d), Options{})
	require.NoError(t, err)
	assert.NotContains(t, conn.log, "PRAGMA foreign_keys = OFF")
}

func TestNonTransactionalStepsNeedAcknowledgement(t *testing.T) {
	d := dialect(t, "mysql")
	e, err := New(d)
	require.NoError(t, err)
	p := widgetPlan(t, d)

	conn := &recorder{}
	_, err = e.Apply(context.Background(), conn, p, Options{})
	var nonTx *dalerr.NonTransactionalError
	require.ErrorAs(t, err, &nonTx)
	assert.Equal(t, "mysql", nonTx.Dialect)
	assert.Equal(t, []string{"create table widget (id, label)"}, nonTx.Steps)
	assert.Empty(t, conn.log, "nothing may run before the caller acknowledges")

	res, err := e.Apply(context.Background(), conn, p, Options{AllowNonTransactional: true})
	require.NoError(t, err)
	assert.Len(t, res.Applied, 1)
	assert.NotContains(t, conn.log, "BEGIN")
	assert.Equal(t, "SELECT GET_LOCK(?, -1)", conn.log[0])
}

func TestPendingStepsAreNeverRun(t *testing.T) {
	d := dialect(t, "postgres")
	e, err := New(d)
	require.NoError(t, err)
	drop := plan.NewStep(plan.DropTable{Name: "widget"}, []string{`DROP TABLE "widget"`}, false)

	conn := &recorder{}
	res, err := e.Apply(context.Background(), conn, &plan.Plan{Pending: []plan.Step{drop}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []plan.Step{drop}, res.Pending)
	assert.Empty(t, conn.log)
}

func TestApplyRecordsHistoryOnSQLite(t *testing.T) {
	ctx := context.Background()
	drv, err := sqldb.Open("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer drv.Close()
	s, err := drv.Open(ctx)
	require.NoError(t, err)
	defer s.Close()

	d := dialect(t, "sqlite")
	e, err := New(d)
	require.NoError(t, err)
	p := widgetPlan(t, d)

	res, err := e.Apply(ctx, s, p, Options{Mode: "additive"})
	require.NoError(t, err)

	records, err := e.History().List(ctx, s)
	require.NoError(t, err)
	require.Len(t, records, 1)
	got := records[0]
	assert.Equal(t, res.Record.ID, got.ID)
	assert.Equal(t, history.Checksum(p.SQL()), got.Checksum)
	assert.Equal(t, p.SQL(), got.Statements)
	assert.Equal(t, "additive", got.Mode)
	assert.WithinDuration(t, res.Record.AppliedAt, got.AppliedAt, 0)

	_, err = s.Exec(ctx, `INSERT INTO "widget" ("label") VALUES (?)`, "sprocket")
	require.NoError(t, err)
}

func indexOf(log []string, s string) int {
	for i, l := range log {
		if l == s {
			return i
		}
	}
	return -1
}

func indexOfPrefix(log []string, prefix string) int {
	for i, l := range log {
		if strings.HasPrefix(l, prefix) {
			return i
		}
	}
	return -1
}
