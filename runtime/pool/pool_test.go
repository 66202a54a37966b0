package pool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/godal/dalerr"
	"github.com/satishbabariya/godal/internal/debug"
	"github.com/satishbabariya/godal/query/sqlgen"
	"github.com/satishbabariya/godal/runtime/driver"
)

var errGone = errors.New("server closed the connection")

// fakeDriver hands out sessions that record every statement in one log.
type fakeDriver struct {
	mu        sync.Mutex
	opens     int
	failOpens int
	openErr   error
	sessions  []*fakeSession
	log       []string
	closed    bool
}

func (d *fakeDriver) Dialect() string { return "postgres" }

func (d *fakeDriver) Open(ctx context.Context) (driver.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.openErr != nil {
		return nil, d.openErr
	}
	if d.failOpens > 0 {
		d.failOpens--
		return nil, errGone
	}
	s := &fakeSession{d: d, id: len(d.sessions) + 1}
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *fakeDriver) IsDisconnect(err error) bool { return errors.Is(err, errGone) }

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDriver) record(s *fakeSession, stmt string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, fmt.Sprintf("%d: %s", s.id, stmt))
}

func (d *fakeDriver) statements() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.log...)
}

func (d *fakeDriver) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

type fakeSession struct {
	d        *fakeDriver
	id       int
	inTx     bool
	closed   bool
	failNext int
}

func (s *fakeSession) run(ctx context.Context, query string) error {
	if s.closed {
		return errors.New("session closed")
	}
	if s.failNext > 0 {
		s.failNext--
		return errGone
	}
	if query == "SLEEP" {
		<-ctx.Done()
		return ctx.Err()
	}
	s.d.record(s, query)
	return nil
}

func (s *fakeSession) Exec(ctx context.Context, query string, args ...any) (driver.Result, error) {
	if err := s.run(ctx, query); err != nil {
		return nil, err
	}
	return fakeResult{}, nil
}

func (s *fakeSession) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	if err := s.run(ctx, query); err != nil {
		return nil, err
	}
	return &fakeRows{}, nil
}

func (s *fakeSession) Begin(ctx context.Context) error {
	if err := s.run(ctx, "BEGIN"); err != nil {
		return err
	}
	s.inTx = true
	return nil
}

func (s *fakeSession) Commit() error {
	s.inTx = false
	return s.run(context.Background(), "COMMIT")
}

func (s *fakeSession) Rollback() error {
	s.inTx = false
	return s.run(context.Background(), "ROLLBACK")
}

func (s *fakeSession) InTx() bool                     { return s.inTx }
func (s *fakeSession) Ping(ctx context.Context) error { return nil }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type fakeRows struct{ closed bool }

func (r *fakeRows) Columns() ([]string, error) { return nil, nil }
func (r *fakeRows) Next() bool                 { return false }
func (r *fakeRows) Scan(dest ...any) error     { return nil }
func (r *fakeRows) Err() error                 { return nil }
func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Size = 2
	cfg.CheckoutTimeout = 50 * time.Millisecond
	cfg.Backoff = Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2}
	return cfg
}

func newPool(t *testing.T, d *fakeDriver, dialect sqlgen.Dialect, cfg Config) *Pool {
	t.Helper()
	p, err := New(d, dialect, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func postgres(t *testing.T) sqlgen.Dialect {
	t.Helper()
	d, err := sqlgen.New("postgres", sqlgen.Options{})
	require.NoError(t, err)
	return d
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 0
	_, err := New(&fakeDriver{}, nil, cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.CheckoutTimeout = 0
	_, err = New(&fakeDriver{}, nil, cfg)
	assert.Error(t, err)
}

func TestAcquireTimesOutWhenExhausted(t *testing.T) {
	p := newPool(t, &fakeDriver{}, nil, testConfig())
	ctx := context.Background()

	a, err := p.Acquire(ctx)
	require.NoError(t, err)
	b, err := p.Acquire(ctx)
	require.NoError(t, err)

	_, err = p.Acquire(ctx)
	var timeout *dalerr.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "checkout", timeout.Op)
	assert.True(t, dalerr.IsTimeout(err))
	assert.EqualValues(t, 1, p.Stats().Timeouts)

	a.Release()
	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	c.Release()
	b.Release()
}

func TestAcquireReturnsCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 1
	cfg.CheckoutTimeout = time.Minute
	p := newPool(t, &fakeDriver{}, nil, cfg)

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, dalerr.IsTimeout(err))
}

func TestSessionsOpenLazilyAndAreReused(t *testing.T) {
	d := &fakeDriver{}
	p := newPool(t, d, nil, testConfig())
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, d.openCount())

	_, err = c.Exec(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.openCount())
	c.Release()
	assert.Equal(t, 1, p.Stats().Idle)

	err = p.Do(ctx, func(c *Conn) error {
		rows, err := c.Query(ctx, "SELECT 2")
		if err != nil {
			return err
		}
		return rows.Close()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.openCount())
	assert.Equal(t, []string{"1: SELECT 1", "1: SELECT 2"}, d.statements())
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := newPool(t, &fakeDriver{}, nil, testConfig())
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	c.Release()
	c.Release()
	assert.Equal(t, 0, p.Stats().InUse)

	_, err = c.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, dalerr.ErrConnReleased)

	for range 2 {
		c, err := p.Acquire(ctx)
		require.NoError(t, err)
		defer c.Release()
	}
	assert.Equal(t, 2, p.Stats().InUse)
}

func TestReconnectAfterDisconnect(t *testing.T) {
	var buf bytes.Buffer
	debug.Init(debug.Options{Writer: &buf})
	t.Cleanup(debug.Disable)

	d := &fakeDriver{}
	p := newPool(t, d, nil, testConfig())
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer c.Release()
	_, err = c.Exec(ctx, "SELECT 1")
	require.NoError(t, err)

	d.sessions[0].failNext = 1
	d.failOpens = 1
	_, err = c.Exec(ctx, "SELECT 2")
	require.NoError(t, err)

	assert.Equal(t, []string{"1: SELECT 1", "2: SELECT 2"}, d.statements())
	assert.True(t, d.sessions[0].closed)
	stats := p.Stats()
	assert.EqualValues(t, 1, stats.Reconnects)
	assert.EqualValues(t, 1, stats.Discarded)
	assert.Contains(t, buf.String(), "connection attempt failed")
	assert.Contains(t, buf.String(), "connection recovered")
}

func TestReconnectGivesUp(t *testing.T) {
	d := &fakeDriver{failOpens: 10}
	p := newPool(t, d, nil, testConfig())
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer c.Release()

	_, err = c.Exec(ctx, "SELECT 1")
	var connErr *dalerr.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 3, connErr.Attempts)
	assert.ErrorIs(t, err, errGone)
	assert.Equal(t, 3, d.openCount())
}

func TestOpenFailureThatIsNotADisconnectIsNotRetried(t *testing.T) {
	d := &fakeDriver{openErr: errors.New("password authentication failed")}
	p := newPool(t, d, nil, testConfig())

	err := p.Do(context.Background(), func(c *Conn) error {
		_, err := c.Exec(context.Background(), "SELECT 1")
		return err
	})
	assert.True(t, dalerr.IsConnection(err))
	assert.Equal(t, 1, d.openCount())
}

func TestDisconnectInsideTransactionIsFatal(t *testing.T) {
	d := &fakeDriver{}
	p := newPool(t, d, nil, testConfig())
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer c.Release()

	require.NoError(t, c.Begin(ctx))
	d.sessions[0].failNext = 1
	_, err = c.Exec(ctx, "INSERT")
	assert.True(t, dalerr.IsConnection(err))
	assert.False(t, c.InTx())
	assert.Equal(t, 1, d.openCount())
	assert.ErrorIs(t, c.Commit(), ErrNoTransaction)
}

func TestStatementTimeoutDiscardsSession(t *testing.T) {
	cfg := testConfig()
	cfg.StatementTimeout = 10 * time.Millisecond
	d := &fakeDriver{}
	p := newPool(t, d, nil, cfg)
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer c.Release()

	_, err = c.Exec(ctx, "SLEEP")
	var timeout *dalerr.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "exec", timeout.Op)
	assert.True(t, d.sessions[0].closed)

	_, err = c.Exec(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 2, d.openCount())
}

func TestCancelledStatementReturnsContextError(t *testing.T) {
	d := &fakeDriver{}
	p := newPool(t, d, nil, testConfig())

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer c.Release()
	_, err = c.Exec(context.Background(), "SELECT 1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(5*time.Millisecond, cancel)
	_, err = c.Exec(ctx, "SLEEP")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, dalerr.IsTimeout(err))
	assert.True(t, d.sessions[0].closed)
}

func TestNestedTransactionsUseSavepoints(t *testing.T) {
	d := &fakeDriver{}
	p := newPool(t, d, postgres(t), testConfig())
	ctx := context.Background()
	boom := errors.New("boom")

	err := p.Transaction(ctx, func(c *Conn) error {
		if _, err := c.Exec(ctx, "INSERT a"); err != nil {
			return err
		}
		err := c.Transaction(ctx, func(c *Conn) error {
			_, _ = c.Exec(ctx, "INSERT b")
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.NoError(t, c.Transaction(ctx, func(c *Conn) error {
			_, err := c.Exec(ctx, "INSERT c")
			return err
		}))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"1: BEGIN",
		"1: INSERT a",
		"1: SAVEPOINT sp_1",
		"1: INSERT b",
		"1: ROLLBACK TO SAVEPOINT sp_1",
		"1: SAVEPOINT sp_2",
		"1: INSERT c",
		"1: RELEASE SAVEPOINT sp_2",
		"1: COMMIT",
	}, d.statements())
}

func TestNestedTransactionJoinsWithoutSavepoints(t *testing.T) {
	d := &fakeDriver{}
	p := newPool(t, d, nil, testConfig())
	ctx := context.Background()

	err := p.Transaction(ctx, func(c *Conn) error {
		_ = c.Transaction(ctx, func(c *Conn) error {
			return errors.New("inner failure")
		})
		return nil
	})
	assert.ErrorIs(t, err, ErrRollbackOnly)
	assert.Equal(t, []string{"1: BEGIN", "1: ROLLBACK"}, d.statements())
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	d := &fakeDriver{}
	p := newPool(t, d, nil, testConfig())
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = p.Transaction(ctx, func(c *Conn) error {
			panic("boom")
		})
	})
	assert.Equal(t, []string{"1: BEGIN", "1: ROLLBACK"}, d.statements())
	assert.Equal(t, 0, p.Stats().InUse)
}

func TestReleaseRollsBackOpenTransaction(t *testing.T) {
	d := &fakeDriver{}
	p := newPool(t, d, nil, testConfig())
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Begin(ctx))
	c.Release()

	assert.Equal(t, []string{"1: BEGIN", "1: ROLLBACK"}, d.statements())
	assert.Equal(t, 1, p.Stats().Idle)
}

func TestClose(t *testing.T) {
	d := &fakeDriver{}
	p, err := New(d, nil, testConfig())
	require.NoError(t, err)
	ctx := context.Background()

	idle, err := p.Acquire(ctx)
	require.NoError(t, err)
	held, err := p.Acquire(ctx)
	require.NoError(t, err)
	for _, c := range []*Conn{idle, held} {
		_, err := c.Exec(ctx, "SELECT 1")
		require.NoError(t, err)
	}
	idle.Release()

	require.NoError(t, p.Close())
	assert.True(t, d.closed)
	assert.True(t, d.sessions[0].closed)
	assert.False(t, d.sessions[1].closed)

	held.Release()
	assert.True(t, d.sessions[1].closed)

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, dalerr.ErrPoolClosed)
	assert.NoError(t, p.Close())
}
