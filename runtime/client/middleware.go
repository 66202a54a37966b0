package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/satishbabariya/godal/query/sqlgen"
)

// QueryEvent describes one statement run by the client.
type QueryEvent struct {
	// Operation is select, count, insert, update, delete or exec.
	Operation string
	Table     string
	Query     string
	Args      []any
	Duration  time.Duration
	Error     error
	Start     time.Time
	End       time.Time
}

// Middleware intercepts statements. It must call next exactly once unless
// it rejects the statement by returning an error.
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// run executes exec through the middleware chain.
func (s *Session) run(ctx context.Context, op, table string, stmt sqlgen.Statement, exec func(context.Context) error) error {
	mws := s.c.middlewares
	if len(mws) == 0 {
		return exec(ctx)
	}

	event := &QueryEvent{
		Operation: op,
		Table:     table,
		Query:     stmt.SQL,
		Args:      stmt.Args,
		Start:     time.Now(),
	}

	var next func() error
	index := 0
	next = func() error {
		if index >= len(mws) {
			err := exec(ctx)
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}
		mw := mws[index]
		index++
		return mw(ctx, event, next)
	}
	return next()
}

// LoggingMiddleware logs every statement at debug level and failures at
// error level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		attrs := []any{"op", event.Operation, "table", event.Table, "sql", event.Query, "duration", event.Duration}
		if err != nil {
			logger.ErrorContext(ctx, "statement failed", append(attrs, "error", err)...)
		} else {
			logger.DebugContext(ctx, "statement executed", attrs...)
		}
		return err
	}
}

// TimingMiddleware reports the duration of every statement.
func TimingMiddleware(onTiming func(event QueryEvent)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(*event)
		}
		return err
	}
}

// ReadOnlyMiddleware rejects every statement that is not a select or count.
func ReadOnlyMiddleware() Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		switch event.Operation {
		case "select", "count":
			return next()
		}
		return &ReadOnlyError{Operation: event.Operation, Table: event.Table}
	}
}

// ReadOnlyError is returned by ReadOnlyMiddleware.
type ReadOnlyError struct {
	Operation string
	Table     string
}

func (e *ReadOnlyError) Error() string {
	if e.Table == "" {
		return "read-only client: " + e.Operation + " rejected"
	}
	return "read-only client: " + e.Operation + " on " + e.Table + " rejected"
}
