// Package dbmon wraps outbound database calls with timing and logging.
//
// Calls that return (value, error) and calls that return a Result go through
// the same monitored path: Call adapts the former into a Result and back.
package dbmon

import (
	"context"
	"reflect"
	"time"

	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/perfmon"
)

// Result is the outcome of a database call. Count is the number of rows the
// call returned or affected.
type Result[T any] struct {
	Data  T
	Err   error
	Count int
}

func (r Result[T]) Unwrap() (T, error) {
	return r.Data, r.Err
}

func OK[T any](data T, count int) Result[T] {
	return Result[T]{Data: data, Count: count}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

type Monitor struct {
	log  *eventlog.Logger
	perf *perfmon.Monitor
}

func New(logger *eventlog.Logger, perf *perfmon.Monitor) *Monitor {
	return &Monitor{log: logger, perf: perf}
}

// Query runs fn, records its duration and logs the outcome. The result is
// returned unchanged.
func Query[T any](ctx context.Context, m *Monitor, operation, table string, fn func(ctx context.Context) Result[T]) Result[T] {
	if m == nil {
		return fn(ctx)
	}

	var stop func(int, error)
	if m.perf != nil {
		stop = m.perf.StartDatabaseTimer(ctx, operation, table)
	}
	started := time.Now()

	res := fn(ctx)

	if stop != nil {
		stop(res.Count, res.Err)
	}
	if m.log != nil {
		m.log.LogDatabaseOperation(ctx, operation, table, time.Since(started), res.Err, map[string]any{
			"rowCount": res.Count,
		})
	}
	return res
}

// Call monitors a function following the (value, error) convention. The error
// is returned to the caller as is.
func Call[T any](ctx context.Context, m *Monitor, operation, table string, fn func(ctx context.Context) (T, error)) (T, error) {
	return Query(ctx, m, operation, table, func(ctx context.Context) Result[T] {
		data, err := fn(ctx)
		if err != nil {
			return Result[T]{Data: data, Err: err}
		}
		return OK(data, countRows(data))
	}).Unwrap()
}

func Exec(ctx context.Context, m *Monitor, operation, table string, fn func(ctx context.Context) (int64, error)) error {
	_, err := Query(ctx, m, operation, table, func(ctx context.Context) Result[int64] {
		affected, err := fn(ctx)
		return Result[int64]{Data: affected, Err: err, Count: int(affected)}
	}).Unwrap()
	return err
}

// countRows is the slice length for slices and 1 for any other value.
func countRows(v any) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len()
	case reflect.Invalid:
		return 0
	case reflect.Pointer:
		if rv.IsNil() {
			return 0
		}
	}
	return 1
}
