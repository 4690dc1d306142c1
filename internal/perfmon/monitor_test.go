package perfmon_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/perfmon"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMonitor(t *testing.T, opts ...perfmon.Option) (*perfmon.Monitor, *eventlog.Logger, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)}
	out, _ := test.NewNullLogger()
	logger := eventlog.New(eventlog.WithOutput(out), eventlog.WithBufferSize(1000))
	opts = append([]perfmon.Option{
		perfmon.WithClock(clock.Now),
		perfmon.WithCounters(metrics.NewTestCounters()),
	}, opts...)
	return perfmon.New(logger, opts...), logger, clock
}

func TestStartAPITimer(t *testing.T) {
	m, _, clock := newMonitor(t)
	ctx := requestctx.WithInfo(context.Background(), domain.RequestInfo{RequestID: "req-1", UserID: "u-1"})

	stop := m.StartAPITimer(ctx, "GET", "/api/v1/customers/:id", "/api/v1/customers/42")
	clock.Advance(40 * time.Millisecond)
	stop(201, 120, 300)

	got := m.Metrics()
	require.Len(t, got, 1)
	assert.Equal(t, domain.MetricAPI, got[0].Kind)
	assert.Equal(t, "GET /api/v1/customers/:id", got[0].Operation)
	assert.Equal(t, "/api/v1/customers/42", got[0].Path)
	assert.Equal(t, 40*time.Millisecond, got[0].Duration)
	assert.Equal(t, 201, got[0].StatusCode)
	assert.Equal(t, int64(120), got[0].RequestSize)
	assert.Equal(t, int64(300), got[0].ResponseSize)
	assert.Equal(t, "req-1", got[0].RequestID)
	assert.Equal(t, "u-1", got[0].UserID)
	assert.True(t, got[0].Success)
}

func TestStartDatabaseTimer(t *testing.T) {
	m, _, clock := newMonitor(t)

	stop := m.StartDatabaseTimer(context.Background(), "insert", "customers")
	clock.Advance(5 * time.Millisecond)
	stop(0, errors.New("duplicate"))

	got := m.Metrics()
	require.Len(t, got, 1)
	assert.Equal(t, domain.MetricDatabase, got[0].Kind)
	assert.Equal(t, "customers", got[0].Table)
	assert.False(t, got[0].Success)
}

func TestSummary(t *testing.T) {
	m, _, clock := newMonitor(t)
	ctx := context.Background()

	for _, d := range []time.Duration{10, 30, 20} {
		stop := m.StartDatabaseTimer(ctx, "select", "customers")
		clock.Advance(d * time.Millisecond)
		stop(3, nil)
	}
	stop := m.StartTimer(ctx, "render")
	clock.Advance(time.Millisecond)
	stop()

	s := m.Summary(domain.MetricDatabase)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 20*time.Millisecond, s.AverageDuration)
	require.NotNil(t, s.Slowest)
	require.NotNil(t, s.Fastest)
	assert.Equal(t, 30*time.Millisecond, s.Slowest.Duration)
	assert.Equal(t, 10*time.Millisecond, s.Fastest.Duration)

	empty := m.Summary(domain.MetricAPI)
	assert.Zero(t, empty.Count)
	assert.Nil(t, empty.Slowest)

	all := m.Summaries()
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[2].Count)
}

func TestSlowOperationIsLogged(t *testing.T) {
	m, logger, clock := newMonitor(t, perfmon.WithSlowThreshold(100*time.Millisecond))

	stop := m.StartDatabaseTimer(context.Background(), "select", "interactions")
	clock.Advance(150 * time.Millisecond)
	stop(1, nil)

	entries := logger.Buffered()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.LevelWarn, entries[0].Level)
	assert.Equal(t, "Slow database operation: select interactions", entries[0].Message)
}

func TestBufferFlushesAtCapacity(t *testing.T) {
	m, logger, _ := newMonitor(t, perfmon.WithBufferSize(4))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		m.StartTimer(ctx, "op")()
	}

	assert.Empty(t, m.Metrics())
	entries := logger.Buffered()
	require.Len(t, entries, 1)
	assert.Equal(t, "Performance summary", entries[0].Message)
	assert.Equal(t, 4, entries[0].Metadata["count"])
}

func TestFlushClears(t *testing.T) {
	m, _, _ := newMonitor(t)
	m.StartTimer(context.Background(), "op")()
	require.Len(t, m.Metrics(), 1)

	m.Flush(context.Background())
	assert.Empty(t, m.Metrics())
}
