package eventlog_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]domain.LogEntry
	err     error
}

func (s *recordingSink) Write(_ context.Context, entries []domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, entries)
	return s.err
}

func (s *recordingSink) Batches() [][]domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]domain.LogEntry, len(s.batches))
	copy(out, s.batches)
	return out
}

func newQuietLogger(opts ...eventlog.Option) (*eventlog.Logger, *test.Hook) {
	out, hook := test.NewNullLogger()
	out.SetLevel(log.DebugLevel)
	opts = append([]eventlog.Option{eventlog.WithOutput(out)}, opts...)
	return eventlog.New(opts...), hook
}

func TestLogger_FlushesWhenBufferFills(t *testing.T) {
	sink := &recordingSink{}
	l, _ := newQuietLogger(eventlog.WithBufferSize(3), eventlog.WithSink("test", sink))
	ctx := context.Background()

	l.Info(ctx, "one", nil)
	l.Info(ctx, "two", nil)
	assert.Len(t, l.Buffered(), 2)
	assert.Empty(t, sink.Batches())

	l.Info(ctx, "three", nil)

	batches := sink.Batches()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
	assert.Equal(t, "three", batches[0][2].Message)
	assert.Empty(t, l.Buffered())
}

func TestLogger_BufferNeverExceedsCapacity(t *testing.T) {
	l, _ := newQuietLogger(eventlog.WithBufferSize(eventlog.DefaultBufferSize))
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		l.Debug(ctx, "tick", nil)
		assert.Less(t, len(l.Buffered()), eventlog.DefaultBufferSize)
	}
	assert.Len(t, l.Buffered(), 50)
}

func TestLogger_FlushSwapsBuffer(t *testing.T) {
	sink := &recordingSink{}
	l, _ := newQuietLogger(eventlog.WithSink("test", sink))
	ctx := context.Background()

	l.Warn(ctx, "a", nil)
	l.Warn(ctx, "b", nil)
	l.Flush(ctx)

	require.Len(t, sink.Batches(), 1)
	assert.Len(t, sink.Batches()[0], 2)
	assert.Empty(t, l.Buffered())

	l.Flush(ctx)
	assert.Len(t, sink.Batches(), 1, "empty flush must not reach the sink")
}

func TestLogger_SinkFailureDoesNotPropagate(t *testing.T) {
	sink := &recordingSink{err: errors.New("kafka unavailable")}
	counters := metrics.NewTestCounters()
	l, hook := newQuietLogger(
		eventlog.WithBufferSize(2),
		eventlog.WithSink("kafka", sink),
		eventlog.WithCounters(counters),
	)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		l.Error(ctx, "first", errors.New("x"), nil)
		l.Error(ctx, "second", errors.New("y"), nil)
	})

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Failed to flush event log batch", hook.LastEntry().Message)
	assert.Equal(t, "kafka", hook.LastEntry().Data["sink"])
	assert.Empty(t, l.Buffered())
}

func TestLogger_CorrelationFromContext(t *testing.T) {
	l, _ := newQuietLogger()
	ctx := requestctx.WithInfo(context.Background(), domain.RequestInfo{
		RequestID: "req-9",
		UserID:    "u-1",
		SessionID: "s-1",
		Method:    http.MethodPost,
		Path:      "/api/v1/customers",
	})

	l.Info(ctx, "hello", map[string]any{"k": "v"})

	entries := l.Buffered()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, domain.LevelInfo, e.Level)
	assert.Equal(t, "req-9", e.RequestID)
	assert.Equal(t, "u-1", e.UserID)
	assert.Equal(t, "s-1", e.SessionID)
	assert.Equal(t, http.MethodPost, e.Method)
	assert.Equal(t, "/api/v1/customers", e.Path)
	assert.Equal(t, "v", e.Metadata["k"])
	assert.False(t, e.Timestamp.IsZero())
}

func TestLogger_ErrorCapturesCause(t *testing.T) {
	l, _ := newQuietLogger()
	l.Error(context.Background(), "failed", errors.New("disk full"), nil)
	l.Fatal(context.Background(), "fatal", nil, nil)

	entries := l.Buffered()
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Error)
	assert.Equal(t, "disk full", entries[0].Error.Message)
	assert.Equal(t, "*errors.errorString", entries[0].Error.Name)
	assert.Equal(t, domain.LevelFatal, entries[1].Level)
	assert.Nil(t, entries[1].Error)
}

func TestLogger_Mirror(t *testing.T) {
	testCases := []struct {
		name      string
		mirror    bool
		wantLines int
	}{
		{"development mirrors to console", true, 1},
		{"production does not mirror", false, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, hook := newQuietLogger(eventlog.WithMirror(tc.mirror))
			l.Warn(context.Background(), "careful", map[string]any{"item": "ring"})

			assert.Len(t, hook.AllEntries(), tc.wantLines)
			if tc.wantLines > 0 {
				assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
				assert.Equal(t, "ring", hook.LastEntry().Data["item"])
			}
		})
	}
}

func TestLogger_MirrorFatalDoesNotExit(t *testing.T) {
	l, hook := newQuietLogger(eventlog.WithMirror(true))
	l.Fatal(context.Background(), "bad", errors.New("x"), nil)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, log.FatalLevel, hook.LastEntry().Level)
}

func TestLogger_RunFlushesPeriodicallyAndOnShutdown(t *testing.T) {
	sink := &recordingSink{}
	l, _ := newQuietLogger(
		eventlog.WithSink("test", sink),
		eventlog.WithFlushInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	l.Info(context.Background(), "periodic", nil)
	assert.Eventually(t, func() bool { return len(sink.Batches()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	l.Info(context.Background(), "after shutdown", nil)
	l.Flush(context.Background())
	assert.Len(t, sink.Batches(), 2)
}

func TestLogger_RunDeliversCapacityBatches(t *testing.T) {
	sink := &recordingSink{}
	l, _ := newQuietLogger(
		eventlog.WithSink("test", sink),
		eventlog.WithBufferSize(2),
		eventlog.WithFlushInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	for i := 0; i < 4; i++ {
		l.Info(context.Background(), "entry", nil)
	}

	assert.Eventually(t, func() bool {
		total := 0
		for _, b := range sink.Batches() {
			total += len(b)
		}
		return total == 4
	}, time.Second, 5*time.Millisecond)
}

func TestLogger_ShutdownLosesNoBatches(t *testing.T) {
	const producers, perProducer = 8, 250

	sink := &recordingSink{}
	l, _ := newQuietLogger(
		eventlog.WithSink("test", sink),
		eventlog.WithBufferSize(5),
		eventlog.WithFlushInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				l.Info(context.Background(), "entry", nil)
			}
		}()
	}
	time.Sleep(time.Millisecond)
	cancel()
	<-done
	wg.Wait()
	l.Flush(context.Background())

	total := 0
	for _, b := range sink.Batches() {
		total += len(b)
	}
	assert.Equal(t, producers*perProducer, total)
}
