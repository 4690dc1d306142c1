// Package perfmon collects API and database timings.
//
// Every metric is observed by the Prometheus histogram immediately and kept
// in a bounded buffer for on-demand summaries. The buffer follows the same
// flush-then-clear policy as the event log: a full buffer is summarised into
// the event log and emptied.
package perfmon

import (
	"context"
	"fmt"
	"time"

	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/Egor213/JewelCRM/pkg/batchbuf"
)

const (
	DefaultBufferSize    = 1000
	DefaultFlushInterval = 5 * time.Minute
	DefaultSlowThreshold = time.Second
)

type Monitor struct {
	buf           *batchbuf.Buffer[domain.PerformanceMetric]
	bufferSize    int
	log           *eventlog.Logger
	counters      *metrics.Counters
	slowThreshold time.Duration
	flushInterval time.Duration
	now           func() time.Time
}

type Option func(*Monitor)

func WithBufferSize(size int) Option {
	return func(m *Monitor) {
		m.bufferSize = size
	}
}

func WithSlowThreshold(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.slowThreshold = d
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.flushInterval = d
		}
	}
}

func WithCounters(c *metrics.Counters) Option {
	return func(m *Monitor) {
		m.counters = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

func New(logger *eventlog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		bufferSize:    DefaultBufferSize,
		log:           logger,
		slowThreshold: DefaultSlowThreshold,
		flushInterval: DefaultFlushInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.buf = batchbuf.New[domain.PerformanceMetric](m.bufferSize)
	return m
}

// StartAPITimer starts timing a request. The operation is named after the
// route template; path is the concrete request path. The returned func
// records the metric.
func (m *Monitor) StartAPITimer(ctx context.Context, method, route, path string) func(status int, requestSize, responseSize int64) {
	start := m.now()
	return func(status int, requestSize, responseSize int64) {
		metric := m.base(ctx, domain.MetricAPI, method+" "+route, start)
		metric.Method = method
		metric.Path = path
		metric.StatusCode = status
		metric.RequestSize = requestSize
		metric.ResponseSize = responseSize
		metric.Success = status < 500
		m.Record(ctx, metric)
	}
}

// StartDatabaseTimer starts timing a database call. The returned func records
// the metric with the affected row count and the call's error, if any.
func (m *Monitor) StartDatabaseTimer(ctx context.Context, operation, table string) func(rowCount int, err error) {
	start := m.now()
	return func(rowCount int, err error) {
		metric := m.base(ctx, domain.MetricDatabase, operation+" "+table, start)
		metric.Table = table
		metric.RowCount = rowCount
		metric.Success = err == nil
		m.Record(ctx, metric)
	}
}

func (m *Monitor) StartTimer(ctx context.Context, operation string) func() {
	start := m.now()
	return func() {
		metric := m.base(ctx, domain.MetricCustom, operation, start)
		metric.Success = true
		m.Record(ctx, metric)
	}
}

func (m *Monitor) Record(ctx context.Context, metric domain.PerformanceMetric) {
	if m.counters != nil && m.counters.OperationDuration != nil {
		m.counters.OperationDuration.Observe(metric.Duration, string(metric.Kind), metric.Operation)
	}

	if metric.Duration >= m.slowThreshold && m.log != nil {
		m.log.Warn(ctx, fmt.Sprintf("Slow %s operation: %s", metric.Kind, metric.Operation), map[string]any{
			"durationMs":  metric.Duration.Milliseconds(),
			"thresholdMs": m.slowThreshold.Milliseconds(),
		})
	}

	if batch := m.buf.Push(metric); batch != nil {
		m.report(ctx, batch)
	}
}

// Metrics returns a copy of the buffered metrics.
func (m *Monitor) Metrics() []domain.PerformanceMetric {
	return m.buf.Snapshot()
}

func (m *Monitor) Summary(kind domain.MetricKind) domain.MetricSummary {
	return summarize(kind, m.buf.Snapshot())
}

func (m *Monitor) Summaries() []domain.MetricSummary {
	snapshot := m.buf.Snapshot()
	return []domain.MetricSummary{
		summarize(domain.MetricAPI, snapshot),
		summarize(domain.MetricDatabase, snapshot),
		summarize(domain.MetricCustom, snapshot),
	}
}

// Flush summarises the buffered metrics into the event log and clears them.
func (m *Monitor) Flush(ctx context.Context) {
	m.report(ctx, m.buf.Drain())
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Flush(context.Background())
			return
		case <-ticker.C:
			m.Flush(ctx)
		}
	}
}

func (m *Monitor) base(ctx context.Context, kind domain.MetricKind, operation string, start time.Time) domain.PerformanceMetric {
	metric := domain.PerformanceMetric{
		Kind:      kind,
		Operation: operation,
		Duration:  m.now().Sub(start),
		Timestamp: start,
	}
	if info, ok := requestctx.Info(ctx); ok {
		metric.RequestID = info.RequestID
		metric.UserID = info.UserID
	}
	return metric
}

func (m *Monitor) report(ctx context.Context, batch []domain.PerformanceMetric) {
	if len(batch) == 0 || m.log == nil {
		return
	}
	for _, kind := range []domain.MetricKind{domain.MetricAPI, domain.MetricDatabase, domain.MetricCustom} {
		s := summarize(kind, batch)
		if s.Count == 0 {
			continue
		}
		meta := map[string]any{
			"kind":              string(kind),
			"count":             s.Count,
			"averageDurationMs": s.AverageDuration.Milliseconds(),
			"slowestOperation":  s.Slowest.Operation,
			"slowestDurationMs": s.Slowest.Duration.Milliseconds(),
		}
		m.log.Info(ctx, "Performance summary", meta)
	}
}

func summarize(kind domain.MetricKind, items []domain.PerformanceMetric) domain.MetricSummary {
	summary := domain.MetricSummary{Kind: kind}

	var total time.Duration
	for i := range items {
		metric := items[i]
		if metric.Kind != kind {
			continue
		}
		summary.Count++
		total += metric.Duration
		if summary.Slowest == nil || metric.Duration > summary.Slowest.Duration {
			summary.Slowest = &metric
		}
		if summary.Fastest == nil || metric.Duration < summary.Fastest.Duration {
			summary.Fastest = &metric
		}
	}
	if summary.Count > 0 {
		summary.AverageDuration = total / time.Duration(summary.Count)
	}
	return summary
}
