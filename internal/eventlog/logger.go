// Package eventlog is the buffered structured event sink of the API.
//
// Entries are kept in a bounded in-memory batch and handed to a Sink either
// when the batch fills up or on the periodic flush. Delivery is best effort:
// sink failures are reported through logrus and never reach the caller.
package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/Egor213/JewelCRM/pkg/batchbuf"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBufferSize    = 100
	DefaultFlushInterval = 30 * time.Second
	defaultFlushTimeout  = 10 * time.Second
	pendingBatches       = 16
)

type Sink interface {
	Write(ctx context.Context, entries []domain.LogEntry) error
}

type Logger struct {
	buf           *batchbuf.Buffer[domain.LogEntry]
	bufferSize    int
	sink          Sink
	sinkName      string
	mirror        bool
	out           *log.Logger
	counters      *metrics.Counters
	flushInterval time.Duration
	flushTimeout  time.Duration
	now           func() time.Time

	// mu orders hand-offs against the Run loop shutting down.
	mu      sync.Mutex
	running bool
	batches chan []domain.LogEntry
}

func New(opts ...Option) *Logger {
	l := &Logger{
		bufferSize:    DefaultBufferSize,
		sinkName:      "none",
		out:           log.StandardLogger(),
		flushInterval: DefaultFlushInterval,
		flushTimeout:  defaultFlushTimeout,
		now:           time.Now,
		batches:       make(chan []domain.LogEntry, pendingBatches),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.buf = batchbuf.New[domain.LogEntry](l.bufferSize)
	return l
}

func (l *Logger) Log(ctx context.Context, level domain.LogLevel, message string, metadata map[string]any) {
	l.record(l.newEntry(ctx, level, message, metadata))
}

func (l *Logger) Debug(ctx context.Context, message string, metadata map[string]any) {
	l.Log(ctx, domain.LevelDebug, message, metadata)
}

func (l *Logger) Info(ctx context.Context, message string, metadata map[string]any) {
	l.Log(ctx, domain.LevelInfo, message, metadata)
}

func (l *Logger) Warn(ctx context.Context, message string, metadata map[string]any) {
	l.Log(ctx, domain.LevelWarn, message, metadata)
}

func (l *Logger) Error(ctx context.Context, message string, err error, metadata map[string]any) {
	entry := l.newEntry(ctx, domain.LevelError, message, metadata)
	entry.Error = captureError(err)
	l.record(entry)
}

// Fatal records a fatal entry. Terminating the process is left to the caller.
func (l *Logger) Fatal(ctx context.Context, message string, err error, metadata map[string]any) {
	entry := l.newEntry(ctx, domain.LevelFatal, message, metadata)
	entry.Error = captureError(err)
	l.record(entry)
}

// Flush hands the buffered entries to the sink.
func (l *Logger) Flush(ctx context.Context) {
	l.deliver(ctx, l.buf.Drain())
}

// Run flushes every flush interval and delivers capacity-triggered batches
// until ctx is done, then flushes what is left.
func (l *Logger) Run(ctx context.Context) {
	l.setRunning(true)
	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.setRunning(false)
			l.drainPending()
			l.Flush(context.Background())
			return
		case <-ticker.C:
			l.Flush(ctx)
		case batch := <-l.batches:
			l.deliver(ctx, batch)
		}
	}
}

// Buffered returns a copy of the entries waiting for the next flush.
func (l *Logger) Buffered() []domain.LogEntry {
	return l.buf.Snapshot()
}

func (l *Logger) newEntry(ctx context.Context, level domain.LogLevel, message string, metadata map[string]any) domain.LogEntry {
	entry := domain.LogEntry{
		Level:     level,
		Message:   message,
		Timestamp: l.now(),
		Metadata:  metadata,
	}
	if info, ok := requestctx.Info(ctx); ok {
		entry.RequestID = info.RequestID
		entry.UserID = info.UserID
		entry.SessionID = info.SessionID
		entry.Path = info.Path
		entry.Method = info.Method
	}
	return entry
}

func (l *Logger) record(entry domain.LogEntry) {
	if l.mirror {
		l.mirrorEntry(entry)
	}
	if batch := l.buf.Push(entry); batch != nil {
		l.handOff(batch)
	}
}

// handOff passes a full batch to the Run loop, or delivers it inline when the
// loop is not running or is backed up.
func (l *Logger) handOff(batch []domain.LogEntry) {
	l.mu.Lock()
	queued := false
	if l.running {
		select {
		case l.batches <- batch:
			queued = true
		default:
		}
	}
	l.mu.Unlock()

	if !queued {
		l.deliver(context.Background(), batch)
	}
}

func (l *Logger) setRunning(running bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = running
}

func (l *Logger) drainPending() {
	for {
		select {
		case batch := <-l.batches:
			l.deliver(context.Background(), batch)
		default:
			return
		}
	}
}

func (l *Logger) deliver(ctx context.Context, batch []domain.LogEntry) {
	if len(batch) == 0 || l.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, l.flushTimeout)
	defer cancel()

	if err := l.sink.Write(ctx, batch); err != nil {
		l.out.WithError(err).WithFields(log.Fields{
			"sink":       l.sinkName,
			"batch_size": len(batch),
		}).Error("Failed to flush event log batch")
		l.countFlush("failed")
		return
	}
	l.countFlush("ok")
}

func (l *Logger) countFlush(status string) {
	if l.counters == nil || l.counters.LogsFlushed == nil {
		return
	}
	l.counters.LogsFlushed.Inc(l.sinkName, status)
}

var mirrorLevels = map[domain.LogLevel]log.Level{
	domain.LevelDebug: log.DebugLevel,
	domain.LevelInfo:  log.InfoLevel,
	domain.LevelWarn:  log.WarnLevel,
	domain.LevelError: log.ErrorLevel,
	domain.LevelFatal: log.FatalLevel,
}

func (l *Logger) mirrorEntry(entry domain.LogEntry) {
	fields := log.Fields{}
	for k, v := range entry.Metadata {
		fields[k] = v
	}
	if entry.RequestID != "" {
		fields["request_id"] = entry.RequestID
	}
	if entry.UserID != "" {
		fields["user_id"] = entry.UserID
	}
	if entry.SessionID != "" {
		fields["session_id"] = entry.SessionID
	}
	if entry.Method != "" {
		fields["method"] = entry.Method
	}
	if entry.Path != "" {
		fields["path"] = entry.Path
	}
	if entry.Duration > 0 {
		fields["duration_ms"] = entry.Duration.Milliseconds()
	}
	if entry.Error != nil {
		fields["error"] = entry.Error.Message
		fields["error_type"] = entry.Error.Name
	}

	level, ok := mirrorLevels[entry.Level]
	if !ok {
		level = log.InfoLevel
	}
	// Entry.Log never exits, even at FatalLevel.
	l.out.WithFields(fields).Log(level, entry.Message)
}

type stackTracer interface {
	Stack() []byte
}

func captureError(err error) *domain.CapturedError {
	if err == nil {
		return nil
	}
	captured := &domain.CapturedError{
		Name:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}
	if st, ok := err.(stackTracer); ok {
		captured.Stack = string(st.Stack())
	}
	return captured
}
