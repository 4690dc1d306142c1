package eventlog

import (
	"time"

	"github.com/Egor213/JewelCRM/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type Option func(*Logger)

// WithSink sets where flushed batches go. Without a sink flushed entries are
// dropped.
func WithSink(name string, sink Sink) Option {
	return func(l *Logger) {
		l.sink = sink
		l.sinkName = name
	}
}

// WithMirror copies every entry to the logrus output. Production builds turn
// it off.
func WithMirror(mirror bool) Option {
	return func(l *Logger) {
		l.mirror = mirror
	}
}

func WithOutput(out *log.Logger) Option {
	return func(l *Logger) {
		if out != nil {
			l.out = out
		}
	}
}

func WithBufferSize(size int) Option {
	return func(l *Logger) {
		l.bufferSize = size
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.flushInterval = d
		}
	}
}

func WithFlushTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.flushTimeout = d
		}
	}
}

func WithCounters(c *metrics.Counters) Option {
	return func(l *Logger) {
		l.counters = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}
