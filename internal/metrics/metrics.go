package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Counter interface {
	Inc(labels ...string)
}

type Observer interface {
	Observe(d time.Duration, labels ...string)
}

type Counters struct {
	HTTPRequests  Counter
	APIErrors     Counter
	RateLimitHits Counter
	LogsFlushed   Counter

	OperationDuration Observer
}

type PrometheusCounter struct {
	counter *prometheus.CounterVec
}

func NewPrometheusCounter(name, help string, labels []string) *PrometheusCounter {
	c := newCounter(name, help, labels)
	prometheus.MustRegister(c.counter)
	return c
}

func newCounter(name, help string, labels []string) *PrometheusCounter {
	return &PrometheusCounter{
		counter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jewelcrm",
			Name:      name,
			Help:      help,
		}, labels),
	}
}

func (p *PrometheusCounter) Inc(labels ...string) {
	p.counter.WithLabelValues(labels...).Inc()
}

type PrometheusHistogram struct {
	histogram *prometheus.HistogramVec
}

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

func NewPrometheusHistogram(name, help string, labels []string) *PrometheusHistogram {
	h := newHistogram(name, help, labels)
	prometheus.MustRegister(h.histogram)
	return h
}

func newHistogram(name, help string, labels []string) *PrometheusHistogram {
	return &PrometheusHistogram{
		histogram: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jewelcrm",
			Name:      name,
			Help:      help,
			Buckets:   durationBuckets,
		}, labels),
	}
}

func (p *PrometheusHistogram) Observe(d time.Duration, labels ...string) {
	p.histogram.WithLabelValues(labels...).Observe(d.Seconds())
}

const (
	httpRequestsName      = "http_requests_total"
	httpRequestsHelp      = "Number of processed HTTP requests"
	apiErrorsName         = "api_errors_total"
	apiErrorsHelp         = "Number of error envelopes by taxonomy code"
	rateLimitHitsName     = "rate_limit_hits_total"
	rateLimitHitsHelp     = "Number of rate-limited requests"
	logsFlushedName       = "event_logs_flushed_total"
	logsFlushedHelp       = "Number of flushed log batches by sink result"
	operationDurationName = "operation_duration_seconds"
	operationDurationHelp = "Duration of monitored API and database operations"
)

var (
	httpRequestsLabels      = []string{"method", "route", "status"}
	apiErrorsLabels         = []string{"code", "status"}
	rateLimitHitsLabels     = []string{"route", "key"}
	logsFlushedLabels       = []string{"sink", "status"}
	operationDurationLabels = []string{"kind", "operation"}
)

func New() *Counters {
	return &Counters{
		HTTPRequests:      NewPrometheusCounter(httpRequestsName, httpRequestsHelp, httpRequestsLabels),
		APIErrors:         NewPrometheusCounter(apiErrorsName, apiErrorsHelp, apiErrorsLabels),
		RateLimitHits:     NewPrometheusCounter(rateLimitHitsName, rateLimitHitsHelp, rateLimitHitsLabels),
		LogsFlushed:       NewPrometheusCounter(logsFlushedName, logsFlushedHelp, logsFlushedLabels),
		OperationDuration: NewPrometheusHistogram(operationDurationName, operationDurationHelp, operationDurationLabels),
	}
}

// NewTestCounters registers the collectors on a private registry so tests
// can build as many instances as they need.
func NewTestCounters() *Counters {
	reg := prometheus.NewRegistry()

	httpRequests := newCounter(httpRequestsName, httpRequestsHelp, httpRequestsLabels)
	apiErrors := newCounter(apiErrorsName, apiErrorsHelp, apiErrorsLabels)
	rateLimitHits := newCounter(rateLimitHitsName, rateLimitHitsHelp, rateLimitHitsLabels)
	logsFlushed := newCounter(logsFlushedName, logsFlushedHelp, logsFlushedLabels)
	operationDuration := newHistogram(operationDurationName, operationDurationHelp, operationDurationLabels)

	reg.MustRegister(httpRequests.counter)
	reg.MustRegister(apiErrors.counter)
	reg.MustRegister(rateLimitHits.counter)
	reg.MustRegister(logsFlushed.counter)
	reg.MustRegister(operationDuration.histogram)

	return &Counters{
		HTTPRequests:      httpRequests,
		APIErrors:         apiErrors,
		RateLimitHits:     rateLimitHits,
		LogsFlushed:       logsFlushed,
		OperationDuration: operationDuration,
	}
}
