package middleware_test

import (
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Egor213/JewelCRM/internal/controller/http/middleware"
	"github.com/Egor213/JewelCRM/internal/controller/http/response"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/perfmon"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type envelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
		Path    string         `json:"path"`
		Method  string         `json:"method"`
		UserID  string         `json:"userId"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type stack struct {
	echo      *echo.Echo
	logger    *eventlog.Logger
	perf      *perfmon.Monitor
	counters  *metrics.Counters
	responder *response.Responder
}

func newStack() stack {
	out, _ := test.NewNullLogger()
	counters := metrics.NewTestCounters()
	logger := eventlog.New(eventlog.WithOutput(out), eventlog.WithBufferSize(1000))
	perf := perfmon.New(logger, perfmon.WithCounters(counters))
	responder := response.New(logger, response.WithCounters(counters))

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = responder.HTTPErrorHandler
	e.Use(middleware.Monitor(middleware.MonitorConfig{
		Logger:    logger,
		Perf:      perf,
		Responder: responder,
		Counters:  counters,
	}))

	return stack{echo: e, logger: logger, perf: perf, counters: counters, responder: responder}
}
