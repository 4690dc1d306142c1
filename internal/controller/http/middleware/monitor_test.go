package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Egor213/JewelCRM/internal/apierr"
	"github.com/Egor213/JewelCRM/internal/controller/http/middleware"
	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Success(t *testing.T) {
	s := newStack()
	var seen domain.RequestInfo
	s.echo.GET("/ping", func(c echo.Context) error {
		seen, _ = requestctx.Info(c.Request().Context())
		return c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-123")
	req.Header.Set(middleware.HeaderUserID, "u-hint")
	req.AddCookie(&http.Cookie{Name: middleware.CookieSessionID, Value: "s-cookie"})
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(middleware.HeaderRequestID))
	assert.Regexp(t, `^\d+ms$`, rec.Header().Get(middleware.HeaderResponseTime))

	assert.Equal(t, "req-123", seen.RequestID)
	assert.Equal(t, "u-hint", seen.UserID)
	assert.Equal(t, "s-cookie", seen.SessionID)
	assert.False(t, seen.Verified)

	entries := s.logger.Buffered()
	require.Len(t, entries, 2)
	assert.Equal(t, "API Request: GET /ping", entries[0].Message)
	assert.Equal(t, "API Response: GET /ping - 200", entries[1].Message)
	for _, e := range entries {
		assert.Equal(t, "req-123", e.RequestID)
		assert.Equal(t, "u-hint", e.UserID)
	}

	metrics := s.perf.Metrics()
	require.Len(t, metrics, 1)
	assert.Equal(t, domain.MetricAPI, metrics[0].Kind)
	assert.Equal(t, http.StatusOK, metrics[0].StatusCode)
	assert.True(t, metrics[0].Success)
}

func TestMonitor_GeneratesRequestID(t *testing.T) {
	testCases := []struct {
		name    string
		inbound string
	}{
		{name: "missing", inbound: ""},
		{name: "unsafe characters", inbound: "bad id\n<script>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStack()
			s.echo.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.inbound != "" {
				req.Header.Set(middleware.HeaderRequestID, tc.inbound)
			}
			rec := httptest.NewRecorder()
			s.echo.ServeHTTP(rec, req)

			id := rec.Header().Get(middleware.HeaderRequestID)
			_, err := uuid.Parse(id)
			assert.NoError(t, err)
		})
	}
}

func TestMonitor_ErrorBecomesEnvelope(t *testing.T) {
	testCases := []struct {
		name       string
		handlerErr error
		wantStatus int
		wantCode   apierr.Code
	}{
		{
			name:       "api error",
			handlerErr: apierr.NotFound("Customer"),
			wantStatus: http.StatusNotFound,
			wantCode:   apierr.CodeNotFound,
		},
		{
			name:       "plain error",
			handlerErr: errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apierr.CodeInternalServerError,
		},
		{
			name:       "echo error",
			handlerErr: echo.NewHTTPError(http.StatusBadRequest, "bad payload"),
			wantStatus: http.StatusBadRequest,
			wantCode:   apierr.CodeValidationError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStack()
			s.echo.GET("/fail", func(c echo.Context) error { return tc.handlerErr })

			req := httptest.NewRequest(http.MethodGet, "/fail", nil)
			rec := httptest.NewRecorder()
			s.echo.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
			assert.Regexp(t, `^\d+ms$`, rec.Header().Get(middleware.HeaderResponseTime))

			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, string(tc.wantCode), env.Error.Code)
			assert.Equal(t, "/fail", env.Error.Path)
			assert.Equal(t, http.MethodGet, env.Error.Method)

			var logged bool
			for _, e := range s.logger.Buffered() {
				if e.Level == domain.LevelError && e.Error != nil {
					logged = true
				}
			}
			assert.True(t, logged)
		})
	}
}

func TestMonitor_RecoversPanic(t *testing.T) {
	s := newStack()
	s.echo.GET("/panic", func(c echo.Context) error {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rec := httptest.NewRecorder()

	require.NotPanics(t, func() { s.echo.ServeHTTP(rec, req) })

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(apierr.CodeInternalServerError), env.Error.Code)
	assert.Equal(t, "An unexpected error occurred", env.Error.Message)
	assert.NotContains(t, rec.Body.String(), "kaboom")

	var captured *domain.CapturedError
	for _, e := range s.logger.Buffered() {
		if e.Error != nil {
			captured = e.Error
		}
	}
	require.NotNil(t, captured)
	assert.Contains(t, captured.Message, "kaboom")
	assert.NotEmpty(t, captured.Stack)
}

func TestMonitor_UnknownRoute(t *testing.T) {
	s := newStack()

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(apierr.CodeNotFound), env.Error.Code)
}

func TestMonitor_HandlerWritesNothing(t *testing.T) {
	s := newStack()
	s.echo.POST("/noop", func(c echo.Context) error { return nil })

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/noop", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
	assert.Regexp(t, `^\d+ms$`, rec.Header().Get(middleware.HeaderResponseTime))
}

type recordingObserver struct {
	mu     sync.Mutex
	labels map[string]int
}

func (o *recordingObserver) Observe(_ time.Duration, labels ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.labels[strings.Join(labels, "|")]++
}

func TestMonitor_DurationLabelsUseRouteTemplate(t *testing.T) {
	s := newStack()
	observer := &recordingObserver{labels: map[string]int{}}
	s.counters.OperationDuration = observer
	s.echo.GET("/api/v1/customers/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/customers/"+strconv.Itoa(i), nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scan/"+strconv.Itoa(i), nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 50, observer.labels["api|GET /api/v1/customers/:id"])
	assert.LessOrEqual(t, len(observer.labels), 2)

	recorded := s.perf.Metrics()
	require.NotEmpty(t, recorded)
	assert.Equal(t, "/api/v1/customers/0", recorded[0].Path)
}
