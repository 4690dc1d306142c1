package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/Egor213/JewelCRM/internal/controller/http/response"
	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/perfmon"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderRequestID    = "X-Request-ID"
	HeaderResponseTime = "X-Response-Time"
	HeaderUserID       = "X-User-ID"
	HeaderSessionID    = "X-Session-ID"

	CookieUserID    = "user-id"
	CookieSessionID = "session-id"

	maxRequestIDLen = 128
)

type MonitorConfig struct {
	Skipper   echomw.Skipper
	Logger    *eventlog.Logger
	Perf      *perfmon.Monitor
	Responder *response.Responder
	Counters  *metrics.Counters
	Now       func() time.Time
}

// PanicError carries a recovered panic value with the goroutine stack.
type PanicError struct {
	Value any
	stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Stack() []byte {
	return e.stack
}

// Monitor correlates, times and logs every request and turns any error or
// panic from the chain below into the error envelope.
func Monitor(cfg MonitorConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = echomw.DefaultSkipper
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Responder == nil {
		cfg.Responder = response.New(cfg.Logger, response.WithCounters(cfg.Counters))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			req := c.Request()
			res := c.Response()
			start := cfg.Now()

			info := domain.RequestInfo{
				RequestID: requestID(req),
				UserID:    hint(req, HeaderUserID, CookieUserID),
				SessionID: hint(req, HeaderSessionID, CookieSessionID),
				Method:    req.Method,
				Path:      req.URL.Path,
				StartedAt: start,
			}
			ctx := requestctx.WithInfo(req.Context(), info)
			c.SetRequest(req.WithContext(ctx))

			res.Header().Set(HeaderRequestID, info.RequestID)
			res.Before(func() {
				elapsed := cfg.Now().Sub(start)
				res.Header().Set(HeaderResponseTime, strconv.FormatInt(elapsed.Milliseconds(), 10)+"ms")
			})

			var stop func(int, int64, int64)
			if cfg.Perf != nil {
				stop = cfg.Perf.StartAPITimer(ctx, info.Method, routeLabel(c), info.Path)
			}
			if cfg.Logger != nil {
				cfg.Logger.LogAPIRequest(ctx, info.Method, info.Path, map[string]any{
					"userAgent": req.UserAgent(),
					"ip":        c.RealIP(),
				})
			}

			if err := runSafely(next, c); err != nil {
				if werr := cfg.Responder.Error(c, err); werr != nil {
					c.Logger().Error(werr)
				}
			}
			if !res.Committed {
				res.WriteHeader(res.Status)
			}

			// Downstream middleware may have attached a verified identity.
			ctx = c.Request().Context()
			status := res.Status

			if cfg.Logger != nil {
				cfg.Logger.LogAPIResponse(ctx, info.Method, info.Path, status, cfg.Now().Sub(start), map[string]any{
					"responseSize": res.Size,
				})
			}
			if stop != nil {
				stop(status, req.ContentLength, res.Size)
			}
			if cfg.Counters != nil && cfg.Counters.HTTPRequests != nil {
				cfg.Counters.HTTPRequests.Inc(info.Method, routeLabel(c), strconv.Itoa(status))
			}
			return nil
		}
	}
}

func runSafely(next echo.HandlerFunc, c echo.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == http.ErrAbortHandler {
				panic(r)
			}
			err = &PanicError{Value: r, stack: debug.Stack()}
		}
	}()
	return next(c)
}

// requestID keeps a sane inbound id, falls back to the active trace id and
// finally mints a new UUID.
func requestID(req *http.Request) string {
	if id := req.Header.Get(HeaderRequestID); validRequestID(id) {
		return id
	}
	if sc := trace.SpanContextFromContext(req.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}

// hint reads an unverified identity hint from a header or a cookie.
func hint(req *http.Request, header, cookie string) string {
	if v := req.Header.Get(header); v != "" {
		return v
	}
	if ck, err := req.Cookie(cookie); err == nil {
		return ck.Value
	}
	return ""
}

func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
