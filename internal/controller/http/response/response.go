// Package response writes the API envelopes. Every failure goes through
// Responder.Error, which classifies it, logs it and renders
// {success:false, error}.
package response

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Egor213/JewelCRM/internal/apierr"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type Responder struct {
	logger       *eventlog.Logger
	counters     *metrics.Counters
	legacyStatus bool
	now          func() time.Time
}

type Option func(*Responder)

func WithCounters(c *metrics.Counters) Option {
	return func(r *Responder) {
		r.counters = c
	}
}

// WithLegacyConstraintStatus answers duplicate and foreign key violations
// with 500 as older clients expect.
func WithLegacyConstraintStatus(enabled bool) Option {
	return func(r *Responder) {
		r.legacyStatus = enabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Responder) {
		if now != nil {
			r.now = now
		}
	}
}

func New(logger *eventlog.Logger, opts ...Option) *Responder {
	r := &Responder{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Error classifies err and writes the failure envelope.
func (r *Responder) Error(c echo.Context, err error) error {
	return r.write(c, r.classify(err))
}

// Database is Error for failures known to come from the database layer.
func (r *Responder) Database(c echo.Context, err error) error {
	return r.write(c, apierr.FromDatabase(err))
}

func (r *Responder) Success(c echo.Context, status int, data any, message string) error {
	if status == 0 {
		status = http.StatusOK
	}
	body := apierr.Success(data, message)
	body.Timestamp = apierr.Timestamp(r.now())
	return c.JSON(status, body)
}

// HTTPErrorHandler plugs the responder into echo for errors raised outside
// the monitored chain.
func (r *Responder) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if werr := r.Error(c, err); werr != nil {
		log.WithError(werr).Error("Failed to write error response")
	}
}

func (r *Responder) classify(err error) *apierr.APIError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fromHTTPError(he)
	}
	return apierr.Classify(err)
}

func (r *Responder) write(c echo.Context, classified *apierr.APIError) error {
	if classified == nil {
		classified = apierr.Internal(nil)
	}
	// classified may be a shared value; stamp a copy.
	e := *classified

	req := c.Request()
	ctx := req.Context()
	e.Path = req.URL.Path
	e.Method = req.Method
	e.Timestamp = apierr.Timestamp(r.now())

	info, _ := requestctx.Info(ctx)
	if id, ok := requestctx.Identity(ctx); ok {
		e.UserID = id.UserID
	} else {
		e.UserID = info.UserID
	}

	if e.Status == 0 {
		e.Status = apierr.StatusFor(e.Code)
	}
	if r.legacyStatus {
		if legacy := apierr.LegacyStatusFor(e.Code); legacy != apierr.StatusFor(e.Code) {
			e.Status = legacy
		}
	}

	if r.logger != nil {
		r.logger.Error(ctx, "API Error: "+string(e.Code)+" - "+e.Message, causeOf(&e), map[string]any{
			"code":      string(e.Code),
			"status":    e.Status,
			"path":      e.Path,
			"method":    e.Method,
			"requestId": info.RequestID,
		})
	}
	if r.counters != nil && r.counters.APIErrors != nil {
		r.counters.APIErrors.Inc(string(e.Code), strconv.Itoa(e.Status))
	}

	if c.Response().Committed {
		return nil
	}
	return c.JSON(e.Status, apierr.Failure(&e))
}

func causeOf(e *apierr.APIError) error {
	if e.Err != nil {
		return e.Err
	}
	return e
}

func fromHTTPError(he *echo.HTTPError) *apierr.APIError {
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}

	var e *apierr.APIError
	switch he.Code {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		e = apierr.Wrap(apierr.CodeValidationError, msg, nil, he)
	case http.StatusUnauthorized:
		e = apierr.Wrap(apierr.CodeUnauthenticated, msg, nil, he)
	case http.StatusForbidden:
		e = apierr.Wrap(apierr.CodeUnauthorized, msg, nil, he)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		e = apierr.Wrap(apierr.CodeNotFound, msg, nil, he)
	case http.StatusTooManyRequests:
		e = apierr.Wrap(apierr.CodeRateLimitExceeded, msg, nil, he)
	default:
		return apierr.Internal(he)
	}
	e.Status = he.Code
	return e
}
