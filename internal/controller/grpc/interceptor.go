package grpcctrl

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/Egor213/JewelCRM/internal/apierr"
	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/perfmon"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	errorDomain = "jewelcrm"

	mdRequestID = "x-request-id"
	mdUserID    = "x-user-id"
	mdSessionID = "x-session-id"
)

var grpcCodes = map[apierr.Code]codes.Code{
	apierr.CodeValidationError:     codes.InvalidArgument,
	apierr.CodeUnauthenticated:     codes.Unauthenticated,
	apierr.CodeUnauthorized:        codes.PermissionDenied,
	apierr.CodeNotFound:            codes.NotFound,
	apierr.CodeRateLimitExceeded:   codes.ResourceExhausted,
	apierr.CodeDuplicateEntry:      codes.AlreadyExists,
	apierr.CodeForeignKeyViolation: codes.FailedPrecondition,
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Stack() []byte {
	return e.stack
}

// MonitorUnaryInterceptor is the gRPC counterpart of the HTTP monitor:
// correlation, logging, timing, panic recovery and taxonomy errors carried
// as ErrorInfo details.
func MonitorUnaryInterceptor(logger *eventlog.Logger, perf *perfmon.Monitor, counters *metrics.Counters) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		reqInfo := requestInfo(ctx, info.FullMethod, start)
		ctx = requestctx.WithInfo(ctx, reqInfo)

		var stop func(int, int64, int64)
		if perf != nil {
			stop = perf.StartAPITimer(ctx, "GRPC", info.FullMethod, info.FullMethod)
		}
		if logger != nil {
			logger.LogAPIRequest(ctx, "GRPC", info.FullMethod, nil)
		}

		resp, err = invoke(ctx, req, handler)

		httpStatus := 200
		if err != nil {
			apiErr := apierr.Classify(err)
			httpStatus = apiErr.Status
			if logger != nil {
				logger.Error(ctx, "API Error: "+string(apiErr.Code)+" - "+apiErr.Message, err, map[string]any{
					"code":      string(apiErr.Code),
					"method":    info.FullMethod,
					"requestId": reqInfo.RequestID,
				})
			}
			if counters != nil && counters.APIErrors != nil {
				counters.APIErrors.Inc(string(apiErr.Code), strconv.Itoa(apiErr.Status))
			}
			err = toStatus(apiErr, reqInfo.RequestID)
		}

		if logger != nil {
			logger.LogAPIResponse(ctx, "GRPC", info.FullMethod, httpStatus, time.Since(start), nil)
		}
		if stop != nil {
			stop(httpStatus, 0, 0)
		}
		return resp, err
	}
}

func invoke(ctx context.Context, req any, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return handler(ctx, req)
}

func requestInfo(ctx context.Context, method string, start time.Time) domain.RequestInfo {
	md, _ := metadata.FromIncomingContext(ctx)
	first := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}

	id := first(mdRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	return domain.RequestInfo{
		RequestID: id,
		UserID:    first(mdUserID),
		SessionID: first(mdSessionID),
		Method:    "GRPC",
		Path:      method,
		StartedAt: start,
	}
}

func toStatus(e *apierr.APIError, requestID string) error {
	code, ok := grpcCodes[e.Code]
	if !ok {
		code = codes.Internal
	}

	st := status.New(code, e.Message)
	withDetails, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(e.Code),
		Domain: errorDomain,
		Metadata: map[string]string{
			"requestId": requestID,
			"timestamp": e.Timestamp,
		},
	})
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}
