package httpv1

import (
	"net/http"

	"github.com/Egor213/JewelCRM/internal/apierr"
	"github.com/Egor213/JewelCRM/internal/controller/http/response"
	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/perfmon"
	"github.com/labstack/echo/v4"
)

type observabilityRoutes struct {
	perf      *perfmon.Monitor
	responder *response.Responder
}

func newObservabilityRoutes(perf *perfmon.Monitor, r *response.Responder) *observabilityRoutes {
	return &observabilityRoutes{perf: perf, responder: r}
}

// performance reports the summaries of the metrics collected since the last
// flush, optionally narrowed to one kind.
func (r *observabilityRoutes) performance(c echo.Context) error {
	if r.perf == nil {
		return r.responder.Success(c, http.StatusOK, []domain.MetricSummary{}, "")
	}

	switch kind := domain.MetricKind(c.QueryParam("kind")); kind {
	case "":
		return r.responder.Success(c, http.StatusOK, r.perf.Summaries(), "")
	case domain.MetricAPI, domain.MetricDatabase, domain.MetricCustom:
		return r.responder.Success(c, http.StatusOK, []domain.MetricSummary{r.perf.Summary(kind)}, "")
	default:
		return apierr.Validation([]apierr.FieldError{{Field: "kind", Message: "Kind must be one of api, database, custom"}})
	}
}
