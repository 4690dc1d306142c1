package httpv1

import (
	"net/http"
	"time"

	"github.com/Egor213/JewelCRM/internal/auth"
	"github.com/Egor213/JewelCRM/internal/controller/http/middleware"
	"github.com/Egor213/JewelCRM/internal/controller/http/response"
	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/perfmon"
	"github.com/Egor213/JewelCRM/internal/service"
	"github.com/labstack/echo/v4"
)

type RouterDeps struct {
	Services      *service.Services
	Responder     *response.Responder
	Authenticator auth.Authenticator
	Limiter       middleware.RateLimiter
	RateLimit     int
	RateWindow    time.Duration
	Logger        *eventlog.Logger
	Perf          *perfmon.Monitor
	Counters      *metrics.Counters
}

func ConfigureRouter(handler *echo.Echo, deps RouterDeps) {
	handler.HTTPErrorHandler = deps.Responder.HTTPErrorHandler
	handler.Use(middleware.Monitor(middleware.MonitorConfig{
		Logger:    deps.Logger,
		Perf:      deps.Perf,
		Responder: deps.Responder,
		Counters:  deps.Counters,
	}))

	handler.GET("/healthz", func(c echo.Context) error {
		return deps.Responder.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "")
	})

	api := handler.Group("/api/v1",
		middleware.Authenticate(deps.Authenticator, deps.Logger),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:  deps.Limiter,
			Max:      deps.RateLimit,
			Window:   deps.RateWindow,
			Logger:   deps.Logger,
			Counters: deps.Counters,
		}),
	)

	customers := newCustomerRoutes(deps.Services.Customer, deps.Responder)
	g := api.Group("/customers")
	g.POST("", customers.create)
	g.GET("", customers.list)
	g.GET("/:id", customers.get)
	g.DELETE("/:id", customers.delete, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager))
	g.POST("/:id/interactions", customers.addInteraction)
	g.GET("/:id/interactions", customers.interactions)

	observability := newObservabilityRoutes(deps.Perf, deps.Responder)
	api.GET("/observability/performance", observability.performance, middleware.RequireRole(domain.RoleAdmin))
}
