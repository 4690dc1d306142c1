package metrics

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// ConfigureRouter mounts /metrics for the given gatherer on the dedicated
// metrics listener. A nil gatherer falls back to the default registry.
func ConfigureRouter(handler *echo.Echo, gatherer prometheus.Gatherer) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	handler.HideBanner = true
	handler.HidePort = true
	handler.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: gatherer,
	}))
}
