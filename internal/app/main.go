package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Egor213/JewelCRM/internal/auth"
	"github.com/Egor213/JewelCRM/internal/config"
	grpcctrl "github.com/Egor213/JewelCRM/internal/controller/grpc"
	httpapi "github.com/Egor213/JewelCRM/internal/controller/http"
	"github.com/Egor213/JewelCRM/internal/controller/http/response"
	httpv1 "github.com/Egor213/JewelCRM/internal/controller/http/v1"
	"github.com/Egor213/JewelCRM/internal/dbmon"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/metrics"
	"github.com/Egor213/JewelCRM/internal/perfmon"
	"github.com/Egor213/JewelCRM/internal/repo"
	"github.com/Egor213/JewelCRM/internal/service"
	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
	"github.com/Egor213/JewelCRM/pkg/grpcserver"
	"github.com/Egor213/JewelCRM/pkg/httpserver"
	"github.com/Egor213/JewelCRM/pkg/logger"
	"github.com/Egor213/JewelCRM/pkg/postgres"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	log "github.com/sirupsen/logrus"
)

func Run() {
	// Config
	cfg, err := config.New()
	if err != nil {
		log.Fatal(errorsUtils.WrapPathErr(err))
	}

	// Logger
	logger.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	log.WithFields(log.Fields{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
		"env":     cfg.App.Env,
	}).Info("Logger has been set up")

	// Migrations
	Migrate(cfg.PG.URL)

	// DB connecting
	log.Info("Connecting to DB")
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.MaxPoolSize))
	if err != nil {
		log.Fatal(errorsUtils.WrapPathErr(err))
	}
	defer pg.Close()
	log.Info("Connected to DB")

	// Repos
	repositories := repo.NewRepositories(pg)

	// Observability
	counters := metrics.New()

	sink, producer := newEventSink(cfg.Log, cfg.Kafka, repositories)
	if producer != nil {
		defer func() {
			if err := producer.Close(); err != nil {
				log.Error(errorsUtils.WrapPathErr(err))
			}
		}()
	}

	events := eventlog.New(
		eventlog.WithSink(cfg.Log.Sink, sink),
		eventlog.WithMirror(!cfg.App.IsProduction()),
		eventlog.WithBufferSize(cfg.Log.BufferSize),
		eventlog.WithFlushInterval(cfg.Log.FlushInterval),
		eventlog.WithCounters(counters),
	)
	perf := perfmon.New(events,
		perfmon.WithBufferSize(cfg.Perf.BufferSize),
		perfmon.WithFlushInterval(cfg.Perf.FlushInterval),
		perfmon.WithSlowThreshold(cfg.Perf.SlowThreshold),
		perfmon.WithCounters(counters),
	)
	eventsLoop := startLoop(events.Run)
	perfLoop := startLoop(perf.Run)

	// Services
	deps := service.ServicesDependencies{
		Repos:  repositories,
		DB:     dbmon.New(events, perf),
		Events: events,
	}
	services := service.NewServices(deps)

	limiter := newRateLimiter(context.Background(), cfg.RateLimit, cfg.Redis)
	defer func() {
		if err := limiter.Close(); err != nil {
			log.Error(errorsUtils.WrapPathErr(err))
		}
	}()

	// HTTP Server
	log.Infof("Starting HTTP server...")
	log.Debugf("Server port: %s", cfg.HTTP.Port)
	handler := echo.New()
	handler.HideBanner = true
	handler.HidePort = true
	handler.JSONSerializer = httpapi.JSONSerializer{}
	httpv1.ConfigureRouter(handler, httpv1.RouterDeps{
		Services: services,
		Responder: response.New(events,
			response.WithCounters(counters),
			response.WithLegacyConstraintStatus(cfg.Errors.LegacyConstraintStatus),
		),
		Authenticator: auth.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Limiter:       limiter,
		RateLimit:     cfg.RateLimit.MaxRequests,
		RateWindow:    cfg.RateLimit.Window,
		Logger:        events,
		Perf:          perf,
		Counters:      counters,
	})
	httpServer := httpserver.New(handler, httpserver.Port(cfg.HTTP.Port))

	// gRPC Server
	log.Infof("Starting gRPC server...")
	log.Debugf("Server port: %s", cfg.GRPC.Port)
	healthSrv := health.NewServer()
	grpcServer, err := grpcserver.New(
		grpcctrl.RegisterServices(healthSrv),
		grpcserver.WithPort(cfg.GRPC.Port),
		grpcserver.WithServerOptions(grpc.ChainUnaryInterceptor(
			grpcctrl.MonitorUnaryInterceptor(events, perf, counters),
		)),
	)
	if err != nil {
		log.Fatal(errorsUtils.WrapPathErr(err))
	}

	// Prometheus server
	log.Infof("Starting metrics server...")
	log.Debugf("Server port: %s", cfg.Prometheus.Port)
	metricsHandler := echo.New()
	metrics.ConfigureRouter(metricsHandler, prometheus.DefaultGatherer)
	metricsServer := httpserver.New(metricsHandler, httpserver.Port(cfg.Prometheus.Port))

	// Waiting signal
	log.Info("Configuring graceful shutdown")
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		log.Info("app - Run - signal: " + s.String())
	case err := <-httpServer.Notify():
		log.Error(errorsUtils.WrapPathErr(err))
	case err := <-metricsServer.Notify():
		log.Error(errorsUtils.WrapPathErr(err))
	case err := <-grpcServer.Notify():
		log.Error(errorsUtils.WrapPathErr(err))
	}

	// Graceful shutdown
	log.Info("Shutting down...")
	healthSrv.Shutdown()
	if err := httpServer.Shutdown(); err != nil {
		log.Error(errorsUtils.WrapPathErr(err))
	}
	grpcServer.Shutdown()

	// The performance summary is written to the event log, so it stops first.
	perfLoop.Stop()
	eventsLoop.Stop()

	if err := metricsServer.Shutdown(); err != nil {
		log.Error(errorsUtils.WrapPathErr(err))
	}
	log.Info("Shutdown complete")
}
