package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/hachrisjordan/award-itin-engine/internal/api/handlers"
	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/logging"
)

// NewServer builds the gin engine, registers routes and middleware, and
// appends fx lifecycle hooks for a graceful start/stop — grounded on the
// teacher's lc.Append(OnStart/OnStop) server wiring.
func NewServer(
	buildItineraries *handlers.BuildItinerariesHandler,
	health *handlers.HealthHandler,
	routeMetrics *handlers.RouteMetricsHandler,

	logger logging.Logger,
	cfg config.Config,
	lc fx.Lifecycle,
) {
	engine := gin.New()
	engine.Use(
		RequestID(),
		ContextLogger(logger),
		RequestLogger(),
		Panic(),
		CORS(),
	)

	engine.POST("/build-itineraries", buildItineraries.Handle)
	engine.GET("/healthz", health.Handle)
	engine.GET("/internal/route-metrics", routeMetrics.Handle)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server listen failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.GracefulShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown failed", "error", err)
				return err
			}
			return nil
		},
	})
}
