package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/greeting-store/pkg/configuration"
	"github.com/iota-uz/greeting-store/pkg/loggen"
	"github.com/iota-uz/greeting-store/pkg/logging"
	"github.com/iota-uz/greeting-store/pkg/metrics"
	"github.com/iota-uz/greeting-store/pkg/middleware"
	"github.com/iota-uz/greeting-store/pkg/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the log generation worker and the ops endpoints until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	logger := logging.Component(rt.logger, "serve")

	if rt.conf.MigrateOnStart {
		applied, version, err := migrateUp(ctx, rt.conf.Database, logging.Component(rt.logger, "migrate"))
		if err != nil {
			return err
		}
		logger.WithField("applied", applied).WithField("version", version).Info("migrations up to date")
	}

	gen, err := loggen.NewGenerator(rt.pool, loggen.Options{
		Enabled:      rt.conf.LogGeneration.Enabled,
		Interval:     rt.conf.LogGeneration.Interval,
		CycleTimeout: rt.conf.LogGeneration.CycleTimeout,
		Procedure:    rt.conf.LogGeneration.Procedure,
		Logger:       logging.Component(rt.logger, "loggen"),
	})
	if err != nil {
		return err
	}

	controllers := []server.Controller{metrics.NewHealthController(rt.pool)}
	if rt.conf.Prometheus.Enabled {
		controllers = append(controllers, metrics.NewPrometheusController(rt.conf.Prometheus.Path))
	}
	ops := server.NewHTTPServer(controllers...)
	ops.Middlewares = opsMiddlewares(rt.conf, logging.Component(rt.logger, "ops"))
	ops.Wrappers = opsWrappers(rt.conf)

	g, gctx := errgroup.WithContext(ctx)
	gen.Start(gctx)
	g.Go(func() error {
		logger.WithField("addr", rt.conf.OpsAddr).Info("ops server listening")
		return ops.Serve(gctx, rt.conf.OpsAddr)
	})

	err = g.Wait()
	gen.Stop()
	logger.Info("shutdown complete")
	return err
}

func opsMiddlewares(conf *configuration.Configuration, logger *logrus.Entry) []mux.MiddlewareFunc {
	middlewares := []mux.MiddlewareFunc{middleware.WithLogger(logger)}
	if conf.RateLimit.Enabled {
		var store limiter.Store
		switch conf.RateLimit.Storage {
		case "redis":
			var err error
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}
		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: conf.RateLimit.GlobalRPS,
			Store:             store,
		}))
	}
	return middlewares
}

// opsWrappers wraps the whole router so CORS preflights are answered even
// though the ops routes only accept GET.
func opsWrappers(conf *configuration.Configuration) []func(http.Handler) http.Handler {
	if len(conf.OpsAllowedOrigins) == 0 {
		return nil
	}
	return []func(http.Handler) http.Handler{middleware.Cors(conf.OpsAllowedOrigins...)}
}
