package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
	"github.com/iota-uz/greeting-store/modules/greeting/infrastructure/persistence"
	"github.com/iota-uz/greeting-store/modules/greeting/services"
	"github.com/iota-uz/greeting-store/pkg/configuration"
	"github.com/iota-uz/greeting-store/pkg/database"
	"github.com/iota-uz/greeting-store/pkg/eventbus"
	"github.com/iota-uz/greeting-store/pkg/logging"
)

type runtime struct {
	conf    *configuration.Configuration
	logger  *logrus.Logger
	pool    *pgxpool.Pool
	service *services.GreetingService
	close   func()
}

// openRuntime loads configuration, installs tracing and connects the pool.
func openRuntime(ctx context.Context) (*runtime, error) {
	conf := configuration.Use()
	logger := conf.Logger()

	tracingCleanup, err := logging.SetupTracing(ctx, logging.TracingOptions{
		Enabled:     conf.OpenTelemetry.Enabled,
		Endpoint:    conf.OpenTelemetry.TempoURL,
		ServiceName: conf.OpenTelemetry.ServiceName,
	}, logging.Component(logger, "tracing"))
	if err != nil {
		return nil, err
	}

	pool, err := database.NewPool(ctx, conf.Database)
	if err != nil {
		tracingCleanup()
		return nil, err
	}

	greetingLogger := logging.Component(logger, "greeting")
	bus := eventbus.NewEventPublisher(greetingLogger)
	bus.Subscribe(func(e *greeting.CreatedEvent) {
		greetingLogger.WithFields(logrus.Fields{
			"id":          e.ID,
			"message_id":  e.MessageID,
			"traceparent": e.Traceparent,
		}).Info("greeting created")
	})

	service := services.NewGreetingService(
		persistence.NewGreetingCommandRepository(pool),
		persistence.NewGreetingQueryRepository(pool),
		bus,
		greetingLogger,
	)

	return &runtime{
		conf:    conf,
		logger:  logger,
		pool:    pool,
		service: service,
		close: func() {
			pool.Close()
			tracingCleanup()
			conf.Unload()
		},
	}, nil
}
