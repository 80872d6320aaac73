package loggen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/greeting-store/pkg/composables"
	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

// Generator calls the log generation procedure once per cycle, each cycle in its
// own traced transaction. A failed cycle is logged and counted; the next cycle
// still runs.
type Generator struct {
	db        composables.Beginner
	procedure pgx.Identifier
	query     string
	opts      Options
	tracer    trace.Tracer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewGenerator(db composables.Beginner, opts Options) (*Generator, error) {
	if db == nil {
		return nil, invalidConfig("db is required")
	}
	if opts.Interval < 0 {
		return nil, invalidConfig("interval must be non-negative, got %s", opts.Interval)
	}
	if opts.CycleTimeout < 0 {
		return nil, invalidConfig("cycle timeout must be non-negative, got %s", opts.CycleTimeout)
	}
	opts.setDefaults()

	procedure, err := ParseIdentifier(opts.Procedure)
	if err != nil {
		return nil, err
	}

	return &Generator{
		db:        db,
		procedure: procedure,
		query:     fmt.Sprintf(`SELECT %s()`, procedure.Sanitize()),
		opts:      opts,
		tracer:    otel.Tracer("github.com/iota-uz/greeting-store/pkg/loggen"),
	}, nil
}

// Run blocks until ctx is cancelled. Cancellation is observed between cycles only.
func (g *Generator) Run(ctx context.Context) error {
	if ctx == nil {
		return invalidConfig("ctx is required")
	}
	if !g.opts.Enabled {
		return nil
	}

	g.opts.Logger.WithFields(logrus.Fields{
		"procedure": g.procedure.Sanitize(),
		"interval":  g.opts.Interval.String(),
	}).Info("loggen: started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			g.opts.Logger.Info("loggen: stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if err := g.generateOnce(ctx); err != nil {
			g.opts.Logger.WithError(err).Warn("loggen: cycle failed")
		}
		timer.Reset(g.opts.Interval)
	}
}

// Start runs the loop in a goroutine. Stop cancels it and waits for it to return.
func (g *Generator) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	g.cancel = cancel
	g.done = done

	go func() {
		defer close(done)
		_ = g.Run(runCtx)
	}()
}

func (g *Generator) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// generateOnce runs one cycle detached from ctx cancellation so an in-flight
// transaction always reaches commit or rollback. A panic is returned as
// ErrCyclePanicked.
func (g *Generator) generateOnce(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { getMetrics().observe(start, err) }()

	cycleCtx := context.WithoutCancel(ctx)
	if g.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(cycleCtx, g.opts.CycleTimeout)
		defer cancel()
	}

	cycleCtx, span := g.tracer.Start(cycleCtx, "loggen.cycle")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanicked, r)
		}
	}()

	err = composables.InTraceTx(cycleCtx, g.db, pgtrace.ForContext(cycleCtx), func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, g.query); err != nil {
			return fmt.Errorf("loggen: call %s: %w", g.procedure.Sanitize(), err)
		}
		return nil
	})
	return err
}
