package services

import (
	"context"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
	"github.com/iota-uz/greeting-store/modules/greeting/domain/entities/logentry"
	"github.com/iota-uz/greeting-store/pkg/eventbus"
	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

var ErrValidation = errors.New("validation failed")

// ValidationError carries per-field failures keyed by json field name. Fields
// holds validator tags, Messages the readable form when available.
type ValidationError struct {
	Fields   map[string]string
	Messages map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if msg, ok := e.Messages[k]; ok {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// GreetingService is the entry point for callers. Each call runs under its own
// span, and the span ids become the database session trace context.
type GreetingService struct {
	commands  greeting.CommandRepository
	queries   greeting.QueryRepository
	publisher eventbus.EventBus
	logger    *logrus.Entry
	tracer    trace.Tracer
}

// NewGreetingService creates a new greeting service instance
func NewGreetingService(
	commands greeting.CommandRepository,
	queries greeting.QueryRepository,
	publisher eventbus.EventBus,
	logger *logrus.Entry,
) *GreetingService {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = logrus.NewEntry(l)
	}
	if publisher == nil {
		publisher = eventbus.NewEventPublisher(logger)
	}
	return &GreetingService{
		commands:  commands,
		queries:   queries,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("github.com/iota-uz/greeting-store/modules/greeting/services"),
	}
}

func (s *GreetingService) start(ctx context.Context, op string) (context.Context, trace.Span, pgtrace.TraceContext) {
	ctx, span := s.tracer.Start(ctx, "greeting."+op)
	return ctx, span, pgtrace.ForContext(ctx)
}

func (s *GreetingService) finish(span trace.Span, op string, tc pgtrace.TraceContext, err error) {
	defer span.End()
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"operation":   op,
		"traceparent": tc.Traceparent(),
	})
	if errors.Is(err, ErrValidation) ||
		errors.Is(err, greeting.ErrInvalidMessageID) ||
		errors.Is(err, greeting.ErrDuplicateMessageID) ||
		errors.Is(err, logentry.ErrInvalidDirection) ||
		errors.Is(err, logentry.ErrInvalidLimit) {
		entry.Warn("greeting: rejected")
		return
	}
	entry.Error("greeting: operation failed")
}

// Store validates dto and persists it with its log entry. It returns the new id.
func (s *GreetingService) Store(ctx context.Context, dto *greeting.CreateDTO) (id int64, err error) {
	ctx, span, tc := s.start(ctx, "store")
	defer func() { s.finish(span, "store", tc, err) }()

	if dto == nil {
		return 0, &ValidationError{Fields: map[string]string{"_": "required"}}
	}
	if fields, ok := dto.Ok(); !ok {
		return 0, &ValidationError{Fields: fields, Messages: dto.Messages()}
	}
	g, err := dto.ToEntity()
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.String("greeting.message_id", g.MessageID()))

	id, err = s.commands.Store(ctx, tc, g)
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{"id": id, "message_id": g.MessageID()}).Debug("greeting: stored")
	s.publisher.Publish(greeting.NewCreatedEvent(g, tc.Traceparent()))
	return id, nil
}

// ListLogEntries reads one keyset page. direction is "forward" or "backward".
func (s *GreetingService) ListLogEntries(ctx context.Context, offset, limit int64, direction string) (entries []logentry.LogEntry, err error) {
	ctx, span, tc := s.start(ctx, "list_log_entries")
	defer func() { s.finish(span, "list_log_entries", tc, err) }()

	cursor, err := logentry.NewCursor(offset, limit, direction)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("cursor.offset", cursor.Offset),
		attribute.Int64("cursor.limit", cursor.Limit),
		attribute.String("cursor.direction", cursor.Direction.String()),
	)
	return s.queries.ListLogEntries(ctx, tc, cursor)
}

func (s *GreetingService) LastLogEntry(ctx context.Context) (entry logentry.LogEntry, found bool, err error) {
	ctx, span, tc := s.start(ctx, "last_log_entry")
	defer func() { s.finish(span, "last_log_entry", tc, err) }()

	return s.queries.LastLogEntry(ctx, tc)
}

func (s *GreetingService) FindMessage(ctx context.Context, id int64) (g *greeting.Greeting, found bool, err error) {
	ctx, span, tc := s.start(ctx, "find_message")
	defer func() { s.finish(span, "find_message", tc, err) }()

	return s.queries.FindMessage(ctx, tc, id)
}
