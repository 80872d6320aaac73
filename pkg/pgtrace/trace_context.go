package pgtrace

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

// SessionKey is the session-local setting read by the pg_tracing extension.
const SessionKey = "pg_tracing.trace_context"

const (
	version = "00"
	flags   = "01"
)

var (
	ErrInvalidTraceContext = errors.New("invalid trace context")

	traceIDRe = regexp.MustCompile(`^[0-9a-f]{32}$`)
	spanIDRe  = regexp.MustCompile(`^[0-9a-f]{16}$`)
)

// TraceContext is the trace/span pair attached to every transaction.
type TraceContext struct {
	traceID      string
	parentSpanID string
}

func New(traceID, parentSpanID string) (TraceContext, error) {
	tc := TraceContext{
		traceID:      strings.ToLower(strings.TrimSpace(traceID)),
		parentSpanID: strings.ToLower(strings.TrimSpace(parentSpanID)),
	}
	if err := tc.Validate(); err != nil {
		return TraceContext{}, err
	}
	return tc, nil
}

func MustNew(traceID, parentSpanID string) TraceContext {
	tc, err := New(traceID, parentSpanID)
	if err != nil {
		panic(err)
	}
	return tc
}

// FromSpanContext converts an OpenTelemetry span context. The span becomes the parent
// of whatever the database records for the transaction.
func FromSpanContext(sc trace.SpanContext) (TraceContext, bool) {
	if !sc.IsValid() {
		return TraceContext{}, false
	}
	return TraceContext{
		traceID:      sc.TraceID().String(),
		parentSpanID: sc.SpanID().String(),
	}, true
}

func FromContext(ctx context.Context) (TraceContext, bool) {
	return FromSpanContext(trace.SpanContextFromContext(ctx))
}

// ForContext returns the trace context of the active span, or a freshly generated one.
func ForContext(ctx context.Context) TraceContext {
	if tc, ok := FromContext(ctx); ok {
		return tc
	}
	return Generate()
}

func Generate() TraceContext {
	t := uuid.New()
	s := uuid.New()
	return TraceContext{
		traceID:      hex.EncodeToString(t[:]),
		parentSpanID: hex.EncodeToString(s[:8]),
	}
}

func (t TraceContext) TraceID() string      { return t.traceID }
func (t TraceContext) ParentSpanID() string { return t.parentSpanID }
func (t TraceContext) IsZero() bool         { return t.traceID == "" && t.parentSpanID == "" }

func (t TraceContext) Validate() error {
	if !traceIDRe.MatchString(t.traceID) || strings.Trim(t.traceID, "0") == "" {
		return errors.Wrapf(ErrInvalidTraceContext, "trace_id %q", t.traceID)
	}
	if !spanIDRe.MatchString(t.parentSpanID) || strings.Trim(t.parentSpanID, "0") == "" {
		return errors.Wrapf(ErrInvalidTraceContext, "parent_span_id %q", t.parentSpanID)
	}
	return nil
}

// Traceparent renders the W3C traceparent header value.
func (t TraceContext) Traceparent() string {
	return fmt.Sprintf("%s-%s-%s-%s", version, t.traceID, t.parentSpanID, flags)
}

func (t TraceContext) settingValue() string {
	return fmt.Sprintf("traceparent='%s'", t.Traceparent())
}

// Render returns the literal SET LOCAL statement. Only validated values are ever
// interpolated; Apply binds the value instead and is what transactions execute.
func (t TraceContext) Render() string {
	return fmt.Sprintf(
		"SET LOCAL %s = '%s'",
		SessionKey,
		strings.ReplaceAll(t.settingValue(), "'", "''"),
	)
}

type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const applySQL = "SELECT set_config('" + SessionKey + "', $1, true)"

// Apply sets the trace context for the remainder of the current transaction.
func (t TraceContext) Apply(ctx context.Context, exec Execer) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := exec.Exec(ctx, applySQL, t.settingValue()); err != nil {
		return errors.Wrap(err, "apply trace context")
	}
	return nil
}

func (t TraceContext) String() string {
	return t.Traceparent()
}
