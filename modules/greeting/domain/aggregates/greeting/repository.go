package greeting

import (
	"context"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/entities/logentry"
	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

type CommandRepository interface {
	// Store persists g and its log entry atomically and returns the new id.
	Store(ctx context.Context, trace pgtrace.TraceContext, g *Greeting) (int64, error)
}

type QueryRepository interface {
	ListLogEntries(ctx context.Context, trace pgtrace.TraceContext, cursor logentry.Cursor) ([]logentry.LogEntry, error)
	LastLogEntry(ctx context.Context, trace pgtrace.TraceContext) (logentry.LogEntry, bool, error)
	FindMessage(ctx context.Context, trace pgtrace.TraceContext, id int64) (*Greeting, bool, error)
}
