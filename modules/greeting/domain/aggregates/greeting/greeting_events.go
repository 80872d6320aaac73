package greeting

import "time"

// CreatedEvent is published after a greeting and its log entry are committed.
type CreatedEvent struct {
	ID          int64
	MessageID   string
	Traceparent string
	StoredAt    time.Time
}

func NewCreatedEvent(g *Greeting, traceparent string) *CreatedEvent {
	return &CreatedEvent{
		ID:          g.ID(),
		MessageID:   g.MessageID(),
		Traceparent: traceparent,
		StoredAt:    time.Now(),
	}
}
