package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
	"github.com/iota-uz/greeting-store/pkg/composables"
	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

const (
	insertMessageQuery = `
		INSERT INTO message (message_id, external_reference, "to", "from", heading, message, events_created, created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8::timestamptz, now()))
		RETURNING id`

	insertLogQuery = `INSERT INTO log (greeting_id) VALUES ($1)`
)

type GreetingCommandRepository struct {
	db composables.Beginner
	m  *metrics
}

func NewGreetingCommandRepository(db composables.Beginner) *GreetingCommandRepository {
	return &GreetingCommandRepository{db: db, m: getMetrics()}
}

var _ greeting.CommandRepository = (*GreetingCommandRepository)(nil)

// Store inserts the message and its log row in one transaction. On success g is
// assigned its id and frozen.
func (r *GreetingCommandRepository) Store(ctx context.Context, trace pgtrace.TraceContext, g *greeting.Greeting) (id int64, err error) {
	start := time.Now()
	defer func() { r.m.observe("store", start, err) }()

	if g == nil {
		return 0, errors.New("greeting is required")
	}
	if g.IsStored() {
		return 0, greeting.ErrFrozen
	}
	if err := trace.Validate(); err != nil {
		return 0, err
	}
	row, err := toDBMessage(g)
	if err != nil {
		return 0, err
	}

	var created any
	if !row.Created.IsZero() {
		created = row.Created
	}

	id, err = composables.InTraceTxResult(ctx, r.db, trace, func(ctx context.Context, tx pgx.Tx) (int64, error) {
		var id int64
		if err := tx.QueryRow(
			ctx,
			insertMessageQuery,
			row.MessageID,
			row.ExternalReference,
			row.To,
			row.From,
			row.Heading,
			row.Message,
			row.EventsCreated,
			created,
		).Scan(&id); err != nil {
			return 0, errors.Wrap(err, "insert message")
		}

		if _, err := tx.Exec(ctx, insertLogQuery, id); err != nil {
			return 0, errors.Wrap(err, "insert log")
		}
		return id, nil
	})
	if err != nil {
		return 0, wrapDbError("store greeting", err)
	}

	if err := g.AssignID(id); err != nil {
		return 0, err
	}
	return id, nil
}
