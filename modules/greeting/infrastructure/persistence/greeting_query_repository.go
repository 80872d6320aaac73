package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
	"github.com/iota-uz/greeting-store/modules/greeting/domain/entities/logentry"
	"github.com/iota-uz/greeting-store/modules/greeting/infrastructure/persistence/models"
	"github.com/iota-uz/greeting-store/pkg/composables"
	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

const (
	logEntrySelect = `
		SELECT log.id, log.greeting_id, message.message_id, log.created
		FROM log
		JOIN message ON log.greeting_id = message.id`

	lastLogEntryQuery = logEntrySelect + `
		ORDER BY log.id DESC
		LIMIT 1`

	findMessageQuery = `
		SELECT id, message_id, external_reference, "to", "from", heading, message, events_created, created
		FROM message
		WHERE id = $1`
)

func listLogEntriesQuery(d logentry.Direction) string {
	return fmt.Sprintf(`%s
		WHERE log.id %s $1
		ORDER BY log.id %s
		LIMIT $2`, logEntrySelect, d.Operator(), d.Order())
}

type GreetingQueryRepository struct {
	db composables.Beginner
	m  *metrics
}

func NewGreetingQueryRepository(db composables.Beginner) *GreetingQueryRepository {
	return &GreetingQueryRepository{db: db, m: getMetrics()}
}

var _ greeting.QueryRepository = (*GreetingQueryRepository)(nil)

func (r *GreetingQueryRepository) ListLogEntries(
	ctx context.Context,
	trace pgtrace.TraceContext,
	cursor logentry.Cursor,
) (out []logentry.LogEntry, err error) {
	start := time.Now()
	defer func() { r.m.observe("list_log_entries", start, err) }()

	if err := cursor.Validate(); err != nil {
		return nil, err
	}
	if err := trace.Validate(); err != nil {
		return nil, err
	}
	query := listLogEntriesQuery(cursor.Direction)

	out, err = composables.InTraceTxResult(ctx, r.db, trace, func(ctx context.Context, tx pgx.Tx) ([]logentry.LogEntry, error) {
		rows, err := tx.Query(ctx, query, cursor.Offset, cursor.Limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		entries := []logentry.LogEntry{}
		for rows.Next() {
			var row models.Log
			if err := rows.Scan(&row.ID, &row.GreetingID, &row.MessageID, &row.Created); err != nil {
				return nil, errors.Wrap(err, "scan log entry")
			}
			entries = append(entries, toDomainLogEntry(row))
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return entries, nil
	})
	if err != nil {
		return nil, wrapDbError("list log entries", err)
	}
	return out, nil
}

func (r *GreetingQueryRepository) LastLogEntry(ctx context.Context, trace pgtrace.TraceContext) (entry logentry.LogEntry, found bool, err error) {
	start := time.Now()
	defer func() { r.m.observe("last_log_entry", start, err) }()

	if err := trace.Validate(); err != nil {
		return logentry.LogEntry{}, false, err
	}

	err = composables.InTraceTx(ctx, r.db, trace, func(ctx context.Context, tx pgx.Tx) error {
		var row models.Log
		scanErr := tx.QueryRow(ctx, lastLogEntryQuery).Scan(&row.ID, &row.GreetingID, &row.MessageID, &row.Created)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		entry, found = toDomainLogEntry(row), true
		return nil
	})
	if err != nil {
		return logentry.LogEntry{}, false, wrapDbError("last log entry", err)
	}
	return entry, found, nil
}

func (r *GreetingQueryRepository) FindMessage(ctx context.Context, trace pgtrace.TraceContext, id int64) (g *greeting.Greeting, found bool, err error) {
	start := time.Now()
	defer func() { r.m.observe("find_message", start, err) }()

	if err := trace.Validate(); err != nil {
		return nil, false, err
	}

	err = composables.InTraceTx(ctx, r.db, trace, func(ctx context.Context, tx pgx.Tx) error {
		var row models.Message
		scanErr := tx.QueryRow(ctx, findMessageQuery, id).Scan(
			&row.ID,
			&row.MessageID,
			&row.ExternalReference,
			&row.To,
			&row.From,
			&row.Heading,
			&row.Message,
			&row.EventsCreated,
			&row.Created,
		)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		hydrated, mapErr := toDomainGreeting(row)
		if mapErr != nil {
			return mapErr
		}
		g, found = hydrated, true
		return nil
	})
	if err != nil {
		return nil, false, wrapDbError("find message", err)
	}
	return g, found, nil
}
