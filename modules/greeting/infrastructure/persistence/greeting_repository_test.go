package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/greeting-store/modules/greeting/domain/aggregates/greeting"
	"github.com/iota-uz/greeting-store/modules/greeting/domain/entities/logentry"
	"github.com/iota-uz/greeting-store/pkg/itf"
	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

const (
	testMessageID = "3fae6c1e-6d3b-4b59-9e57-2e9c1c1b2a10"
	setConfigSQL  = "SELECT set_config('pg_tracing.trace_context', $1, true)"
)

var testTrace = pgtrace.MustNew("4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")

func newTestGreeting(t *testing.T, created time.Time) *greeting.Greeting {
	t.Helper()
	g := greeting.New("ref-1", testMessageID, "A", "B", "Hi", "Hello", created)
	require.NoError(t, g.RecordEvent("received", created))
	return g
}

func requireTraceFirstOnce(t *testing.T, tx *itf.StubTx) {
	t.Helper()
	sql := tx.SQL()
	require.NotEmpty(t, sql)
	require.Equal(t, setConfigSQL, sql[0])
	count := 0
	for _, s := range sql {
		if s == setConfigSQL {
			count++
		}
	}
	require.Equal(t, 1, count, "trace context must be applied exactly once")
}

func TestGreetingCommandRepository_Store_InsertsMessageAndLog(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tx := &itf.StubTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "INSERT INTO message")
			require.Equal(t, uuid.MustParse(testMessageID), args[0])
			require.Equal(t, "ref-1", args[1])
			require.Equal(t, "A", args[2])
			require.Equal(t, "B", args[3])
			require.Equal(t, "Hi", args[4])
			require.Equal(t, "Hello", args[5])
			var events map[string]time.Time
			require.NoError(t, json.Unmarshal(args[6].([]byte), &events))
			require.Equal(t, created, events["received"])
			require.Equal(t, created, args[7])
			return itf.StubRow{Values: []any{int64(11)}}
		},
	}
	db := &itf.StubBeginner{Tx: tx}
	repo := NewGreetingCommandRepository(db)

	g := newTestGreeting(t, created)
	id, err := repo.Store(context.Background(), testTrace, g)
	require.NoError(t, err)
	require.Equal(t, int64(11), id)
	require.Equal(t, int64(11), g.ID())
	require.ErrorIs(t, g.RecordEvent("late", created), greeting.ErrFrozen)

	requireTraceFirstOnce(t, tx)
	require.Len(t, tx.Statements, 3)
	require.Contains(t, tx.Statements[2].SQL, "INSERT INTO log")
	require.Equal(t, []any{int64(11)}, tx.Statements[2].Args)
	require.True(t, tx.Committed)
}

func TestGreetingCommandRepository_Store_ZeroCreatedUsesServerDefault(t *testing.T) {
	tx := &itf.StubTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Nil(t, args[7])
			return itf.StubRow{Values: []any{int64(1)}}
		},
	}
	repo := NewGreetingCommandRepository(&itf.StubBeginner{Tx: tx})

	_, err := repo.Store(context.Background(), testTrace, greeting.New("", testMessageID, "A", "B", "", "", time.Time{}))
	require.NoError(t, err)
}

func TestGreetingCommandRepository_Store_InvalidMessageIDNeverTouchesDB(t *testing.T) {
	db := &itf.StubBeginner{}
	repo := NewGreetingCommandRepository(db)

	g := greeting.New("ref", "not-a-uuid", "A", "B", "Hi", "Hello", time.Now())
	_, err := repo.Store(context.Background(), testTrace, g)
	require.ErrorIs(t, err, greeting.ErrInvalidMessageID)

	var dbErr *DbError
	require.False(t, errors.As(err, &dbErr))
	require.Zero(t, db.BeginCount())
}

func TestGreetingCommandRepository_Store_LogInsertFailureRollsBack(t *testing.T) {
	boom := errors.New("log insert failed")
	tx := &itf.StubTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return itf.StubRow{Values: []any{int64(5)}}
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if strings.Contains(sql, "INSERT INTO log") {
				return pgconn.CommandTag{}, boom
			}
			return pgconn.CommandTag{}, nil
		},
	}
	repo := NewGreetingCommandRepository(&itf.StubBeginner{Tx: tx})

	g := newTestGreeting(t, time.Now())
	_, err := repo.Store(context.Background(), testTrace, g)
	require.ErrorIs(t, err, boom)

	var dbErr *DbError
	require.ErrorAs(t, err, &dbErr)
	require.Equal(t, "store greeting", dbErr.Op)
	require.Contains(t, dbErr.Error(), "log insert failed")

	require.False(t, tx.Committed)
	require.True(t, tx.RolledBack)
	require.False(t, g.IsStored())
}

func TestGreetingCommandRepository_Store_DuplicateMessageID(t *testing.T) {
	tx := &itf.StubTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return itf.StubRow{Err: &pgconn.PgError{
				Code:           "23505",
				Message:        "duplicate key value violates unique constraint",
				ConstraintName: "message_message_id_key",
			}}
		},
	}
	repo := NewGreetingCommandRepository(&itf.StubBeginner{Tx: tx})

	_, err := repo.Store(context.Background(), testTrace, newTestGreeting(t, time.Now()))
	require.ErrorIs(t, err, greeting.ErrDuplicateMessageID)
	require.True(t, tx.RolledBack)
}

func TestGreetingCommandRepository_Store_BeginFailure(t *testing.T) {
	boom := errors.New("pool exhausted")
	repo := NewGreetingCommandRepository(&itf.StubBeginner{BeginErr: boom})

	_, err := repo.Store(context.Background(), testTrace, newTestGreeting(t, time.Now()))
	require.ErrorIs(t, err, boom)
	var dbErr *DbError
	require.ErrorAs(t, err, &dbErr)
}

func TestGreetingCommandRepository_Store_RejectsStoredGreeting(t *testing.T) {
	db := &itf.StubBeginner{}
	repo := NewGreetingCommandRepository(db)

	g := greeting.Hydrate(3, "", testMessageID, "A", "B", "", "", time.Now(), nil)
	_, err := repo.Store(context.Background(), testTrace, g)
	require.ErrorIs(t, err, greeting.ErrFrozen)
	require.Zero(t, db.BeginCount())
}

func logRows(ids ...int64) [][]any {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	out := make([][]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, []any{id, id * 10, uuid.MustParse(testMessageID), now})
	}
	return out
}

func TestGreetingQueryRepository_ListLogEntries_Forward(t *testing.T) {
	tx := &itf.StubTx{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "JOIN message ON log.greeting_id = message.id")
			require.Contains(t, sql, "WHERE log.id >= $1")
			require.Contains(t, sql, "ORDER BY log.id ASC")
			require.Contains(t, sql, "LIMIT $2")
			require.Equal(t, []any{int64(3), int64(2)}, args)
			return &itf.StubRows{Data: logRows(3, 4)}, nil
		},
	}
	repo := NewGreetingQueryRepository(&itf.StubBeginner{Tx: tx})

	cursor := logentry.Cursor{Offset: 3, Limit: 2, Direction: logentry.Forward}
	entries, err := repo.ListLogEntries(context.Background(), testTrace, cursor)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(3), entries[0].ID)
	require.Equal(t, int64(30), entries[0].GreetingID)
	require.Equal(t, uuid.MustParse(testMessageID), entries[0].MessageID)
	require.Equal(t, int64(4), entries[1].ID)

	requireTraceFirstOnce(t, tx)
	require.True(t, tx.Committed)
}

func TestGreetingQueryRepository_ListLogEntries_Backward(t *testing.T) {
	tx := &itf.StubTx{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "WHERE log.id <= $1")
			require.Contains(t, sql, "ORDER BY log.id DESC")
			return &itf.StubRows{Data: logRows(9, 7, 2)}, nil
		},
	}
	repo := NewGreetingQueryRepository(&itf.StubBeginner{Tx: tx})

	entries, err := repo.ListLogEntries(context.Background(), testTrace, logentry.Cursor{Offset: 9, Limit: 3, Direction: logentry.Backward})
	require.NoError(t, err)
	require.Equal(t, []int64{9, 7, 2}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})
}

func TestGreetingQueryRepository_ListLogEntries_EmptyIsNotAnError(t *testing.T) {
	tx := &itf.StubTx{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &itf.StubRows{}, nil
		},
	}
	repo := NewGreetingQueryRepository(&itf.StubBeginner{Tx: tx})

	entries, err := repo.ListLogEntries(context.Background(), testTrace, logentry.Cursor{Offset: 1 << 40, Limit: 10, Direction: logentry.Forward})
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}

func TestGreetingQueryRepository_ListLogEntries_InvalidDirectionIssuesNoQuery(t *testing.T) {
	db := &itf.StubBeginner{}
	repo := NewGreetingQueryRepository(db)

	_, err := repo.ListLogEntries(context.Background(), testTrace, logentry.Cursor{Offset: 1, Limit: 10})
	require.ErrorIs(t, err, logentry.ErrInvalidDirection)
	require.Zero(t, db.BeginCount())
}

func TestGreetingQueryRepository_ListLogEntries_RowsErrorRollsBack(t *testing.T) {
	boom := errors.New("connection lost")
	tx := &itf.StubTx{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &itf.StubRows{Data: logRows(1), Error: boom}, nil
		},
	}
	repo := NewGreetingQueryRepository(&itf.StubBeginner{Tx: tx})

	_, err := repo.ListLogEntries(context.Background(), testTrace, logentry.Cursor{Offset: 1, Limit: 10, Direction: logentry.Forward})
	require.ErrorIs(t, err, boom)
	var dbErr *DbError
	require.ErrorAs(t, err, &dbErr)
	require.True(t, tx.RolledBack)
}

func TestGreetingQueryRepository_LastLogEntry(t *testing.T) {
	now := time.Now()
	tx := &itf.StubTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "ORDER BY log.id DESC")
			require.Contains(t, sql, "LIMIT 1")
			require.Empty(t, args)
			return itf.StubRow{Values: []any{int64(12), int64(4), uuid.MustParse(testMessageID), now}}
		},
	}
	repo := NewGreetingQueryRepository(&itf.StubBeginner{Tx: tx})

	entry, found, err := repo.LastLogEntry(context.Background(), testTrace)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(12), entry.ID)
	require.Equal(t, int64(4), entry.GreetingID)
	require.Equal(t, now, entry.CreatedAt)
	requireTraceFirstOnce(t, tx)
	require.True(t, tx.Committed)
}

func TestGreetingQueryRepository_LastLogEntry_EmptyLog(t *testing.T) {
	tx := &itf.StubTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return itf.StubRow{Err: pgx.ErrNoRows}
		},
	}
	repo := NewGreetingQueryRepository(&itf.StubBeginner{Tx: tx})

	_, found, err := repo.LastLogEntry(context.Background(), testTrace)
	require.NoError(t, err)
	require.False(t, found)
	require.True(t, tx.Committed)
}

func TestGreetingQueryRepository_FindMessage(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tx := &itf.StubTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "FROM message")
			require.Equal(t, []any{int64(11)}, args)
			return itf.StubRow{Values: []any{
				int64(11),
				uuid.MustParse(testMessageID),
				"ref-1",
				"A",
				"B",
				"Hi",
				"Hello",
				[]byte(`{"received":"2024-05-01T10:00:00Z"}`),
				created,
			}}
		},
	}
	repo := NewGreetingQueryRepository(&itf.StubBeginner{Tx: tx})

	g, found, err := repo.FindMessage(context.Background(), testTrace, 11)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(11), g.ID())
	require.Equal(t, testMessageID, g.MessageID())
	require.Equal(t, "A", g.To())
	require.Equal(t, "B", g.From())
	require.Equal(t, "Hi", g.Heading())
	require.Equal(t, "Hello", g.Body())
	require.Equal(t, created, g.Created())
	require.Equal(t, created, g.EventsCreated()["received"].UTC())
	requireTraceFirstOnce(t, tx)
}

func TestGreetingQueryRepository_FindMessage_Absent(t *testing.T) {
	tx := &itf.StubTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return itf.StubRow{Err: pgx.ErrNoRows}
		},
	}
	repo := NewGreetingQueryRepository(&itf.StubBeginner{Tx: tx})

	g, found, err := repo.FindMessage(context.Background(), testTrace, 404)
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, g)
}

func TestGreetingQueryRepository_InvalidTraceIsPrecondition(t *testing.T) {
	db := &itf.StubBeginner{}
	repo := NewGreetingQueryRepository(db)

	_, _, err := repo.FindMessage(context.Background(), pgtrace.TraceContext{}, 1)
	require.ErrorIs(t, err, pgtrace.ErrInvalidTraceContext)
	require.Zero(t, db.BeginCount())
}
