package itf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotImplemented = errors.New("stub: not implemented")

// Statement is one call observed by StubTx.
type Statement struct {
	SQL  string
	Args []any
}

// StubBeginner hands out StubTx values. NextTx, when set, builds the transaction for
// each Begin call; otherwise Tx is reused.
type StubBeginner struct {
	mu       sync.Mutex
	Tx       *StubTx
	NextTx   func(n int) *StubTx
	BeginErr error
	Begins   int
}

func (b *StubBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Begins++
	if b.BeginErr != nil {
		return nil, b.BeginErr
	}
	if b.NextTx != nil {
		return b.NextTx(b.Begins), nil
	}
	if b.Tx == nil {
		b.Tx = &StubTx{}
	}
	return b.Tx, nil
}

func (b *StubBeginner) BeginCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Begins
}

// StubTx records every statement in order and delegates results to the optional funcs.
type StubTx struct {
	mu sync.Mutex

	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	CommitErr    error

	Statements []Statement
	Committed  bool
	RolledBack bool
}

func (s *StubTx) record(sql string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statements = append(s.Statements, Statement{SQL: sql, Args: args})
}

func (s *StubTx) SQL() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Statements))
	for _, st := range s.Statements {
		out = append(out, st.SQL)
	}
	return out
}

// State reports whether the transaction was committed or rolled back.
func (s *StubTx) State() (committed, rolledBack bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Committed, s.RolledBack
}

func (s *StubTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, ErrNotImplemented
}

func (s *StubTx) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RolledBack {
		return pgx.ErrTxClosed
	}
	if s.CommitErr != nil {
		return s.CommitErr
	}
	s.Committed = true
	return nil
}

func (s *StubTx) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Committed || s.RolledBack {
		return pgx.ErrTxClosed
	}
	s.RolledBack = true
	return nil
}

func (s *StubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, ErrNotImplemented
}

func (s *StubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	var results pgx.BatchResults
	return results
}

func (s *StubTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (s *StubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, ErrNotImplemented
}

func (s *StubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	s.record(sql, arguments)
	if s.ExecFunc == nil {
		return pgconn.CommandTag{}, nil
	}
	return s.ExecFunc(ctx, sql, arguments...)
}

func (s *StubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	s.record(sql, args)
	if s.QueryFunc == nil {
		return nil, ErrNotImplemented
	}
	return s.QueryFunc(ctx, sql, args...)
}

func (s *StubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.record(sql, args)
	if s.QueryRowFunc == nil {
		return StubRow{Err: ErrNotImplemented}
	}
	return s.QueryRowFunc(ctx, sql, args...)
}

func (s *StubTx) Conn() *pgx.Conn { return nil }

// StubRows iterates Data; each inner slice is one row.
type StubRows struct {
	Data  [][]any
	Error error
	idx   int
}

func (r *StubRows) Next() bool {
	if r.idx >= len(r.Data) {
		return false
	}
	r.idx++
	return true
}

func (r *StubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.Data) {
		return errors.New("no current row")
	}
	return scanInto(r.Data[r.idx-1], dest)
}

func (r *StubRows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.Data) {
		return nil, errors.New("no current row")
	}
	return r.Data[r.idx-1], nil
}

func (r *StubRows) RawValues() [][]byte { return nil }
func (r *StubRows) Err() error          { return r.Error }
func (r *StubRows) Close()              {}
func (r *StubRows) CommandTag() pgconn.CommandTag {
	return pgconn.CommandTag{}
}
func (r *StubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *StubRows) Conn() *pgx.Conn                              { return nil }

// StubRow returns Err, or scans Values into the destinations.
type StubRow struct {
	Values []any
	Err    error
}

func (r StubRow) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return scanInto(r.Values, dest)
}

func scanInto(row []any, dest []any) error {
	if len(dest) != len(row) {
		return fmt.Errorf("destination length %d does not match row length %d", len(dest), len(row))
	}
	for i, target := range dest {
		switch v := target.(type) {
		case *int64:
			*v = row[i].(int64)
		case *string:
			*v = row[i].(string)
		case *uuid.UUID:
			*v = row[i].(uuid.UUID)
		case *time.Time:
			*v = row[i].(time.Time)
		case *[]byte:
			switch val := row[i].(type) {
			case []byte:
				*v = val
			case json.RawMessage:
				*v = []byte(val)
			case nil:
				*v = nil
			default:
				return fmt.Errorf("unsupported []byte source %T", row[i])
			}
		default:
			return fmt.Errorf("unsupported scan target %T", target)
		}
	}
	return nil
}
