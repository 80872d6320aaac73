package composables

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/greeting-store/pkg/itf"
	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

var testTrace = pgtrace.MustNew("4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")

func TestInTraceTx_AppliesTraceFirstAndCommits(t *testing.T) {
	tx := &itf.StubTx{}
	db := &itf.StubBeginner{Tx: tx}

	err := InTraceTx(context.Background(), db, testTrace, func(ctx context.Context, got pgx.Tx) error {
		fromCtx, err := UseTx(ctx)
		require.NoError(t, err)
		require.Same(t, got, fromCtx)
		_, err = got.Exec(ctx, "SELECT 1")
		return err
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"SELECT set_config('pg_tracing.trace_context', $1, true)",
		"SELECT 1",
	}, tx.SQL())
	require.True(t, tx.Committed)
	require.False(t, tx.RolledBack)
}

func TestInTraceTx_RollsBackOnFnError(t *testing.T) {
	tx := &itf.StubTx{}
	db := &itf.StubBeginner{Tx: tx}
	boom := errors.New("boom")

	err := InTraceTx(context.Background(), db, testTrace, func(ctx context.Context, tx pgx.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, tx.Committed)
	require.True(t, tx.RolledBack)
}

func TestInTraceTx_RollsBackWhenTraceCannotBeApplied(t *testing.T) {
	boom := errors.New("set_config failed")
	tx := &itf.StubTx{}
	tx.ExecFunc = func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, boom
	}
	db := &itf.StubBeginner{Tx: tx}

	called := false
	err := InTraceTx(context.Background(), db, testTrace, func(ctx context.Context, tx pgx.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, boom)
	require.False(t, called)
	require.True(t, tx.RolledBack)
}

func TestInTraceTx_InvalidTraceDoesNotBegin(t *testing.T) {
	db := &itf.StubBeginner{}

	err := InTraceTx(context.Background(), db, pgtrace.TraceContext{}, func(ctx context.Context, tx pgx.Tx) error {
		return nil
	})
	require.ErrorIs(t, err, pgtrace.ErrInvalidTraceContext)
	require.Zero(t, db.BeginCount())
}

func TestInTraceTx_RollsBackOnPanic(t *testing.T) {
	tx := &itf.StubTx{}
	db := &itf.StubBeginner{Tx: tx}

	require.Panics(t, func() {
		_ = InTraceTx(context.Background(), db, testTrace, func(ctx context.Context, tx pgx.Tx) error {
			panic("unexpected")
		})
	})
	require.True(t, tx.RolledBack)
	require.False(t, tx.Committed)
}

func TestInTraceTx_SurfacesCommitError(t *testing.T) {
	boom := errors.New("serialization failure")
	tx := &itf.StubTx{CommitErr: boom}
	db := &itf.StubBeginner{Tx: tx}

	err := InTraceTx(context.Background(), db, testTrace, func(ctx context.Context, tx pgx.Tx) error {
		return nil
	})
	require.ErrorIs(t, err, boom)
	require.True(t, tx.RolledBack)
}

func TestInTraceTxResult_ReturnsValue(t *testing.T) {
	db := &itf.StubBeginner{}

	got, err := InTraceTxResult(context.Background(), db, testTrace, func(ctx context.Context, tx pgx.Tx) (int64, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), got)
}

func TestInTraceTx_NilBeginner(t *testing.T) {
	err := InTraceTx(context.Background(), nil, testTrace, func(ctx context.Context, tx pgx.Tx) error {
		return nil
	})
	require.ErrorIs(t, err, ErrNilBeginner)
}
