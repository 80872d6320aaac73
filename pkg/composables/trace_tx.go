package composables

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/greeting-store/pkg/pgtrace"
)

// InTraceTx runs fn in a new transaction whose first statement applies trace.
// The transaction is committed only when fn returns nil; every other exit path,
// including a panic inside fn, rolls it back.
func InTraceTx(
	ctx context.Context,
	db Beginner,
	trace pgtrace.TraceContext,
	fn func(ctx context.Context, tx pgx.Tx) error,
) error {
	if db == nil {
		return ErrNilBeginner
	}
	if err := trace.Validate(); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	txCtx := WithTx(ctx, tx)
	if err := trace.Apply(txCtx, tx); err != nil {
		done = true
		return rollback(ctx, tx, err)
	}

	if err := fn(txCtx, tx); err != nil {
		done = true
		return rollback(ctx, tx, err)
	}

	done = true
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	return nil
}

func InTraceTxResult[T any](
	ctx context.Context,
	db Beginner,
	trace pgtrace.TraceContext,
	fn func(ctx context.Context, tx pgx.Tx) (T, error),
) (T, error) {
	var out T
	err := InTraceTx(ctx, db, trace, func(txCtx context.Context, tx pgx.Tx) error {
		var innerErr error
		out, innerErr = fn(txCtx, tx)
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func rollback(ctx context.Context, tx pgx.Tx, cause error) error {
	if rErr := tx.Rollback(context.WithoutCancel(ctx)); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
		return errors.Join(cause, rErr)
	}
	return cause
}
