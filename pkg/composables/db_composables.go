package composables

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNoTx        = errors.New("no transaction found in context")
	ErrNilBeginner = errors.New("no database pool provided")
)

type txKey struct{}

// Beginner opens transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func UseTx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	if !ok || tx == nil {
		return nil, ErrNoTx
	}
	return tx, nil
}
