package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle passed through repository methods.
// Postgres implementations receive a pgx.Tx; nil means "use the pool".
type Tx any

// TransactionManager opens a transaction, invokes fn, and commits on nil
// error or rolls back otherwise.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
