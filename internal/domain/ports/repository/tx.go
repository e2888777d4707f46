package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories must accept NoTX and run outside a transaction.
type Tx interface{}

var NoTX Tx

// TransactionManager runs fn inside one storage transaction and passes the
// handle through tx. fn returning an error rolls the transaction back.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		job, err := jobs.FindByID(ctx, tx, id)
//		...
//		return jobs.UpdateIf(ctx, tx, job, model.JobStatusRunning)
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
