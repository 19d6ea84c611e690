package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxManager: то, что нужно хранилищам от postgres.
type TxManager interface {
	RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error
}
