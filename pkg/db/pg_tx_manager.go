package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hybrid_bot/pkg/logger"
)

type PoolConfig struct {
	DSN      string
	MaxConns int32 // 0: дефолт pgxpool
}

// PgTxManager: транзакции поверх одного пула. Реплик у бота нет.
type PgTxManager struct {
	pool *pgxpool.Pool
}

func NewPgTxManager(pool *pgxpool.Pool) *PgTxManager {
	return &PgTxManager{pool: pool}
}

func NewPool(ctx context.Context, conf PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if conf.MaxConns > 0 {
		pc.MaxConns = conf.MaxConns
	}
	return pgxpool.NewWithConfig(ctx, pc)
}

func (m *PgTxManager) Close() {
	m.pool.Close()
}

// RunMaster: fn в read committed транзакции. Ошибка fn или паника откатывают транзакцию.
func (m *PgTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error {
	return m.inTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (m *PgTxManager) inTx(ctx context.Context, options pgx.TxOptions, fn func(ctxTx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, options)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		switch p := recover(); {
		case p != nil:
			logger.Error("[STATE] panic in tx: %v", p)
			_ = tx.Rollback(ctx)
			panic(p)
		case err != nil:
			_ = tx.Rollback(ctx)
		default:
			if cerr := tx.Commit(ctx); cerr != nil {
				err = fmt.Errorf("commit tx: %w", cerr)
			}
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return fmt.Errorf("run tx: %w", err)
	}
	return nil
}
