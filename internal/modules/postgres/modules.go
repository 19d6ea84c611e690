package postgres

import (
	"context"
	"fmt"

	"hybrid_bot/pkg/db"
)

// стейт пишется одним воркером, больше пары соединений не нужно
const maxConns = 4

// Connect поднимает пул и проверяет соединение.
func Connect(ctx context.Context, dsn string) (*db.PgTxManager, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: db_dsn is empty")
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: dsn, MaxConns: maxConns})
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db.NewPgTxManager(pool), nil
}
