package pg

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"hybrid_bot/internal/models"
	"hybrid_bot/pkg/db"
)

const (
	createTableQuery = `
create table if not exists bot_state (
    key        text primary key,
    state      jsonb       not null,
    updated_at timestamptz not null default now()
)`

	selectStateQuery = `select state from bot_state where key = $1`

	upsertStateQuery = `
insert into bot_state (key, state, updated_at)
values ($1, $2, now())
on conflict (key) do update set state = excluded.state, updated_at = excluded.updated_at`
)

// State: снапшот одной jsonb-строкой в bot_state.
type State struct {
	tm  db.TxManager
	key string
}

func NewState(tm db.TxManager, key string) *State {
	return &State{tm: tm, key: key}
}

// Migrate создаёт таблицу, если её нет.
func (s *State) Migrate(ctx context.Context) error {
	return s.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createTableQuery)
		return err
	})
}

func (s *State) Load(ctx context.Context) (*models.State, error) {
	var raw []byte
	err := s.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, selectStateQuery, s.key).Scan(&raw)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewState(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select state %s", s.key)
	}

	st := models.NewState()
	if err := sonic.Unmarshal(raw, st); err != nil {
		return nil, errors.Wrapf(err, "decode state %s", s.key)
	}
	st.Normalize()
	return st, nil
}

func (s *State) Save(ctx context.Context, st *models.State) error {
	b, err := sonic.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	err = s.tm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, upsertStateQuery, s.key, b)
		return err
	})
	return errors.Wrapf(err, "upsert state %s", s.key)
}
