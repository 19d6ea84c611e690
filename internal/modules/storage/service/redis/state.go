package redis

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"hybrid_bot/internal/models"
)

// State: снапшот JSON-строкой под одним ключом, без TTL.
type State struct {
	client goredis.Cmdable
	key    string
}

func NewState(client goredis.Cmdable, key string) *State {
	return &State{client: client, key: key}
}

func (s *State) Load(ctx context.Context) (*models.State, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return models.NewState(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", s.key)
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
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", s.key)
	}
	return nil
}
