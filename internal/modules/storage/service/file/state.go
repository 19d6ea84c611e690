package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"hybrid_bot/internal/models"
)

const DefaultPath = "data/state.json"

// State: снапшот в одном JSON-файле, перезапись целиком через tmp + rename.
type State struct {
	path string
	mu   sync.Mutex
}

func NewState(path string) *State {
	if path == "" {
		path = DefaultPath
	}
	return &State{path: path}
}

func (s *State) Path() string { return s.path }

func (s *State) Load(ctx context.Context) (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewState(), nil
		}
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	if len(b) == 0 {
		return models.NewState(), nil
	}

	st := models.NewState()
	if err := sonic.Unmarshal(b, st); err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.path)
	}
	st.Normalize()
	return st, nil
}

func (s *State) Save(ctx context.Context, st *models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir")
	}

	b, err := sonic.ConfigStd.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	// атомарно
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, "rename %s", tmp)
	}
	return nil
}
