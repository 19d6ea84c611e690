package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid_bot/internal/models"
)

func TestLoadMissingFileGivesEmptyState(t *testing.T) {
	s := NewState(filepath.Join(t.TempDir(), "nope", "state.json"))

	st, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.OpenPositions)
	assert.Empty(t, st.Trades)
	assert.NotNil(t, st.Alerts)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "state.json")
	s := NewState(path)
	ctx := context.Background()

	oco := "algo-1"
	filled, px := 1.5, 99.8
	trail := 98.0
	st := models.NewState()
	st.OpenPositions["BTC-USDT"] = models.NewTrendPosition(models.TrendPosition{
		Entry: 100, Stop: 95, Size: 2, TrailingStop: &trail, TradeID: "abcd1234",
	})
	st.OpenPositions["ETH-USDT"] = models.NewGridPosition(models.GridPosition{
		StepSize: 1,
		Legs: []models.GridLeg{{
			BuyOrderID: "1", BuyPrice: 99, TakeProfitPrice: 101, StopLossPrice: 98, SizeRequested: 1.5,
			OCOAttached: true, OCOOrderID: &oco, FilledSize: &filled, FillPrice: &px,
		}},
	})
	st.Alerts["BTC-USDT"] = models.Alerts{Dip: []float64{90}}
	st.Config.AutoDip = true
	st.UpdatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, st))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "tmp file must be renamed away")

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.OpenPositions, got.OpenPositions)
	assert.Equal(t, st.Alerts, got.Alerts)
	assert.True(t, got.Config.AutoDip)
	assert.True(t, st.UpdatedAt.Equal(got.UpdatedAt))
}

func TestSnapshotKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewState(path)
	require.NoError(t, s.Save(context.Background(), models.NewState()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"openPositions"`, `"trades"`, `"alerts"`, `"config"`} {
		assert.Contains(t, string(b), key)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewState(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSaveFailsOnUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := NewState(filepath.Join(blocker, "state.json")).Save(context.Background(), models.NewState())
	assert.Error(t, err)
}
