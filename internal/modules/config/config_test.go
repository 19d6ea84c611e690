package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybrid_bot/internal/models"
)

func TestNewConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv(configDirENV, t.TempDir())
	t.Setenv("OKX_ENV", "")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDemo, cfg.OKX.Env)
	assert.True(t, cfg.OKX.Simulated())
	assert.Equal(t, []string{"ETH-USDT", "BTC-USDT"}, cfg.Bot.Watchlist)
	assert.Equal(t, 300*time.Second, cfg.Bot.JobInterval)
	assert.Equal(t, models.StrategyAuto, cfg.Strategy.Mode)
	assert.Equal(t, 22.0, cfg.Strategy.ADXTrend)
	assert.Equal(t, 20.0, cfg.Risk.MinPositionUSD)
}

func TestNewConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
okx:
  env: demo
  api_key: from-file
bot:
  job_interval: 60s
strategy:
  mode: grid
  grid_levels: 3
risk:
  risk_per_trade: 0.02
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "values_test.yaml"), []byte(yml), 0o644))
	t.Setenv(configDirENV, dir)
	t.Setenv(configFilePathENV, "values_test.yaml")
	t.Setenv("OKX_ENV", "live")
	t.Setenv("OKX_API_KEY", "live-key")
	t.Setenv("WATCHLIST", "sol-usdt, eth-usdt")
	t.Setenv("JOB_INTERVAL_SEC", "")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.False(t, cfg.OKX.Simulated())
	assert.Equal(t, "live-key", cfg.OKX.APIKey)
	assert.Equal(t, []string{"SOL-USDT", "ETH-USDT"}, cfg.Bot.Watchlist)
	assert.Equal(t, time.Minute, cfg.Bot.JobInterval)
	assert.Equal(t, models.StrategyGrid, cfg.Strategy.Mode)
	assert.Equal(t, 3, cfg.Strategy.GridLevels)
	// не заданные в файле поля остаются дефолтными
	assert.Equal(t, 50, cfg.Strategy.EMASlow)
	assert.Equal(t, 0.02, cfg.Risk.RiskPerTrade)
}

func TestNewConfigRejectsUnknownStorage(t *testing.T) {
	t.Setenv(configDirENV, t.TempDir())
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, err := NewConfig()
	assert.Error(t, err)
}
