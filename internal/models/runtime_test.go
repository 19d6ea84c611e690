package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyWatchlist(t *testing.T) {
	base := RuntimeConfig{Watchlist: []string{"BTC-USDT", "ETH-USDT"}}

	assert.Equal(t, base.Watchlist, base.Apply(StateConfig{}).Watchlist, "nothing saved, config wins")

	saved := base.WithoutSymbol("BTC-USDT").WithoutSymbol("ETH-USDT").Persisted()
	require.NotNil(t, saved.Watchlist)
	assert.Empty(t, *saved.Watchlist)
	assert.Empty(t, base.Apply(saved).Watchlist)

	one := []string{"SOL-USDT"}
	assert.Equal(t, []string{"SOL-USDT"}, base.Apply(StateConfig{Watchlist: &one}).Watchlist)
}
