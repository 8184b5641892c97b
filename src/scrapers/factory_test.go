package scrapers

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svacron/metals/backend/src/config"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		DefaultSource:   "fivepaisa",
		FivePaisaBase:   "https://www.5paisa.com",
		MCXSpotURL:      "https://www.mcxindia.com/market-data/spot-market-price",
		APINinjasBase:   "https://api.api-ninjas.com/v1/commodityprice",
		ScraperTimeoutS: 20,
	}
}

func noKey(ctx context.Context) string { return "" }

func noRate(ctx context.Context) decimal.Decimal { return decimal.RequireFromString("83.5") }

func TestNewRegistryWiresAllSources(t *testing.T) {
	registry, err := NewRegistry(testConfig(), noKey, noRate)
	require.NoError(t, err)

	assert.Equal(t, "fivepaisa", registry.DefaultName())
	for _, name := range []string{"fivepaisa", "mcx", "yahoo", "apininjas"} {
		source, err := registry.Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, source.Name())
	}

	// empty name resolves to the default
	source, err := registry.Get("")
	require.NoError(t, err)
	assert.Equal(t, "fivepaisa", source.Name())

	_, err = registry.Get("bloomberg")
	assert.Error(t, err)
}

func TestNewRegistryRejectsUnknownDefault(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultSource = "bloomberg"
	_, err := NewRegistry(cfg, noKey, noRate)
	assert.Error(t, err)
}
