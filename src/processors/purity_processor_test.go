package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svacron/metals/backend/src/models"
)

func TestDeriveRatesGold(t *testing.T) {
	rates, err := DeriveRates(models.Gold, d("7000"))
	require.NoError(t, err)
	require.Len(t, rates, 4)

	assert.Equal(t, "999", rates[0].Purity)
	assert.True(t, d("7000").Equal(rates[0].Price), "base purity keeps the observed price, got %s", rates[0].Price)
	assert.Equal(t, "916", rates[1].Purity)
	assert.True(t, d("6416.9").Equal(rates[1].Price), "got %s", rates[1].Price)
	assert.Equal(t, "750", rates[2].Purity)
	assert.True(t, d("5250").Equal(rates[2].Price), "got %s", rates[2].Price)
	assert.Equal(t, "585", rates[3].Purity)
	assert.True(t, d("4083.1").Equal(rates[3].Price), "got %s", rates[3].Price)
}

func TestDeriveRatesSilver(t *testing.T) {
	rates, err := DeriveRates(models.Silver, d("82"))
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.True(t, d("82").Equal(rates[0].Price))
	assert.Equal(t, "925", rates[1].Purity)
	// 82 * 0.925 * 0.999 rounded to 2dp
	assert.True(t, d("75.77").Equal(rates[1].Price), "got %s", rates[1].Price)
}

func TestDeriveRatesPlatinum(t *testing.T) {
	rates, err := DeriveRates(models.Platinum, d("3200"))
	require.NoError(t, err)
	require.Len(t, rates, 3)

	assert.True(t, d("3200").Equal(rates[0].Price))
	assert.True(t, d("3036.96").Equal(rates[1].Price), "got %s", rates[1].Price)
	assert.True(t, d("2877.12").Equal(rates[2].Price), "got %s", rates[2].Price)
}

func TestDeriveRatesUnknownMetal(t *testing.T) {
	_, err := DeriveRates(models.MetalKind("copper"), d("100"))
	assert.Error(t, err)
}
