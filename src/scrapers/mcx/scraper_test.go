package mcx

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svacron/metals/backend/src/models"
)

const spotPage = `<html><body><table><tbody>
<tr><td>COTTON</td><td>1 BALES</td><td>RAJKOT</td><td>56,000</td></tr>
<tr><td>GOLD</td><td>10 GRAMS</td><td>AHMEDABAD</td><td>71,450</td></tr>
<tr><td>SILVER</td><td>1 KGS</td><td>AHMEDABAD</td><td>82,000</td></tr>
</tbody></table></body></html>`

func TestFindCommodityPriceGold(t *testing.T) {
	price, err := findCommodityPrice(spotPage, commodityNames[models.Gold])
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("7145").Equal(price), "got %s", price)
}

func TestFindCommodityPriceSilverPerKilogram(t *testing.T) {
	price, err := findCommodityPrice(spotPage, commodityNames[models.Silver])
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("82").Equal(price), "got %s", price)
}

func TestFindCommodityPriceMissing(t *testing.T) {
	_, err := findCommodityPrice(spotPage, []string{"PLATINUM"})
	assert.ErrorIs(t, err, ErrPriceNotFound)
}

func TestFindCommodityPriceSkipsUnparsableRows(t *testing.T) {
	page := `<html><body><table><tbody>
<tr><td>GOLD</td><td>10 GRAMS</td><td>MUMBAI</td><td>-</td></tr>
<tr><td>GOLD 999</td><td>10 GRAMS</td><td>AHMEDABAD</td><td>70,000</td></tr>
</tbody></table></body></html>`

	price, err := findCommodityPrice(page, commodityNames[models.Gold])
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("7000").Equal(price), "got %s", price)
}

func TestFetchObservationUnsupportedMetal(t *testing.T) {
	s := New("http://unused.invalid", time.Second)
	_, err := s.FetchObservation(context.Background(), models.Platinum)
	assert.ErrorIs(t, err, ErrUnsupportedMetal)
}

func TestUnitFromLabel(t *testing.T) {
	assert.Equal(t, "10g", string(unitFromLabel("10 GRAMS")))
	assert.Equal(t, "kg", string(unitFromLabel("1 KGS")))
	assert.Equal(t, "gram", string(unitFromLabel("1 GRMS")))
}
