package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-mirror/internal/types"
)

func TestSubmitBuyOpensPosition(t *testing.T) {
	account := New("1", nil)

	ack, err := account.Submit(context.Background(), types.Order{
		StockCode: "sh600000",
		Action:    types.ActionBuy,
		Shares:    800,
	})
	require.NoError(t, err)
	assert.Equal(t, "SIMULATED", ack.Status)
	assert.NotEmpty(t, ack.OrderID)

	pos, err := account.Position(context.Background(), "sh600000")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.EqualValues(t, 800, pos.AvailableShares)

	require.Len(t, account.Submitted(), 1)
}

func TestSubmitSellReducesAndClears(t *testing.T) {
	account := New("1", map[string]int64{"sh600000": 1000})
	ctx := context.Background()

	_, err := account.Submit(ctx, types.Order{
		StockCode: "sh600000",
		Action:    types.ActionSell,
		Shares:    400,
	})
	require.NoError(t, err)

	pos, err := account.Position(ctx, "sh600000")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.EqualValues(t, 600, pos.AvailableShares)

	_, err = account.Submit(ctx, types.Order{
		StockCode: "sh600000",
		Action:    types.ActionSell,
		Shares:    600,
	})
	require.NoError(t, err)

	pos, err = account.Position(ctx, "sh600000")
	require.NoError(t, err)
	assert.Nil(t, pos, "a fully sold position is dropped from the book")
}

func TestPositionUnknownStock(t *testing.T) {
	account := New("1", nil)

	pos, err := account.Position(context.Background(), "sz000001")
	require.NoError(t, err)
	assert.Nil(t, pos)
}
