package paper

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
	"github.com/GoBitflyer/bitflyer-trader/internal/engine"
)

// tickerSource serves one adjustable ticker for every product.
type tickerSource struct {
	bid, ask float64
}

func (s *tickerSource) GetCollateral(context.Context) (bitflyer.Collateral, error) {
	return bitflyer.Collateral{}, nil
}

func (s *tickerSource) GetPositions(context.Context, string) ([]bitflyer.Position, error) {
	return nil, nil
}

func (s *tickerSource) GetTicker(context.Context, string) (bitflyer.Ticker, error) {
	return bitflyer.Ticker{BestBid: s.bid, BestAsk: s.ask}, nil
}

func intent(side bitflyer.Side, size float64) engine.OrderIntent {
	return engine.OrderIntent{
		ID:          "t",
		ProductCode: "FX_BTC_JPY",
		Side:        side,
		Size:        decimal.NewFromFloat(size),
	}
}

func TestSubmitFillsWithSlippage(t *testing.T) {
	src := &tickerSource{bid: 999000, ask: 1001000} // mid 1000000
	b := NewBroker(Config{InitialCollateral: 100000, SlippageBps: 10}, src)
	ctx := context.Background()

	ack, err := b.Submit(ctx, intent(bitflyer.SideBuy, 0.01))
	require.NoError(t, err)
	assert.Equal(t, "PAPER-t", ack.AcceptanceID)

	snap := b.Snapshot()
	assert.Equal(t, "BUY", snap.Side)
	assert.True(t, snap.Size.Equal(decimal.NewFromFloat(0.01)))
	// Buys pay mid plus 10bps.
	assert.InDelta(t, 1001000, snap.EntryPrice, 1e-6)
}

func TestRoundTripRealizesPnL(t *testing.T) {
	src := &tickerSource{bid: 1000000, ask: 1000000}
	b := NewBroker(Config{InitialCollateral: 100000}, src)
	ctx := context.Background()

	_, err := b.Submit(ctx, intent(bitflyer.SideBuy, 0.1))
	require.NoError(t, err)

	src.bid, src.ask = 1010000, 1010000
	_, err = b.Submit(ctx, intent(bitflyer.SideSell, 0.1))
	require.NoError(t, err)

	snap := b.Snapshot()
	assert.Equal(t, "NONE", snap.Side)
	assert.True(t, snap.Size.IsZero())
	// 10000 yen move on 0.1 size.
	assert.InDelta(t, 101000, snap.Collateral, 1e-6)
	assert.Equal(t, 1, snap.Trades)
	assert.Equal(t, 1, snap.Wins)
}

func TestShortSideProfitsFromDrop(t *testing.T) {
	src := &tickerSource{bid: 1000000, ask: 1000000}
	b := NewBroker(Config{InitialCollateral: 100000}, src)
	ctx := context.Background()

	_, err := b.Submit(ctx, intent(bitflyer.SideSell, 0.1))
	require.NoError(t, err)

	src.bid, src.ask = 990000, 990000
	_, err = b.Submit(ctx, intent(bitflyer.SideBuy, 0.1))
	require.NoError(t, err)

	assert.InDelta(t, 101000, b.Snapshot().Collateral, 1e-6)
}

func TestOvershootFlipsPosition(t *testing.T) {
	src := &tickerSource{bid: 1000000, ask: 1000000}
	b := NewBroker(Config{InitialCollateral: 100000}, src)
	ctx := context.Background()

	_, err := b.Submit(ctx, intent(bitflyer.SideBuy, 0.02))
	require.NoError(t, err)
	_, err = b.Submit(ctx, intent(bitflyer.SideSell, 0.05))
	require.NoError(t, err)

	snap := b.Snapshot()
	assert.Equal(t, "SELL", snap.Side)
	assert.True(t, snap.Size.Equal(decimal.NewFromFloat(0.03)))
}

func TestBlendedEntryOnExtension(t *testing.T) {
	src := &tickerSource{bid: 1000000, ask: 1000000}
	b := NewBroker(Config{InitialCollateral: 100000}, src)
	ctx := context.Background()

	_, err := b.Submit(ctx, intent(bitflyer.SideBuy, 0.01))
	require.NoError(t, err)

	src.bid, src.ask = 1002000, 1002000
	_, err = b.Submit(ctx, intent(bitflyer.SideBuy, 0.01))
	require.NoError(t, err)

	assert.InDelta(t, 1001000, b.Snapshot().EntryPrice, 1e-6)
}

func TestOversizedOrderRejected(t *testing.T) {
	src := &tickerSource{bid: 1000000, ask: 1000000}
	b := NewBroker(Config{InitialCollateral: 100000, MaxOrderSize: 0.05}, src)

	_, err := b.Submit(context.Background(), intent(bitflyer.SideBuy, 0.06))
	require.Error(t, err)
	var apiErr *bitflyer.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.SizeOver())
	assert.True(t, b.Snapshot().Size.IsZero(), "a rejection must not touch the account")
}

func TestGetPositionsReflectsAccount(t *testing.T) {
	src := &tickerSource{bid: 1000000, ask: 1000000}
	b := NewBroker(Config{InitialCollateral: 100000}, src)
	ctx := context.Background()

	legs, err := b.GetPositions(ctx, "FX_BTC_JPY")
	require.NoError(t, err)
	assert.Empty(t, legs)

	_, err = b.Submit(ctx, intent(bitflyer.SideBuy, 0.01))
	require.NoError(t, err)

	legs, err = b.GetPositions(ctx, "FX_BTC_JPY")
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, bitflyer.SideBuy, legs[0].Side)
	assert.True(t, legs[0].Size.Equal(decimal.NewFromFloat(0.01)))
}
