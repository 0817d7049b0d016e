package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

// OrderKind distinguishes the two supported order shapes.
type OrderKind int

const (
	KindMarket OrderKind = iota
	KindLimitBracket
)

// OrderIntent is a fully determined order ready for submission.
type OrderIntent struct {
	ID          string
	ProductCode string
	Side        bitflyer.Side
	Size        decimal.Decimal
	Kind        OrderKind
	TimeInForce string

	// Bracket legs, set only for KindLimitBracket.
	Price      float64
	TakeProfit float64
	StopLoss   float64
}

// OrderAck acknowledges an accepted order.
type OrderAck struct {
	AcceptanceID string
}

// OrderGateway executes an order intent against the exchange. A rejection
// is reported as a *bitflyer.APIError; transport failures as any other error.
type OrderGateway interface {
	Submit(ctx context.Context, intent OrderIntent) (OrderAck, error)
}

// MarketDataSource provides on-demand account and market snapshots.
// *bitflyer.Client satisfies it.
type MarketDataSource interface {
	GetCollateral(ctx context.Context) (bitflyer.Collateral, error)
	GetPositions(ctx context.Context, productCode string) ([]bitflyer.Position, error)
	GetTicker(ctx context.Context, productCode string) (bitflyer.Ticker, error)
}

// Notifier pushes order outcomes to an external channel.
type Notifier interface {
	NotifyOrder(ctx context.Context, side string, size float64, accepted bool) error
}
