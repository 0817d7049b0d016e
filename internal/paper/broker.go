// Package paper simulates a margin account for paper trading: orders fill
// instantly at the live mid price plus slippage, while tickers pass through
// to real market data.
package paper

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
	"github.com/GoBitflyer/bitflyer-trader/internal/engine"
)

var log = logrus.WithField("component", "paper")

type Config struct {
	InitialCollateral float64
	KeepRate          float64
	SlippageBps       float64
	// MaxOrderSize triggers the exchange's oversized-order rejection,
	// so the sizer's retry path is exercised in paper mode too.
	MaxOrderSize float64
}

type Snapshot struct {
	InitialCollateral float64         `json:"initial_collateral"`
	Collateral        float64         `json:"collateral"`
	Side              string          `json:"side"`
	Size              decimal.Decimal `json:"size"`
	EntryPrice        float64         `json:"entry_price"`
	Trades            int             `json:"trades"`
	Wins              int             `json:"wins"`
}

// Broker implements both the market data source and the order gateway on a
// simulated account. Tickers come from the wrapped live source.
type Broker struct {
	mu   sync.Mutex
	cfg  Config
	data engine.MarketDataSource

	collateral float64
	side       bitflyer.Side
	size       decimal.Decimal
	entryPrice float64
	trades     int
	wins       int
}

func NewBroker(cfg Config, data engine.MarketDataSource) *Broker {
	if cfg.InitialCollateral <= 0 {
		cfg.InitialCollateral = 100000
	}
	if cfg.KeepRate <= 0 {
		cfg.KeepRate = 1.2
	}
	return &Broker{
		cfg:        cfg,
		data:       data,
		collateral: cfg.InitialCollateral,
		size:       decimal.Zero,
	}
}

func (b *Broker) GetCollateral(_ context.Context) (bitflyer.Collateral, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bitflyer.Collateral{
		Collateral: b.collateral,
		KeepRate:   b.cfg.KeepRate,
	}, nil
}

func (b *Broker) GetPositions(_ context.Context, productCode string) ([]bitflyer.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.side == bitflyer.SideNone || !b.size.IsPositive() {
		return nil, nil
	}
	return []bitflyer.Position{{
		ProductCode: productCode,
		Side:        b.side,
		Size:        b.size,
		Price:       b.entryPrice,
	}}, nil
}

func (b *Broker) GetTicker(ctx context.Context, productCode string) (bitflyer.Ticker, error) {
	return b.data.GetTicker(ctx, productCode)
}

// Submit fills the intent at the live mid adjusted for slippage.
func (b *Broker) Submit(ctx context.Context, intent engine.OrderIntent) (engine.OrderAck, error) {
	if b.cfg.MaxOrderSize > 0 &&
		intent.Size.GreaterThan(decimal.NewFromFloat(b.cfg.MaxOrderSize)) {
		return engine.OrderAck{}, &bitflyer.APIError{
			Status:       bitflyer.StatusSizeOver,
			ErrorMessage: "Order size exceeds paper account limit",
		}
	}

	tick, err := b.data.GetTicker(ctx, intent.ProductCode)
	if err != nil {
		return engine.OrderAck{}, err
	}
	mid := tick.Mid()
	if mid <= 0 {
		return engine.OrderAck{}, &bitflyer.APIError{
			Status:       -1,
			ErrorMessage: "no market price for paper fill",
		}
	}

	slip := mid * b.cfg.SlippageBps / 10000
	fill := mid + slip
	if intent.Side == bitflyer.SideSell {
		fill = mid - slip
	}

	b.mu.Lock()
	b.apply(intent.Side, intent.Size, fill)
	b.mu.Unlock()

	log.WithFields(logrus.Fields{
		"side":  intent.Side,
		"size":  intent.Size,
		"price": fill,
	}).Info("paper fill")
	return engine.OrderAck{AcceptanceID: "PAPER-" + intent.ID}, nil
}

// apply mutates the simulated position. Same-side or flat extends the
// position at a blended entry; opposite side reduces it and realizes PnL,
// flipping on overshoot. Caller must hold b.mu.
func (b *Broker) apply(side bitflyer.Side, size decimal.Decimal, price float64) {
	if b.side == bitflyer.SideNone || b.side == side {
		newSize := b.size.Add(size)
		if newSize.IsPositive() {
			weighted := b.entryPrice*b.size.InexactFloat64() + price*size.InexactFloat64()
			b.entryPrice = weighted / newSize.InexactFloat64()
		}
		b.side = side
		b.size = newSize
		return
	}

	closed := decimal.Min(size, b.size)
	pnl := (price - b.entryPrice) * closed.InexactFloat64()
	if b.side == bitflyer.SideSell {
		pnl = -pnl
	}
	b.collateral += pnl
	b.trades++
	if pnl > 0 {
		b.wins++
	}

	b.size = b.size.Sub(size)
	switch {
	case b.size.IsPositive():
		// Partial close keeps side and entry.
	case b.size.IsNegative():
		b.side = side
		b.size = b.size.Abs()
		b.entryPrice = price
	default:
		b.side = bitflyer.SideNone
		b.entryPrice = 0
	}
}

func (b *Broker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		InitialCollateral: b.cfg.InitialCollateral,
		Collateral:        b.collateral,
		Side:              b.side.String(),
		Size:              b.size,
		EntryPrice:        b.entryPrice,
		Trades:            b.trades,
		Wins:              b.wins,
	}
}
