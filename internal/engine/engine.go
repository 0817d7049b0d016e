package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
	"github.com/GoBitflyer/bitflyer-trader/internal/config"
	"github.com/GoBitflyer/bitflyer-trader/internal/metrics"
	"github.com/GoBitflyer/bitflyer-trader/internal/position"
	"github.com/GoBitflyer/bitflyer-trader/internal/risk"
	"github.com/GoBitflyer/bitflyer-trader/internal/strategy"
)

var log = logrus.WithField("component", "engine")

// normSource supplies gaussian draws for the pivot toggle. Tests inject a
// deterministic sequence; production uses math/rand.
type normSource interface {
	NormFloat64() float64
}

// snapshot is the per-cycle view of account and market state.
type snapshot struct {
	collateral float64
	keepRate   float64
	posSide    bitflyer.Side
	posSize    decimal.Decimal
	price      float64
	deviation  float64
}

// Engine is the single-instrument decision loop. One execution-event batch
// is fully processed before the next is accepted; all state below is
// mutated only from the event goroutine.
type Engine struct {
	cfg     config.Config
	product string // leveraged product actually traded

	source   MarketDataSource
	gateway  OrderGateway
	notifier Notifier
	rng      normSource

	mu sync.RWMutex

	warmupLeft    int
	vd            strategy.Ewma // volume delta
	lrr           strategy.Ewma // log return between opens
	volumes       strategy.VolumeSample
	sizer         *strategy.Sizer
	filter        *risk.Filter
	rec           *position.Reconciler
	lastOpen      *strategy.OpenTrade
	contrarian    bool
	sizeOverCount int
}

func New(cfg config.Config, source MarketDataSource, gateway OrderGateway) *Engine {
	return &Engine{
		cfg:        cfg,
		product:    cfg.FXProduct(),
		source:     source,
		gateway:    gateway,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		warmupLeft: cfg.Trade.WarmupCount,
		vd:         strategy.NewEwma(),
		lrr:        strategy.NewEwma(),
		sizer:      strategy.NewSizer(cfg.Trade.Bet, cfg.Trade.Size.Unit, cfg.Trade.Size.Max),
		filter: risk.New(risk.Config{
			SFDPins:     cfg.Risk.SFDPins,
			SkipSFDDist: cfg.Risk.SkipSFDDist,
			MinKeepRate: cfg.Risk.MinKeepRate,
			MaxSize:     cfg.Risk.MaxSize,
		}),
		rec:        position.NewReconciler(cfg.Trade.Size.Unit, time.Duration(cfg.Trade.Timeout)),
		contrarian: cfg.Trade.Contrarian,
	}
}

// SetNotifier attaches an optional order notifier.
func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

// SetRandSource overrides the gaussian source used by the pivot toggle.
func (e *Engine) SetRandSource(r normSource) { e.rng = r }

// Run consumes execution-event batches until the context is cancelled.
func (e *Engine) Run(ctx context.Context, events <-chan []bitflyer.Execution) error {
	log.WithFields(logrus.Fields{
		"product": e.product,
		"bet":     e.cfg.Trade.Bet,
		"warmup":  e.warmupLeft,
	}).Info("decision loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-events:
			if !ok {
				return errors.New("event stream closed")
			}
			e.HandleExecutions(ctx, batch)
		}
	}
}

// HandleExecutions runs one full decision cycle for an execution batch.
func (e *Engine) HandleExecutions(ctx context.Context, execs []bitflyer.Execution) {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics.Events.Inc()
	e.volumes = strategy.AggregateVolume(execs)
	e.vd = e.vd.Update(e.volumes.Delta(), e.cfg.Trade.EwmAlpha)

	if e.warmupLeft > 0 {
		e.warmupLeft--
		e.printStatus(fmt.Sprintf("Wait for loading. (left: %d)", e.warmupLeft))
		return
	}

	snap, err := e.fetchSnapshot(ctx)
	if err != nil {
		log.WithError(err).Error("snapshot fetch failed, cycle abandoned")
		metrics.Skips.WithLabelValues("snapshot").Inc()
		return
	}
	metrics.Collateral.Set(snap.collateral)

	now := time.Now()
	if e.rec.Reconcile(snap.posSide, snap.posSize, now) {
		e.printStatus(fmt.Sprintf(
			"Skip by queue. (side: %s, size: %s)", e.rec.Side(), e.rec.Size()))
		metrics.Skips.WithLabelValues("queue").Inc()
		return
	}

	opening := e.rec.Opening()
	side := strategy.OrderSide(e.vd, e.cfg.Trade.SigmaTrigger, opening, e.contrarian)
	if side == bitflyer.SideNone {
		e.printStatus("Skip by volume difference.")
		metrics.Skips.WithLabelValues("volume").Inc()
		return
	}
	if !opening && side == e.rec.Side() {
		e.printStatus(fmt.Sprintf(
			"Skip by position. (side: %s, size: %s)", e.rec.Side(), e.rec.Size()))
		metrics.Skips.WithLabelValues("position").Inc()
		return
	}

	size := e.sizer.NextSize(opening, e.rec.Size(), e.lastOpen, snap.collateral, e.sizeOverCount)
	if !size.IsPositive() {
		e.printStatus("Skip by zero size.")
		metrics.Skips.WithLabelValues("size").Inc()
		return
	}

	if v := e.filter.Evaluate(side, snap.posSide, snap.posSize, snap.keepRate, snap.deviation); !v.Allow {
		e.printStatus(fmt.Sprintf("Skip by %s. (side: %s)", v.Reason, side))
		metrics.Skips.WithLabelValues(v.Reason.String()).Inc()
		return
	}

	e.submit(ctx, side, size, opening, snap, now)
}

func (e *Engine) submit(ctx context.Context, side bitflyer.Side, size decimal.Decimal, opening bool, snap snapshot, now time.Time) {
	intent := e.buildIntent(side, size, opening, snap.price)

	ack, err := e.gateway.Submit(ctx, intent)
	if err != nil {
		var apiErr *bitflyer.APIError
		if errors.As(err, &apiErr) {
			if apiErr.SizeOver() {
				e.sizeOverCount++
			}
			e.printStatus(fmt.Sprintf("%s %s %s. => Rejected.", side, size, e.pairLabel()))
			log.WithFields(logrus.Fields{
				"status":  apiErr.Status,
				"message": apiErr.ErrorMessage,
				"intent":  intent.ID,
			}).Warn("order rejected")
			metrics.Orders.WithLabelValues(string(side), "rejected").Inc()
			e.notifyOrder(ctx, side, size, false)
			return
		}
		log.WithError(err).Error("order submission failed, cycle abandoned")
		metrics.Skips.WithLabelValues("gateway").Inc()
		return
	}

	e.printStatus(fmt.Sprintf("%s %s %s. => Accepted.", side, size, e.pairLabel()))
	log.WithFields(logrus.Fields{
		"acceptance_id": ack.AcceptanceID,
		"intent":        intent.ID,
	}).Info("order accepted")
	metrics.Orders.WithLabelValues(string(side), "accepted").Inc()
	e.notifyOrder(ctx, side, size, true)

	e.rec.MarkSubmitted(now)
	if opening {
		e.lastOpen = &strategy.OpenTrade{
			Side:       side,
			Size:       size,
			Price:      snap.price,
			Collateral: snap.collateral,
		}
		e.rec.ApplyOpen(side, size)
	} else {
		if e.cfg.Trade.Pivot {
			e.maybePivot(side, snap.price)
		}
		e.rec.ApplyClose(side, size)
	}
	e.sizeOverCount = 0
}

func (e *Engine) notifyOrder(ctx context.Context, side bitflyer.Side, size decimal.Decimal, accepted bool) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyOrder(ctx, side.String(), size.InexactFloat64(), accepted); err != nil {
		log.WithError(err).Debug("notify failed")
	}
}

// buildIntent shapes the order: a plain market order, or an IFDOCO bracket
// for opens when configured.
func (e *Engine) buildIntent(side bitflyer.Side, size decimal.Decimal, opening bool, price float64) OrderIntent {
	intent := OrderIntent{
		ID:          uuid.NewString(),
		ProductCode: e.product,
		Side:        side,
		Size:        size,
		Kind:        KindMarket,
		TimeInForce: e.cfg.Order.TimeInForce,
	}
	if !opening || !e.cfg.Order.IFDOCO {
		return intent
	}

	tp := price * e.cfg.Order.TakeProfitBps / 10000
	sl := price * e.cfg.Order.StopLossBps / 10000
	intent.Kind = KindLimitBracket
	intent.Price = price
	if side == bitflyer.SideBuy {
		intent.TakeProfit = price + tp
		intent.StopLoss = price - sl
	} else {
		intent.TakeProfit = price - tp
		intent.StopLoss = price + sl
	}
	return intent
}

// maybePivot updates the log-return EWMA from the closing price and draws
// from its distribution: a draw against the closed direction toggles the
// contrarian flag for future cycles.
func (e *Engine) maybePivot(closeSide bitflyer.Side, price float64) {
	sample := 0.0
	if e.lastOpen != nil && e.lastOpen.Price > 0 && price > 0 {
		sample = math.Log(price / e.lastOpen.Price)
	}
	e.lrr = e.lrr.Update(sample, e.cfg.Trade.EwmAlpha)

	draw := e.lrr.Mean + e.rng.NormFloat64()*math.Sqrt(e.lrr.Variance)
	sign := 1.0
	if closeSide == bitflyer.SideBuy {
		sign = -1.0
	}
	if draw*sign < 0 {
		e.contrarian = !e.contrarian
		log.WithField("contrarian", e.contrarian).Info("pivot toggled")
	}
	if e.contrarian {
		metrics.Contrarian.Set(1)
	} else {
		metrics.Contrarian.Set(0)
	}
}

// fetchSnapshot pulls collateral, positions, and both tickers, and derives
// the funding-rate deviation of the leveraged product from its underlying.
func (e *Engine) fetchSnapshot(ctx context.Context) (snapshot, error) {
	collat, err := e.source.GetCollateral(ctx)
	if err != nil {
		return snapshot{}, err
	}

	legs, err := e.source.GetPositions(ctx, e.product)
	if err != nil {
		return snapshot{}, err
	}
	posSide, posSize := foldPositions(legs)

	fxTick, err := e.source.GetTicker(ctx, e.product)
	if err != nil {
		return snapshot{}, err
	}
	originTick, err := e.source.GetTicker(ctx, e.cfg.Product)
	if err != nil {
		return snapshot{}, err
	}
	fxMid, originMid := fxTick.Mid(), originTick.Mid()
	if fxMid <= 0 || originMid <= 0 {
		return snapshot{}, errors.Errorf(
			"malformed ticker: fx=%f origin=%f", fxMid, originMid)
	}

	return snapshot{
		collateral: collat.Collateral,
		keepRate:   collat.KeepRate,
		posSide:    posSide,
		posSize:    posSize,
		price:      fxMid,
		deviation:  (fxMid - originMid) / originMid,
	}, nil
}

// foldPositions sums leg sizes per side and reports the dominant side.
func foldPositions(legs []bitflyer.Position) (bitflyer.Side, decimal.Decimal) {
	sums := map[bitflyer.Side]decimal.Decimal{
		bitflyer.SideBuy:  decimal.Zero,
		bitflyer.SideSell: decimal.Zero,
	}
	for _, p := range legs {
		if s, ok := sums[p.Side]; ok {
			sums[p.Side] = s.Add(p.Size)
		}
	}
	side, size := bitflyer.SideBuy, sums[bitflyer.SideBuy]
	if sums[bitflyer.SideSell].GreaterThan(size) {
		side, size = bitflyer.SideSell, sums[bitflyer.SideSell]
	}
	if !size.IsPositive() {
		return bitflyer.SideNone, decimal.Zero
	}
	return side, size
}

func (e *Engine) pairLabel() string {
	// BTC_JPY → BTC-FX/JPY
	return strings.Replace(e.cfg.Product, "_", "-FX/", 1)
}

// printStatus emits the one-line cycle trace:
// | BUY:   3.000 | SELL:   1.250 | EWMA:   0.017 | > message
func (e *Engine) printStatus(msg string) {
	log.Infof("| BUY:%s | SELL:%s | EWMA:%8.3f | > %s",
		fmtVolume(e.volumes.Buy), fmtVolume(e.volumes.Sell), e.vd.Mean, msg)
}

// Snapshot is the engine state exposed to the dashboard API.
type Snapshot struct {
	State         string            `json:"state"`
	WarmupLeft    int               `json:"warmup_left"`
	EwmaMean      float64           `json:"ewma_mean"`
	EwmaVariance  float64           `json:"ewma_variance"`
	Contrarian    bool              `json:"contrarian"`
	SizeOverCount int               `json:"size_over_count"`
	Reserved      position.Snapshot `json:"reserved"`
	LastOpenSide  string            `json:"last_open_side,omitempty"`
	LastOpenSize  decimal.Decimal   `json:"last_open_size,omitempty"`
	LastOpenPrice float64           `json:"last_open_price,omitempty"`
}

// StateSnapshot returns a read-only copy of the engine state.
func (e *Engine) StateSnapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Snapshot{
		State:         "ACTIVE",
		WarmupLeft:    e.warmupLeft,
		EwmaMean:      e.vd.Mean,
		EwmaVariance:  e.vd.Variance,
		Contrarian:    e.contrarian,
		SizeOverCount: e.sizeOverCount,
		Reserved:      e.rec.Snapshot(),
	}
	if e.warmupLeft > 0 {
		s.State = "WARMING_UP"
	}
	if e.lastOpen != nil {
		s.LastOpenSide = e.lastOpen.Side.String()
		s.LastOpenSize = e.lastOpen.Size
		s.LastOpenPrice = e.lastOpen.Price
	}
	return s
}

func fmtVolume(v decimal.Decimal) string {
	if v.IsZero() {
		return "        "
	}
	return fmt.Sprintf("%8.3f", v.InexactFloat64())
}
