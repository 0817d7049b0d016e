package risk

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

// Reason explains why a candidate order was vetoed.
type Reason int

const (
	ReasonOK Reason = iota
	ReasonNearSFDBoundary
	ReasonSFDPenalty
	ReasonLowMarginRetention
	ReasonPositionLimit
)

func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonNearSFDBoundary:
		return "sfd boundary"
	case ReasonSFDPenalty:
		return "sfd penalty"
	case ReasonLowMarginRetention:
		return "margin retention"
	case ReasonPositionLimit:
		return "position limit"
	default:
		return "unknown"
	}
}

// Verdict is the outcome of a risk evaluation.
type Verdict struct {
	Allow  bool
	Reason Reason
}

type Config struct {
	// SFDPins are the funding-deviation thresholds around which the
	// exchange levies the SFD charge.
	SFDPins []float64
	// SkipSFDDist vetoes any order whose deviation sits within this
	// distance of a pin, regardless of side.
	SkipSFDDist float64
	MinKeepRate float64
	MaxSize     float64
}

// Filter evaluates the layered risk vetoes in fixed precedence order.
type Filter struct {
	cfg Config
}

func New(cfg Config) *Filter {
	return &Filter{cfg: cfg}
}

// Evaluate returns the first veto that fires, or an allow verdict.
//
// Precedence: SFD boundary proximity, SFD-penalized side, margin retention
// floor on same-side growth, position-size cap on same-side growth.
func (f *Filter) Evaluate(candidate, posSide bitflyer.Side, posSize decimal.Decimal, keepRate, deviation float64) Verdict {
	if f.nearBoundary(deviation) {
		return Verdict{Reason: ReasonNearSFDBoundary}
	}
	if candidate == f.PenalizedSide(deviation) {
		return Verdict{Reason: ReasonSFDPenalty}
	}
	if candidate == posSide {
		if f.cfg.MinKeepRate > 0 && keepRate > 0 && keepRate < f.cfg.MinKeepRate {
			return Verdict{Reason: ReasonLowMarginRetention}
		}
		if f.cfg.MaxSize > 0 && posSize.GreaterThanOrEqual(decimal.NewFromFloat(f.cfg.MaxSize)) {
			return Verdict{Reason: ReasonPositionLimit}
		}
	}
	return Verdict{Allow: true, Reason: ReasonOK}
}

// PenalizedSide returns the side the SFD charge applies to, or SideNone
// while the deviation sits below the lowest pin.
func (f *Filter) PenalizedSide(deviation float64) bitflyer.Side {
	if len(f.cfg.SFDPins) == 0 || math.Abs(deviation) < f.minPin() {
		return bitflyer.SideNone
	}
	if deviation >= 0 {
		return bitflyer.SideBuy
	}
	return bitflyer.SideSell
}

// nearBoundary reports whether the deviation is within SkipSFDDist of any pin.
func (f *Filter) nearBoundary(deviation float64) bool {
	if f.cfg.SkipSFDDist <= 0 {
		return false
	}
	dist := math.Inf(1)
	for _, pin := range f.cfg.SFDPins {
		if d := math.Abs(math.Abs(deviation) - pin); d < dist {
			dist = d
		}
	}
	return dist < f.cfg.SkipSFDDist
}

func (f *Filter) minPin() float64 {
	min := math.Inf(1)
	for _, pin := range f.cfg.SFDPins {
		if pin < min {
			min = pin
		}
	}
	return min
}
