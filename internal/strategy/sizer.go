package strategy

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

// BetPolicy selects how the next opening size reacts to the last outcome.
type BetPolicy int

const (
	BetFlat BetPolicy = iota
	BetMartingale
	BetDAlembert
	BetOscarsGrind
)

// sizeGranularity is the exchange's minimum size step.
var sizeGranularity int32 = 3

// ParsePolicy maps a configured policy name to a BetPolicy. Unrecognized
// names fall back to flat unit sizing.
func ParsePolicy(name string) BetPolicy {
	n := strings.ToLower(name)
	n = strings.NewReplacer("'", "", " ", "", "-", "", "_", "").Replace(n)
	switch n {
	case "martingale":
		return BetMartingale
	case "dalembert":
		return BetDAlembert
	case "oscarsgrind":
		return BetOscarsGrind
	default:
		return BetFlat
	}
}

// OpenTrade captures the most recently opened position leg.
type OpenTrade struct {
	Side       bitflyer.Side
	Size       decimal.Decimal
	Price      float64
	Collateral float64
}

// Sizer computes order sizes under a stateful bet policy.
type Sizer struct {
	policy BetPolicy
	unit   decimal.Decimal
	max    decimal.Decimal
}

func NewSizer(policy string, unit, max float64) *Sizer {
	return &Sizer{
		policy: ParsePolicy(policy),
		unit:   decimal.NewFromFloat(unit),
		max:    decimal.NewFromFloat(max),
	}
}

func (s *Sizer) Unit() decimal.Decimal { return s.unit }

// NextSize returns the size of the next order.
//
// Closing orders pass the reserved size through untouched. After a single
// oversized-order rejection the previous attempt is repeated rather than
// regrown. Otherwise the policy keys on whether collateral grew since the
// last open; the result is capped at max and floored to the size step.
func (s *Sizer) NextSize(opening bool, reserved decimal.Decimal, last *OpenTrade, collateral float64, sizeOverCount int) decimal.Decimal {
	if !opening {
		return reserved
	}
	if sizeOverCount == 1 && last != nil {
		return last.Size
	}
	if sizeOverCount != 0 || last == nil {
		return s.unit
	}

	won := last.Collateral < collateral
	var bet decimal.Decimal
	switch s.policy {
	case BetMartingale:
		if won {
			bet = s.unit
		} else {
			bet = last.Size.Mul(decimal.NewFromInt(2))
		}
	case BetDAlembert:
		if won {
			bet = s.unit
		} else {
			bet = last.Size.Add(s.unit)
		}
	case BetOscarsGrind:
		if won {
			bet = last.Size.Add(s.unit)
		} else {
			bet = s.unit
		}
	default:
		bet = s.unit
	}

	if s.max.IsPositive() && bet.GreaterThan(s.max) {
		bet = s.max
	}
	return bet.RoundFloor(sizeGranularity)
}
