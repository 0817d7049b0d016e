package position

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

// epsilon is the size tolerance below which reserved and exchange-reported
// positions are considered equal.
var epsilon = decimal.NewFromFloat(0.001)

// State reports whether the reserved position mirrors the exchange.
type State int

const (
	Calibrated State = iota
	Pending
)

func (s State) String() string {
	if s == Pending {
		return "PENDING"
	}
	return "CALIBRATED"
}

// Snapshot is a read-only copy of the reconciler's belief.
type Snapshot struct {
	State       string          `json:"state"`
	Side        string          `json:"side"`
	Size        decimal.Decimal `json:"size"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
}

// Reconciler tracks the engine's own belief about its outstanding position
// and recalibrates it against the exchange's report once in-flight orders
// have either executed or timed out.
type Reconciler struct {
	unit    decimal.Decimal
	timeout time.Duration

	side        bitflyer.Side
	size        decimal.Decimal
	submittedAt time.Time
}

func NewReconciler(unit float64, timeout time.Duration) *Reconciler {
	return &Reconciler{
		unit:    decimal.NewFromFloat(unit),
		timeout: timeout,
		size:    decimal.Zero,
	}
}

// Reconcile compares the reserved position against the exchange report.
// It returns true while a submitted order is still treated as in flight:
// the sizes differ by at least epsilon and the pending timeout has not
// elapsed. Otherwise the reserved state is overwritten from the report.
func (r *Reconciler) Reconcile(exchSide bitflyer.Side, exchSize decimal.Decimal, now time.Time) bool {
	if !r.submittedAt.IsZero() &&
		r.size.Sub(exchSize).Abs().GreaterThanOrEqual(epsilon) &&
		now.Sub(r.submittedAt) < r.timeout {
		return true
	}
	r.side = exchSide
	r.size = exchSize
	r.submittedAt = time.Time{}
	return false
}

// MarkSubmitted records that an order left for the exchange.
func (r *Reconciler) MarkSubmitted(now time.Time) {
	r.submittedAt = now
}

// ApplyOpen adjusts the reserved state for an accepted opening order.
func (r *Reconciler) ApplyOpen(side bitflyer.Side, size decimal.Decimal) {
	r.size = r.size.Add(size)
	r.side = side
}

// ApplyClose adjusts the reserved state for an accepted closing order.
// A remainder within epsilon of zero flattens the side; an overshoot past
// zero leaves the position on the order's own side.
func (r *Reconciler) ApplyClose(orderSide bitflyer.Side, size decimal.Decimal) {
	r.size = r.size.Sub(size)
	switch {
	case r.size.Abs().LessThan(epsilon):
		r.side = bitflyer.SideNone
		r.size = decimal.Zero
	case r.size.LessThanOrEqual(epsilon.Neg()):
		r.side = orderSide
	default:
		r.side = orderSide.Opposite()
	}
}

// Opening reports whether the engine is in opening mode: the reserved size
// has not yet reached one size unit.
func (r *Reconciler) Opening() bool {
	return r.size.LessThan(r.unit)
}

func (r *Reconciler) Side() bitflyer.Side { return r.side }

func (r *Reconciler) Size() decimal.Decimal { return r.size }

func (r *Reconciler) State() State {
	if r.submittedAt.IsZero() {
		return Calibrated
	}
	return Pending
}

func (r *Reconciler) Snapshot() Snapshot {
	s := Snapshot{
		State: r.State().String(),
		Side:  r.side.String(),
		Size:  r.size,
	}
	if !r.submittedAt.IsZero() {
		t := r.submittedAt
		s.SubmittedAt = &t
	}
	return s
}
