package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestReconcileAdoptsExchangeWhenIdle(t *testing.T) {
	r := NewReconciler(0.01, time.Hour)

	pending := r.Reconcile(bitflyer.SideSell, decimal.NewFromFloat(0.05), t0)
	require.False(t, pending)
	assert.Equal(t, bitflyer.SideSell, r.Side())
	assert.True(t, r.Size().Equal(decimal.NewFromFloat(0.05)))
	assert.Equal(t, Calibrated, r.State())
}

func TestReconcilePendingWhileInFlight(t *testing.T) {
	r := NewReconciler(0.01, time.Minute)
	r.ApplyOpen(bitflyer.SideBuy, decimal.NewFromFloat(0.01))
	r.MarkSubmitted(t0)

	// The exchange has not seen the fill yet.
	pending := r.Reconcile(bitflyer.SideNone, decimal.Zero, t0.Add(10*time.Second))
	require.True(t, pending)
	assert.Equal(t, Pending, r.State())
	assert.True(t, r.Size().Equal(decimal.NewFromFloat(0.01)), "reserved state must survive a pending reconcile")

	// Once the report matches within tolerance the flag clears.
	pending = r.Reconcile(bitflyer.SideBuy, decimal.NewFromFloat(0.0101), t0.Add(20*time.Second))
	require.False(t, pending)
	assert.Equal(t, Calibrated, r.State())
}

func TestReconcileTimeoutForcesCalibration(t *testing.T) {
	r := NewReconciler(0.01, time.Minute)
	r.ApplyOpen(bitflyer.SideBuy, decimal.NewFromFloat(1))
	r.MarkSubmitted(t0)

	pending := r.Reconcile(bitflyer.SideBuy, decimal.NewFromFloat(0.5), t0.Add(2*time.Minute))
	require.False(t, pending, "a stale submission must not block forever")
	assert.True(t, r.Size().Equal(decimal.NewFromFloat(0.5)))
	assert.Equal(t, bitflyer.SideBuy, r.Side())
	assert.Equal(t, Calibrated, r.State())
}

func TestApplyCloseFlattens(t *testing.T) {
	r := NewReconciler(0.01, time.Hour)
	r.ApplyOpen(bitflyer.SideBuy, decimal.NewFromFloat(0.03))

	r.ApplyClose(bitflyer.SideSell, decimal.NewFromFloat(0.03))
	assert.Equal(t, bitflyer.SideNone, r.Side())
	assert.True(t, r.Size().IsZero())
	assert.True(t, r.Opening())
}

func TestApplyClosePartialKeepsSide(t *testing.T) {
	r := NewReconciler(0.01, time.Hour)
	r.ApplyOpen(bitflyer.SideBuy, decimal.NewFromFloat(0.05))

	r.ApplyClose(bitflyer.SideSell, decimal.NewFromFloat(0.02))
	assert.Equal(t, bitflyer.SideBuy, r.Side())
	assert.True(t, r.Size().Equal(decimal.NewFromFloat(0.03)))
}

func TestApplyCloseOvershootFlips(t *testing.T) {
	r := NewReconciler(0.01, time.Hour)
	r.ApplyOpen(bitflyer.SideBuy, decimal.NewFromFloat(0.02))

	r.ApplyClose(bitflyer.SideSell, decimal.NewFromFloat(0.05))
	assert.Equal(t, bitflyer.SideSell, r.Side())
	assert.True(t, r.Size().Equal(decimal.NewFromFloat(-0.03)))
}

func TestOpeningThreshold(t *testing.T) {
	r := NewReconciler(0.01, time.Hour)
	assert.True(t, r.Opening())

	r.ApplyOpen(bitflyer.SideBuy, decimal.NewFromFloat(0.009))
	assert.True(t, r.Opening(), "below one unit is still opening")

	r.ApplyOpen(bitflyer.SideBuy, decimal.NewFromFloat(0.001))
	assert.False(t, r.Opening())
}

func TestSnapshot(t *testing.T) {
	r := NewReconciler(0.01, time.Hour)
	r.ApplyOpen(bitflyer.SideBuy, decimal.NewFromFloat(0.01))
	r.MarkSubmitted(t0)

	s := r.Snapshot()
	assert.Equal(t, "PENDING", s.State)
	assert.Equal(t, "BUY", s.Side)
	require.NotNil(t, s.SubmittedAt)
	assert.Equal(t, t0, *s.SubmittedAt)
}
