package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

func testConfig() Config {
	return Config{
		SFDPins:     []float64{0.05, 0.1, 0.15, 0.2},
		SkipSFDDist: 0.005,
		MinKeepRate: 1.2,
		MaxSize:     0.1,
	}
}

func TestEvaluateAllows(t *testing.T) {
	f := New(testConfig())
	v := f.Evaluate(bitflyer.SideBuy, bitflyer.SideNone, decimal.Zero, 2.0, 0.01)
	if !v.Allow || v.Reason != ReasonOK {
		t.Fatalf("expected allow, got %+v", v)
	}
}

func TestEvaluateNearBoundary(t *testing.T) {
	f := New(testConfig())
	// 0.048 is 0.002 away from the 0.05 pin.
	v := f.Evaluate(bitflyer.SideSell, bitflyer.SideNone, decimal.Zero, 2.0, 0.048)
	if v.Allow || v.Reason != ReasonNearSFDBoundary {
		t.Fatalf("expected boundary veto, got %+v", v)
	}
	// Negative deviations measure against the same pins.
	v = f.Evaluate(bitflyer.SideBuy, bitflyer.SideNone, decimal.Zero, 2.0, -0.102)
	if v.Allow || v.Reason != ReasonNearSFDBoundary {
		t.Fatalf("expected boundary veto, got %+v", v)
	}
}

func TestEvaluateSFDPenalty(t *testing.T) {
	f := New(testConfig())
	v := f.Evaluate(bitflyer.SideBuy, bitflyer.SideNone, decimal.Zero, 2.0, 0.07)
	if v.Allow || v.Reason != ReasonSFDPenalty {
		t.Fatalf("expected penalty veto for BUY at +7%%, got %+v", v)
	}
	// The opposite side trades through the penalty regime.
	v = f.Evaluate(bitflyer.SideSell, bitflyer.SideNone, decimal.Zero, 2.0, 0.07)
	if !v.Allow {
		t.Fatalf("expected SELL allowed at +7%%, got %+v", v)
	}
	// Below the lowest pin no side is penalized.
	v = f.Evaluate(bitflyer.SideBuy, bitflyer.SideNone, decimal.Zero, 2.0, 0.03)
	if !v.Allow {
		t.Fatalf("expected allow below lowest pin, got %+v", v)
	}
	v = f.Evaluate(bitflyer.SideSell, bitflyer.SideNone, decimal.Zero, 2.0, -0.07)
	if v.Allow || v.Reason != ReasonSFDPenalty {
		t.Fatalf("expected penalty veto for SELL at -7%%, got %+v", v)
	}
}

func TestEvaluateMarginRetention(t *testing.T) {
	f := New(testConfig())
	v := f.Evaluate(bitflyer.SideBuy, bitflyer.SideBuy, decimal.NewFromFloat(0.02), 1.1, 0.01)
	if v.Allow || v.Reason != ReasonLowMarginRetention {
		t.Fatalf("expected retention veto, got %+v", v)
	}
	// Growing the opposite side reduces exposure; the floor does not apply.
	v = f.Evaluate(bitflyer.SideSell, bitflyer.SideBuy, decimal.NewFromFloat(0.02), 1.1, 0.01)
	if !v.Allow {
		t.Fatalf("expected opposite side allowed, got %+v", v)
	}
	// A non-positive keep rate means no margin in use.
	v = f.Evaluate(bitflyer.SideBuy, bitflyer.SideBuy, decimal.NewFromFloat(0.02), 0, 0.01)
	if !v.Allow {
		t.Fatalf("expected allow with zero keep rate, got %+v", v)
	}
}

func TestEvaluatePositionLimit(t *testing.T) {
	f := New(testConfig())
	v := f.Evaluate(bitflyer.SideSell, bitflyer.SideSell, decimal.NewFromFloat(0.1), 2.0, 0.01)
	if v.Allow || v.Reason != ReasonPositionLimit {
		t.Fatalf("expected position-limit veto, got %+v", v)
	}
	v = f.Evaluate(bitflyer.SideSell, bitflyer.SideSell, decimal.NewFromFloat(0.09), 2.0, 0.01)
	if !v.Allow {
		t.Fatalf("expected allow below cap, got %+v", v)
	}
}

func TestEvaluatePrecedence(t *testing.T) {
	f := New(testConfig())
	// Near a pin everything else is moot, even a same-side position at cap
	// with depleted margin.
	v := f.Evaluate(bitflyer.SideBuy, bitflyer.SideBuy, decimal.NewFromFloat(0.2), 1.0, 0.051)
	if v.Allow || v.Reason != ReasonNearSFDBoundary {
		t.Fatalf("expected boundary first, got %+v", v)
	}
	// Away from pins the penalized side outranks the same-side checks.
	v = f.Evaluate(bitflyer.SideBuy, bitflyer.SideBuy, decimal.NewFromFloat(0.2), 1.0, 0.075)
	if v.Allow || v.Reason != ReasonSFDPenalty {
		t.Fatalf("expected penalty before retention, got %+v", v)
	}
	// Retention outranks the size cap.
	v = f.Evaluate(bitflyer.SideBuy, bitflyer.SideBuy, decimal.NewFromFloat(0.2), 1.0, 0.01)
	if v.Allow || v.Reason != ReasonLowMarginRetention {
		t.Fatalf("expected retention before position limit, got %+v", v)
	}
}

func TestReasonString(t *testing.T) {
	if got := ReasonSFDPenalty.String(); got != "sfd penalty" {
		t.Fatalf("got %q", got)
	}
	if got := Reason(99).String(); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}
