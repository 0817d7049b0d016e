package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

// VolumeSample is the per-side summed execution volume for one event window.
type VolumeSample struct {
	Buy  decimal.Decimal
	Sell decimal.Decimal
}

// AggregateVolume folds a batch of executions into per-side volume. Both
// sides are always present; a one-sided batch yields zero for the other.
func AggregateVolume(execs []bitflyer.Execution) VolumeSample {
	v := VolumeSample{Buy: decimal.Zero, Sell: decimal.Zero}
	for _, e := range execs {
		if e.Size.IsNegative() {
			continue
		}
		switch e.Side {
		case bitflyer.SideBuy:
			v.Buy = v.Buy.Add(e.Size)
		case bitflyer.SideSell:
			v.Sell = v.Sell.Add(e.Size)
		}
	}
	return v
}

// Delta returns buy volume minus sell volume as a float for the EWMA.
func (v VolumeSample) Delta() float64 {
	return v.Buy.Sub(v.Sell).InexactFloat64()
}
