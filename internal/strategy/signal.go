package strategy

import "github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"

// OrderSide derives the candidate order side from the volume-delta EWMA.
//
// When opening, the whole confidence band must clear zero: entirely above
// means BUY, entirely below means SELL, otherwise no candidate. When closing,
// the sign of the mean alone decides. An active contrarian toggle flips the
// result.
func OrderSide(vd Ewma, sigma float64, opening, contrarian bool) bitflyer.Side {
	var side bitflyer.Side
	if opening {
		lo, hi := vd.Band(sigma)
		switch {
		case lo > 0:
			side = bitflyer.SideBuy
		case hi < 0:
			side = bitflyer.SideSell
		default:
			return bitflyer.SideNone
		}
	} else {
		if vd.Mean > 0 {
			side = bitflyer.SideBuy
		} else {
			side = bitflyer.SideSell
		}
	}
	if contrarian {
		side = side.Opposite()
	}
	return side
}
