package strategy

import "math"

// Ewma is an exponential moving-average/variance estimator over a scalar
// series. The zero state before priming is {mean 0, variance 1}.
type Ewma struct {
	Mean     float64
	Variance float64
}

func NewEwma() Ewma {
	return Ewma{Mean: 0, Variance: 1}
}

// Update folds one sample into the state and returns the new state.
// alpha must be within (0,1]; alpha=1 collapses to {sample, 0}.
func (e Ewma) Update(sample, alpha float64) Ewma {
	diff := sample - e.Mean
	return Ewma{
		Mean:     alpha*sample + (1-alpha)*e.Mean,
		Variance: (1 - alpha) * (e.Variance + alpha*diff*diff),
	}
}

// Band returns the confidence band mean ± sigma*sqrt(variance).
func (e Ewma) Band(sigma float64) (lo, hi float64) {
	d := sigma * math.Sqrt(e.Variance)
	return e.Mean - d, e.Mean + d
}
