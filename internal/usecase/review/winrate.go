package review

import "math"

// Transformer stretches win-rates so that swings near an even game count
// for more than swings in an already decided one.
type Transformer struct {
	stdev float64
}

func NewTransformer(stdev float64) Transformer {
	if stdev <= 0 {
		stdev = 1
	}
	return Transformer{stdev: stdev}
}

// Apply maps p through the normal CDF of its logit scaled by stdev.
func (t Transformer) Apply(p float64) float64 {
	const eps = 1e-6
	p = math.Min(math.Max(p, eps), 1-eps)
	logit := math.Log(p / (1 - p))
	return 0.5 * (1 + math.Erf(logit/(t.stdev*math.Sqrt2)))
}

// Threshold turns a raw win-rate swing around 50% into the transformed scale.
func (t Transformer) Threshold(swing float64) float64 {
	return t.Apply(0.5+0.5*swing) - t.Apply(0.5-0.5*swing)
}
