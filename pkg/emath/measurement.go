package emath

import (
	"fmt"
	"math"
)

// A Measurement is a value with an independent (1-sigma) uncertainty. All the
// arithmetic here propagates the errors in quadrature.
type Measurement struct {
	Value float64
	Error float64
}

func M(v, e float64) Measurement { return Measurement{Value: v, Error: e} }

func (m Measurement) String() string {
	return fmt.Sprintf("%g ± %g", m.Value, m.Error)
}

func (a Measurement) Add(b Measurement) Measurement {
	return Measurement{a.Value + b.Value, Quadrature(a.Error, b.Error)}
}

func (a Measurement) Sub(b Measurement) Measurement {
	return Measurement{a.Value - b.Value, Quadrature(a.Error, b.Error)}
}

// Scale multiplies by an exact constant.
func (a Measurement) Scale(k float64) Measurement {
	return Measurement{a.Value * k, math.Abs(k) * a.Error}
}

// SNR is the signal to noise ratio; +Inf for a perfect (zero error) measurement.
func (a Measurement) SNR() float64 {
	if a.Error == 0 {
		return math.Inf(1)
	}
	return a.Value / a.Error
}

// Quadrature returns sqrt(e1² + e2² + ...)
func Quadrature(errs ...float64) float64 {
	sum := 0.0
	for _, e := range errs {
		sum += e * e
	}
	return math.Sqrt(sum)
}
