package aperture

import (
	"math"

	"github.com/abworrall/dust-sed/pkg/emath"
)

// An Integrator sums a pixel grid over an aperture. If an error grid is
// supplied (1-sigma per pixel), the propagated error of the sum comes
// back too and the bool is true; otherwise the error is absent. An error
// grid that isn't the same shape as the pixels is ignored, as if nil.
type Integrator interface {
	Integrate(pixels *emath.FloatGrid, ap Aperture, errors *emath.FloatGrid) (emath.Measurement, bool)
}

// SubpixelIntegrator weights each pixel by the fraction of an NxN grid of
// sample points that fall inside the aperture. Non-finite pixels (NaN
// borders on Herschel maps, mostly) contribute nothing.
//
// The error of the sum is sqrt(sum(w * err^2)), like photutils.
type SubpixelIntegrator struct {
	Subsamples int
}

func NewSubpixelIntegrator(n int) SubpixelIntegrator {
	if n < 1 {
		n = 1
	}
	return SubpixelIntegrator{Subsamples: n}
}

func (si SubpixelIntegrator) Integrate(pixels *emath.FloatGrid, ap Aperture, errors *emath.FloatGrid) (emath.Measurement, bool) {
	n := si.Subsamples
	if n < 1 {
		n = 1
	}
	withErrors := errors != nil && errors.SameShape(pixels)
	if pixels.Dx() == 0 || pixels.Dy() == 0 {
		return emath.Measurement{}, withErrors
	}

	xmin, ymin, xmax, ymax := ap.Bounds()
	x0 := clamp(int(math.Floor(xmin+0.5)), 0, pixels.Dx()-1)
	x1 := clamp(int(math.Ceil(xmax-0.5)), 0, pixels.Dx()-1)
	y0 := clamp(int(math.Floor(ymin+0.5)), 0, pixels.Dy()-1)
	y1 := clamp(int(math.Ceil(ymax-0.5)), 0, pixels.Dy()-1)

	step := 1.0 / float64(n)
	sum, variance := 0.0, 0.0

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			w := Coverage(ap, float64(x), float64(y), n, step)
			if w == 0 {
				continue
			}

			v := pixels.Get(x, y)
			if !emath.IsFinite(v) {
				continue
			}
			sum += w * v

			if withErrors {
				if e := errors.Get(x, y); emath.IsFinite(e) {
					variance += w * e * e
				}
			}
		}
	}

	if !withErrors {
		return emath.Measurement{Value: sum}, false
	}
	return emath.Measurement{Value: sum, Error: math.Sqrt(variance)}, true
}

// Coverage is the fraction of the pixel centered at (px,py) inside the aperture
func Coverage(ap Aperture, px, py float64, n int, step float64) float64 {
	inside := 0
	for j := 0; j < n; j++ {
		sy := py - 0.5 + (float64(j)+0.5)*step
		for i := 0; i < n; i++ {
			sx := px - 0.5 + (float64(i)+0.5)*step
			if ap.Contains(sx, sy) {
				inside++
			}
		}
	}
	return float64(inside) / float64(n*n)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
