// Package photometry measures background subtracted fluxes inside sets of
// nested apertures, and differences them into annuli.
package photometry

import (
	"log"

	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/dust-sed/pkg/aperture"
	"github.com/abworrall/dust-sed/pkg/emath"
)

// EstimateBackground returns the mean sky level per pixel, and its error,
// from a set of background apertures.
//
// Each aperture contributes its flux and error divided by its area. The
// level is the plain mean of those densities; the error is
// sqrt(sum(err^2))/count. When there is no error grid each aperture's
// error is zero but it still counts towards the denominator. No apertures
// means no background: (0,0).
//
// An aperture with no area has no density. The region parser never makes
// one; any passed in directly are logged and left out of both the mean and
// the count.
func EstimateBackground(integ aperture.Integrator, pixels, errors *emath.FloatGrid, backgrounds []aperture.Aperture) emath.Measurement {
	densities := []float64{}
	errs := []float64{}

	for _, ap := range backgrounds {
		area := ap.Area()
		if !(area > 0) {
			log.Printf("background %s has no area, ignoring it", ap)
			continue
		}

		sum, hasErr := integ.Integrate(pixels, ap, errors)
		densities = append(densities, sum.Value/area)
		if hasErr {
			errs = append(errs, sum.Error/area)
		} else {
			errs = append(errs, 0)
		}
	}

	if len(densities) == 0 {
		return emath.Measurement{}
	}

	return emath.Measurement{
		Value: stat.Mean(densities, nil),
		Error: emath.Quadrature(errs...) / float64(len(errs)),
	}
}
