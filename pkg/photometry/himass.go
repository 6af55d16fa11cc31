package photometry

import (
	"fmt"
	"math"

	"github.com/abworrall/dust-sed/pkg/coords"
	"github.com/abworrall/dust-sed/pkg/emath"
)

// M_HI = 2.36e5 D^2 S, for D in Mpc and S in Jy km/s; the mass is in solar masses.
const HIMassCoefficient = 2.36e5

// DefaultHIMassFraction is the flat fractional error on HI masses.
const DefaultHIMassFraction = 0.15

// HIMultiplier converts a moment map in Jy/beam km/s into Jy km/s per
// pixel. Beam axes are FWHM in degrees, as in the BMAJ and BMIN keywords.
func HIMultiplier(degPerPixel, bmajDeg, bminDeg float64) (float64, error) {
	if !(degPerPixel > 0) || !(bmajDeg > 0) || !(bminDeg > 0) {
		return 0, fmt.Errorf("beams per pixel: pixel scale %g, beam %gx%g must all be positive", degPerPixel, bmajDeg, bminDeg)
	}
	return coords.BeamsPerPixel(degPerPixel, math.Abs(bmajDeg), math.Abs(bminDeg)), nil
}

// HIMass converts each aperture's flux into an HI mass. Only the flux is
// used; the error comes from the distance uncertainty plus a flat
// fractional error:
//
//	err = sqrt((2 * 2.36e5 * D * S * dD)^2 + (frac * M)^2)
//
// Masses come back as ApertureFlux with the same error in both fields, so
// Difference(masses, 0) gives the annulus masses.
func HIMass(results []ApertureFlux, distance emath.Measurement, frac float64) []ApertureFlux {
	masses := []ApertureFlux{}
	d := distance.Value

	for _, r := range results {
		m := HIMassCoefficient * d * d * r.Flux
		err := emath.Quadrature(2*HIMassCoefficient*d*r.Flux*distance.Error, frac*m)
		masses = append(masses, ApertureFlux{Flux: m, SkyError: err, TotalError: err})
	}

	return masses
}
