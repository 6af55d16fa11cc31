package photometry

import (
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/dust-sed/pkg/aperture"
	"github.com/abworrall/dust-sed/pkg/coords"
	"github.com/abworrall/dust-sed/pkg/emath"
)

// The units an image's pixels are in. PACS maps come in Jy/pixel, SPIRE
// maps in MJy/sr.
const (
	UnitsJyPerPixel = "Jy/pixel"
	UnitsMJyPerSr   = "MJy/sr"
)

// Flat calibration uncertainties for the Herschel instruments
const (
	PACSCalibration  = 0.05
	SPIRECalibration = 0.07
)

// UnitPreset returns the multiplier that takes summed pixel values to Jy,
// and the matching calibration fraction.
func UnitPreset(units string, degPerPixel float64) (multiplier, calibration float64, err error) {
	switch strings.ToLower(units) {
	case "", strings.ToLower(UnitsJyPerPixel), "jy/pix", "pacs":
		return 1, PACSCalibration, nil
	case strings.ToLower(UnitsMJyPerSr), "spire":
		if !(degPerPixel > 0) {
			return 0, 0, fmt.Errorf("units %s: need a positive pixel scale, got %g", units, degPerPixel)
		}
		return coords.SolidAnglePerPixel(degPerPixel) * 1e6, SPIRECalibration, nil
	}
	return 0, 0, fmt.Errorf("units %q not known (want %s or %s)", units, UnitsJyPerPixel, UnitsMJyPerSr)
}

// ApertureFlux is the background subtracted flux in one aperture (or one
// annulus), in Jy. SkyError covers the integration and the background;
// TotalError adds the calibration uncertainty on top.
type ApertureFlux struct {
	Flux       float64
	SkyError   float64
	TotalError float64
}

func (af ApertureFlux) Measurement() emath.Measurement {
	return emath.Measurement{Value: af.Flux, Error: af.TotalError}
}

func (af ApertureFlux) String() string {
	return fmt.Sprintf("flux %g, sky error %g, total error %g", af.Flux, af.SkyError, af.TotalError)
}

// A Reducer turns raw aperture sums into background subtracted fluxes.
type Reducer struct {
	Integrator           aperture.Integrator
	SolidAngleMultiplier float64 // summed pixel units -> Jy
	CalibrationFraction  float64
}

// Reduce measures each object aperture, keeping their order (which should
// be outermost first):
//
//	flux     = (raw - bg*area) * mult
//	skyError = sqrt(rawErr^2 + (bgErr*area)^2) * mult
//	total    = sqrt((flux*cal)^2 + skyError^2)
func (r Reducer) Reduce(pixels, errors *emath.FloatGrid, objects []aperture.Aperture, bg emath.Measurement) []ApertureFlux {
	results := []ApertureFlux{}

	for _, ap := range objects {
		raw, _ := r.Integrator.Integrate(pixels, ap, errors) // Error is 0 when absent
		area := ap.Area()

		flux := (raw.Value - bg.Value*area) * r.SolidAngleMultiplier
		skyErr := emath.Quadrature(raw.Error, bg.Error*area) * math.Abs(r.SolidAngleMultiplier)

		results = append(results, ApertureFlux{
			Flux:       flux,
			SkyError:   skyErr,
			TotalError: emath.Quadrature(flux*r.CalibrationFraction, skyErr),
		})
	}

	return results
}

// Report separates the two boundary totals from the annuli between them.
type Report struct {
	Apertures []ApertureFlux // as measured, outermost first
	Outer     ApertureFlux   // the whole galaxy
	Inner     ApertureFlux   // the center
	Annuli    []ApertureFlux // Annuli[i] is Apertures[i] minus Apertures[i+1]
}

// Difference subtracts each aperture from the one enclosing it. Sky errors
// add in quadrature, and the calibration error is reapplied to the
// differenced flux.
func Difference(results []ApertureFlux, cal float64) Report {
	rep := Report{Apertures: results, Annuli: []ApertureFlux{}}
	if len(results) == 0 {
		return rep
	}

	rep.Outer = results[0]
	rep.Inner = results[len(results)-1]

	for i := 1; i < len(results); i++ {
		flux := results[i-1].Flux - results[i].Flux
		skyErr := emath.Quadrature(results[i-1].SkyError, results[i].SkyError)
		rep.Annuli = append(rep.Annuli, ApertureFlux{
			Flux:       flux,
			SkyError:   skyErr,
			TotalError: emath.Quadrature(skyErr, flux*cal),
		})
	}

	return rep
}

// A NamedFlux is one line of a printed report.
type NamedFlux struct {
	Name string
	ApertureFlux
}

// Rows lists the report in reading order: the galaxy, each annulus working
// inwards, then the center.
func (rep Report) Rows() []NamedFlux {
	if len(rep.Apertures) == 0 {
		return nil
	}

	rows := []NamedFlux{{"Galaxy", rep.Outer}}
	for i, a := range rep.Annuli {
		rows = append(rows, NamedFlux{fmt.Sprintf("Annulus %d", i+1), a})
	}
	return append(rows, NamedFlux{"Center", rep.Inner})
}

func (rep Report) String() string {
	str := fmt.Sprintf("Report [%d apertures]\n", len(rep.Apertures))
	for _, r := range rep.Rows() {
		str += fmt.Sprintf("  %-10s %s\n", r.Name+":", r.ApertureFlux)
	}
	return str
}
