package sed

import (
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/dust-sed/pkg/emath"
)

const (
	DefaultDetectionThreshold = 3.0
	DefaultMinDetections      = 3
)

// BandEntry is one band's photometry for one object. Flux.Error is the
// total error, used to weight the fit; Noise is the photometric error,
// used to decide if the band is a detection at all.
type BandEntry struct {
	Band
	Flux      emath.Measurement
	Noise     float64
	Present   bool
	Threshold float64 // detection needs Flux > Threshold*Noise; 0 means the default
}

func (e BandEntry) String() string {
	if !e.Present {
		return fmt.Sprintf("%s: -", e.Band)
	}
	return fmt.Sprintf("%s: %s (noise %g)", e.Band, e.Flux, e.Noise)
}

// IsDetection is true for bands with data, and a flux above the threshold
func (e BandEntry) IsDetection() bool {
	if !e.Present || !emath.IsFinite(e.Flux.Value) || !emath.IsFinite(e.Noise) {
		return false
	}
	k := e.Threshold
	if k == 0 {
		k = DefaultDetectionThreshold
	}
	return e.Flux.Value > k*e.Noise
}

// Guess holds the starting parameters for a fit. The Extra parameter is
// the mean molecular weight by default; it is only varied if FitExtra.
type Guess struct {
	Temperature float64
	Beta        float64
	Column      float64
	Extra       float64
	FitExtra    bool
}

func (g Guess) String() string {
	s := fmt.Sprintf("T=%gK beta=%g N=%g", g.Temperature, g.Beta, g.Column)
	if g.FitExtra {
		s += fmt.Sprintf(" extra=%g", g.Extra)
	}
	return s
}

// Params is the starting vector for the solver
func (g Guess) Params() []float64 {
	p := []float64{g.Temperature, g.Beta, g.Column}
	if g.FitExtra {
		p = append(p, g.Extra)
	}
	return p
}

// FitInput is the data a fit runs on: detections only.
type FitInput struct {
	Bands       []Band
	Wavelengths []float64 // microns
	Frequencies []float64 // Hz
	Fluxes      []float64 // Jy
	Errors      []float64 // Jy
	Noise       []float64 // photometric errors, Jy
	Guess       Guess
	Detections  int
}

func (in FitInput) String() string {
	parts := []string{}
	for i := range in.Fluxes {
		parts = append(parts, fmt.Sprintf("%gum:%g±%g", in.Wavelengths[i], in.Fluxes[i], in.Errors[i]))
	}
	return fmt.Sprintf("FitInput{%s; %s}", strings.Join(parts, " "), in.Guess)
}

// MissingDataError means there weren't enough detections to attempt a fit.
// It marks an object that is skipped on purpose, not a failure.
type MissingDataError struct {
	Detections int
	Required   int
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("only %d detections, need %d", e.Detections, e.Required)
}

// FilterAndGuess drops bands that aren't detections and builds the fit
// input. The column density guess is rederived from the band with the
// best flux to noise ratio (the first, if there is a tie):
//
//	N = flux / model(nu, T, beta, 1, extra)
//
// If that doesn't come out as a finite positive number, the caller's
// column guess is kept.
func FilterAndGuess(entries []BandEntry, guess Guess, model Model, minDetections int) (FitInput, error) {
	if minDetections <= 0 {
		minDetections = DefaultMinDetections
	}
	if guess.Extra == 0 {
		guess.Extra = DefaultMuH2
	}

	in := FitInput{Guess: guess}
	best, bestRatio := -1, math.Inf(-1)

	for _, e := range entries {
		if !e.IsDetection() {
			continue
		}

		in.Bands = append(in.Bands, e.Band)
		in.Wavelengths = append(in.Wavelengths, e.Wavelength)
		in.Frequencies = append(in.Frequencies, e.Frequency())
		in.Fluxes = append(in.Fluxes, e.Flux.Value)
		in.Errors = append(in.Errors, e.Flux.Error)
		in.Noise = append(in.Noise, e.Noise)

		// zero noise beats everything
		ratio := emath.Measurement{Value: e.Flux.Value, Error: e.Noise}.SNR()
		if ratio > bestRatio {
			best, bestRatio = len(in.Fluxes)-1, ratio
		}
	}

	in.Detections = len(in.Fluxes)
	if in.Detections < minDetections {
		return in, &MissingDataError{Detections: in.Detections, Required: minDetections}
	}

	if model == nil {
		model = ModifiedBlackbody
	}
	unit := model(in.Frequencies[best], guess.Temperature, guess.Beta, 1, guess.Extra)
	if n := in.Fluxes[best] / unit; emath.IsFinite(n) && n > 0 {
		in.Guess.Column = n
	}

	return in, nil
}
