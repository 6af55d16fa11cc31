// Package pipeline strings the pieces together: an image plus a region
// file goes in, background subtracted aperture and annulus fluxes come
// out; a photometry table goes in, fitted dust SEDs come out.
package pipeline

import (
	"fmt"
	"log"
	"math"

	"github.com/abworrall/dust-sed/pkg/aperture"
	"github.com/abworrall/dust-sed/pkg/config"
	"github.com/abworrall/dust-sed/pkg/coords"
	"github.com/abworrall/dust-sed/pkg/emath"
	"github.com/abworrall/dust-sed/pkg/imageio"
	"github.com/abworrall/dust-sed/pkg/photometry"
	"github.com/abworrall/dust-sed/pkg/region"
)

// A Photometer measures the regions drawn on one image.
type Photometer struct {
	Config     config.Config
	Integrator aperture.Integrator
}

func NewPhotometer(cfg config.Config) Photometer {
	return Photometer{
		Config:     cfg,
		Integrator: aperture.NewSubpixelIntegrator(cfg.Subsamples),
	}
}

// Result is everything that went into, and came out of, one measurement.
type Result struct {
	Image        imageio.Image
	Header       coords.Header // the image's, with any config overrides
	PixelScale   float64       // degrees per pixel
	Set          region.Set
	RegionErrors []error // lines that looked like regions but didn't parse
	Background   emath.Measurement
	Multiplier   float64
	Calibration  float64
	Report       photometry.Report
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %d objects, %d backgrounds, background %s per pixel\n%s",
		r.Image, len(r.Set.Objects), len(r.Set.Backgrounds), r.Background, r.Report)
}

// Measure classifies the region lines, estimates the sky from the
// background regions, and reduces the object regions into a report. The
// unit multiplier and calibration come from the config's Units.
func (p Photometer) Measure(img imageio.Image, errs *emath.FloatGrid, lines []string) (Result, error) {
	res, err := p.place(img, lines)
	if err != nil {
		return res, err
	}

	if res.Multiplier, res.Calibration, err = p.Config.Calibration(res.PixelScale); err != nil {
		return res, fmt.Errorf("measure %s: %v", img.Filename, err)
	}

	p.reduce(&res, errs)
	return res, nil
}

// HIResult is a measurement of a moment map, with the fluxes converted to
// HI masses.
type HIResult struct {
	Result
	Distance emath.Measurement // Mpc
	Masses   photometry.Report
}

func (r HIResult) String() string {
	return fmt.Sprintf("%s\nHI masses at %s Mpc\n%s", r.Result, r.Distance, r.Masses)
}

// MeasureHI is Measure for a radio moment map in Jy/beam km/s: the unit
// multiplier is beams per pixel (from BMAJ and BMIN), there is no error
// map or calibration term, and the fluxes are turned into HI masses.
func (p Photometer) MeasureHI(img imageio.Image, lines []string) (HIResult, error) {
	res, err := p.place(img, lines)
	if err != nil {
		return HIResult{Result: res}, err
	}

	bmaj, ok1 := res.Header.Float("BMAJ")
	bmin, ok2 := res.Header.Float("BMIN")
	if !ok1 || !ok2 {
		return HIResult{Result: res}, fmt.Errorf("measure %s: header has no BMAJ/BMIN beam size", img.Filename)
	}
	if res.Multiplier, err = photometry.HIMultiplier(res.PixelScale, math.Abs(bmaj), math.Abs(bmin)); err != nil {
		return HIResult{Result: res}, fmt.Errorf("measure %s: %v", img.Filename, err)
	}
	res.Calibration = 0

	p.reduce(&res, nil)

	hi := HIResult{
		Result:   res,
		Distance: emath.M(p.Config.Distance, p.Config.DistanceError),
	}
	masses := photometry.HIMass(res.Report.Apertures, hi.Distance, p.Config.MassFractionError)
	hi.Masses = photometry.Difference(masses, 0)

	return hi, nil
}

// place works out the image geometry and turns the region lines into an
// aperture set.
func (p Photometer) place(img imageio.Image, lines []string) (Result, error) {
	res := Result{Image: img}
	res.Header = imageio.WithOverrides(img.Header, p.Config.HeaderOverrides)
	if res.Header == nil {
		res.Header = coords.MapHeader{}
	}

	wcs, err := coords.NewWCSFromHeader(res.Header)
	if err != nil {
		return res, fmt.Errorf("measure %s: wcs: %v", img.Filename, err)
	}

	if v, ok := res.Header.Float(p.Config.PixelScaleKeyword); ok && v != 0 {
		res.PixelScale = math.Abs(v)
	} else {
		res.PixelScale = wcs.PixelScale()
		log.Printf("%s: no %s keyword, using %g deg/pixel from the WCS\n", img.Filename, p.Config.PixelScaleKeyword, res.PixelScale)
	}

	classifier := region.Classifier{
		Projector:   wcs,
		PixelScale:  res.PixelScale,
		ObjectColor: p.Config.ObjectColor,
	}
	descs, errs := classifier.ClassifyAll(lines)
	res.RegionErrors = errs
	if len(errs) > 0 {
		log.Printf("%s: skipped %d bad region lines\n", img.Filename, len(errs))
		if p.Config.Verbosity > 0 {
			for _, e := range errs {
				log.Printf("  %v\n", e)
			}
		}
	}

	res.Set = region.BuildSet(descs)
	if len(res.Set.Objects) == 0 {
		return res, fmt.Errorf("measure %s: no %s object regions in %d lines", img.Filename, p.Config.ObjectColor, len(lines))
	}
	if len(res.Set.Backgrounds) == 0 {
		log.Printf("%s: no background regions, fluxes are not sky subtracted\n", img.Filename)
	}

	if p.Config.Verbosity > 0 {
		log.Printf("%s: %s, %g deg/pixel, %d objects, %d backgrounds\n", img.Filename, wcs,
			res.PixelScale, len(res.Set.Objects), len(res.Set.Backgrounds))
	}

	return res, nil
}

func (p Photometer) reduce(res *Result, errs *emath.FloatGrid) {
	integ := p.Integrator
	if integ == nil {
		integ = aperture.NewSubpixelIntegrator(p.Config.Subsamples)
	}
	pixels := &res.Image.Pixels

	res.Background = photometry.EstimateBackground(integ, pixels, errs, res.Set.Backgrounds)

	reducer := photometry.Reducer{
		Integrator:           integ,
		SolidAngleMultiplier: res.Multiplier,
		CalibrationFraction:  res.Calibration,
	}
	fluxes := reducer.Reduce(pixels, errs, res.Set.Objects, res.Background)
	res.Report = photometry.Difference(fluxes, res.Calibration)
}
