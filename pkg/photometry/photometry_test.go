package photometry

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/abworrall/dust-sed/pkg/aperture"
	"github.com/abworrall/dust-sed/pkg/coords"
	"github.com/abworrall/dust-sed/pkg/emath"
)

// fixedArea is an aperture that is only an area
type fixedArea float64

func (a fixedArea) Center() (float64, float64)                   { return 0, 0 }
func (a fixedArea) Area() float64                                { return float64(a) }
func (a fixedArea) Contains(x, y float64) bool                   { return false }
func (a fixedArea) Bounds() (float64, float64, float64, float64) { return 0, 0, 0, 0 }
func (a fixedArea) String() string                               { return "fixedArea" }

// uniformIntegrator pretends every pixel holds the same value and error
type uniformIntegrator struct {
	density   float64
	errPerPix float64 // error density; the sum's error is errPerPix*area
	noErrors  bool
}

func (u uniformIntegrator) Integrate(pixels *emath.FloatGrid, ap aperture.Aperture, errs *emath.FloatGrid) (emath.Measurement, bool) {
	if u.noErrors {
		return emath.Measurement{Value: u.density * ap.Area()}, false
	}
	return emath.Measurement{Value: u.density * ap.Area(), Error: u.errPerPix * ap.Area()}, true
}

// perApertureIntegrator returns a different density for each aperture area
type perApertureIntegrator map[float64]emath.Measurement

func (p perApertureIntegrator) Integrate(pixels *emath.FloatGrid, ap aperture.Aperture, errs *emath.FloatGrid) (emath.Measurement, bool) {
	m := p[ap.Area()]
	return m.Scale(ap.Area()), true
}

var approx = cmpopts.EquateApprox(1e-12, 1e-12)

func TestEstimateBackgroundEmpty(t *testing.T) {
	got := EstimateBackground(uniformIntegrator{density: 7}, nil, nil, nil)
	if got != (emath.Measurement{}) {
		t.Errorf("empty background = %v, want exactly (0,0)", got)
	}
}

func TestEstimateBackground(t *testing.T) {
	integ := perApertureIntegrator{
		10: emath.M(2, 0.3),
		20: emath.M(4, 0.4),
	}
	got := EstimateBackground(integ, nil, nil, []aperture.Aperture{fixedArea(10), fixedArea(20)})
	want := emath.M(3, 0.5/2)
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("background mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimateBackgroundWithoutErrors(t *testing.T) {
	integ := uniformIntegrator{density: 1.5, noErrors: true}
	aps := []aperture.Aperture{fixedArea(10), fixedArea(30), fixedArea(0)}

	got := EstimateBackground(integ, nil, nil, aps)
	if diff := cmp.Diff(emath.M(1.5, 0), got, approx); diff != "" {
		t.Errorf("background mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimateBackgroundDenominator(t *testing.T) {
	// Each aperture contributes error density 0.2, so the error is
	// sqrt(n * 0.04) / n
	integ := uniformIntegrator{density: 1, errPerPix: 0.2}
	for n := 1; n <= 4; n++ {
		aps := []aperture.Aperture{}
		for i := 0; i < n; i++ {
			aps = append(aps, fixedArea(25))
		}
		got := EstimateBackground(integ, nil, nil, aps)
		want := math.Sqrt(float64(n)*0.04) / float64(n)
		if math.Abs(got.Error-want) > 1e-12 {
			t.Errorf("n=%d: error %g, want %g", n, got.Error, want)
		}
	}
}

func TestEstimateBackgroundZeroArea(t *testing.T) {
	integ := uniformIntegrator{density: 1, errPerPix: 0.2}
	aps := []aperture.Aperture{fixedArea(25), fixedArea(0), fixedArea(25)}

	got := EstimateBackground(integ, nil, nil, aps)
	want := math.Sqrt(2*0.04) / 2
	if got.Value != 1 || math.Abs(got.Error-want) > 1e-12 {
		t.Errorf("got %s, want 1 +/- %g", got, want)
	}
}

func TestReduceSingleApertureNoBackground(t *testing.T) {
	r := Reducer{Integrator: uniformIntegrator{density: 3, noErrors: true}, SolidAngleMultiplier: 2.5}
	bg := EstimateBackground(r.Integrator, nil, nil, nil)

	got := r.Reduce(nil, nil, []aperture.Aperture{fixedArea(40)}, bg)
	want := []ApertureFlux{{Flux: 3 * 40 * 2.5}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("reduce mismatch (-want +got):\n%s", diff)
	}
}

func TestReduceWithBackground(t *testing.T) {
	r := Reducer{
		Integrator:           uniformIntegrator{density: 5, errPerPix: 0.03},
		SolidAngleMultiplier: 2,
		CalibrationFraction:  0.1,
	}
	bg := emath.M(1, 0.01)

	got := r.Reduce(nil, nil, []aperture.Aperture{fixedArea(100)}, bg)

	flux := (500.0 - 100) * 2
	sky := math.Sqrt(3*3+1*1) * 2
	want := []ApertureFlux{{Flux: flux, SkyError: sky, TotalError: math.Sqrt(80*80 + sky*sky)}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("reduce mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedDifferencing(t *testing.T) {
	const f = 2.0
	r := Reducer{Integrator: uniformIntegrator{density: f, errPerPix: 0.1}, SolidAngleMultiplier: 1}
	objects := []aperture.Aperture{fixedArea(100), fixedArea(60), fixedArea(30)}

	results := r.Reduce(nil, nil, objects, emath.Measurement{})
	rep := Difference(results, 0)

	if got := []float64{rep.Annuli[0].Flux, rep.Annuli[1].Flux}; !cmp.Equal(got, []float64{40 * f, 30 * f}, approx) {
		t.Errorf("annuli = %v, want [40f 30f]", got)
	}
	if !cmp.Equal(rep.Outer.Flux, 100*f, approx) || !cmp.Equal(rep.Inner.Flux, 30*f, approx) {
		t.Errorf("outer/inner = %g/%g, want 100f/30f", rep.Outer.Flux, rep.Inner.Flux)
	}

	// sky errors 10, 6, 3 -> annuli sqrt(136), sqrt(45)
	wantErrs := []float64{math.Sqrt(136), math.Sqrt(45)}
	for i, a := range rep.Annuli {
		if !cmp.Equal(a.SkyError, wantErrs[i], approx) || !cmp.Equal(a.TotalError, wantErrs[i], approx) {
			t.Errorf("annulus %d errors = %g/%g, want %g", i, a.SkyError, a.TotalError, wantErrs[i])
		}
	}

	names := []string{}
	for _, row := range rep.Rows() {
		names = append(names, row.Name)
	}
	if diff := cmp.Diff([]string{"Galaxy", "Annulus 1", "Annulus 2", "Center"}, names); diff != "" {
		t.Errorf("row names mismatch (-want +got):\n%s", diff)
	}
}

func TestDifferenceCalibration(t *testing.T) {
	rep := Difference([]ApertureFlux{{Flux: 10, SkyError: 0.3}, {Flux: 4, SkyError: 0.4}}, 0.05)
	want := ApertureFlux{Flux: 6, SkyError: 0.5, TotalError: math.Sqrt(0.25 + 0.09)}
	if diff := cmp.Diff(want, rep.Annuli[0], approx); diff != "" {
		t.Errorf("annulus mismatch (-want +got):\n%s", diff)
	}
}

func TestDifferenceEdgeCases(t *testing.T) {
	rep := Difference(nil, 0.05)
	if len(rep.Annuli) != 0 || rep.Rows() != nil {
		t.Errorf("empty report = %+v", rep)
	}

	one := ApertureFlux{Flux: 3, SkyError: 1, TotalError: 1.1}
	rep = Difference([]ApertureFlux{one}, 0.05)
	if rep.Outer != one || rep.Inner != one || len(rep.Annuli) != 0 {
		t.Errorf("single aperture report = %+v", rep)
	}
}

func TestUnitPreset(t *testing.T) {
	mult, cal, err := UnitPreset(UnitsJyPerPixel, 0.001)
	if err != nil || mult != 1 || cal != PACSCalibration {
		t.Errorf("Jy/pixel: %g %g %v", mult, cal, err)
	}

	mult, cal, err = UnitPreset("MJy/sr", 0.001)
	if err != nil || cal != SPIRECalibration || !cmp.Equal(mult, coords.SolidAnglePerPixel(0.001)*1e6, approx) {
		t.Errorf("MJy/sr: %g %g %v", mult, cal, err)
	}

	if _, _, err := UnitPreset("MJy/sr", 0); err == nil {
		t.Errorf("MJy/sr without a pixel scale should fail")
	}
	if _, _, err := UnitPreset("counts", 0.001); err == nil {
		t.Errorf("unknown units should fail")
	}
}

func TestHIMass(t *testing.T) {
	masses := HIMass([]ApertureFlux{{Flux: 1}, {Flux: 0.25}}, emath.M(10, 1), DefaultHIMassFraction)

	// 2*2.36e5*10*1*1 = 4.72e6 and 0.15*2.36e7 = 3.54e6, a 3-4-5 triangle
	want := []ApertureFlux{
		{Flux: 2.36e7, SkyError: 5.9e6, TotalError: 5.9e6},
		{Flux: 5.9e6, SkyError: 5.9e6 / 4, TotalError: 5.9e6 / 4},
	}
	if diff := cmp.Diff(want, masses, cmpopts.EquateApprox(1e-9, 0)); diff != "" {
		t.Errorf("mass mismatch (-want +got):\n%s", diff)
	}

	rep := Difference(masses, 0)
	wantErr := math.Hypot(5.9e6, 5.9e6/4)
	if !cmp.Equal(rep.Annuli[0].Flux, 2.36e7-5.9e6, approx) || !cmp.Equal(rep.Annuli[0].TotalError, wantErr, cmpopts.EquateApprox(1e-9, 0)) {
		t.Errorf("annulus mass = %v", rep.Annuli[0])
	}
}

func TestHIMultiplier(t *testing.T) {
	got, err := HIMultiplier(0.001, 0.002, 0.004)
	if err != nil || !cmp.Equal(got, 1.0/8, approx) {
		t.Errorf("HIMultiplier = %g, %v", got, err)
	}
	if _, err := HIMultiplier(0.001, 0, 0.004); err == nil {
		t.Errorf("zero beam should fail")
	}
}

func TestSubpixelRoundTrip(t *testing.T) {
	const f = 0.5
	fg := emath.NewFloatGrid(200, 200)
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			fg.Set(x, y, f)
		}
	}

	r := Reducer{Integrator: aperture.NewSubpixelIntegrator(8), SolidAngleMultiplier: 1}
	objects := []aperture.Aperture{
		aperture.Circular{X: 100, Y: 100, Radius: 60},
		aperture.NewElliptical(100, 100, 20, 40, 0.3),
		aperture.Circular{X: 100, Y: 100, Radius: 10},
	}
	rep := Difference(r.Reduce(&fg, nil, objects, emath.Measurement{}), 0)

	for i, a := range rep.Annuli {
		want := f * (objects[i].Area() - objects[i+1].Area())
		if math.Abs(a.Flux-want)/want > 0.01 {
			t.Errorf("annulus %d = %g, want ~%g", i, a.Flux, want)
		}
	}
}

func TestOverlayAndApertureMap(t *testing.T) {
	fg := emath.NewFloatGrid(40, 30)
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			fg.Set(x, y, float64(x+y))
		}
	}
	fg.Set(0, 0, math.NaN())

	objects := []aperture.Aperture{aperture.Circular{X: 20, Y: 15, Radius: 8}, aperture.NewElliptical(20, 15, 3, 5, 0.5)}
	backgrounds := []aperture.Aperture{aperture.Circular{X: 5, Y: 5, Radius: 3}}
	dir := t.TempDir()

	png := filepath.Join(dir, "overlay.png")
	if err := WriteOverlayPNG(&fg, objects, backgrounds, "test", png); err != nil {
		t.Fatal(err)
	}
	if st, err := os.Stat(png); err != nil || st.Size() == 0 {
		t.Errorf("overlay not written: %v", err)
	}

	am := ApertureMap{Pixels: &fg, Objects: objects, Backgrounds: backgrounds, Subsamples: 2}
	if am.Size() != 1200 || am.Bounds().Dx() != 40 || am.Bounds().Dy() != 30 {
		t.Errorf("map shape %v, size %d", am.Bounds(), am.Size())
	}

	// pixel (20,15) is row 30-1-15 = 14 of the image, inside both objects
	r, g, b, _ := am.HDRAt(20, 14).HDRRGBA()
	if r != 35 || g != 2 || b != 0 {
		t.Errorf("center = (%g,%g,%g), want (35,2,0)", r, g, b)
	}
	// pixel (5,5), inside the background
	if _, g, b, _ := am.HDRAt(5, 24).HDRRGBA(); g != 0 || b != 1 {
		t.Errorf("background = (%g,%g), want (0,1)", g, b)
	}
	// the NaN corner is black
	if r, _, _, _ := am.HDRAt(0, 29).HDRRGBA(); r != 0 {
		t.Errorf("NaN pixel rendered as %g", r)
	}

	hdrFile := filepath.Join(dir, "map.hdr")
	if err := am.WriteHDR(hdrFile); err != nil {
		t.Fatal(err)
	}
	if st, err := os.Stat(hdrFile); err != nil || st.Size() == 0 {
		t.Errorf("hdr not written: %v", err)
	}
}
