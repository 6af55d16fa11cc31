package aperture

import (
	"math"
	"testing"

	"github.com/abworrall/dust-sed/pkg/emath"
)

func TestAreas(t *testing.T) {
	c := Circular{X: 10, Y: 10, Radius: 3}
	if got, want := c.Area(), math.Pi*9; got != want {
		t.Errorf("circle area = %g, want %g", got, want)
	}

	e := NewElliptical(0, 0, 4, 2, 0)
	if got, want := e.Area(), math.Pi*8; got != want {
		t.Errorf("ellipse area = %g, want %g", got, want)
	}

	// Area tracks the radii, it isn't cached
	c.Radius = 1
	if c.Area() != math.Pi {
		t.Errorf("circle area did not follow radius change: %g", c.Area())
	}
}

func TestNewEllipticalNormalizes(t *testing.T) {
	theta := 30 * math.Pi / 180
	swapped := NewElliptical(5, 5, 10, 20, theta)
	if swapped.SemiMajor != 20 || swapped.SemiMinor != 10 {
		t.Errorf("axes not swapped: %s", swapped)
	}
	if math.Abs(swapped.Theta-120*math.Pi/180) > 1e-12 {
		t.Errorf("theta = %g deg, want 120", swapped.Theta*180/math.Pi)
	}

	plain := NewElliptical(5, 5, 20, 10, theta)
	if plain.SemiMajor != 20 || plain.SemiMinor != 10 || plain.Theta != theta {
		t.Errorf("unswapped ellipse changed: %s", plain)
	}

	if swapped.Area() != plain.Area() {
		t.Errorf("area not invariant under normalization: %g vs %g", swapped.Area(), plain.Area())
	}

	// Both describe the same footprint: a long axis at 120deg for one,
	// a long axis at 30deg for the other
	if !swapped.Contains(5+19*math.Cos(2*math.Pi/3), 5+19*math.Sin(2*math.Pi/3)) {
		t.Errorf("swapped ellipse should reach along 120deg")
	}
	if !plain.Contains(5+19*math.Cos(theta), 5+19*math.Sin(theta)) {
		t.Errorf("plain ellipse should reach along 30deg")
	}
}

func TestEllipseBounds(t *testing.T) {
	e := NewElliptical(0, 0, 10, 2, math.Pi/2)
	xmin, ymin, xmax, ymax := e.Bounds()
	if math.Abs(xmin+2) > 1e-9 || math.Abs(xmax-2) > 1e-9 || math.Abs(ymin+10) > 1e-9 || math.Abs(ymax-10) > 1e-9 {
		t.Errorf("bounds = (%g,%g)-(%g,%g)", xmin, ymin, xmax, ymax)
	}
}

func uniformGrid(w, h int, v float64) emath.FloatGrid {
	fg := emath.NewFloatGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fg.Set(x, y, v)
		}
	}
	return fg
}

func TestSubpixelIntegratorUniform(t *testing.T) {
	pixels := uniformGrid(100, 100, 2.0)
	errs := uniformGrid(100, 100, 0.5)
	integ := NewSubpixelIntegrator(10)

	for _, ap := range []Aperture{
		Circular{X: 50, Y: 50, Radius: 20},
		NewElliptical(49.3, 50.6, 12, 25, 0.7),
	} {
		got, hasErr := integ.Integrate(&pixels, ap, &errs)
		if !hasErr {
			t.Fatalf("%s: error missing", ap)
		}
		want := 2.0 * ap.Area()
		if math.Abs(got.Value-want)/want > 0.005 {
			t.Errorf("%s: sum = %g, want ~%g", ap, got.Value, want)
		}
		wantErr := 0.5 * math.Sqrt(ap.Area())
		if math.Abs(got.Error-wantErr)/wantErr > 0.005 {
			t.Errorf("%s: err = %g, want ~%g", ap, got.Error, wantErr)
		}
	}
}

func TestSubpixelIntegratorMismatchedErrors(t *testing.T) {
	pixels := uniformGrid(20, 20, 1.0)
	errs := uniformGrid(10, 10, 0.5)
	ap := Circular{X: 10, Y: 10, Radius: 5}
	integ := NewSubpixelIntegrator(4)

	got, hasErr := integ.Integrate(&pixels, ap, &errs)
	want, _ := integ.Integrate(&pixels, ap, nil)
	if hasErr || got.Error != 0 {
		t.Errorf("error grid of the wrong shape was used: %v, %v", got, hasErr)
	}
	if got.Value != want.Value {
		t.Errorf("sum = %g, want %g as with no error grid", got.Value, want.Value)
	}
}

func TestSubpixelIntegratorEdgesAndNaN(t *testing.T) {
	pixels := uniformGrid(10, 10, 1.0)
	pixels.Set(5, 5, math.NaN())
	integ := NewSubpixelIntegrator(1)

	// single pixel aperture over the NaN
	got, hasErr := integ.Integrate(&pixels, Circular{X: 5, Y: 5, Radius: 0.4}, nil)
	if hasErr || got.Value != 0 {
		t.Errorf("NaN pixel: got %v (hasErr=%v)", got, hasErr)
	}

	// hanging off the corner only counts the pixels on the grid
	got, _ = integ.Integrate(&pixels, Circular{X: 0, Y: 0, Radius: 1.1}, nil)
	if got.Value != 3 {
		t.Errorf("corner aperture sum = %g, want 3", got.Value)
	}

	// entirely off the grid
	got, _ = integ.Integrate(&pixels, Circular{X: -50, Y: -50, Radius: 3}, nil)
	if got.Value != 0 {
		t.Errorf("off-grid aperture sum = %g, want 0", got.Value)
	}
}
