package region

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/abworrall/dust-sed/pkg/aperture"
	"github.com/abworrall/dust-sed/pkg/coords"
)

// fixedProjector puts everything at the same pixel
type fixedProjector struct{ x, y float64 }

func (p fixedProjector) ToPixel(ra, dec float64) (float64, float64, error) { return p.x, p.y, nil }

// offsetProjector maps a degree of sky to 1000 pixels, about (0,0)
type offsetProjector struct{}

func (offsetProjector) ToPixel(ra, dec float64) (float64, float64, error) {
	return ra * 1000, dec * 1000, nil
}

type failingProjector struct{}

func (failingProjector) ToPixel(ra, dec float64) (float64, float64, error) {
	return 0, 0, fmt.Errorf("off the map")
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestClassifyCircleScenario(t *testing.T) {
	c := Classifier{Projector: fixedProjector{100, 100}, PixelScale: 0.001}

	d, ok, err := c.Classify(`circle(11:53:59.065,+60:41:01.37,89.7417")`)
	if err != nil || !ok {
		t.Fatalf("Classify: ok=%v err=%v", ok, err)
	}

	want := aperture.Circular{X: 100, Y: 100, Radius: 89.7417 / 3600 / 0.001}
	if diff := cmp.Diff(want, d.Aperture, approx); diff != "" {
		t.Errorf("aperture mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(d.Aperture.(aperture.Circular).Radius-24.928250) > 1e-6 {
		t.Errorf("radius = %g", d.Aperture.(aperture.Circular).Radius)
	}
	if d.Role != Background {
		t.Errorf("uncolored region should be background, got %s", d.Role)
	}
}

func TestClassifyEllipseScenario(t *testing.T) {
	c := Classifier{Projector: fixedProjector{50, 60}, PixelScale: 1.0 / 3600} // 1"/pixel

	d, ok, err := c.Classify(`ellipse(11:53:59.065,+60:41:01.37,10",20",30) # color=red`)
	if err != nil || !ok {
		t.Fatalf("Classify: ok=%v err=%v", ok, err)
	}

	want := aperture.Elliptical{X: 50, Y: 60, SemiMajor: 20, SemiMinor: 10, Theta: 120 * math.Pi / 180}
	if diff := cmp.Diff(want, d.Aperture, approx); diff != "" {
		t.Errorf("aperture mismatch (-want +got):\n%s", diff)
	}
	if d.Role != Object {
		t.Errorf("red region should be an object, got %s", d.Role)
	}

	// already in order, no rotation
	d, _, _ = c.Classify(`ellipse(11:53:59.065,+60:41:01.37,20",10",30)`)
	want = aperture.Elliptical{X: 50, Y: 60, SemiMajor: 20, SemiMinor: 10, Theta: 30 * math.Pi / 180}
	if diff := cmp.Diff(want, d.Aperture, approx); diff != "" {
		t.Errorf("aperture mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyUnitsAndDecimalDegrees(t *testing.T) {
	c := Classifier{Projector: offsetProjector{}, PixelScale: 1.0 / 3600}

	tests := []struct {
		line   string
		want   aperture.Aperture
		role   Role
		label  string
	}{
		{`circle(0.1,0.2,30")`, aperture.Circular{X: 100, Y: 200, Radius: 30}, Background, ""},
		{`circle(0.1,0.2,30)`, aperture.Circular{X: 100, Y: 200, Radius: 30}, Background, ""},
		{`circle(0.1,0.2,1.5')`, aperture.Circular{X: 100, Y: 200, Radius: 90}, Background, ""},
		{`circle(0.1d,-0.2d,0.01d)`, aperture.Circular{X: 100, Y: -200, Radius: 36}, Background, ""},
		{`fk5;circle(0.1,0.2,3") # color=RED text={Center}`, aperture.Circular{X: 100, Y: 200, Radius: 3}, Object, "Center"},
		{`  CIRCLE ( 0.1 , 0.2 , 3" )   # width=2 color=red`, aperture.Circular{X: 100, Y: 200, Radius: 3}, Object, ""},
		{`circle(0.1,0.2,3") # color=green`, aperture.Circular{X: 100, Y: 200, Radius: 3}, Background, ""},
		{`circle(0.1,0.2,3") # text="a b" color=red`, aperture.Circular{X: 100, Y: 200, Radius: 3}, Object, "a b"},
		{"circle(0.1,0.2,3\") # color=red\r\n", aperture.Circular{X: 100, Y: 200, Radius: 3}, Object, ""},
	}

	for _, tt := range tests {
		d, ok, err := c.Classify(tt.line)
		if err != nil || !ok {
			t.Errorf("%q: ok=%v err=%v", tt.line, ok, err)
			continue
		}
		if diff := cmp.Diff(tt.want, d.Aperture, approx); diff != "" {
			t.Errorf("%q: aperture mismatch (-want +got):\n%s", tt.line, diff)
		}
		if d.Role != tt.role {
			t.Errorf("%q: role %s, want %s", tt.line, d.Role, tt.role)
		}
		if d.Label != tt.label {
			t.Errorf("%q: label %q, want %q", tt.line, d.Label, tt.label)
		}
	}
}

func TestClassifyObjectColor(t *testing.T) {
	c := Classifier{Projector: offsetProjector{}, PixelScale: 1.0 / 3600, ObjectColor: "cyan"}
	d, _, _ := c.Classify(`circle(0,0,3") # color=cyan`)
	if d.Role != Object {
		t.Errorf("cyan should be the object color")
	}
	d, _, _ = c.Classify(`circle(0,0,3") # color=red`)
	if d.Role != Background {
		t.Errorf("red should be background when the object color is cyan")
	}
}

func TestClassifyIgnoresOtherLines(t *testing.T) {
	c := Classifier{Projector: offsetProjector{}, PixelScale: 1.0 / 3600}

	for _, line := range []string{
		"",
		"# Region file format: DS9 version 4.1",
		`global color=green dashlist=8 3 width=1 font="helvetica 10 normal roman"`,
		"fk5",
		`box(11:53:59.065,+60:41:01.37,20",10",0)`,
		`# text(11:53:59.065,+60:41:01.37) text={NGC 3945}`,
		`-circle(0,0,3")`,
	} {
		_, ok, err := c.Classify(line)
		if ok || err != nil {
			t.Errorf("%q: ok=%v err=%v, want it ignored", line, ok, err)
		}
	}
}

func TestClassifyErrors(t *testing.T) {
	c := Classifier{Projector: offsetProjector{}, PixelScale: 1.0 / 3600}

	tests := []struct {
		line       string
		wantFormat bool // a *coords.FormatError is underneath
	}{
		{`circle(0,0)`, false},
		{`circle(0,0,3",4")`, false},
		{`ellipse(0,0,3",4")`, false},
		{`circle 0,0,3"`, false},
		{`circle(0,0,3"`, false},
		{`circle(0,,3")`, false},
		{`circle(0,0,3") junk`, false},
		{`circle(11:53,+60:41:01.37,3")`, true},
		{`circle(11:53:59,+60:41,3")`, true},
		{`circle(0',0,3")`, true},
		{`circle(0,0,-3")`, true},
		{`circle(0,0,0")`, true},
		{`ellipse(0,0,3",0",10)`, true},
		{`circle(0,0,1:2:3)`, true},
		{`ellipse(0,0,3",4",10")`, true},
	}

	for _, tt := range tests {
		_, ok, err := c.Classify(tt.line)
		if !ok {
			t.Errorf("%q: should be recognised as a shape", tt.line)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%q: want *ParseError, got %v", tt.line, err)
			continue
		}
		var fe *coords.FormatError
		if got := errors.As(err, &fe); got != tt.wantFormat {
			t.Errorf("%q: FormatError underneath = %v, want %v (%v)", tt.line, got, tt.wantFormat, err)
		}
	}

	c.Projector = failingProjector{}
	if _, _, err := c.Classify(`circle(0,0,3")`); err == nil {
		t.Errorf("projection failure should be an error")
	}

	c = Classifier{Projector: offsetProjector{}}
	if _, _, err := c.Classify(`circle(0,0,3")`); err == nil {
		t.Errorf("missing pixel scale should be an error")
	}
}

func TestClassifyAll(t *testing.T) {
	c := Classifier{Projector: offsetProjector{}, PixelScale: 1.0 / 3600}
	lines := strings.Split(`# Region file format: DS9 version 4.1
global color=green
fk5
circle(0,0,30") # color=red
circle(0,0,oops")
ellipse(0.01,0.01,5",5",0)
circle(0,0,10") # color=red`, "\n")

	descs, errs := c.ClassifyAll(lines)
	if len(descs) != 3 {
		t.Errorf("got %d descriptors, want 3", len(descs))
	}
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	var pe *ParseError
	if !errors.As(errs[0], &pe) || pe.LineNo != 5 {
		t.Errorf("error should be a *ParseError for line 5, got %v", errs[0])
	}
}

func TestBuildSet(t *testing.T) {
	small := aperture.Circular{Radius: 1}
	mid := aperture.Circular{Radius: 2}
	midEllipse := aperture.NewElliptical(0, 0, 4, 1, 0) // same area as mid
	big := aperture.Circular{Radius: 3}
	sky1 := aperture.Circular{X: 50, Radius: 5}
	sky2 := aperture.Circular{X: 60, Radius: 1}

	set := BuildSet([]Descriptor{
		{Role: Object, Aperture: small, Label: "Center"},
		{Role: Background, Aperture: sky1},
		{Role: Object, Aperture: mid},
		{Role: Object, Aperture: big, Label: "Galaxy"},
		{Role: Background, Aperture: sky2},
		{Role: Object, Aperture: midEllipse},
		{Role: Object, Aperture: small},
	})

	wantObjs := []aperture.Aperture{big, mid, midEllipse, small, small}
	if diff := cmp.Diff(wantObjs, set.Objects); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Galaxy", "", "", "Center", ""}, set.ObjectLabels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]aperture.Aperture{sky1, sky2}, set.Backgrounds); diff != "" {
		t.Errorf("backgrounds mismatch (-want +got):\n%s", diff)
	}

	if empty := BuildSet(nil); len(empty.Objects) != 0 || len(empty.Backgrounds) != 0 {
		t.Errorf("empty input gave %+v", empty)
	}
}

func ExampleClassifier_Classify() {
	c := Classifier{Projector: fixedProjector{100, 100}, PixelScale: 0.001}
	d, _, _ := c.Classify(`circle(11:53:59.065,+60:41:01.37,89.7417") # color=red`)
	fmt.Println(d)
	// Output:
	// object circle[(100.00,100.00) r=24.93pix]
}
