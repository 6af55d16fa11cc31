// Package region turns DS9 style region lines into photometric apertures.
//
// Only circle and ellipse shapes are understood; everything else in a
// region file (headers, global settings, text labels, boxes) is ignored.
// The color attribute decides whether a shape is part of the object being
// measured or a patch of sky used to estimate the background.
package region

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abworrall/dust-sed/pkg/aperture"
	"github.com/abworrall/dust-sed/pkg/coords"
	"github.com/abworrall/dust-sed/pkg/emath"
)

const DefaultObjectColor = "red"

type Role int

const (
	Background Role = iota
	Object
)

func (r Role) String() string {
	if r == Object {
		return "object"
	}
	return "background"
}

// A Descriptor is one classified region line.
type Descriptor struct {
	Role     Role
	Aperture aperture.Aperture
	Label    string // the text={...} attribute, if any
	Line     string
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s", d.Role, d.Aperture)
}

// ParseError is a circle or ellipse line that could not be understood.
type ParseError struct {
	LineNo int // 1-based; 0 when not known
	Line   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	s := "region"
	if e.LineNo > 0 {
		s += fmt.Sprintf(" line %d", e.LineNo)
	}
	s += fmt.Sprintf(" %q: %s", strings.TrimSpace(e.Line), e.Reason)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ParseError) Unwrap() error { return e.Err }

// Classifier converts region lines into descriptors, using a projection to
// find pixel centers and the pixel scale (degrees per pixel) to size them.
type Classifier struct {
	Projector   coords.Projector
	PixelScale  float64
	ObjectColor string // defaults to DefaultObjectColor
}

// Classify parses a single line. ok is false for lines that don't describe
// a circle or ellipse; those are not errors.
func (c Classifier) Classify(line string) (Descriptor, bool, error) {
	toks := lex(line)

	// skip leading "fk5;" style coordinate system prefixes
	for len(toks) >= 2 && toks[0].kind == tokIdent && toks[1].kind == tokSemicolon {
		toks = toks[2:]
	}
	if toks[0].kind != tokIdent {
		return Descriptor{}, false, nil
	}

	var nParams int
	switch toks[0].text {
	case "circle":
		nParams = 3
	case "ellipse":
		nParams = 5
	default:
		return Descriptor{}, false, nil
	}

	fail := func(reason string, err error) (Descriptor, bool, error) {
		return Descriptor{}, true, &ParseError{Line: line, Reason: reason, Err: err}
	}

	if c.Projector == nil {
		return fail("no projection to place it with", nil)
	}
	if !(c.PixelScale > 0) {
		return fail(fmt.Sprintf("pixel scale %g is not positive", c.PixelScale), nil)
	}

	params, rest, err := parseParams(toks[1:])
	if err != nil {
		return fail(err.Error(), nil)
	}
	if len(params) != nParams {
		return fail(fmt.Sprintf("%s takes %d parameters, found %d", toks[0].text, nParams, len(params)), nil)
	}

	attrs := map[string]string{}
	switch rest.kind {
	case tokEOF:
	case tokComment:
		attrs = parseAttributes(rest.text)
	default:
		return fail(fmt.Sprintf("unexpected %s after parameters", rest), nil)
	}

	ra, err := parseCoord(params[0], true)
	if err != nil {
		return fail("bad right ascension", err)
	}
	dec, err := parseCoord(params[1], false)
	if err != nil {
		return fail("bad declination", err)
	}
	x, y, err := c.Projector.ToPixel(ra, dec)
	if err != nil {
		return fail("cannot project center", err)
	}

	r1, err := parseSize(params[2])
	if err != nil {
		return fail("bad size", err)
	}
	r1 = coords.ArcsecToPixels(r1, c.PixelScale)

	d := Descriptor{Role: c.role(attrs), Line: line, Label: attrs["text"]}

	if nParams == 3 {
		d.Aperture = aperture.Circular{X: x, Y: y, Radius: r1}
		return d, true, nil
	}

	r2, err := parseSize(params[3])
	if err != nil {
		return fail("bad size", err)
	}
	r2 = coords.ArcsecToPixels(r2, c.PixelScale)

	angle, err := parseAngle(params[4])
	if err != nil {
		return fail("bad angle", err)
	}

	d.Aperture = aperture.NewElliptical(x, y, r1, r2, emath.Deg2Rad(angle))
	return d, true, nil
}

func (c Classifier) role(attrs map[string]string) Role {
	want := c.ObjectColor
	if want == "" {
		want = DefaultObjectColor
	}
	if strings.EqualFold(attrs["color"], want) {
		return Object
	}
	return Background
}

// ClassifyAll classifies every line, keeping the good ones in order and
// collecting a *ParseError for each bad one.
func (c Classifier) ClassifyAll(lines []string) ([]Descriptor, []error) {
	var descs []Descriptor
	var errs []error

	for i, line := range lines {
		d, ok, err := c.Classify(line)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.LineNo = i + 1
			}
			errs = append(errs, err)
			continue
		}
		if ok {
			descs = append(descs, d)
		}
	}

	return descs, errs
}

// parseParams reads `( number {, number} )` and returns the numbers plus
// the token after the closing paren.
func parseParams(toks []token) ([]token, token, error) {
	if toks[0].kind != tokLParen {
		return nil, token{}, fmt.Errorf("expected '(', found %s", toks[0])
	}
	toks = toks[1:]

	var params []token
	for {
		if toks[0].kind != tokNumber {
			return nil, token{}, fmt.Errorf("expected a number, found %s", toks[0])
		}
		params = append(params, toks[0])

		switch toks[1].kind {
		case tokComma:
			toks = toks[2:]
		case tokRParen:
			return params, toks[2], nil
		default:
			return nil, token{}, fmt.Errorf("expected ',' or ')', found %s", toks[1])
		}
	}
}

// parseCoord accepts sexagesimal (h:m:s or d:m:s) or decimal degrees, with
// an optional 'd' mark on the latter.
func parseCoord(t token, isRA bool) (float64, error) {
	if strings.Contains(t.text, ":") {
		if t.unit != 0 {
			return 0, &coords.FormatError{Text: t.String(), Reason: "unit mark on a sexagesimal position"}
		}
		return coords.SexagesimalToDegrees(t.text, isRA)
	}
	if t.unit != 0 && t.unit != 'd' {
		return 0, &coords.FormatError{Text: t.String(), Reason: "positions must be in degrees"}
	}
	deg, err := strconv.ParseFloat(t.text, 64)
	if err != nil || !emath.IsFinite(deg) {
		return 0, &coords.FormatError{Text: t.String(), Reason: "not a number"}
	}
	return deg, nil
}

// parseSize returns an angular size in arcsec; bare numbers are arcsec.
func parseSize(t token) (float64, error) {
	if strings.Contains(t.text, ":") {
		return 0, &coords.FormatError{Text: t.String(), Reason: "sizes cannot be sexagesimal"}
	}
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil || !emath.IsFinite(v) {
		return 0, &coords.FormatError{Text: t.String(), Reason: "not a number"}
	}
	if !(v > 0) {
		return 0, &coords.FormatError{Text: t.String(), Reason: "size must be positive"}
	}

	switch t.unit {
	case '\'':
		v *= 60
	case 'd':
		v *= 3600
	}
	return v, nil
}

// parseAngle returns degrees
func parseAngle(t token) (float64, error) {
	if t.unit != 0 && t.unit != 'd' {
		return 0, &coords.FormatError{Text: t.String(), Reason: "angles must be in degrees"}
	}
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil || !emath.IsFinite(v) {
		return 0, &coords.FormatError{Text: t.String(), Reason: "not a number"}
	}
	return v, nil
}
