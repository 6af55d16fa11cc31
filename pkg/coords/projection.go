package coords

import (
	"fmt"
	"math"
	"strings"

	"github.com/abworrall/dust-sed/pkg/emath"
)

// A Projector maps a sky position (degrees) onto 0-based pixel coordinates.
type Projector interface {
	ToPixel(ra, dec float64) (x, y float64, err error)
}

// Header is the subset of a FITS header that a WCS needs.
type Header interface {
	Float(key string) (float64, bool)
	String(key string) (string, bool)
}

// MapHeader is a Header backed by a map; handy for config overrides and tests.
type MapHeader map[string]interface{}

func (h MapHeader) Float(key string) (float64, bool) {
	switch v := h[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (h MapHeader) String(key string) (string, bool) {
	s, ok := h[key].(string)
	return s, ok
}

// WCS is a minimal world coordinate system for a 2D celestial image: a
// zenithal (TAN, SIN, NCP) or plate carree (CAR) projection about CRVAL,
// followed by the CD matrix.
type WCS struct {
	CRPix      [2]float64 // 1-based reference pixel, as in the header
	CRVal      [2]float64 // reference RA, Dec in degrees
	CD         emath.Aff3 // maps pixel offsets into intermediate world coords (degrees)
	Projection string     // TAN, SIN, NCP, CAR

	pixFromWorld emath.Aff3
}

func (w WCS) String() string {
	return fmt.Sprintf("WCS[%s crpix(%.2f,%.2f) crval(%.6f,%.6f) cd%s]",
		w.Projection, w.CRPix[0], w.CRPix[1], w.CRVal[0], w.CRVal[1], w.CD)
}

// NewWCS checks the projection type and precomputes the inverse CD matrix.
func NewWCS(crpix, crval [2]float64, cd emath.Aff3, projection string) (*WCS, error) {
	w := WCS{CRPix: crpix, CRVal: crval, CD: cd, Projection: strings.ToUpper(projection)}

	switch w.Projection {
	case "TAN", "SIN", "NCP", "CAR", "":
	default:
		return nil, fmt.Errorf("projection %q not supported", projection)
	}
	if w.Projection == "" {
		w.Projection = "CAR"
	}

	inv, err := cd.Invert()
	if err != nil {
		return nil, fmt.Errorf("wcs cd matrix: %v", err)
	}
	w.pixFromWorld = inv

	return &w, nil
}

// NewWCSFromHeader reads CRPIXn, CRVALn, CTYPE1 and either the CDi_j matrix or
// CDELTn + CROTA2.
func NewWCSFromHeader(h Header) (*WCS, error) {
	get := func(key string) (float64, error) {
		if v, ok := h.Float(key); ok {
			return v, nil
		}
		return 0, fmt.Errorf("header keyword %s missing", key)
	}

	var crpix, crval [2]float64
	for i, axis := range []string{"1", "2"} {
		var err error
		if crpix[i], err = get("CRPIX" + axis); err != nil {
			return nil, err
		}
		if crval[i], err = get("CRVAL" + axis); err != nil {
			return nil, err
		}
	}

	var cd emath.Aff3
	if cd11, ok := h.Float("CD1_1"); ok {
		cd12, _ := h.Float("CD1_2")
		cd21, _ := h.Float("CD2_1")
		cd22, _ := h.Float("CD2_2")
		cd = emath.Linear(cd11, cd12, cd21, cd22)
	} else {
		cdelt1, err := get("CDELT1")
		if err != nil {
			return nil, err
		}
		cdelt2, err := get("CDELT2")
		if err != nil {
			return nil, err
		}
		crota2, _ := h.Float("CROTA2")
		cd = emath.Identity().Rotate(crota2).Scale(cdelt1, cdelt2)
	}

	proj := ""
	if ctype, ok := h.String("CTYPE1"); ok {
		// e.g. "RA---TAN"
		if i := strings.LastIndex(ctype, "-"); i >= 0 {
			proj = strings.TrimSpace(ctype[i+1:])
		}
	}

	return NewWCS(crpix, crval, cd, proj)
}

// PixelScale is the mean size of a pixel, in degrees
func (w *WCS) PixelScale() float64 {
	return math.Sqrt(math.Abs(w.CD.Det()))
}

// ToPixel projects (ra, dec) in degrees onto 0-based pixel coordinates.
func (w *WCS) ToPixel(ra, dec float64) (float64, float64, error) {
	xi, eta, err := w.intermediate(ra, dec)
	if err != nil {
		return 0, 0, err
	}

	dx, dy := w.pixFromWorld.Apply(xi, eta)

	// CRPIX is 1-based
	return dx + w.CRPix[0] - 1, dy + w.CRPix[1] - 1, nil
}

// intermediate returns the intermediate world coordinates (degrees) of the
// sky position, in the plane tangent at CRVAL.
func (w *WCS) intermediate(ra, dec float64) (float64, float64, error) {
	a0, d0 := emath.Deg2Rad(w.CRVal[0]), emath.Deg2Rad(w.CRVal[1])
	a, d := emath.Deg2Rad(ra), emath.Deg2Rad(dec)

	dA := a - a0
	cosC := math.Sin(d0)*math.Sin(d) + math.Cos(d0)*math.Cos(d)*math.Cos(dA)

	switch w.Projection {
	case "TAN":
		if cosC <= 0 {
			return 0, 0, fmt.Errorf("(%.6f,%.6f) is more than 90deg from the tangent point", ra, dec)
		}
		xi := math.Cos(d) * math.Sin(dA) / cosC
		eta := (math.Cos(d0)*math.Sin(d) - math.Sin(d0)*math.Cos(d)*math.Cos(dA)) / cosC
		return emath.Rad2Deg(xi), emath.Rad2Deg(eta), nil

	case "SIN":
		if cosC < 0 {
			return 0, 0, fmt.Errorf("(%.6f,%.6f) is on the far hemisphere", ra, dec)
		}
		xi := math.Cos(d) * math.Sin(dA)
		eta := math.Cos(d0)*math.Sin(d) - math.Sin(d0)*math.Cos(d)*math.Cos(dA)
		return emath.Rad2Deg(xi), emath.Rad2Deg(eta), nil

	case "NCP":
		if math.Sin(d0) == 0 {
			return 0, 0, fmt.Errorf("NCP projection undefined at the equator")
		}
		if cosC < 0 {
			return 0, 0, fmt.Errorf("(%.6f,%.6f) is on the far hemisphere", ra, dec)
		}
		xi := math.Cos(d) * math.Sin(dA)
		eta := (math.Cos(d0) - math.Cos(d)*math.Cos(dA)) / math.Sin(d0)
		return emath.Rad2Deg(xi), emath.Rad2Deg(eta), nil
	}

	// CAR; wrap RA into [-180,180) around the reference
	dRA := math.Mod(ra-w.CRVal[0]+540, 360) - 180
	return dRA, dec - w.CRVal[1], nil
}
