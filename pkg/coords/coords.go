// Package coords converts the textual positions and sizes found in region
// files into degrees and pixels, and projects sky positions onto an image.
package coords

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A FormatError means a coordinate string could not be read. It is
// recoverable; the caller can skip the line or ask again.
type FormatError struct {
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("bad coordinate %q: %s", e.Text, e.Reason)
}

// SexagesimalToDegrees converts "hh:mm:ss.s" (or "dd:mm:ss.s") into
// degrees. The three fields may be separated by colons or spaces.
//
// For declinations the sign comes from the first field only, so
// "-00:30:00" is -0.5; signs on the minutes and seconds are ignored.
func SexagesimalToDegrees(text string, isRA bool) (float64, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(text), func(r rune) bool {
		return r == ':' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 {
		return 0, &FormatError{text, fmt.Sprintf("want 3 fields, found %d", len(fields))}
	}

	vals := [3]float64{}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &FormatError{text, fmt.Sprintf("field %q is not a number", f)}
		}
		vals[i] = v
	}

	if isRA {
		return vals[0]*15 + vals[1]*0.25 + vals[2]/240, nil
	}

	sign := 1.0
	if strings.HasPrefix(fields[0], "-") {
		sign = -1.0
	}
	return sign * (math.Abs(vals[0]) + math.Abs(vals[1])/60 + math.Abs(vals[2])/3600), nil
}

// DegreesToSexagesimal is the inverse of SexagesimalToDegrees, with
// colon separators. RA is written in hours.
func DegreesToSexagesimal(deg float64, isRA bool) string {
	sign := ""
	if !isRA && deg < 0 {
		sign = "-"
	} else if !isRA {
		sign = "+"
	}

	v := math.Abs(deg)
	if isRA {
		v /= 15
	}
	whole := math.Floor(v)
	mins := math.Floor((v - whole) * 60)
	secs := ((v-whole)*60 - mins) * 60

	// Don't print 60.000 seconds
	if secs >= 59.9999995 {
		secs = 0
		mins++
	}
	if mins >= 60 {
		mins = 0
		whole++
	}

	return fmt.Sprintf("%s%02.0f:%02.0f:%09.6f", sign, whole, mins, secs)
}

// ArcsecToPixels converts an angular size into pixels
func ArcsecToPixels(arcsec, degPerPixel float64) float64 {
	return arcsec / 3600 / degPerPixel
}

// SolidAnglePerPixel is the solid angle (steradians) subtended by a square pixel
func SolidAnglePerPixel(degPerPixel float64) float64 {
	return degPerPixel * degPerPixel * math.Pi * math.Pi / 180 / 180
}

// BeamsPerPixel is how many (elliptical) beams fit inside a pixel. Radio maps
// are in Jy/beam, so this converts a pixel sum into Jy. The beam area is taken
// as bmaj*bmin, without the gaussian 1.133 factor.
func BeamsPerPixel(degPerPixel, bmajDeg, bminDeg float64) float64 {
	beamArea := math.Abs(bmajDeg*bminDeg) * math.Pi * math.Pi / 180 / 180
	return SolidAnglePerPixel(degPerPixel) / beamArea
}
