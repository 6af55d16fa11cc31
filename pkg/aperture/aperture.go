// Package aperture has the geometric footprints used for photometry, and
// an integrator that sums a pixel grid over them.
package aperture

import (
	"fmt"
	"math"
)

// An Aperture is a footprint over a pixel grid. Pixel (i,j) is centered on
// (float64(i), float64(j)) and covers +/-0.5 in each direction.
type Aperture interface {
	Center() (float64, float64)
	Area() float64 // in pixels; always derived from the current radii
	Contains(x, y float64) bool
	Bounds() (xmin, ymin, xmax, ymax float64)
	String() string
}

type Circular struct {
	X, Y   float64
	Radius float64
}

func (c Circular) Center() (float64, float64) { return c.X, c.Y }
func (c Circular) Area() float64              { return math.Pi * c.Radius * c.Radius }

func (c Circular) Contains(x, y float64) bool {
	dx, dy := x-c.X, y-c.Y
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

func (c Circular) Bounds() (float64, float64, float64, float64) {
	return c.X - c.Radius, c.Y - c.Radius, c.X + c.Radius, c.Y + c.Radius
}

func (c Circular) String() string {
	return fmt.Sprintf("circle[(%.2f,%.2f) r=%.2fpix]", c.X, c.Y, c.Radius)
}

// Elliptical always has SemiMajor >= SemiMinor; use NewElliptical to get
// that guaranteed. Theta is the angle of the semimajor axis, in radians,
// counter-clockwise from the +x pixel axis.
type Elliptical struct {
	X, Y      float64
	SemiMajor float64
	SemiMinor float64
	Theta     float64
}

// NewElliptical takes the two axes in either order. r2 is the axis that
// theta refers to; when it turns out to be the semimajor axis, theta is
// rotated by 90deg to describe r1 instead.
func NewElliptical(x, y, r1, r2, theta float64) Elliptical {
	if r1 < r2 {
		return Elliptical{X: x, Y: y, SemiMajor: r2, SemiMinor: r1, Theta: theta + math.Pi/2}
	}
	return Elliptical{X: x, Y: y, SemiMajor: r1, SemiMinor: r2, Theta: theta}
}

func (e Elliptical) Center() (float64, float64) { return e.X, e.Y }
func (e Elliptical) Area() float64              { return math.Pi * e.SemiMajor * e.SemiMinor }

func (e Elliptical) Contains(x, y float64) bool {
	if e.SemiMajor == 0 || e.SemiMinor == 0 {
		return false
	}
	dx, dy := x-e.X, y-e.Y
	cosT, sinT := math.Cos(e.Theta), math.Sin(e.Theta)
	u := (dx*cosT + dy*sinT) / e.SemiMajor
	v := (-dx*sinT + dy*cosT) / e.SemiMinor
	return u*u+v*v <= 1
}

// Bounds is the axis aligned box around the rotated ellipse
func (e Elliptical) Bounds() (float64, float64, float64, float64) {
	cosT, sinT := math.Cos(e.Theta), math.Sin(e.Theta)
	hx := math.Hypot(e.SemiMajor*cosT, e.SemiMinor*sinT)
	hy := math.Hypot(e.SemiMajor*sinT, e.SemiMinor*cosT)
	return e.X - hx, e.Y - hy, e.X + hx, e.Y + hy
}

func (e Elliptical) String() string {
	return fmt.Sprintf("ellipse[(%.2f,%.2f) a=%.2fpix b=%.2fpix %.1fdeg]",
		e.X, e.Y, e.SemiMajor, e.SemiMinor, e.Theta*180/math.Pi)
}
