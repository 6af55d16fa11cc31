package photometry

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"os"

	"github.com/fogleman/gg"
	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/dust-sed/pkg/aperture"
	"github.com/abworrall/dust-sed/pkg/emath"
)

// WriteOverlayPNG draws the apertures over a grayscale rendering of the
// image, so you can check where the regions landed. Objects are red,
// backgrounds green.
func WriteOverlayPNG(pixels *emath.FloatGrid, objects, backgrounds []aperture.Aperture, title, filename string) error {
	dc := pixels.ToContext()
	dc.SetLineWidth(1.5)

	dc.SetRGBA(0, 0.9, 0, 0.8)
	for _, ap := range backgrounds {
		drawAperture(dc, pixels, ap)
	}
	dc.SetRGBA(1, 0, 0, 0.9)
	for _, ap := range objects {
		drawAperture(dc, pixels, ap)
	}

	if len(objects) > 0 {
		x, y := objects[len(objects)-1].Center()
		dy := float64(pixels.DisplayY(y))
		dc.DrawLine(x-4, dy, x+4, dy)
		dc.DrawLine(x, dy-4, x, dy+4)
		dc.Stroke()
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 10, 20)

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("write overlay %s: %v", filename, err)
	}
	return nil
}

// The rendering is flipped vertically, so angles flip sign too
func drawAperture(dc *gg.Context, pixels *emath.FloatGrid, ap aperture.Aperture) {
	x, y := ap.Center()
	dy := float64(pixels.DisplayY(y))

	switch a := ap.(type) {
	case aperture.Circular:
		dc.DrawCircle(x, dy, a.Radius)
		dc.Stroke()
	case aperture.Elliptical:
		dc.Push()
		dc.RotateAbout(-a.Theta, x, dy)
		dc.DrawEllipse(x, dy, a.SemiMajor, a.SemiMinor)
		dc.Stroke()
		dc.Pop()
	default:
		xmin, ymin, xmax, ymax := ap.Bounds()
		dc.DrawRectangle(xmin, float64(pixels.DisplayY(ymax)), xmax-xmin, ymax-ymin)
		dc.Stroke()
	}
}

// ApertureMap is an HDR image of the photometry inputs: the pixel values in
// the red channel, the number of object apertures covering each pixel in
// green, and background coverage in blue. Non-finite pixels are black.
// Implements hdr.Image.
type ApertureMap struct {
	Pixels      *emath.FloatGrid
	Objects     []aperture.Aperture
	Backgrounds []aperture.Aperture
	Subsamples  int
}

var _ hdr.Image = ApertureMap{}

// Implement image.Image
func (am ApertureMap) ColorModel() color.Model { return hdrcolor.RGBModel }
func (am ApertureMap) Bounds() image.Rectangle { return image.Rect(0, 0, am.Pixels.Dx(), am.Pixels.Dy()) }
func (am ApertureMap) At(x, y int) color.Color { return am.HDRAt(x, y) }

// Implement hdr.Image
func (am ApertureMap) Size() int { return am.Pixels.Dx() * am.Pixels.Dy() }

func (am ApertureMap) HDRAt(x, y int) hdrcolor.Color {
	n := am.Subsamples
	if n < 1 {
		n = 1
	}
	step := 1.0 / float64(n)

	// image rows run top down, FITS rows bottom up
	py := am.Pixels.Dy() - 1 - y
	px := float64(x)

	v := am.Pixels.Get(x, py)
	if !emath.IsFinite(v) || v < 0 {
		v = 0
	}

	cover := func(aps []aperture.Aperture) float64 {
		total := 0.0
		for _, ap := range aps {
			xmin, ymin, xmax, ymax := ap.Bounds()
			if px+0.5 < xmin || px-0.5 > xmax || float64(py)+0.5 < ymin || float64(py)-0.5 > ymax {
				continue
			}
			total += aperture.Coverage(ap, px, float64(py), n, step)
		}
		return total
	}

	return hdrcolor.RGB{R: v, G: cover(am.Objects), B: cover(am.Backgrounds)}
}

// WriteHDR writes the map as a Radiance RGBE file.
func (am ApertureMap) WriteHDR(filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("ApertureMap.WriteHDR, open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		err := rgbe.Encode(writer, am)
		if err != nil {
			log.Printf("ApertureMap.WriteHDR, encoding RGBE file: %v\n", err)
		}
		return err
	}
}
