package emath

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
)

// A FloatGrid is a grid of floats, with some operations. Pixel (x,y) is
// stored at values[stride*y + x]; that is the same ordering as a FITS
// image, NAXIS1 being the fast axis.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFromValues wraps a row-major slice; it does not copy.
func NewFloatGridFromValues(w, h int, values []float64) (FloatGrid, error) {
	if w <= 0 || h <= 0 || len(values) != w*h {
		return FloatGrid{}, fmt.Errorf("grid %dx%d: have %d values", w, h, len(values))
	}
	return FloatGrid{stride: w, values: values}, nil
}

// NewFloatGridFromImage reads the gray level of each pixel, in [0, 0xFFFF].
func NewFloatGridFromImage(img image.Image) FloatGrid {
	b := img.Bounds()
	fg := NewFloatGrid(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			fg.Set(x-b.Min.X, y-b.Min.Y, float64(gray.Y))
		}
	}
	return fg
}

func (g1 *FloatGrid) NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg *FloatGrid) Get(x, y int) float64    { return fg.values[fg.stride*y+x] }
func (fg *FloatGrid) Dx() int                 { return fg.stride }
func (fg *FloatGrid) Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}
func (fg *FloatGrid) In(x, y int) bool { return x >= 0 && y >= 0 && x < fg.Dx() && y < fg.Dy() }

// SameShape is true if both grids have the same dimensions
func (g1 *FloatGrid) SameShape(g2 *FloatGrid) bool {
	return g1.Dx() == g2.Dx() && g1.Dy() == g2.Dy()
}

// FindMaxMinAtPercentile ignores non-finite values; used to pick a
// display range that isn't dominated by a few hot pixels.
func (I *FloatGrid) FindMaxMinAtPercentile(minPrct, maxPrct float64) (float64, float64) {
	vI := []float64{}

	for i := 0; i < len(I.values); i++ {
		if val := I.values[i]; !math.IsNaN(val) && !math.IsInf(val, 0) {
			vI = append(vI, val)
		}
	}
	if len(vI) == 0 {
		return 0, 0
	}

	sort.Float64s(vI)

	iMin := int(minPrct * float64(len(vI)))
	iMax := int(maxPrct * float64(len(vI)))
	if iMin < 0 {
		iMin = 0
	}
	if iMax >= len(vI) {
		iMax = len(vI) - 1
	}

	return vI[iMin], vI[iMax]
}

func (fg *FloatGrid) Stats() string {
	min := math.MaxFloat64
	max := -1.0 * min
	nBad := 0

	for i := 0; i < len(fg.values); i++ {
		v := fg.values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			nBad++
			continue
		}
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return fmt.Sprintf("fg[%dx%d, vals{%g,%g}, %d non-finite]", fg.Dx(), fg.Dy(), min, max, nBad)
}

// ToContext renders a simple grayscale, stretched between the 1st and 99.5th
// percentile and gamma scaled to look normal for human vision, into a gg
// context that callers can draw over. FITS has y pointing up, so the image
// is flipped vertically; callers should use DisplayY to place things.
func (fg *FloatGrid) ToContext() *gg.Context {
	min, max := fg.FindMaxMinAtPercentile(0.01, 0.995)
	if max <= min {
		max = min + 1
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{fg.Dx(), fg.Dy()}})
	for x := 0; x < fg.Dx(); x++ {
		for y := 0; y < fg.Dy(); y++ {
			lum := (fg.Get(x, y) - min) / (max - min)
			if math.IsNaN(lum) || lum < 0 {
				lum = 0
			} else if lum > 1 {
				lum = 1
			}
			gray := uint16(GammaExpand_F64(lum) * 65535.0)
			img.Set(x, fg.DisplayY(float64(y)), color.RGBA64{gray, gray, gray, 0xFFFF})
		}
	}

	return gg.NewContextForImage(img)
}

// DisplayY maps a pixel row into the (flipped) row used by ToContext
func (fg *FloatGrid) DisplayY(y float64) int { return fg.Dy() - 1 - int(math.Round(y)) }
