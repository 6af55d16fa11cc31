// Package imageio loads the pixel grids that photometry runs over: FITS
// images (and their headers, for the WCS) or plain TIFFs.
package imageio

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"
	"golang.org/x/image/tiff"

	"github.com/abworrall/dust-sed/pkg/coords"
	"github.com/abworrall/dust-sed/pkg/emath"
)

// Image is one plane of pixel data, with whatever header came with it.
// Pixel (0,0) is the bottom left, as in FITS.
type Image struct {
	Filename string
	Pixels   emath.FloatGrid
	Header   coords.Header
}

func (img Image) String() string {
	return fmt.Sprintf("%s[%dx%d]", img.Filename, img.Pixels.Dx(), img.Pixels.Dy())
}

// Load reads a single image; hdu picks the extension in a FITS file and
// is ignored for TIFFs.
func Load(filename string, hdu int) (Image, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".fits", ".fit", ".fts":
		img, err := loadFITS(filename, hdu)
		if err != nil {
			return Image{}, fmt.Errorf("load %s as FITS: %v", filename, err)
		}
		return img, nil

	case ".tif", ".tiff":
		img, err := loadTIFF(filename)
		if err != nil {
			return Image{}, fmt.Errorf("load %s as TIFF: %v", filename, err)
		}
		return img, nil
	}

	return Image{}, fmt.Errorf("load %s: unrecognized file type", filename)
}

// LoadWithErrors loads an image and, if errFilename isn't empty, its
// per-pixel error map from the same HDU. The two must be the same shape.
func LoadWithErrors(filename, errFilename string, hdu int) (Image, *emath.FloatGrid, error) {
	img, err := Load(filename, hdu)
	if err != nil {
		return Image{}, nil, err
	}
	if errFilename == "" {
		return img, nil, nil
	}

	errImg, err := Load(errFilename, hdu)
	if err != nil {
		return Image{}, nil, err
	}
	if !img.Pixels.SameShape(&errImg.Pixels) {
		return Image{}, nil, fmt.Errorf("error map %s is %dx%d, image %s is %dx%d", errFilename,
			errImg.Pixels.Dx(), errImg.Pixels.Dy(), filename, img.Pixels.Dx(), img.Pixels.Dy())
	}

	return img, &errImg.Pixels, nil
}

func loadFITS(filename string, hdu int) (Image, error) {
	r, err := os.Open(filename)
	if err != nil {
		return Image{}, err
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return Image{}, fmt.Errorf("fits open: %v", err)
	}
	defer f.Close()

	if hdu < 0 || hdu >= len(f.HDUs()) {
		return Image{}, fmt.Errorf("hdu %d not found (file has %d)", hdu, len(f.HDUs()))
	}
	fitsImg, ok := f.HDU(hdu).(fitsio.Image)
	if !ok {
		return Image{}, fmt.Errorf("hdu %d is not an image", hdu)
	}

	hdr := fitsHeader{fitsImg.Header()}
	axes := fitsImg.Header().Axes()
	if len(axes) < 2 {
		return Image{}, fmt.Errorf("hdu %d has %d axes, need at least 2", hdu, len(axes))
	}
	for _, n := range axes[2:] {
		if n > 1 {
			log.Printf("%s: hdu %d has axes %v, using the first plane\n", filename, hdu, axes)
			break
		}
	}
	w, h := axes[0], axes[1]
	n := 1
	for _, a := range axes {
		n *= a
	}

	values, err := readPixels(fitsImg, n)
	if err != nil {
		return Image{}, fmt.Errorf("hdu %d read: %v", hdu, err)
	}
	values = values[:w*h]

	// Integer data is stored scaled
	if fitsImg.Header().Bitpix() > 0 {
		bscale, ok := hdr.Float("BSCALE")
		if !ok {
			bscale = 1
		}
		bzero, _ := hdr.Float("BZERO")
		if bscale != 1 || bzero != 0 {
			for i, v := range values {
				values[i] = v*bscale + bzero
			}
		}
	}

	grid, err := emath.NewFloatGridFromValues(w, h, values)
	if err != nil {
		return Image{}, err
	}

	return Image{Filename: filename, Pixels: grid, Header: hdr}, nil
}

// readPixels reads all n values of the HDU; fitsio wants a slice of the
// type BITPIX names, with room for every element.
func readPixels(img fitsio.Image, n int) ([]float64, error) {
	values := make([]float64, n)
	switch bitpix := img.Header().Bitpix(); bitpix {
	case 8:
		raw := make([]uint8, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			values[i] = float64(v)
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			values[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			values[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			values[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			values[i] = float64(v)
		}
	case -64:
		if err := img.Read(&values); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	return values, nil
}

// TIFFs carry no WCS; the header is empty, and a projection has to come
// from the config.
func loadTIFF(filename string) (Image, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return Image{}, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return Image{}, fmt.Errorf("tiff loading '%s': %v", filename, err)
	}

	// Image rows run top down; flip them so y=0 is the bottom row
	top := emath.NewFloatGridFromImage(img)
	grid := top.NewFromThis()
	for y := 0; y < top.Dy(); y++ {
		for x := 0; x < top.Dx(); x++ {
			grid.Set(x, top.Dy()-1-y, top.Get(x, y))
		}
	}

	return Image{Filename: filename, Pixels: grid, Header: coords.MapHeader{}}, nil
}

// fitsHeader adapts a FITS header to coords.Header
type fitsHeader struct {
	h *fitsio.Header
}

func (fh fitsHeader) Float(key string) (float64, bool) {
	card := fh.h.Get(key)
	if card == nil {
		return 0, false
	}
	switch v := card.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	case uint8:
		return float64(v), true
	}
	return 0, false
}

func (fh fitsHeader) String(key string) (string, bool) {
	card := fh.h.Get(key)
	if card == nil {
		return "", false
	}
	s, ok := card.Value.(string)
	return strings.TrimSpace(s), ok
}
