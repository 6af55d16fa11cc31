// Package config holds the knobs for the photometry and fitting commands.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/dust-sed/pkg/coords"
	"github.com/abworrall/dust-sed/pkg/photometry"
	"github.com/abworrall/dust-sed/pkg/sed"
)

/* Example config file ...

verbosity: 1
objectcolor: red
hdu: 1
pixelscalekeyword: CDELT1
units: MJy/sr
calibrationfraction: -1
subsamples: 5
detectionthreshold: 3
mindetections: 3
workers: 4
distance: 16.5
distanceerror: 1.2
headeroverrides:
  CTYPE1: RA---NCP
  CTYPE2: DEC--NCP

*/

const AppName = "dust-sed"

// ErrConfigNotFound is returned by Load when the file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

type Config struct {
	Verbosity int

	// Photometry
	ObjectColor         string  // regions in this color are the object, the rest are sky
	HDU                 int     // which FITS extension holds the image
	PixelScaleKeyword   string  // header keyword giving degrees per pixel
	Units               string  // Jy/pixel (PACS) or MJy/sr (SPIRE)
	CalibrationFraction float64 // negative means take it from Units
	Subsamples          int     // per axis, for partial pixel coverage

	// HI mass
	Distance          float64 // Mpc
	DistanceError     float64
	MassFractionError float64

	// Fitting
	DetectionThreshold float64
	MinDetections      int
	FitExtra           bool
	Workers            int
	MaxIterations      int

	// Keywords that replace (or supply) the image header's, e.g. to force
	// an NCP projection, or give a TIFF a WCS.
	HeaderOverrides coords.MapHeader
}

func NewConfig() Config {
	return Config{
		ObjectColor:         "red",
		PixelScaleKeyword:   "CDELT1",
		Units:               photometry.UnitsJyPerPixel,
		CalibrationFraction: -1,
		Subsamples:          5,
		MassFractionError:   0.15,
		DetectionThreshold:  sed.DefaultDetectionThreshold,
		MinDetections:       sed.DefaultMinDetections,
		Workers:             4,
		MaxIterations:       5000,
		HeaderOverrides:     coords.MapHeader{},
	}
}

func NewConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config: %v", err)
	}
	if c.HeaderOverrides == nil {
		c.HeaderOverrides = coords.MapHeader{}
	}
	return c, nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Load reads a YAML config file on top of the defaults.
func Load(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(), ErrConfigNotFound
		}
		return NewConfig(), fmt.Errorf("config read %s: %v", filename, err)
	}

	c, err := NewConfigFromYaml(contents)
	if err != nil {
		return c, fmt.Errorf("config %s: %v", filename, err)
	}
	return c, nil
}

// DefaultPath finds config.yaml under the XDG config dirs, e.g.
// ~/.config/dust-sed/config.yaml. It returns "" if there isn't one.
func DefaultPath() string {
	path, err := xdg.SearchConfigFile(filepath.Join(AppName, "config.yaml"))
	if err != nil {
		return ""
	}
	return path
}

// ConfigDir is where DefaultPath looks first
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the values make sense, returning the first problem.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.ObjectColor) == "":
		return fmt.Errorf("objectcolor is empty")
	case c.HDU < 0:
		return fmt.Errorf("hdu %d is negative", c.HDU)
	case c.Subsamples < 1:
		return fmt.Errorf("subsamples %d must be at least 1", c.Subsamples)
	case c.CalibrationFraction >= 1:
		return fmt.Errorf("calibrationfraction %g must be below 1", c.CalibrationFraction)
	case c.Distance < 0 || c.DistanceError < 0:
		return fmt.Errorf("distance %g ± %g must not be negative", c.Distance, c.DistanceError)
	case c.MassFractionError < 0:
		return fmt.Errorf("massfractionerror %g is negative", c.MassFractionError)
	case c.DetectionThreshold <= 0:
		return fmt.Errorf("detectionthreshold %g must be positive", c.DetectionThreshold)
	case c.MinDetections < 1:
		return fmt.Errorf("mindetections %d must be at least 1", c.MinDetections)
	case c.Workers < 1:
		return fmt.Errorf("workers %d must be at least 1", c.Workers)
	case c.MaxIterations < 1:
		return fmt.Errorf("maxiterations %d must be at least 1", c.MaxIterations)
	}

	if _, _, err := photometry.UnitPreset(c.Units, 1); err != nil {
		return err
	}
	return nil
}

// Calibration resolves the unit multiplier and calibration fraction for
// an image with the given pixel scale.
func (c Config) Calibration(degPerPixel float64) (multiplier, calibration float64, err error) {
	multiplier, calibration, err = photometry.UnitPreset(c.Units, degPerPixel)
	if err != nil {
		return 0, 0, err
	}
	if c.CalibrationFraction >= 0 {
		calibration = c.CalibrationFraction
	}
	return multiplier, calibration, nil
}
