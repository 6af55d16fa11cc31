package main

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/abworrall/dust-sed/pkg/config"
	"github.com/abworrall/dust-sed/pkg/imageio"
	"github.com/abworrall/dust-sed/pkg/photometry"
	"github.com/abworrall/dust-sed/pkg/pipeline"
)

func NewPhotometryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photometry IMAGE REGIONS",
		Short: "Measure background subtracted fluxes in DS9 regions",
		Long: `Photometry measures the object regions of a DS9 region file on a map.

Object regions (color=red unless --color says otherwise) are sorted from
largest to smallest; the largest is the whole galaxy, the smallest its
center, and each pair in between is differenced into an annulus. All
other circles and ellipses are sky; the sky level is their mean surface
brightness.

PACS maps are in Jy/pixel (5% calibration error), SPIRE maps in MJy/sr
(7%); set --units to match.

Examples:
  dustsed photometry --hdu 1 pacs160.fits ngc4254.reg
  dustsed photometry --units MJy/sr --errors spire250_err.fits spire250.fits ngc4254.reg
  dustsed photometry --overlay check.png --hdr check.hdr pacs160.fits ngc4254.reg`,
		Args: cobra.ExactArgs(2),
		RunE: runPhotometryCmd,
	}

	addImageFlags(cmd)
	cmd.Flags().StringP("errors", "e", "", "per-pixel error map, same shape and HDU as the image")
	cmd.Flags().StringP("units", "u", "", "pixel units: "+photometry.UnitsJyPerPixel+" or "+photometry.UnitsMJyPerSr)
	cmd.Flags().Float64("calibration", -1, "calibration error fraction (default: from the units)")

	return cmd
}

// addImageFlags are the flags shared by the commands that read maps.
func addImageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("hdu", 0, "FITS extension holding the image")
	cmd.Flags().String("color", "", "region color that marks the object (default red)")
	cmd.Flags().Int("subsamples", 0, "subpixel samples per axis for partial pixels (default 5)")
	cmd.Flags().String("scale-keyword", "", "header keyword for the pixel scale (default CDELT1)")
	cmd.Flags().String("overlay", "", "write a PNG of the apertures over the image")
	cmd.Flags().String("hdr", "", "write a Radiance HDR with the image and aperture masks")
}

func applyImageFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("hdu") {
		cfg.HDU, _ = flags.GetInt("hdu")
	}
	if flags.Changed("color") {
		cfg.ObjectColor, _ = flags.GetString("color")
	}
	if flags.Changed("subsamples") {
		cfg.Subsamples, _ = flags.GetInt("subsamples")
	}
	if flags.Changed("scale-keyword") {
		cfg.PixelScaleKeyword, _ = flags.GetString("scale-keyword")
	}
	if flags.Changed("units") {
		cfg.Units, _ = flags.GetString("units")
	}
	if flags.Changed("calibration") {
		cfg.CalibrationFraction, _ = flags.GetFloat64("calibration")
	}
}

func runPhotometryCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyImageFlags(cmd, &cfg)
	if err := finishConfig(cfg); err != nil {
		return err
	}

	errFilename, _ := cmd.Flags().GetString("errors")
	img, errs, err := imageio.LoadWithErrors(args[0], errFilename, cfg.HDU)
	if err != nil {
		return err
	}
	if cfg.Verbosity > 0 {
		log.Printf("Loaded %s: %s\n", img, img.Pixels.Stats())
	}

	lines, err := readLines(args[1])
	if err != nil {
		return err
	}

	res, err := pipeline.NewPhotometer(cfg).Measure(img, errs, lines)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s, multiplier %g, calibration %g)\n", img, cfg.Units, res.Multiplier, res.Calibration)
	fmt.Fprintf(out, "Background: %s per pixel, from %d regions\n\n", res.Background, len(res.Set.Backgrounds))
	writeFluxRows(out, res.Report, "Flux", "Jy")

	return writeDiagnostics(cmd, res, cfg.Subsamples)
}

func writeFluxRows(out io.Writer, rep photometry.Report, quantity, unit string) {
	for _, r := range rep.Rows() {
		fmt.Fprintf(out, "%s:\n", r.Name)
		fmt.Fprintf(out, "\t%s: %g %s\n", quantity, r.Flux, unit)
		if r.SkyError != r.TotalError {
			fmt.Fprintf(out, "\tSky Error: %g\n", r.SkyError)
		}
		fmt.Fprintf(out, "\tTotal Error: %g\n", r.TotalError)
	}
}

// newApertureMap samples aperture coverage the same way the photometry did.
func newApertureMap(res pipeline.Result, subsamples int) photometry.ApertureMap {
	return photometry.ApertureMap{
		Pixels:      &res.Image.Pixels,
		Objects:     res.Set.Objects,
		Backgrounds: res.Set.Backgrounds,
		Subsamples:  subsamples,
	}
}

func writeDiagnostics(cmd *cobra.Command, res pipeline.Result, subsamples int) error {
	if filename, _ := cmd.Flags().GetString("overlay"); filename != "" {
		if err := photometry.WriteOverlayPNG(&res.Image.Pixels, res.Set.Objects, res.Set.Backgrounds, res.Image.Filename, filename); err != nil {
			return err
		}
	}

	if filename, _ := cmd.Flags().GetString("hdr"); filename != "" {
		if err := newApertureMap(res, subsamples).WriteHDR(filename); err != nil {
			return err
		}
	}

	return nil
}
