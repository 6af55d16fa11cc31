package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/abworrall/dust-sed/pkg/imageio"
	"github.com/abworrall/dust-sed/pkg/pipeline"
)

func NewHIMassCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "himass IMAGE REGIONS",
		Short: "Measure HI masses from a moment map",
		Long: `HIMass runs the region photometry on an HI moment 0 map (Jy/beam km/s)
and converts the background subtracted fluxes into HI masses:

  M = 2.36e5 D^2 S

with D in Mpc and S in Jy km/s. The beam comes from the BMAJ and BMIN
header keywords. Mass errors combine the distance error with a flat
fractional error (15% by default).

Maps from some radio pipelines need their projection fixed up; set
headeroverrides in the config, e.g. CTYPE1: RA---NCP.

Examples:
  dustsed himass --distance 16.5 --distance-error 1.2 ngc4254_mom0.fits ngc4254.reg`,
		Args: cobra.ExactArgs(2),
		RunE: runHIMassCmd,
	}

	addImageFlags(cmd)
	cmd.Flags().Float64P("distance", "d", 0, "distance to the galaxy, Mpc")
	cmd.Flags().Float64("distance-error", 0, "error on the distance, Mpc")
	cmd.Flags().Float64("mass-error", 0, "fractional error on the mass (default 0.15)")

	return cmd
}

func runHIMassCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyImageFlags(cmd, &cfg)

	flags := cmd.Flags()
	if flags.Changed("distance") {
		cfg.Distance, _ = flags.GetFloat64("distance")
	}
	if flags.Changed("distance-error") {
		cfg.DistanceError, _ = flags.GetFloat64("distance-error")
	}
	if flags.Changed("mass-error") {
		cfg.MassFractionError, _ = flags.GetFloat64("mass-error")
	}
	if err := finishConfig(cfg); err != nil {
		return err
	}
	if !(cfg.Distance > 0) {
		return fmt.Errorf("need a distance to the galaxy (--distance, or distance in the config)")
	}

	img, err := imageio.Load(args[0], cfg.HDU)
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

	res, err := pipeline.NewPhotometer(cfg).MeasureHI(img, lines)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%g beams per pixel), distance %s Mpc\n", img, res.Multiplier, res.Distance)
	fmt.Fprintf(out, "Background: %s per pixel, from %d regions\n\n", res.Background, len(res.Set.Backgrounds))
	writeFluxRows(out, res.Masses, "HI Mass", "Msun")

	return writeDiagnostics(cmd, res.Result, cfg.Subsamples)
}
