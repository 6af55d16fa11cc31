package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abworrall/dust-sed/pkg/catalog"
	"github.com/abworrall/dust-sed/pkg/config"
	"github.com/abworrall/dust-sed/pkg/pipeline"
)

func NewFitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit TABLE",
		Short: "Fit modified blackbodies to a table of photometry",
		Long: `Fit reads a CSV table of photometry, one object per row, and fits a
modified blackbody to each row's detections.

Columns are Galaxy, Aperture, ApName, then a (flux, photometric error,
total error) triplet for each of MIPS 24, PACS 70/100/160 and SPIRE
250/350/500, then starting guesses for temperature, beta, column density
and scale. An empty flux means the band wasn't observed. A band is a
detection if its flux is more than 3 times its photometric error; rows
with fewer than 3 detections are skipped.

Every input row gets an output row, with the fitted parameters or the
reason there aren't any.

Examples:
  dustsed fit -o results.csv photometry.csv
  dustsed fit --markdown results.md --plots plots/ photometry.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runFitCmd,
	}

	cmd.Flags().StringP("output", "o", "", "results CSV (default: stdout)")
	cmd.Flags().StringP("markdown", "m", "", "also write a Markdown summary here")
	cmd.Flags().String("plots", "", "directory to write a PNG of each fit into")
	cmd.Flags().IntP("workers", "w", 0, "fits to run at once (default 4)")
	cmd.Flags().Float64("threshold", 0, "detection threshold, in photometric sigma (default 3)")
	cmd.Flags().Int("min-detections", 0, "fewest detections worth fitting (default 3)")
	cmd.Flags().Bool("fit-extra", false, "fit the scale parameter too, instead of holding it fixed")

	return cmd
}

func applyFitFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("threshold") {
		cfg.DetectionThreshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("min-detections") {
		cfg.MinDetections, _ = flags.GetInt("min-detections")
	}
	if flags.Changed("fit-extra") {
		cfg.FitExtra, _ = flags.GetBool("fit-extra")
	}
}

func runFitCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyFitFlags(cmd, &cfg)
	if err := finishConfig(cfg); err != nil {
		return err
	}

	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %v", args[0], err)
	}
	defer in.Close()

	rows, err := catalog.ReadRows(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	log.Printf("Fitting %d rows from %s\n", len(rows), args[0])

	opts := pipeline.NewFitOptions(cfg)
	if opts.PlotDir, _ = cmd.Flags().GetString("plots"); opts.PlotDir != "" {
		if err := os.MkdirAll(opts.PlotDir, 0755); err != nil {
			return fmt.Errorf("plot dir %s: %v", opts.PlotDir, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, fitErr := pipeline.FitAll(ctx, rows, opts)

	// Write what we have, even if interrupted
	if err := writeResults(cmd, results); err != nil {
		return err
	}
	if filename, _ := cmd.Flags().GetString("markdown"); filename != "" {
		if err := writeMarkdown(filename, results, filepath.Base(args[0])); err != nil {
			return err
		}
	}

	fitted, skipped, failed := 0, 0, 0
	for _, o := range results {
		switch {
		case o.Skipped():
			skipped++
		case o.Result != nil:
			fitted++
		default:
			failed++
		}
	}
	log.Printf("%d fitted, %d skipped, %d failed\n", fitted, skipped, failed)

	return fitErr
}

func writeResults(cmd *cobra.Command, results []catalog.OutputRow) error {
	filename, _ := cmd.Flags().GetString("output")
	if filename == "" {
		return catalog.WriteResults(cmd.OutOrStdout(), results)
	}

	return writeFile(filename, func(w io.Writer) error {
		return catalog.WriteResults(w, results)
	})
}

func writeMarkdown(filename string, results []catalog.OutputRow, source string) error {
	return writeFile(filename, func(w io.Writer) error {
		return catalog.WriteMarkdown(w, results, "Dust SED fits: "+source)
	})
}

func writeFile(filename string, write func(io.Writer) error) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %v", dir, err)
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %v", filename, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %v", filename, err)
	}
	return f.Close()
}
