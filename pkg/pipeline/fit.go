package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/abworrall/dust-sed/pkg/catalog"
	"github.com/abworrall/dust-sed/pkg/config"
	"github.com/abworrall/dust-sed/pkg/sed"
)

type FitOptions struct {
	Fitter        sed.Fitter
	Threshold     float64 // detection needs flux > Threshold*noise
	MinDetections int
	FitExtra      bool
	Workers       int
	PlotDir       string // if set, a PNG of each fit is written here
	Verbosity     int
}

func NewFitOptions(cfg config.Config) FitOptions {
	solver := sed.NewGonumSolver()
	solver.MaxIterations = cfg.MaxIterations

	f := sed.NewFitter()
	f.Solver = solver
	f.MinPoints = cfg.MinDetections

	return FitOptions{
		Fitter:        f,
		Threshold:     cfg.DetectionThreshold,
		MinDetections: cfg.MinDetections,
		FitExtra:      cfg.FitExtra,
		Workers:       cfg.Workers,
		Verbosity:     cfg.Verbosity,
	}
}

// ReduceAndFit fits one catalog row. It never fails as such: whatever
// happens ends up in the returned row.
func ReduceAndFit(row catalog.Row, opts FitOptions) catalog.OutputRow {
	o := catalog.NewOutputRow(row)
	if row.Err != nil {
		o.Err = row.Err
		return o
	}

	entries := make([]sed.BandEntry, len(row.Entries))
	for i, e := range row.Entries {
		e.Threshold = opts.Threshold
		entries[i] = e
	}

	guess := row.Guess
	guess.FitExtra = opts.FitExtra

	in, err := sed.FilterAndGuess(entries, guess, opts.Fitter.Model, opts.MinDetections)
	if err != nil {
		o.Err = err
		return o
	}
	o.Input = &in

	if !row.HasGuess {
		o.Err = &sed.FitFailure{Reason: "no initial guess for T, beta and N"}
		return o
	}

	res, err := opts.Fitter.Fit(in)
	if err != nil {
		o.Err = err
		return o
	}
	o.Result = &res

	if opts.Verbosity > 0 {
		log.Printf("%s: %s\n", row, res)
	}

	if opts.PlotDir != "" {
		filename := filepath.Join(opts.PlotDir, plotFilename(row))
		if err := sed.PlotPNG(in, res, opts.Fitter.Model, row.String(), filename); err != nil {
			log.Printf("%s: %v\n", row, err)
		}
	}

	return o
}

func plotFilename(row catalog.Row) string {
	clean := strings.NewReplacer("/", "-", "\\", "-", " ", "_", ":", "-")
	return clean.Replace(fmt.Sprintf("%s_%s_%s.png", row.Galaxy, row.Aperture, row.ApName))
}

// FitAll fits every row, up to opts.Workers at once. The output has one
// row per input row, in the same order. A failed fit doesn't stop the
// others; the only error is the context being cancelled, in which case
// the rows that never ran carry that error.
func FitAll(ctx context.Context, rows []catalog.Row, opts FitOptions) ([]catalog.OutputRow, error) {
	results := make([]catalog.OutputRow, len(rows))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = catalog.NewOutputRow(row)
				results[i].Err = err
				return err
			}
			results[i] = ReduceAndFit(row, opts)
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
