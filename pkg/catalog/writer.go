package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/abworrall/dust-sed/pkg/sed"
)

var ResultsHeader = []string{
	"Galaxy", "Aperture", "ApName",
	"Temp", "Temp Error", "Beta", "Beta Error", "N", "N Error", "Scale", "Scale Error",
	"Chi Square", "Detection", "Status",
}

// OutputRow is the outcome for one input row: a fit, or the reason there
// isn't one.
type OutputRow struct {
	Galaxy   string
	Aperture string
	ApName   string
	Result   *sed.FitResult
	Input    *sed.FitInput // what was fitted, if it got that far
	Err      error
}

func NewOutputRow(r Row) OutputRow {
	return OutputRow{Galaxy: r.Galaxy, Aperture: r.Aperture, ApName: r.ApName}
}

// Skipped is true for rows that didn't have enough data to fit
func (o OutputRow) Skipped() bool {
	var md *sed.MissingDataError
	return errors.As(o.Err, &md)
}

func (o OutputRow) Failed() bool { return o.Err != nil && !o.Skipped() }

func (o OutputRow) Status() string {
	switch {
	case o.Err == nil && o.Result != nil:
		return "ok"
	case o.Err == nil:
		return "failed: no result"
	case o.Skipped():
		return "skipped: " + o.Err.Error()
	}
	return "failed: " + o.Err.Error()
}

func (o OutputRow) String() string {
	return fmt.Sprintf("%s/%s/%s: %s", o.Galaxy, o.Aperture, o.ApName, o.Status())
}

// Detections is how many bands went into the fit, or were found wanting
func (o OutputRow) Detections() (int, bool) {
	var md *sed.MissingDataError
	switch {
	case o.Result != nil:
		return o.Result.Detections, true
	case o.Input != nil:
		return o.Input.Detections, true
	case errors.As(o.Err, &md):
		return md.Detections, true
	}
	return 0, false
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// Record lays the row out under ResultsHeader. Rows without a fit have
// empty parameter cells; a Scale that was held fixed has no error.
func (o OutputRow) Record() []string {
	rec := []string{o.Galaxy, o.Aperture, o.ApName}

	if res := o.Result; res != nil {
		rec = append(rec,
			formatFloat(res.Temperature().Value), formatFloat(res.Temperature().Error),
			formatFloat(res.Beta().Value), formatFloat(res.Beta().Error),
			formatFloat(res.Column().Value), formatFloat(res.Column().Error),
			formatFloat(res.Extra().Value),
		)
		if res.ExtraFitted() {
			rec = append(rec, formatFloat(res.Extra().Error))
		} else {
			rec = append(rec, "")
		}
		rec = append(rec, formatFloat(res.ChiSquare))
	} else {
		rec = append(rec, make([]string, 9)...)
	}

	if n, ok := o.Detections(); ok {
		rec = append(rec, strconv.Itoa(n))
	} else {
		rec = append(rec, "")
	}

	return append(rec, o.Status())
}

// WriteResults writes the header and one line per row.
func WriteResults(w io.Writer, rows []OutputRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultsHeader); err != nil {
		return fmt.Errorf("write results header: %v", err)
	}
	for _, o := range rows {
		if err := cw.Write(o.Record()); err != nil {
			return fmt.Errorf("write results %s: %v", o, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
