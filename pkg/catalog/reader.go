// Package catalog reads multi-band photometry tables and writes fit result
// tables.
//
// An input row is the object's identifiers, then a (flux, photometric
// error, total error) triplet for each band in sed.Bands, then the initial
// guesses for temperature, beta, column density and scale:
//
//	Galaxy, Aperture, ApName, F24, E24, T24, F70, ..., T500, Tguess, Bguess, Nguess, Sguess
//
// An empty flux cell means the band wasn't observed.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abworrall/dust-sed/pkg/emath"
	"github.com/abworrall/dust-sed/pkg/sed"
)

// Column offsets
const (
	ColGalaxy    = 0
	ColAperture  = 1
	ColApName    = 2
	ColFirstBand = 3 // each band takes three columns
	ColGuesses   = ColFirstBand + 3*7
)

// A Row is one object from the input table. A row that couldn't be parsed
// still comes back, with Err set, so that it gets a line in the output.
type Row struct {
	Line     int // 1-based line in the file, counting the header
	Galaxy   string
	Aperture string
	ApName   string
	Entries  []sed.BandEntry
	Guess    sed.Guess
	HasGuess bool // the T, beta and N guess cells were filled in
	Err      error
}

func (r Row) String() string {
	return fmt.Sprintf("%s/%s/%s", r.Galaxy, r.Aperture, r.ApName)
}

// Detections counts the entries that pass their detection test
func (r Row) Detections() int {
	n := 0
	for _, e := range r.Entries {
		if e.IsDetection() {
			n++
		}
	}
	return n
}

// ReadRows reads a whole table, skipping the header line. Only problems
// with the file as a whole are returned as an error.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows := []Row{}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return rows, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		if line == 1 {
			continue // header
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, parseRow(line, rec))
	}

	return rows, nil
}

func isBlank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

func parseRow(line int, rec []string) Row {
	cell := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	row := Row{
		Line:     line,
		Galaxy:   cell(ColGalaxy),
		Aperture: cell(ColAperture),
		ApName:   cell(ColApName),
	}

	num := func(col int) (float64, error) {
		v, err := strconv.ParseFloat(cell(col), 64)
		if err != nil {
			return 0, fmt.Errorf("column %d: %q is not a number", col+1, cell(col))
		}
		return v, nil
	}

	for i, band := range sed.Bands {
		col := ColFirstBand + 3*i
		e := sed.BandEntry{Band: band}

		if cell(col) != "" {
			flux, err := num(col)
			if err == nil {
				e.Noise, err = num(col + 1)
			}
			if err == nil {
				e.Flux.Error, err = num(col + 2)
			}
			if err != nil {
				row.Err = fmt.Errorf("line %d %s: %v", line, band.Name, err)
				return row
			}
			e.Flux = emath.Measurement{Value: flux, Error: e.Flux.Error}
			e.Present = true
		}

		row.Entries = append(row.Entries, e)
	}

	guesses := []*float64{&row.Guess.Temperature, &row.Guess.Beta, &row.Guess.Column, &row.Guess.Extra}
	filled := 0
	for i, dst := range guesses {
		col := ColGuesses + i
		if cell(col) == "" {
			continue
		}
		v, err := num(col)
		if err != nil {
			row.Err = fmt.Errorf("line %d guesses: %v", line, err)
			return row
		}
		*dst = v
		if i < 3 {
			filled++
		}
	}
	row.HasGuess = filled == 3

	return row
}
