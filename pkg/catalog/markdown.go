package catalog

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// WriteMarkdown writes a human readable summary of a batch of fits: the
// counts, a table of fitted parameters and a list of the rows that weren't
// fitted, with the reason.
func WriteMarkdown(w io.Writer, rows []OutputRow, title string) error {
	md := markdown.NewMarkdown(w)

	fitted, skipped, failed := 0, 0, 0
	for _, o := range rows {
		switch {
		case o.Result != nil && o.Err == nil:
			fitted++
		case o.Skipped():
			skipped++
		default:
			failed++
		}
	}

	md.H1(title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Rows"},
		Rows: [][]string{
			{"Fitted", strconv.Itoa(fitted)},
			{"Skipped (too few detections)", strconv.Itoa(skipped)},
			{"Failed", strconv.Itoa(failed)},
			{"**Total**", "**" + strconv.Itoa(len(rows)) + "**"},
		},
	})
	md.PlainText("")

	if len(rows) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Fit outcomes"),
			piechart.WithShowData(true),
		)
		for _, c := range []struct {
			label string
			n     int
		}{{"Fitted", fitted}, {"Skipped", skipped}, {"Failed", failed}} {
			if c.n > 0 {
				chart.LabelAndIntValue(c.label, uint64(c.n))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if fitted > 0 {
		md.H2("Fits")
		md.PlainText("")
		tbl := [][]string{}
		for _, o := range rows {
			if o.Result == nil || o.Err != nil {
				continue
			}
			r := o.Result
			tbl = append(tbl, []string{
				o.Galaxy, o.ApName,
				fmt.Sprintf("%.2f ± %.2f", r.Temperature().Value, r.Temperature().Error),
				fmt.Sprintf("%.2f ± %.2f", r.Beta().Value, r.Beta().Error),
				fmt.Sprintf("%.3g ± %.2g", r.Column().Value, r.Column().Error),
				fmt.Sprintf("%.3g", r.ChiSquare),
				strconv.Itoa(r.Detections),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Galaxy", "Aperture", "T (K)", "Beta", "N (cm^-2)", "Chi Square", "Detections"},
			Rows:   tbl,
		})
		md.PlainText("")
	}

	if skipped+failed > 0 {
		md.H2("Not fitted")
		md.PlainText("")
		tbl := [][]string{}
		for _, o := range rows {
			if o.Result != nil && o.Err == nil {
				continue
			}
			tbl = append(tbl, []string{o.Galaxy, o.ApName, o.Status()})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Galaxy", "Aperture", "Status"},
			Rows:   tbl,
		})
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("write markdown report: %v", err)
	}
	return nil
}
