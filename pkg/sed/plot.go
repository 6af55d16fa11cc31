package sed

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
)

const (
	plotW, plotH = 800, 600
	plotMargin   = 70.0
)

// PlotPNG draws the detections (with error bars) and the fitted model on
// log-log axes of frequency and flux, over the frequency range of the
// detected bands.
func PlotPNG(in FitInput, res FitResult, model Model, title, filename string) error {
	if len(in.Frequencies) == 0 {
		return fmt.Errorf("plot %s: no data", filename)
	}
	if model == nil {
		model = ModifiedBlackbody
	}

	nuMin, nuMax := math.Inf(1), math.Inf(-1)
	for _, nu := range in.Frequencies {
		nuMin, nuMax = math.Min(nuMin, nu), math.Max(nuMax, nu)
	}
	if nuMax <= nuMin {
		nuMin, nuMax = nuMin/2, nuMax*2
	}

	const nCurve = 200
	curve := make([][2]float64, 0, nCurve)
	for i := 0; i < nCurve; i++ {
		nu := nuMin * math.Pow(nuMax/nuMin, float64(i)/float64(nCurve-1))
		if f := res.Eval(model, nu); f > 0 && !math.IsInf(f, 0) {
			curve = append(curve, [2]float64{nu, f})
		}
	}

	fMin, fMax := math.Inf(1), math.Inf(-1)
	grow := func(f float64) {
		if f > 0 && !math.IsInf(f, 0) {
			fMin, fMax = math.Min(fMin, f), math.Max(fMax, f)
		}
	}
	for i, f := range in.Fluxes {
		grow(f + in.Errors[i])
		grow(f - in.Errors[i])
		grow(f)
	}
	for _, pt := range curve {
		grow(pt[1])
	}
	if math.IsInf(fMin, 0) {
		return fmt.Errorf("plot %s: no positive fluxes", filename)
	}

	// pad by a fraction of a decade either side
	lx0, lx1 := math.Log10(nuMin)-0.1, math.Log10(nuMax)+0.1
	ly0, ly1 := math.Floor(math.Log10(fMin)*4)/4-0.1, math.Ceil(math.Log10(fMax)*4)/4+0.1

	toX := func(nu float64) float64 {
		return plotMargin + (math.Log10(nu)-lx0)/(lx1-lx0)*(plotW-2*plotMargin)
	}
	toY := func(f float64) float64 {
		if f <= 0 {
			return plotH - plotMargin
		}
		return plotH - plotMargin - (math.Log10(f)-ly0)/(ly1-ly0)*(plotH-2*plotMargin)
	}

	dc := gg.NewContext(plotW, plotH)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// axes and decade ticks
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(plotMargin, plotH-plotMargin, plotW-plotMargin, plotH-plotMargin)
	dc.DrawLine(plotMargin, plotMargin, plotMargin, plotH-plotMargin)
	dc.Stroke()

	for d := math.Ceil(lx0); d <= lx1; d++ {
		x := toX(math.Pow(10, d))
		dc.DrawLine(x, plotH-plotMargin, x, plotH-plotMargin+6)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("1e%d", int(d)), x, plotH-plotMargin+18, 0.5, 0.5)
	}
	for d := math.Ceil(ly0); d <= ly1; d++ {
		y := toY(math.Pow(10, d))
		dc.DrawLine(plotMargin-6, y, plotMargin, y)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("1e%d", int(d)), plotMargin-10, y, 1, 0.5)
	}

	dc.DrawStringAnchored("Frequency (Hz)", plotW/2, plotH-plotMargin/3, 0.5, 0.5)
	dc.DrawStringAnchored("Flux (Jy)", plotMargin/3, plotMargin/2, 0, 0.5)
	dc.DrawStringAnchored(title, plotW/2, plotMargin/2, 0.5, 0.5)
	dc.DrawStringAnchored(res.String(), plotW/2, plotMargin/2+16, 0.5, 0.5)

	// model
	dc.SetRGB(0.85, 0, 0)
	dc.SetLineWidth(2)
	for i, pt := range curve {
		if i == 0 {
			dc.MoveTo(toX(pt[0]), toY(pt[1]))
		} else {
			dc.LineTo(toX(pt[0]), toY(pt[1]))
		}
	}
	dc.Stroke()

	// data
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1.5)
	for i, f := range in.Fluxes {
		x := toX(in.Frequencies[i])
		lo, hi := f-in.Errors[i], f+in.Errors[i]
		dc.DrawLine(x, toY(lo), x, toY(hi))
		dc.DrawLine(x-4, toY(hi), x+4, toY(hi))
		if lo > 0 {
			dc.DrawLine(x-4, toY(lo), x+4, toY(lo))
		}
		dc.Stroke()
		dc.DrawCircle(x, toY(f), 4)
		dc.Fill()
	}

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("plot %s: %v", filename, err)
	}
	return nil
}
