package sed

import (
	"fmt"
	"math"

	"github.com/abworrall/dust-sed/pkg/emath"
)

// A Solver minimizes the sum of squares of a residual vector of length n,
// starting from initial. It reports the best parameters, their standard
// errors and the final sum of squares.
type Solver interface {
	Solve(residuals func(dst, params []float64), n int, initial []float64) (Solution, error)
}

type Solution struct {
	Params []float64
	Errors []float64
	Cost   float64
}

// FitFailure is a fit that was attempted but didn't produce a usable
// result. It is recorded against the object and the batch carries on.
type FitFailure struct {
	Reason string
	Err    error
}

func (e *FitFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fit failed: %s: %v", e.Reason, e.Err)
	}
	return "fit failed: " + e.Reason
}

func (e *FitFailure) Unwrap() error { return e.Err }

// FitResult is a successful fit. Params and Errors are T, beta, N and,
// when it was fitted, the extra scale.
type FitResult struct {
	Params     []float64
	Errors     []float64
	ChiSquare  float64
	Detections int
	FixedExtra float64 // the extra parameter's value when it wasn't fitted
}

func (r FitResult) param(i int) emath.Measurement {
	if i >= len(r.Params) {
		return emath.Measurement{}
	}
	return emath.Measurement{Value: r.Params[i], Error: r.Errors[i]}
}

func (r FitResult) Temperature() emath.Measurement { return r.param(0) }
func (r FitResult) Beta() emath.Measurement        { return r.param(1) }
func (r FitResult) Column() emath.Measurement      { return r.param(2) }

// Extra has zero error when the parameter was held fixed
func (r FitResult) Extra() emath.Measurement {
	if len(r.Params) > 3 {
		return r.param(3)
	}
	return emath.Measurement{Value: r.FixedExtra}
}

func (r FitResult) ExtraFitted() bool { return len(r.Params) > 3 }

// Eval is the fitted model at nu
func (r FitResult) Eval(model Model, nu float64) float64 {
	return model(nu, r.Temperature().Value, r.Beta().Value, r.Column().Value, r.Extra().Value)
}

func (r FitResult) String() string {
	s := fmt.Sprintf("T=%s K, beta=%s, N=%s", r.Temperature(), r.Beta(), r.Column())
	if r.ExtraFitted() {
		s += fmt.Sprintf(", extra=%s", r.Extra())
	}
	return s + fmt.Sprintf(", chi2=%.4g (%d detections)", r.ChiSquare, r.Detections)
}

// Fitter fits a Model to the detections in a FitInput.
type Fitter struct {
	Solver    Solver
	Model     Model // defaults to ModifiedBlackbody
	MinPoints int   // defaults to DefaultMinDetections
}

func NewFitter() Fitter {
	return Fitter{
		Solver:    NewGonumSolver(),
		Model:     ModifiedBlackbody,
		MinPoints: DefaultMinDetections,
	}
}

// Fit minimizes chi^2 = sum(((model - flux)/err)^2) over the parameters.
// Anything that stops a usable answer coming back is a *FitFailure; a
// panic in the model or solver is turned into one too.
func (f Fitter) Fit(in FitInput) (res FitResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = FitResult{}, &FitFailure{Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	model := f.Model
	if model == nil {
		model = ModifiedBlackbody
	}
	solver := f.Solver
	if solver == nil {
		solver = NewGonumSolver()
	}
	minPoints := f.MinPoints
	if minPoints <= 0 {
		minPoints = DefaultMinDetections
	}

	n := len(in.Fluxes)
	if len(in.Frequencies) != n || len(in.Errors) != n {
		return FitResult{}, &FitFailure{Reason: fmt.Sprintf("%d frequencies, %d fluxes and %d errors", len(in.Frequencies), n, len(in.Errors))}
	}

	g := in.Guess
	if g.Extra == 0 {
		g.Extra = DefaultMuH2
	}
	initial := g.Params()

	if n < minPoints || n < len(initial) {
		return FitResult{}, &FitFailure{Reason: fmt.Sprintf("%d points is too few for %d parameters (need at least %d)", n, len(initial), minPoints)}
	}
	for i, e := range in.Errors {
		if !(e > 0) || !emath.IsFinite(e) || !emath.IsFinite(in.Fluxes[i]) || !(in.Frequencies[i] > 0) {
			return FitResult{}, &FitFailure{Reason: fmt.Sprintf("point %d (%g ± %g at %gHz) can't be weighted", i, in.Fluxes[i], e, in.Frequencies[i])}
		}
	}
	if !inDomain(initial) {
		return FitResult{}, &FitFailure{Reason: fmt.Sprintf("initial guess %s is out of range", g)}
	}

	extra := g.Extra
	residuals := func(dst, p []float64) {
		if !inDomain(p) {
			for i := range dst {
				dst[i] = math.Inf(1)
			}
			return
		}
		x := extra
		if len(p) > 3 {
			x = p[3]
		}
		for i := range dst {
			dst[i] = (model(in.Frequencies[i], p[0], p[1], p[2], x) - in.Fluxes[i]) / in.Errors[i]
		}
	}

	sol, err := solver.Solve(residuals, n, initial)
	if err != nil {
		return FitResult{}, &FitFailure{Reason: "solver", Err: err}
	}
	if len(sol.Params) != len(initial) || len(sol.Errors) != len(initial) {
		return FitResult{}, &FitFailure{Reason: fmt.Sprintf("solver returned %d params, %d errors", len(sol.Params), len(sol.Errors))}
	}
	for i := range sol.Params {
		if !emath.IsFinite(sol.Params[i]) || !emath.IsFinite(sol.Errors[i]) {
			return FitResult{}, &FitFailure{Reason: fmt.Sprintf("non-finite result %v ± %v", sol.Params, sol.Errors)}
		}
	}
	if !emath.IsFinite(sol.Cost) {
		return FitResult{}, &FitFailure{Reason: fmt.Sprintf("non-finite chi square %g", sol.Cost)}
	}

	return FitResult{
		Params:     sol.Params,
		Errors:     sol.Errors,
		ChiSquare:  sol.Cost,
		Detections: in.Detections,
		FixedExtra: extra,
	}, nil
}

// inDomain checks T > 0, N > 0 and extra > 0; beta can be anything finite
func inDomain(p []float64) bool {
	for _, v := range p {
		if !emath.IsFinite(v) {
			return false
		}
	}
	if p[0] <= 0 || p[2] <= 0 {
		return false
	}
	if len(p) > 3 && p[3] <= 0 {
		return false
	}
	return true
}
