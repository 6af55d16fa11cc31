package sed

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// GonumSolver is a least squares Solver built from gonum's Nelder-Mead
// minimizer. Parameters are scaled by their starting values, so that a
// temperature of 20 and a column density of 1e22 move on the same footing.
//
// Standard errors come from the covariance (J^T J)^-1, with J the finite
// difference Jacobian of the residuals at the optimum. The residuals are
// already weighted, so this is the absolute (unscaled) covariance. A
// singular or badly conditioned J^T J is an error.
type GonumSolver struct {
	MaxIterations int     // per Nelder-Mead run
	Restarts      int     // further runs started from the previous optimum
	Tolerance     float64 // relative improvement in cost that still counts as progress
	MaxCondition  float64 // J^T J worse than this is treated as singular
}

func NewGonumSolver() GonumSolver {
	return GonumSolver{
		MaxIterations: 5000,
		Restarts:      1,
		Tolerance:     1e-10,
		MaxCondition:  1e12,
	}
}

func (gs GonumSolver) String() string {
	return fmt.Sprintf("GonumSolver[nelder-mead, %d iterations, %d restarts]", gs.MaxIterations, gs.Restarts)
}

func (gs GonumSolver) Solve(residuals func(dst, params []float64), n int, initial []float64) (Solution, error) {
	dim := len(initial)
	if dim == 0 || n == 0 {
		return Solution{}, fmt.Errorf("nothing to solve (%d params, %d residuals)", dim, n)
	}
	if gs.MaxIterations <= 0 {
		gs.MaxIterations = NewGonumSolver().MaxIterations
	}
	if gs.MaxCondition <= 0 {
		gs.MaxCondition = NewGonumSolver().MaxCondition
	}

	scale := make([]float64, dim)
	z := make([]float64, dim)
	for i, v := range initial {
		scale[i] = math.Abs(v)
		if scale[i] == 0 {
			scale[i] = 1
		}
		z[i] = v / scale[i]
	}

	// residuals as a function of the scaled parameters
	scaledResiduals := func(dst, zz []float64) {
		p := make([]float64, dim)
		for i := range zz {
			p[i] = zz[i] * scale[i]
		}
		residuals(dst, p)
	}

	// The objective runs on the optimizer's own goroutine, so a panic there
	// can't be recovered by the caller; treat it as an impossible point.
	cost := func(zz []float64) (c float64) {
		defer func() {
			if r := recover(); r != nil {
				c = math.Inf(1)
			}
		}()
		r := make([]float64, n)
		scaledResiduals(r, zz)
		c = floats.Dot(r, r)
		if math.IsNaN(c) {
			c = math.Inf(1)
		}
		return c
	}

	if c := cost(z); math.IsInf(c, 1) {
		return Solution{}, fmt.Errorf("cost is infinite at the starting point %v", initial)
	}

	var result *optimize.Result
	for run := 0; run <= gs.Restarts; run++ {
		settings := &optimize.Settings{
			MajorIterations: gs.MaxIterations,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-14,
				Relative:   gs.Tolerance,
				Iterations: 200,
			},
		}

		res, err := optimize.Minimize(optimize.Problem{Func: cost}, z, settings, &optimize.NelderMead{})
		if err != nil {
			return Solution{}, fmt.Errorf("nelder-mead run %d: %v", run, err)
		}
		result = res
		z = append([]float64{}, res.X...)
	}
	if result.Status.Early() {
		return Solution{}, fmt.Errorf("nelder-mead did not converge: %v", result.Status.Err())
	}

	jac := mat.NewDense(n, dim, nil)
	fd.Jacobian(jac, scaledResiduals, z, &fd.JacobianSettings{Formula: fd.Central})
	for _, v := range jac.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Solution{}, fmt.Errorf("jacobian is not finite at %v", z)
		}
	}

	var jtj mat.SymDense
	jtj.SymOuterK(1, jac.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(&jtj); !ok {
		return Solution{}, fmt.Errorf("singular jacobian, parameters are degenerate")
	}
	if cond := chol.Cond(); cond > gs.MaxCondition {
		return Solution{}, fmt.Errorf("jacobian is nearly singular (condition %.3g), parameters are degenerate", cond)
	}

	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return Solution{}, fmt.Errorf("covariance: %v", err)
	}

	sol := Solution{
		Params: make([]float64, dim),
		Errors: make([]float64, dim),
		Cost:   result.F,
	}
	for i := 0; i < dim; i++ {
		sol.Params[i] = z[i] * scale[i]
		sol.Errors[i] = math.Sqrt(cov.At(i, i)) * scale[i]
	}

	return sol, nil
}
