package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/llm-d-incubation/qsizer/internal/logger"
)

// NelderMeadStrategy minimizes the objective with the gonum Nelder-Mead simplex method over
// the normalized box [0,1]^3; device counts are rounded to the nearest integer.
type NelderMeadStrategy struct {
	// initial simplex size in normalized coordinates, 0.25 when zero
	SimplexSize float64
}

func (s *NelderMeadStrategy) Name() string {
	return NelderMeadStrategyName
}

func (s *NelderMeadStrategy) Search(ctx context.Context, ev *Evaluator) error {
	p := ev.Problem()
	start := p.start()
	base, err := ev.Evaluate(start)
	if err != nil {
		return err
	}
	// the largest configuration is the most likely to be feasible
	upper, err := ev.Evaluate(Decision{Share: start.Share, Edge: p.MaxDevices, Cloud: p.MaxDevices})
	if err != nil {
		return err
	}
	if less(upper, base) {
		base = upper
	}

	// half of the remaining budget goes to the simplex, the rest to the integer polish
	budget := ev.Remaining() / 4
	if budget == 0 {
		return ErrBudgetExhausted
	}

	// coordinates in the upper half of the box are mirrored so that the
	// initial simplex, built along +e_i, points into the box
	x0 := encode(p, base.Decision)
	mirror := make([]bool, len(x0))
	for i, v := range x0 {
		if v > 0.5 {
			mirror[i] = true
			x0[i] = 1 - v
		}
	}
	toBox := func(y []float64) []float64 {
		x := make([]float64, len(y))
		for i, v := range y {
			if mirror[i] {
				v = 1 - v
			}
			x[i] = v
		}
		return x
	}

	var evalErr error
	problem := optimize.Problem{
		Func: func(y []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			e, err := ev.Evaluate(decode(p, toBox(y)))
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			return e.Objective
		},
	}

	size := s.SimplexSize
	if size == 0 {
		size = 0.25
	}
	settings := &optimize.Settings{
		FuncEvaluations: budget,
		Converger: &contextConverger{
			ctx: ctx,
			Converger: &optimize.FunctionConverge{
				Absolute:   p.Tolerance,
				Iterations: 50,
			},
		},
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{SimplexSize: size})
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if evalErr != nil {
		return evalErr
	}
	if err != nil {
		logger.Log.Debugw("nelder-mead stopped", "error", err)
	} else {
		logger.Log.Debugw("nelder-mead finished", "status", result.Status.String(), "objective", result.F)
	}
	return polish(ev)
}

// polish walks the device counts of the incumbent to the nearest integer local minimum
func polish(ev *Evaluator) error {
	best, _ := ev.Best()
	if best == nil {
		return nil
	}
	var err error
	for _, step := range []func(Decision) Decision{
		func(d Decision) Decision { d.Edge--; return d },
		func(d Decision) Decision { d.Cloud--; return d },
		func(d Decision) Decision { d.Edge++; return d },
		func(d Decision) Decision { d.Cloud++; return d },
	} {
		if best, err = climb(ev, best, step); err != nil {
			return err
		}
	}
	return nil
}

// encode maps a decision to normalized coordinates
func encode(p *Problem, d Decision) []float64 {
	return []float64{
		normalize(d.Share, p.ShareMin, p.ShareMax),
		normalize(float64(d.Edge), float64(p.MinDevices), float64(p.MaxDevices)),
		normalize(float64(d.Cloud), float64(p.MinDevices), float64(p.MaxDevices)),
	}
}

// decode maps normalized coordinates to a decision within the bounds
func decode(p *Problem, x []float64) Decision {
	span := func(v float64, lo, hi int) int {
		return lo + int(math.Round(clamp01(v)*float64(hi-lo)))
	}
	return Decision{
		Share: p.ShareMin + clamp01(x[0])*(p.ShareMax-p.ShareMin),
		Edge:  span(x[1], p.MinDevices, p.MaxDevices),
		Cloud: span(x[2], p.MinDevices, p.MaxDevices),
	}
}

func normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return clamp01((v - lo) / (hi - lo))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}

// contextConverger stops the optimization when the context is done
type contextConverger struct {
	optimize.Converger
	ctx context.Context
}

func (c *contextConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.ctx.Err() != nil {
		return optimize.Failure
	}
	return c.Converger.Converged(loc)
}

var _ optimize.Converger = (*contextConverger)(nil)
