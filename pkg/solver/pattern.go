package solver

import (
	"context"
	"math"
)

// PatternStrategy is a Hooke-Jeeves pattern search over (share, N_E, N_C).
// It starts from the better of the initial decision and the largest configuration,
// so that it usually moves within the feasible region towards cheaper configurations.
type PatternStrategy struct{}

func (s *PatternStrategy) Name() string {
	return PatternStrategyName
}

func (s *PatternStrategy) Search(ctx context.Context, ev *Evaluator) error {
	p := ev.Problem()
	start := p.start()
	base, err := ev.Evaluate(start)
	if err != nil {
		return err
	}
	upper, err := ev.Evaluate(Decision{Share: start.Share, Edge: p.MaxDevices, Cloud: p.MaxDevices})
	if err != nil {
		return err
	}
	if less(upper, base) {
		base = upper
	}

	shareStep := math.Max((p.ShareMax-p.ShareMin)/4, p.ShareStep)
	if p.ShareMax == p.ShareMin {
		shareStep = 0
	}
	countStep := max(1, (p.MaxDevices-p.MinDevices)/4)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := explore(ev, base, shareStep, countStep)
		if err != nil {
			return err
		}
		if !less(next, base) {
			if shareStep < p.Tolerance && countStep == 1 {
				return nil
			}
			shareStep /= 2
			countStep = max(1, countStep/2)
			continue
		}

		// pattern moves along the improving direction
		for less(next, base) {
			if err := ctx.Err(); err != nil {
				return err
			}
			moved := p.clamp(Decision{
				Share: 2*next.Share - base.Share,
				Edge:  2*next.Edge - base.Edge,
				Cloud: 2*next.Cloud - base.Cloud,
			})
			base = next
			trial, err := ev.Evaluate(moved)
			if err != nil {
				return err
			}
			if next, err = explore(ev, trial, shareStep, countStep); err != nil {
				return err
			}
		}
	}
}

// explore tries a step in each direction of every coordinate, keeping improvements
func explore(ev *Evaluator, from *Evaluation, shareStep float64, countStep int) (*Evaluation, error) {
	p := ev.Problem()
	cur := from
	moves := []func(Decision, float64) Decision{
		func(d Decision, dir float64) Decision { d.Share += dir * shareStep; return d },
		func(d Decision, dir float64) Decision { d.Edge += int(dir) * countStep; return d },
		func(d Decision, dir float64) Decision { d.Cloud += int(dir) * countStep; return d },
	}
	for _, move := range moves {
		for _, dir := range []float64{1, -1} {
			cand := p.clamp(move(cur.Decision, dir))
			if cand == cur.Decision {
				continue
			}
			e, err := ev.Evaluate(cand)
			if err != nil {
				return cur, err
			}
			if less(e, cur) {
				cur = e
				break
			}
		}
	}
	return cur, nil
}
