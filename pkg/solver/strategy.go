package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
)

// Strategy searches the decision space, reporting every candidate to the evaluator.
// The evaluator keeps the incumbents; a strategy only decides where to look.
type Strategy interface {
	Name() string
	Search(ctx context.Context, ev *Evaluator) error
}

// names of the available strategies
const (
	DiscreteStrategyName   = "discrete"
	BisectStrategyName     = "bisect"
	PatternStrategyName    = "pattern"
	GridStrategyName       = "grid"
	NelderMeadStrategyName = "neldermead"
)

func StrategyNames() []string {
	return []string{DiscreteStrategyName, BisectStrategyName, PatternStrategyName, GridStrategyName, NelderMeadStrategyName}
}

// NewStrategy creates a strategy by name
func NewStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DiscreteStrategyName, "":
		return &DiscreteStrategy{}, nil
	case BisectStrategyName:
		return &DiscreteStrategy{Bisect: true}, nil
	case PatternStrategyName:
		return &PatternStrategy{}, nil
	case GridStrategyName:
		return &GridStrategy{}, nil
	case NelderMeadStrategyName, "nelder-mead":
		return &NelderMeadStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q, expected one of %v",
			analyzer.ErrInvalidConfiguration, name, StrategyNames())
	}
}

// DiscreteStrategy scans the edge shares and, for each share, sizes every tier to the
// smallest device count meeting its constraints. Waiting time is non-increasing in the
// device count, so the count is found by an upward tail scan or by galloping bisection.
type DiscreteStrategy struct {
	Bisect bool
}

func (s *DiscreteStrategy) Name() string {
	if s.Bisect {
		return BisectStrategyName
	}
	return DiscreteStrategyName
}

func (s *DiscreteStrategy) Search(ctx context.Context, ev *Evaluator) error {
	for _, share := range ev.Problem().shares() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.searchShare(ev, share); err != nil {
			return err
		}
	}
	return nil
}

func (s *DiscreteStrategy) searchShare(ev *Evaluator, share float64) error {
	p := ev.Problem()
	edgeLambda, cloudLambda := p.split(share)

	edge, err := s.size(ev, p.descriptor(&p.Edge, edgeLambda, 1), max(p.MinDevices, p.batteryMinimum(edgeLambda)))
	if err != nil {
		return err
	}
	cloud, err := s.size(ev, p.descriptor(&p.Cloud, cloudLambda, 1), p.MinDevices)
	if err != nil {
		return err
	}
	best, err := ev.Evaluate(Decision{Share: share, Edge: edge, Cloud: cloud})
	if err != nil {
		return err
	}

	// beyond the smallest feasible count only the waiting time term can improve
	if p.Weights.Wait > 0 && best.Feasible() {
		for _, grow := range []func(Decision) Decision{
			func(d Decision) Decision { d.Edge++; return d },
			func(d Decision) Decision { d.Cloud++; return d },
		} {
			if best, err = climb(ev, best, grow); err != nil {
				return err
			}
		}
	}
	return nil
}

// smallest count between start and the upper bound meeting the waiting time target
func (s *DiscreteStrategy) size(ev *Evaluator, d *analyzer.QueueDescriptor, start int) (int, error) {
	p := ev.Problem()
	switch {
	case start > p.MaxDevices:
		return p.MaxDevices, nil
	case d.ArrivalRate == 0:
		return start, nil
	}
	d.Servers = start
	sizing, err := analyzer.SizeServers(d, p.WaitCrit, p.MaxDevices, s.Bisect)
	if sizing != nil {
		if cerr := ev.Charge(sizing.Evaluations); cerr != nil {
			return 0, cerr
		}
	}
	switch {
	case errors.Is(err, analyzer.ErrTargetUnreachable):
		// the evaluator penalizes the largest configuration
		return p.MaxDevices, nil
	case err != nil:
		return 0, err
	}
	return sizing.Servers, nil
}

// climb moves in one direction while the objective improves and the bounds allow
func climb(ev *Evaluator, from *Evaluation, step func(Decision) Decision) (*Evaluation, error) {
	p := ev.Problem()
	best := from
	for {
		next := step(best.Decision)
		if p.clamp(next) != next {
			return best, nil
		}
		cand, err := ev.Evaluate(next)
		if err != nil {
			return best, err
		}
		if !less(cand, best) {
			return best, nil
		}
		best = cand
	}
}
