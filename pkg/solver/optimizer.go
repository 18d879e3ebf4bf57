package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/llm-d-incubation/qsizer/internal/logger"
	"github.com/llm-d-incubation/qsizer/pkg/config"
)

var ErrInfeasibleProblem = errors.New("infeasible problem")

// No feasible configuration within the search bounds; Best is the least violating candidate found
type InfeasibleProblemError struct {
	Best        *Evaluation
	Evaluations int
}

func (e *InfeasibleProblemError) Error() string {
	if e.Best == nil {
		return fmt.Sprintf("%v: no candidate evaluated", ErrInfeasibleProblem)
	}
	return fmt.Sprintf("%v: best candidate %v", ErrInfeasibleProblem, e.Best)
}

func (e *InfeasibleProblemError) Is(target error) bool {
	return target == ErrInfeasibleProblem
}

// Result of an optimizer search
type Result struct {
	Evaluation
	Evaluations int
	Strategy    string
}

// Optimizer searches a problem with one strategy
type Optimizer struct {
	strategy         Strategy
	solutionTimeMsec int64
}

func NewOptimizer(strategy Strategy) *Optimizer {
	return &Optimizer{strategy: strategy}
}

// Create optimizer with the strategy named by the problem
func NewOptimizerForProblem(p *Problem) (*Optimizer, error) {
	s, err := NewStrategy(p.Strategy)
	if err != nil {
		return nil, err
	}
	return NewOptimizer(s), nil
}

// Search returns the best feasible configuration. The search ends when the strategy
// converges or the evaluation budget is exhausted.
func (o *Optimizer) Search(ctx context.Context, p *Problem) (*Result, error) {
	if p == nil {
		return nil, invalid("nil problem")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ev := NewEvaluator(p)

	startTime := time.Now()
	err := o.strategy.Search(ctx, ev)
	o.solutionTimeMsec = time.Since(startTime).Milliseconds()

	switch {
	case errors.Is(err, ErrBudgetExhausted):
		logger.Log.Debugw("evaluation budget exhausted", "strategy", o.strategy.Name(), "budget", p.MaxEvaluations)
	case err != nil:
		return nil, err
	}

	best, feasible := ev.Best()
	logger.Log.Debugw("search finished", "strategy", o.strategy.Name(), "evaluations", ev.Evaluations(),
		"feasible", feasible, "timeMsec", o.solutionTimeMsec)
	if !feasible {
		return nil, &InfeasibleProblemError{Best: best, Evaluations: ev.Evaluations()}
	}
	return &Result{
		Evaluation:  *best,
		Evaluations: ev.Evaluations(),
		Strategy:    o.strategy.Name(),
	}, nil
}

func (o *Optimizer) GetSolutionTimeMsec() int64 {
	return o.solutionTimeMsec
}

func (o *Optimizer) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Strategy: %s\n", o.strategy.Name())
	fmt.Fprintf(&b, "Solution time: %d msec\n", o.solutionTimeMsec)
	return b.String()
}

// Optimize is the external optimizer call
func Optimize(ctx context.Context, data *config.OptimizerData) (*config.OptimizerResult, error) {
	p, err := FromData(data)
	if err != nil {
		return nil, err
	}
	o, err := NewOptimizerForProblem(p)
	if err != nil {
		return nil, err
	}
	r, err := o.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	return ToData(r), nil
}
