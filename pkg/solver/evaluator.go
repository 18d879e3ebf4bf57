package solver

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
	"github.com/llm-d-incubation/qsizer/pkg/config"
)

var ErrBudgetExhausted = errors.New("evaluation budget exhausted")

// Decision variables of the sizing problem
type Decision struct {
	Share float64 // share of the traffic processed at the edge
	Edge  int     // number of edge devices
	Cloud int     // number of cloud servers
}

func (d Decision) devices() int {
	return d.Edge + d.Cloud
}

// Evaluation of a decision
type Evaluation struct {
	Decision
	EdgeWait    float64 // mean waiting time at the edge, +Inf if unstable
	CloudWait   float64 // mean waiting time in the cloud, +Inf if unstable
	EdgeUtil    float64
	CloudUtil   float64
	BatteryLife float64 // battery life of an edge device, +Inf if idle
	Cost        float64
	Profit      float64
	Objective   float64 // weighted cost plus constraint penalties
	Violations  int     // number of violated hard constraints
}

func (e *Evaluation) Feasible() bool {
	return e.Violations == 0
}

func (e *Evaluation) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "share=%v, N_E=%d, N_C=%d, W_E=%v, W_C=%v, battery=%v, cost=%v, objective=%v, violations=%d",
		e.Share, e.Edge, e.Cloud, e.EdgeWait, e.CloudWait, e.BatteryLife, e.Cost, e.Objective, e.Violations)
	return b.String()
}

// less orders evaluations by objective, then by number of devices, then by decision
func less(a, b *Evaluation) bool {
	switch {
	case b == nil:
		return a != nil
	case a == nil:
		return false
	case a.Objective != b.Objective:
		return a.Objective < b.Objective
	case a.devices() != b.devices():
		return a.devices() < b.devices()
	case a.Share != b.Share:
		return a.Share < b.Share
	default:
		return a.Edge < b.Edge
	}
}

// Evaluator computes objectives of decisions within an evaluation budget and keeps the incumbents.
// It is safe for concurrent use.
type Evaluator struct {
	problem *Problem

	mu             sync.Mutex
	evaluations    int
	bestFeasible   *Evaluation
	bestInfeasible *Evaluation
}

func NewEvaluator(problem *Problem) *Evaluator {
	return &Evaluator{problem: problem}
}

func (e *Evaluator) Problem() *Problem {
	return e.problem
}

// Charge accounts for model evaluations performed outside the evaluator
func (e *Evaluator) Charge(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evaluations+n > e.problem.MaxEvaluations {
		e.evaluations = e.problem.MaxEvaluations
		return ErrBudgetExhausted
	}
	e.evaluations += n
	return nil
}

func (e *Evaluator) Evaluations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluations
}

func (e *Evaluator) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return max(0, e.problem.MaxEvaluations-e.evaluations)
}

// Best returns the best feasible evaluation, or else the best infeasible one
func (e *Evaluator) Best() (best *Evaluation, feasible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bestFeasible != nil {
		return e.bestFeasible, true
	}
	return e.bestInfeasible, false
}

// Evaluate computes the objective of a decision; each tier costs one model evaluation
func (e *Evaluator) Evaluate(d Decision) (*Evaluation, error) {
	e.mu.Lock()
	if e.evaluations+2 > e.problem.MaxEvaluations {
		e.mu.Unlock()
		return nil, ErrBudgetExhausted
	}
	e.evaluations += 2
	e.mu.Unlock()

	ev, err := e.evaluate(d)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.Feasible() {
		if less(ev, e.bestFeasible) {
			e.bestFeasible = ev
		}
	} else if less(ev, e.bestInfeasible) {
		e.bestInfeasible = ev
	}
	return ev, nil
}

func (e *Evaluator) evaluate(d Decision) (*Evaluation, error) {
	p := e.problem
	if d.Share < 0 || d.Share > 1 || d.Edge < 1 || d.Cloud < 1 {
		return nil, fmt.Errorf("%w: decision %+v", analyzer.ErrInvalidConfiguration, d)
	}
	edgeLambda, cloudLambda := p.split(d.Share)
	ev := &Evaluation{Decision: d}

	var waitTerm float64
	for _, tier := range []struct {
		t      *Tier
		lambda float64
		n      int
		wait   *float64
		util   *float64
	}{
		{&p.Edge, edgeLambda, d.Edge, &ev.EdgeWait, &ev.EdgeUtil},
		{&p.Cloud, cloudLambda, d.Cloud, &ev.CloudWait, &ev.CloudUtil},
	} {
		if tier.lambda == 0 {
			// no traffic, nothing waits
			continue
		}
		perf, err := analyzer.EvaluateDescriptor(p.descriptor(tier.t, tier.lambda, tier.n))
		switch {
		case errors.Is(err, analyzer.ErrUnstableSystem):
			*tier.wait = math.Inf(1)
			*tier.util = 1
			waitTerm += p.WaitCrit
			ev.Violations++
			continue
		case err != nil:
			return nil, err
		}
		*tier.wait = perf.AvgWaitTime
		*tier.util = perf.Utilization
		waitTerm += perf.AvgWaitTime
		if !analyzer.MeetsTarget(perf.AvgWaitTime, p.WaitCrit) {
			ev.Violations++
		}
	}

	// B / (rho * mu) reduces to B * N / lambda
	ev.BatteryLife = math.Inf(1)
	if edgeLambda > 0 {
		ev.BatteryLife = p.BatteryPerf * float64(d.Edge) / edgeLambda
	}
	if p.BatteryCrit > 0 && !analyzer.MeetsTarget(p.BatteryCrit, ev.BatteryLife) {
		ev.Violations++
	}

	switch p.Pricing {
	case config.OnDemand:
		ev.Cost = float64(d.Edge)*p.Edge.Cost + float64(d.Cloud)*p.Cloud.Cost*ev.CloudUtil
	default:
		ev.Cost = float64(d.Edge)*p.Edge.Cost + float64(d.Cloud)*p.Cloud.Cost
	}
	ev.Profit = p.Lambda*p.RevenuePer - ev.Cost
	ev.Objective = p.Weights.Cost*ev.Cost + p.Weights.Wait*waitTerm + p.Weights.Devices*float64(d.devices()) +
		float64(ev.Violations)*config.ConstraintPenalty
	return ev, nil
}
