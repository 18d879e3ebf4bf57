package analyzer

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"k8s.io/utils/ptr"

	"github.com/llm-d-incubation/qsizer/pkg/config"
)

// fraction of capacity kept free when searching for a maximum arrival rate
const StabilitySafetyFraction = 1e-9

var singleServer = NewQueueModel()
var multiServer = NewMultiServerQueueModel()

// ModelFor selects the model for a descriptor: single server queues use the
// Pollaczek-Khinchine model directly, all others the multi-server model
func ModelFor(d *QueueDescriptor) Model {
	if d.Servers == 1 {
		return singleServer
	}
	return multiServer
}

// EvaluateDescriptor evaluates a descriptor with the model selected by ModelFor
func EvaluateDescriptor(d *QueueDescriptor) (*QueuePerformance, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidConfiguration)
	}
	return ModelFor(d).Evaluate(d)
}

// create a queue descriptor from an external queue specification
func DescriptorFromSpec(spec *config.QueueSpec) (*QueueDescriptor, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil queue spec", ErrInvalidConfiguration)
	}
	shape, err := ParseNotation(spec.Notation)
	if err != nil {
		return nil, err
	}
	pooling, err := ParsePooling(spec.Pooling)
	if err != nil {
		return nil, err
	}
	mu := spec.ServiceRate
	if mu == 0 && spec.ServiceTime > 0 {
		mu = 1 / spec.ServiceTime
	}
	servers := spec.Servers
	if servers == 0 {
		servers = config.DefaultServers
	}
	d := &QueueDescriptor{
		ArrivalRate: spec.ArrivalRate,
		ServiceRate: mu,
		Servers:     servers,
		Shape:       shape,
		Variance:    spec.Variance,
		Pooling:     pooling,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Evaluate is the external queue evaluation call
func Evaluate(spec *config.QueueSpec) (*config.QueueResult, error) {
	d, err := DescriptorFromSpec(spec)
	if err != nil {
		return nil, err
	}
	p, err := EvaluateDescriptor(d)
	if err != nil {
		return nil, err
	}
	result := ToResult(p)
	return &result, nil
}

// ToResult converts a performance to its tabular form
func ToResult(p *QueuePerformance) config.QueueResult {
	return config.QueueResult{
		ArrivalRate: p.ArrivalRate,
		ServiceRate: p.ServiceRate,
		Servers:     p.Servers,
		Notation:    p.Shape.Notation(),
		WaitTime:    p.AvgWaitTime,
		QueueTime:   p.AvgQueueTime,
		Utilization: p.Utilization,
		QueueLength: p.AvgQueueLength,
		NumInSystem: p.AvgNumInSystem,
		Throughput:  p.Throughput,
	}
}

// Rates returns start, start+step, ... up to but excluding stop
func Rates(start, stop, step float64) ([]float64, error) {
	if !(step > 0) || stop < start {
		return nil, fmt.Errorf("%w: rate range [%v, %v) step %v", ErrInvalidConfiguration, start, stop, step)
	}
	count := int(math.Ceil((stop-start)/step - Epsilon))
	switch {
	case count <= 0:
		return []float64{}, nil
	case count == 1:
		return []float64{start}, nil
	}
	return floats.Span(make([]float64, count), start, start+float64(count-1)*step), nil
}

// Sweep evaluates the template at each arrival rate; unstable rates are skipped
func Sweep(template *QueueDescriptor, rates []float64) ([]*QueuePerformance, error) {
	if template == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidConfiguration)
	}
	model := ModelFor(template)
	rows := make([]*QueuePerformance, 0, len(rates))
	for _, lambda := range rates {
		p, err := model.Evaluate(template.WithArrivalRate(lambda))
		if errors.Is(err, ErrUnstableSystem) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}
	return rows, nil
}

// CriticalArrivalRate returns the largest swept arrival rate whose waiting time stays within wcr
func CriticalArrivalRate(rows []*QueuePerformance, wcr float64) (float64, bool) {
	found := false
	rate := 0.0
	for _, p := range rows {
		if MeetsTarget(p.AvgWaitTime, wcr) && (!found || p.ArrivalRate > rate) {
			rate = p.ArrivalRate
			found = true
		}
	}
	return rate, found
}

// RunSweep is the external sweep call
func RunSweep(spec *config.SweepSpec) (*config.SweepResult, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil sweep spec", ErrInvalidConfiguration)
	}
	// the template is validated at zero load, the sweep itself skips unstable rates
	queue := spec.Queue
	queue.ArrivalRate = 0
	template, err := DescriptorFromSpec(&queue)
	if err != nil {
		return nil, err
	}
	rates, err := Rates(spec.Start, spec.Stop, spec.Step)
	if err != nil {
		return nil, err
	}
	rows, err := Sweep(template, rates)
	if err != nil {
		return nil, err
	}
	result := &config.SweepResult{Rows: make([]config.QueueResult, len(rows))}
	for i, p := range rows {
		result.Rows[i] = ToResult(p)
	}
	if spec.CriticalWait > 0 {
		if rate, ok := CriticalArrivalRate(rows, spec.CriticalWait); ok {
			result.CriticalRate = ptr.To(rate)
		}
	}
	return result, nil
}

// MaxArrivalRate finds the largest arrival rate at which the waiting time does not exceed wcr
func MaxArrivalRate(template *QueueDescriptor, wcr float64) (float64, error) {
	if template == nil {
		return 0, fmt.Errorf("%w: nil descriptor", ErrInvalidConfiguration)
	}
	model := ModelFor(template)
	eval := func(lambda float64) (float64, error) {
		p, err := model.Evaluate(template.WithArrivalRate(lambda))
		if err != nil {
			return 0, err
		}
		return p.AvgWaitTime, nil
	}
	lambdaMax := float64(template.Servers) * template.ServiceRate * (1 - StabilitySafetyFraction)
	lambdaStar, ind, err := BinarySearch(0, lambdaMax, wcr, eval)
	if err != nil {
		return 0, err
	}
	if ind < 0 {
		return 0, fmt.Errorf("%w: waiting time %v at zero load exceeds %v", ErrTargetUnreachable, 1/template.ServiceRate, wcr)
	}
	return lambdaStar, nil
}

// Result of sizing the number of servers of a queue
type Sizing struct {
	Servers     int               // smallest server count meeting the target
	Performance *QueuePerformance // performance at that count
	Evaluations int               // number of model evaluations performed
}

// SizeServers finds the smallest number of servers, between the template's server count and maxServers,
// whose waiting time does not exceed wcr. Waiting time is non-increasing in the number of servers, so the
// scan starts at the smallest stable count and either walks upward or gallops and bisects.
func SizeServers(template *QueueDescriptor, wcr float64, maxServers int, bisect bool) (*Sizing, error) {
	if template == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidConfiguration)
	}
	if err := template.checkParameters(); err != nil {
		return nil, err
	}
	sizing := &Sizing{}
	start := max(template.Servers, int(math.Floor(template.ArrivalRate/template.ServiceRate))+1)
	if start > maxServers {
		return sizing, fmt.Errorf("%w: %d servers needed for stability, at most %d allowed",
			ErrTargetUnreachable, start, maxServers)
	}

	perf := make(map[int]*QueuePerformance)
	ok := func(n int) (bool, error) {
		d := template.WithServers(n)
		p, err := ModelFor(d).Evaluate(d)
		sizing.Evaluations++
		if errors.Is(err, ErrUnstableSystem) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		perf[n] = p
		return MeetsTarget(p.AvgWaitTime, wcr), nil
	}
	found := func(n int) (*Sizing, error) {
		sizing.Servers = n
		sizing.Performance = perf[n]
		return sizing, nil
	}
	unreachable := fmt.Errorf("%w: waiting time target %v not met with %d servers", ErrTargetUnreachable, wcr, maxServers)

	if !bisect {
		for n := start; n <= maxServers; n++ {
			met, err := ok(n)
			if err != nil {
				return sizing, err
			}
			if met {
				return found(n)
			}
		}
		return sizing, unreachable
	}

	// gallop upward until the target is met, then bisect the last interval
	lo, hi, step := start, start, 1
	for {
		met, err := ok(hi)
		if err != nil {
			return sizing, err
		}
		if met {
			break
		}
		if hi == maxServers {
			return sizing, unreachable
		}
		lo = hi
		hi = min(hi+step, maxServers)
		step *= 2
	}
	if hi == start {
		return found(hi)
	}
	// invariant: lo fails, hi meets the target
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		met, err := ok(mid)
		if err != nil {
			return sizing, err
		}
		if met {
			hi = mid
		} else {
			lo = mid
		}
	}
	return found(hi)
}
