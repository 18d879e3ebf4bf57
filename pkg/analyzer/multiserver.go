package analyzer

import "fmt"

// Queue with n identical servers. With shared pooling the Erlang-C waiting time of M/M/n is scaled by
// the general service correction (σ²μ² + 1)/2, which is exact for n = 1 (Pollaczek-Khinchine) and
// leaves the exponential case unchanged. With partitioned pooling the arrivals are split evenly over
// n independent single server queues.
type MultiServerQueueModel struct {
	single *QueueModel
}

func NewMultiServerQueueModel() *MultiServerQueueModel {
	return &MultiServerQueueModel{single: NewQueueModel()}
}

func (m *MultiServerQueueModel) Evaluate(d *QueueDescriptor) (*QueuePerformance, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidConfiguration)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Pooling == Partitioned {
		return m.evaluatePartitioned(d)
	}

	n := float64(d.Servers)
	lambda, mu := d.ArrivalRate, d.ServiceRate
	correction := (d.serviceVariance()*mu*mu + 1) / 2
	wq := ErlangC(d.Servers, lambda/mu) / (n*mu - lambda) * correction
	return newPerformance(d, wq), nil
}

func (m *MultiServerQueueModel) evaluatePartitioned(d *QueueDescriptor) (*QueuePerformance, error) {
	single := m.single
	if single == nil {
		single = NewQueueModel()
	}
	perServer := d.WithServers(1).WithArrivalRate(d.ArrivalRate / float64(d.Servers))
	p, err := single.Evaluate(perServer)
	if err != nil {
		return nil, err
	}
	// every server sees the same queue time; station totals follow from Little's law
	return newPerformance(d, p.AvgQueueTime), nil
}

// ErlangC is the probability that an arrival has to wait in an M/M/n queue with offered load a = λ/μ.
// It is computed from the Erlang-B recursion, which stays stable for large n.
func ErlangC(n int, a float64) float64 {
	if a <= 0 || n <= 0 {
		return 0
	}
	b := 1.0
	for k := 1; k <= n; k++ {
		b = a * b / (float64(k) + a*b)
	}
	rho := a / float64(n)
	return b / (1 - rho*(1-b))
}
