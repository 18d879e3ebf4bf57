package analyzer

import (
	"bytes"
	"fmt"
)

// Queueing model evaluating a queue descriptor
type Model interface {
	Evaluate(d *QueueDescriptor) (*QueuePerformance, error)
}

// Steady-state performance of a queue; one instance per evaluation
type QueuePerformance struct {
	ArrivalRate float64 // λ
	ServiceRate float64 // μ per server
	Servers     int     // n
	Shape       Shape   // service time distribution

	Utilization    float64 // per-server utilization λ/(nμ)
	AvgQueueTime   float64 // average time in queue (Wq)
	AvgWaitTime    float64 // average waiting time including service (w = Wq + 1/μ)
	AvgServTime    float64 // average service time (1/μ)
	AvgQueueLength float64 // average queue length (Lq = λ·Wq)
	AvgNumInSystem float64 // average number in system (L = λ·w)
	Throughput     float64 // departure rate, equal to λ when stable
}

// TimeInSystem is the mean sojourn time, queueing plus service
func (p *QueuePerformance) TimeInSystem() float64 {
	return p.AvgWaitTime
}

func (p *QueuePerformance) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "lambda=%v; mu=%v; n=%d; qs=%s; ", p.ArrivalRate, p.ServiceRate, p.Servers, p.Shape.Notation())
	fmt.Fprintf(&b, "rho=%v; Wq=%v; W=%v; X=%v; ", p.Utilization, p.AvgQueueTime, p.AvgWaitTime, p.AvgServTime)
	fmt.Fprintf(&b, "Q=%v; N=%v; tput=%v", p.AvgQueueLength, p.AvgNumInSystem, p.Throughput)
	return b.String()
}

// Single server queue (M/M/1, M/D/1, M/G/1) solved with the Pollaczek-Khinchine mean value formula
type QueueModel struct{}

func NewQueueModel() *QueueModel {
	return &QueueModel{}
}

// Evaluate performance of a single server queue
func (m *QueueModel) Evaluate(d *QueueDescriptor) (*QueuePerformance, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidConfiguration)
	}
	if d.Servers != 1 {
		return nil, fmt.Errorf("%w: single server model given %d servers", ErrInvalidConfiguration, d.Servers)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	lambda, mu := d.ArrivalRate, d.ServiceRate
	wq := pollaczekKhinchine(lambda, mu, d.serviceVariance())
	return newPerformance(d, wq), nil
}

// mean time in queue of an M/G/1 queue with service time variance vs
func pollaczekKhinchine(lambda, mu, vs float64) float64 {
	rho := lambda / mu
	return lambda * (vs + 1/(mu*mu)) / (2 * (1 - rho))
}

// derive the remaining measures from the mean time in queue
func newPerformance(d *QueueDescriptor, wq float64) *QueuePerformance {
	lambda := d.ArrivalRate
	servTime := 1 / d.ServiceRate
	w := wq + servTime
	return &QueuePerformance{
		ArrivalRate:    lambda,
		ServiceRate:    d.ServiceRate,
		Servers:        d.Servers,
		Shape:          d.Shape,
		Utilization:    d.Utilization(),
		AvgQueueTime:   wq,
		AvgWaitTime:    w,
		AvgServTime:    servTime,
		AvgQueueLength: lambda * wq,
		AvgNumInSystem: lambda * w,
		Throughput:     lambda,
	}
}
