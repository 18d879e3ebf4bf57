package analyzer

import (
	"fmt"
	"math"
	"strings"
)

// Service time distribution shape
type Shape int

const (
	Deterministic Shape = iota // 0 : constant service time (D)
	Exponential                // 1 : exponential service time (M)
	General                    // 2 : general service time with given variance (G)
)

func (s Shape) String() string {
	switch s {
	case Deterministic:
		return "Deterministic"
	case Exponential:
		return "Exponential"
	case General:
		return "General"
	default:
		return "Unknown"
	}
}

// Notation returns the single-server queue notation of the shape
func (s Shape) Notation() string {
	switch s {
	case Deterministic:
		return "md1"
	case Exponential:
		return "mm1"
	case General:
		return "mg1"
	default:
		return ""
	}
}

// ParseNotation maps a queue notation (mm1, md1, mg1) to a shape
func ParseNotation(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md1":
		return Deterministic, nil
	case "mm1":
		return Exponential, nil
	case "mg1":
		return General, nil
	default:
		return 0, fmt.Errorf("%w: unknown queue notation %q", ErrInvalidConfiguration, s)
	}
}

// ParseDistribution maps a distribution name, or a queue notation, to a shape
func ParseDistribution(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "determined", "deterministic", "constant", "d":
		return Deterministic, nil
	case "exponential", "m":
		return Exponential, nil
	case "general", "g":
		return General, nil
	}
	if shape, err := ParseNotation(s); err == nil {
		return shape, nil
	}
	return 0, fmt.Errorf("%w: unknown distribution %q", ErrInvalidConfiguration, s)
}

// Arrangement of the servers of a multi-server queue
type Pooling int

const (
	Shared      Pooling = iota // 0 : one queue in front of all servers
	Partitioned                // 1 : arrivals split evenly over independent single-server queues
)

func (p Pooling) String() string {
	switch p {
	case Shared:
		return "shared"
	case Partitioned:
		return "partitioned"
	default:
		return "unknown"
	}
}

func ParsePooling(s string) (Pooling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shared":
		return Shared, nil
	case "partitioned":
		return Partitioned, nil
	default:
		return 0, fmt.Errorf("%w: unknown pooling %q", ErrInvalidConfiguration, s)
	}
}

// Queue to be evaluated
type QueueDescriptor struct {
	ArrivalRate float64  // λ >= 0
	ServiceRate float64  // μ > 0, per server
	Servers     int      // n >= 1
	Shape       Shape    // service time distribution
	Variance    *float64 // service time variance, required iff Shape is General
	Pooling     Pooling  // server arrangement when n > 1
}

// create a validated queue descriptor
func NewQueueDescriptor(lambda, mu float64, servers int, shape Shape, variance *float64) (*QueueDescriptor, error) {
	d := &QueueDescriptor{
		ArrivalRate: lambda,
		ServiceRate: mu,
		Servers:     servers,
		Shape:       shape,
		Variance:    variance,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the descriptor, including the stability condition λ < n·μ
func (d *QueueDescriptor) Validate() error {
	if err := d.checkParameters(); err != nil {
		return err
	}
	if d.ArrivalRate >= float64(d.Servers)*d.ServiceRate {
		return fmt.Errorf("%w: arrival rate %v, capacity %v", ErrUnstableSystem,
			d.ArrivalRate, float64(d.Servers)*d.ServiceRate)
	}
	return nil
}

// check everything but stability
func (d *QueueDescriptor) checkParameters() error {
	switch {
	case !(d.ServiceRate > 0) || math.IsInf(d.ServiceRate, 0):
		return fmt.Errorf("%w: service rate %v", ErrInvalidConfiguration, d.ServiceRate)
	case d.Servers <= 0:
		return fmt.Errorf("%w: server count %d", ErrInvalidConfiguration, d.Servers)
	case !(d.ArrivalRate >= 0) || math.IsInf(d.ArrivalRate, 0):
		return fmt.Errorf("%w: arrival rate %v", ErrInvalidConfiguration, d.ArrivalRate)
	case d.Shape < Deterministic || d.Shape > General:
		return fmt.Errorf("%w: distribution %d", ErrInvalidConfiguration, d.Shape)
	case d.Pooling < Shared || d.Pooling > Partitioned:
		return fmt.Errorf("%w: pooling %d", ErrInvalidConfiguration, d.Pooling)
	}
	if d.Shape == General {
		if d.Variance == nil {
			return ErrMissingVariance
		}
		if !(*d.Variance >= 0) {
			return fmt.Errorf("%w: variance %v", ErrInvalidConfiguration, *d.Variance)
		}
	}
	return nil
}

// variance of the service time implied by the distribution shape
func (d *QueueDescriptor) serviceVariance() float64 {
	switch d.Shape {
	case Exponential:
		return 1 / (d.ServiceRate * d.ServiceRate)
	case General:
		return *d.Variance
	default:
		return 0
	}
}

// Utilization of one server, λ/(n·μ)
func (d *QueueDescriptor) Utilization() float64 {
	return d.ArrivalRate / (float64(d.Servers) * d.ServiceRate)
}

// copy of the descriptor with another arrival rate
func (d *QueueDescriptor) WithArrivalRate(lambda float64) *QueueDescriptor {
	c := *d
	c.ArrivalRate = lambda
	return &c
}

// copy of the descriptor with another server count
func (d *QueueDescriptor) WithServers(n int) *QueueDescriptor {
	c := *d
	c.Servers = n
	return &c
}

func (d *QueueDescriptor) String() string {
	vs := "-"
	if d.Variance != nil {
		vs = fmt.Sprintf("%v", *d.Variance)
	}
	return fmt.Sprintf("{lambda=%v, mu=%v, n=%d, qs=%s, vs=%s, pooling=%s}",
		d.ArrivalRate, d.ServiceRate, d.Servers, d.Shape.Notation(), vs, d.Pooling)
}
