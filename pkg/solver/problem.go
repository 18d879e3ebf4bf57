package solver

import (
	"bytes"
	"fmt"
	"math"

	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
	"github.com/llm-d-incubation/qsizer/pkg/config"
)

// Processing tier of identical devices
type Tier struct {
	ServiceTime  float64        // mean processing time of one request
	Shape        analyzer.Shape // processing time distribution
	Variance     *float64       // processing time variance, General only
	Cost         float64        // cost of one device
	InitialCount int            // starting point of local strategies
}

// Weights of the objective terms
type Weights struct {
	Cost    float64
	Wait    float64
	Devices float64
}

// Problem of sizing an edge tier and a cloud tier sharing a request stream
type Problem struct {
	Lambda      float64 // total arrival rate
	RevenuePer  float64 // revenue per request
	Edge        Tier
	Cloud       Tier
	BatteryPerf float64 // battery performance index of an edge device
	Pricing     config.CloudPricing
	WaitCrit    float64 // critical mean waiting time of either tier
	BatteryCrit float64 // required battery life of edge devices

	InitialShare float64 // starting edge share of local strategies
	ShareMin     float64
	ShareMax     float64
	ShareStep    float64
	MinDevices   int
	MaxDevices   int

	Weights        Weights
	Pooling        analyzer.Pooling
	MaxEvaluations int     // budget of model evaluations
	Tolerance      float64 // convergence tolerance on the edge share
	Strategy       string
}

// FromData creates a problem from its external form, filling in defaults
func FromData(d *config.OptimizerData) (*Problem, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil optimizer data", analyzer.ErrInvalidConfiguration)
	}
	edgeShape, err := analyzer.ParseDistribution(d.EdgeDistr)
	if err != nil {
		return nil, fmt.Errorf("T_E_distr: %w", err)
	}
	cloudShape, err := analyzer.ParseDistribution(d.CloudDistr)
	if err != nil {
		return nil, fmt.Errorf("T_C_distr: %w", err)
	}
	pricing, err := config.CloudPricingEnum(d.Pricing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analyzer.ErrInvalidConfiguration, err)
	}
	s := d.Search
	pooling, err := analyzer.ParsePooling(s.Pooling)
	if err != nil {
		return nil, err
	}

	p := &Problem{
		Lambda:     d.Lambda,
		RevenuePer: d.RevenuePer,
		Edge: Tier{
			ServiceTime:  d.EdgeTime,
			Shape:        edgeShape,
			Variance:     d.EdgeVar,
			Cost:         d.EdgeCost,
			InitialCount: d.EdgeCount,
		},
		Cloud: Tier{
			ServiceTime:  d.CloudTime,
			Shape:        cloudShape,
			Variance:     d.CloudVar,
			Cost:         d.CloudCost,
			InitialCount: d.CloudCount,
		},
		BatteryPerf:  d.BatteryPerf,
		Pricing:      pricing,
		WaitCrit:     d.WaitCrit,
		BatteryCrit:  d.BatteryCrit,
		InitialShare: d.EdgeShare,
		ShareMin:     d.EdgeShare,
		ShareMax:     d.EdgeShare,
		ShareStep:    config.DefaultShareStep,
		MinDevices:   config.DefaultMinDevices,
		MaxDevices:   config.DefaultMaxDevices,
		Weights:      Weights{Cost: 1},
		Pooling:      pooling,

		MaxEvaluations: config.DefaultMaxEvaluations,
		Tolerance:      config.DefaultTolerance,
		Strategy:       config.DefaultStrategy,
	}
	if s.ShareMin != nil {
		p.ShareMin = *s.ShareMin
	}
	if s.ShareMax != nil {
		p.ShareMax = *s.ShareMax
	}
	if s.ShareStep != 0 {
		p.ShareStep = s.ShareStep
	}
	if s.MinDevices != 0 {
		p.MinDevices = s.MinDevices
	}
	if s.MaxDevices != 0 {
		p.MaxDevices = s.MaxDevices
	}
	if s.MaxEvaluations != 0 {
		p.MaxEvaluations = s.MaxEvaluations
	}
	if s.Tolerance != 0 {
		p.Tolerance = s.Tolerance
	}
	if s.Weights != nil {
		p.Weights = Weights{Cost: s.Weights.Cost, Wait: s.Weights.Wait, Devices: s.Weights.Devices}
	}
	if s.Strategy != "" {
		p.Strategy = s.Strategy
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ToData converts a result to its external form
func ToData(r *Result) *config.OptimizerResult {
	return &config.OptimizerResult{
		EdgeCount:   r.Edge,
		CloudCount:  r.Cloud,
		EdgeShare:   r.Share,
		EdgeWait:    r.EdgeWait,
		CloudWait:   r.CloudWait,
		Cost:        r.Cost,
		Profit:      r.Profit,
		Objective:   r.Objective,
		Evaluations: r.Evaluations,
		Strategy:    r.Strategy,
	}
}

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{analyzer.ErrInvalidConfiguration}, a...)...)
}

func validRate(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

// Validate checks the problem parameters and bounds
func (p *Problem) Validate() error {
	switch {
	case !validRate(p.Lambda):
		return invalid("lambda %v", p.Lambda)
	case !validRate(p.Edge.ServiceTime):
		return invalid("T_E %v", p.Edge.ServiceTime)
	case !validRate(p.Cloud.ServiceTime):
		return invalid("T_C %v", p.Cloud.ServiceTime)
	case !validRate(p.WaitCrit):
		return invalid("W_cr %v", p.WaitCrit)
	case !(p.BatteryCrit >= 0):
		return invalid("T_bat_cr %v", p.BatteryCrit)
	case !(p.BatteryPerf >= 0):
		return invalid("B_p %v", p.BatteryPerf)
	case !(p.Edge.Cost >= 0) || !(p.Cloud.Cost >= 0):
		return invalid("device costs %v, %v", p.Edge.Cost, p.Cloud.Cost)
	case !(p.ShareMin >= 0) || !(p.ShareMax <= 1) || p.ShareMin > p.ShareMax:
		return invalid("edge share bounds [%v, %v]", p.ShareMin, p.ShareMax)
	case !validRate(p.ShareStep):
		return invalid("edge share step %v", p.ShareStep)
	case p.MinDevices < 1 || p.MaxDevices < p.MinDevices:
		return invalid("device bounds [%d, %d]", p.MinDevices, p.MaxDevices)
	case p.MaxEvaluations <= 0:
		return invalid("evaluation budget %d", p.MaxEvaluations)
	case !validRate(p.Tolerance):
		return invalid("tolerance %v", p.Tolerance)
	case !(p.Weights.Cost >= 0) || !(p.Weights.Wait >= 0) || !(p.Weights.Devices >= 0):
		return invalid("objective weights %+v", p.Weights)
	}
	for _, t := range []*Tier{&p.Edge, &p.Cloud} {
		if t.Shape == analyzer.General {
			if t.Variance == nil {
				return analyzer.ErrMissingVariance
			}
			if !(*t.Variance >= 0) {
				return invalid("variance %v", *t.Variance)
			}
		}
	}
	return nil
}

// split of the total arrival rate into edge and cloud arrival rates
func (p *Problem) split(share float64) (edge, cloud float64) {
	return p.Lambda * share, p.Lambda * (1 - share)
}

// descriptor of a tier receiving the given arrival rate
func (p *Problem) descriptor(t *Tier, lambda float64, n int) *analyzer.QueueDescriptor {
	return &analyzer.QueueDescriptor{
		ArrivalRate: lambda,
		ServiceRate: 1 / t.ServiceTime,
		Servers:     n,
		Shape:       t.Shape,
		Variance:    t.Variance,
		Pooling:     p.Pooling,
	}
}

// smallest number of edge devices sustaining the required battery life
func (p *Problem) batteryMinimum(edgeLambda float64) int {
	if p.BatteryCrit == 0 || edgeLambda == 0 {
		return 0
	}
	if p.BatteryPerf == 0 {
		return math.MaxInt
	}
	return int(math.Ceil(edgeLambda * p.BatteryCrit / p.BatteryPerf * (1 - analyzer.Epsilon)))
}

// clamp a decision into the search bounds
func (p *Problem) clamp(d Decision) Decision {
	return Decision{
		Share: math.Min(math.Max(d.Share, p.ShareMin), p.ShareMax),
		Edge:  min(max(d.Edge, p.MinDevices), p.MaxDevices),
		Cloud: min(max(d.Cloud, p.MinDevices), p.MaxDevices),
	}
}

// initial decision of local strategies
func (p *Problem) start() Decision {
	return p.clamp(Decision{Share: p.InitialShare, Edge: p.Edge.InitialCount, Cloud: p.Cloud.InitialCount})
}

// edge shares scanned by enumerating strategies, both bounds included
func (p *Problem) shares() []float64 {
	if p.ShareMax-p.ShareMin < p.ShareStep*analyzer.Epsilon {
		return []float64{p.ShareMin}
	}
	var shares []float64
	for i := 0; ; i++ {
		s := p.ShareMin + float64(i)*p.ShareStep
		if s >= p.ShareMax-p.ShareStep*analyzer.Epsilon {
			break
		}
		shares = append(shares, s)
	}
	return append(shares, p.ShareMax)
}

func (p *Problem) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "lambda=%v, share=[%v, %v], edge={T=%v, %s, C=%v}, cloud={T=%v, %s, C=%v, %s}, ",
		p.Lambda, p.ShareMin, p.ShareMax,
		p.Edge.ServiceTime, p.Edge.Shape, p.Edge.Cost,
		p.Cloud.ServiceTime, p.Cloud.Shape, p.Cloud.Cost, p.Pricing)
	fmt.Fprintf(&b, "W_cr=%v, T_bat=%v, B_p=%v, devices=[%d, %d], strategy=%s",
		p.WaitCrit, p.BatteryCrit, p.BatteryPerf, p.MinDevices, p.MaxDevices, p.Strategy)
	return b.String()
}
