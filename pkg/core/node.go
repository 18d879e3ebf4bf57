package core

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
)

// Kind of a network node; the set is closed and dispatched in applyArrival
type NodeKind int

const (
	Source      NodeKind = iota // 0 : originates traffic at a fixed rate (sensor)
	Channel                     // 1 : data channel, a single server queue
	Balancer                    // 2 : splits traffic, adds no delay
	EdgeDevice                  // 3 : battery powered processing device
	CloudServer                 // 4 : cloud processing server
	Sink                        // 5 : terminal node (database)
)

func (k NodeKind) String() string {
	switch k {
	case Source:
		return "source"
	case Channel:
		return "channel"
	case Balancer:
		return "balancer"
	case EdgeDevice:
		return "edge"
	case CloudServer:
		return "cloud"
	case Sink:
		return "sink"
	default:
		return "unknown"
	}
}

func ParseNodeKind(s string) (NodeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source", "sensor":
		return Source, nil
	case "channel", "datachannel":
		return Channel, nil
	case "balancer", "loadbalancer":
		return Balancer, nil
	case "edge", "edgedevice", "device":
		return EdgeDevice, nil
	case "cloud", "cloudserver", "server":
		return CloudServer, nil
	case "sink", "database":
		return Sink, nil
	default:
		return 0, fmt.Errorf("%w: unknown node kind %q", analyzer.ErrInvalidConfiguration, s)
	}
}

var queueModel = analyzer.NewQueueModel()

// Node of a processing network. The network owns all nodes; links only reference them.
type Node struct {
	id          string
	kind        NodeKind
	serviceRate float64 // generation rate for sources
	shape       analyzer.Shape
	variance    *float64

	batteryPerfIndex float64 // edge devices
	cost             float64 // edge devices and cloud servers
	revenueIndex     float64 // edge devices and cloud servers

	upstream   []*link
	downstream []*link

	// state set by the last propagation
	evaluated    bool
	inputRate    float64
	outputRate   float64
	timeInSystem float64
	utilization  float64
	totalTime    float64
	profit       float64
	totalProfit  float64
	batteryLife  float64
}

type link struct {
	from  *Node
	to    *Node
	ratio float64
}

func newNode(id string, kind NodeKind, rate float64) *Node {
	return &Node{id: id, kind: kind, serviceRate: rate, shape: analyzer.Deterministic}
}

// NewSource creates a node generating traffic at the given rate
func NewSource(id string, rate float64) *Node {
	return newNode(id, Source, rate)
}

func NewChannel(id string, serviceRate float64) *Node {
	return newNode(id, Channel, serviceRate)
}

func NewBalancer(id string) *Node {
	return newNode(id, Balancer, 0)
}

// NewSink creates a terminal node; a zero service rate makes it a pure terminal without delay
func NewSink(id string, serviceRate float64) *Node {
	return newNode(id, Sink, serviceRate)
}

func NewEdgeDevice(id string, serviceRate, batteryPerfIndex, cost, revenueIndex float64) *Node {
	n := newNode(id, EdgeDevice, serviceRate)
	n.batteryPerfIndex = batteryPerfIndex
	n.cost = cost
	n.revenueIndex = revenueIndex
	return n
}

func NewCloudServer(id string, serviceRate, cost, revenueIndex float64) *Node {
	n := newNode(id, CloudServer, serviceRate)
	n.cost = cost
	n.revenueIndex = revenueIndex
	return n
}

// WithShape sets the service time distribution of a queueing node (default deterministic)
func (n *Node) WithShape(shape analyzer.Shape, variance *float64) *Node {
	n.shape = shape
	n.variance = variance
	return n
}

func (n *Node) ID() string {
	return n.id
}

func (n *Node) Kind() NodeKind {
	return n.kind
}

// whether the node queues its input
func (n *Node) queueing() bool {
	switch n.kind {
	case Source, Balancer:
		return false
	case Sink:
		return n.serviceRate > 0
	default:
		return true
	}
}

func (n *Node) check() error {
	switch {
	case n.id == "":
		return fmt.Errorf("%w: empty node id", analyzer.ErrInvalidConfiguration)
	case n.kind < Source || n.kind > Sink:
		return fmt.Errorf("%w: node %s has unknown kind %d", analyzer.ErrInvalidConfiguration, n.id, n.kind)
	case n.kind == Source && !(n.serviceRate > 0):
		return fmt.Errorf("%w: source %s rate %v", analyzer.ErrInvalidConfiguration, n.id, n.serviceRate)
	case n.kind == Sink && (n.serviceRate < 0 || math.IsNaN(n.serviceRate)):
		return fmt.Errorf("%w: sink %s service rate %v", analyzer.ErrInvalidConfiguration, n.id, n.serviceRate)
	case n.queueing() && n.kind != Sink && !(n.serviceRate > 0):
		return fmt.Errorf("%w: node %s service rate %v", analyzer.ErrInvalidConfiguration, n.id, n.serviceRate)
	case n.shape == analyzer.General && n.variance == nil:
		return fmt.Errorf("%w: node %s", analyzer.ErrMissingVariance, n.id)
	}
	return nil
}

func (n *Node) reset() {
	n.evaluated = false
	n.inputRate = 0
	n.outputRate = 0
	n.timeInSystem = 0
	n.utilization = 0
	n.totalTime = 0
	n.profit = 0
	n.totalProfit = 0
	n.batteryLife = 0
}

// applyArrival derives delay, output rate and secondary metrics from the accumulated input rate
func (n *Node) applyArrival() error {
	switch n.kind {
	case Source:
		n.inputRate = n.serviceRate
		n.outputRate = n.serviceRate
		return nil
	case Balancer:
		n.timeInSystem = 0
		n.outputRate = departureRate(n.inputRate, 0)
		return nil
	}
	if !n.queueing() {
		n.outputRate = departureRate(n.inputRate, 0)
		return nil
	}

	d := &analyzer.QueueDescriptor{
		ArrivalRate: n.inputRate,
		ServiceRate: n.serviceRate,
		Servers:     1,
		Shape:       n.shape,
		Variance:    n.variance,
	}
	p, err := queueModel.Evaluate(d)
	if err != nil {
		return err
	}
	n.timeInSystem = p.TimeInSystem()
	n.utilization = p.Utilization
	n.outputRate = departureRate(n.inputRate, n.timeInSystem)

	switch n.kind {
	case EdgeDevice:
		// infinite when the device is idle
		n.batteryLife = n.batteryPerfIndex / (n.utilization * n.serviceRate)
		n.profit = n.inputRate*n.revenueIndex - n.cost
	case CloudServer:
		n.profit = n.inputRate*n.revenueIndex - n.cost
	}
	return nil
}

// Outgoing inter-departure time is taken as the inter-arrival time plus the time in system.
// This is a modeling simplification kept for parity with existing sizing results.
func departureRate(inputRate, timeInSystem float64) float64 {
	if inputRate <= 0 {
		return 0
	}
	return 1 / (1/inputRate + timeInSystem)
}

// Read-only copy of a node after propagation
type NodeSnapshot struct {
	ID           string
	Kind         NodeKind
	ServiceRate  float64
	InputRate    float64
	OutputRate   float64
	TimeInSystem float64
	Utilization  float64
	TotalTime    float64 // cumulative time from the sources, rate weighted over upstream paths
	Profit       float64
	TotalProfit  float64 // cumulative profit from the sources, rate weighted over upstream paths
	BatteryLife  float64 // edge devices only
	Upstream     []string
	Downstream   []string
}

func (n *Node) snapshot() NodeSnapshot {
	s := NodeSnapshot{
		ID:           n.id,
		Kind:         n.kind,
		ServiceRate:  n.serviceRate,
		InputRate:    n.inputRate,
		OutputRate:   n.outputRate,
		TimeInSystem: n.timeInSystem,
		Utilization:  n.utilization,
		TotalTime:    n.totalTime,
		Profit:       n.profit,
		TotalProfit:  n.totalProfit,
		BatteryLife:  n.batteryLife,
		Upstream:     make([]string, len(n.upstream)),
		Downstream:   make([]string, len(n.downstream)),
	}
	for i, l := range n.upstream {
		s.Upstream[i] = l.from.id
	}
	for i, l := range n.downstream {
		s.Downstream[i] = l.to.id
	}
	return s
}

func (s NodeSnapshot) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "id=%s, kind=%s, in=%v, out=%v, T=%v, rho=%v, totalT=%v",
		s.ID, s.Kind, s.InputRate, s.OutputRate, s.TimeInSystem, s.Utilization, s.TotalTime)
	if s.Kind == EdgeDevice {
		fmt.Fprintf(&b, ", battery=%v", s.BatteryLife)
	}
	if s.Profit != 0 || s.TotalProfit != 0 {
		fmt.Fprintf(&b, ", profit=%v, totalProfit=%v", s.Profit, s.TotalProfit)
	}
	return b.String()
}
