package core

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"k8s.io/utils/ptr"

	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
	"github.com/llm-d-incubation/qsizer/pkg/config"
)

// NewNodeFromSpec creates a node from its external specification
func NewNodeFromSpec(spec *config.NodeSpec) (*Node, error) {
	kind, err := ParseNodeKind(spec.Kind)
	if err != nil {
		return nil, err
	}
	rate := spec.Rate
	if rate == 0 && spec.ServiceTime > 0 {
		rate = 1 / spec.ServiceTime
	}
	notation := spec.Notation
	if notation == "" {
		notation = config.DefaultNodeNotation
	}
	shape, err := analyzer.ParseNotation(notation)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", spec.Name, err)
	}

	var n *Node
	switch kind {
	case Source:
		n = NewSource(spec.Name, rate)
	case Channel:
		n = NewChannel(spec.Name, rate)
	case Balancer:
		n = NewBalancer(spec.Name)
	case EdgeDevice:
		n = NewEdgeDevice(spec.Name, rate, spec.BatteryPerfIndex, spec.Cost, spec.RevenueIndex)
	case CloudServer:
		n = NewCloudServer(spec.Name, rate, spec.Cost, spec.RevenueIndex)
	case Sink:
		n = NewSink(spec.Name, rate)
	}
	return n.WithShape(shape, spec.Variance), nil
}

// NewNetworkFromSpec builds a network topology from nodes and links
func NewNetworkFromSpec(spec *config.NetworkSpec) (*Network, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil network spec", analyzer.ErrInvalidConfiguration)
	}
	g := NewNetwork()
	for i := range spec.Nodes {
		n, err := NewNodeFromSpec(&spec.Nodes[i])
		if err != nil {
			return nil, err
		}
		if err := g.Add(n); err != nil {
			return nil, err
		}
	}
	for _, l := range spec.Links {
		ratio := config.DefaultLinkRatio
		if l.Ratio != nil {
			ratio = *l.Ratio
		}
		if err := g.Connect(l.From, l.To, ratio); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Report renders snapshots and paths in their external form, nodes sorted by name
func Report(snapshots map[string]NodeSnapshot, paths []Path) *config.NetworkReport {
	report := &config.NetworkReport{
		Nodes: make([]config.NodeReport, 0, len(snapshots)),
	}
	for _, s := range snapshots {
		r := config.NodeReport{
			Name:         s.ID,
			Kind:         s.Kind.String(),
			InputRate:    s.InputRate,
			OutputRate:   s.OutputRate,
			TimeInSystem: s.TimeInSystem,
			Utilization:  s.Utilization,
			TotalTime:    s.TotalTime,
			Profit:       s.Profit,
			TotalProfit:  s.TotalProfit,
		}
		if s.Kind == EdgeDevice && !math.IsInf(s.BatteryLife, 0) && !math.IsNaN(s.BatteryLife) {
			r.BatteryLife = ptr.To(s.BatteryLife)
		}
		report.Nodes = append(report.Nodes, r)
	}
	sort.Slice(report.Nodes, func(i, j int) bool { return report.Nodes[i].Name < report.Nodes[j].Name })

	for _, p := range paths {
		report.Paths = append(report.Paths, config.PathReport{
			Nodes:       p.Nodes,
			TotalTime:   p.TotalTime,
			TotalProfit: p.TotalProfit,
		})
	}
	return report
}

// RunNetwork builds and propagates a network. When a node fails the partial report
// is returned together with the error.
func RunNetwork(spec *config.NetworkSpec) (*config.NetworkReport, error) {
	g, err := NewNetworkFromSpec(spec)
	if err != nil {
		return nil, err
	}
	snapshots, err := g.Propagate()
	if err != nil {
		var nodeErr *NodeError
		if errors.As(err, &nodeErr) {
			report := Report(snapshots, nil)
			report.Error = err.Error()
			return report, err
		}
		return nil, err
	}
	paths, err := g.Paths()
	if err != nil {
		return nil, err
	}
	return Report(snapshots, paths), nil
}
