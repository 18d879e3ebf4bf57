package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/llm-d-incubation/qsizer/internal/logger"
	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
)

var (
	ErrCyclicTopology = errors.New("cyclic topology")
	ErrNotPropagated  = errors.New("network not propagated")
)

// Failure of a single node during propagation
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Network is a directed acyclic processing network of nodes connected by weighted links
type Network struct {
	nodes map[string]*Node
	ids   map[string]int64
	names map[int64]string
	graph *simple.DirectedGraph
}

func NewNetwork() *Network {
	return &Network{
		nodes: make(map[string]*Node),
		ids:   make(map[string]int64),
		names: make(map[int64]string),
		graph: simple.NewDirectedGraph(),
	}
}

// Add nodes to the network; ids must be unique
func (g *Network) Add(nodes ...*Node) error {
	for _, n := range nodes {
		if n == nil {
			return fmt.Errorf("%w: nil node", analyzer.ErrInvalidConfiguration)
		}
		if err := n.check(); err != nil {
			return err
		}
		if _, exists := g.nodes[n.id]; exists {
			return fmt.Errorf("%w: duplicate node %s", analyzer.ErrInvalidConfiguration, n.id)
		}
		id := int64(len(g.ids))
		g.nodes[n.id] = n
		g.ids[n.id] = id
		g.names[id] = n.id
		g.graph.AddNode(simple.Node(id))
	}
	return nil
}

// Connect directs the given share of the output of one node into another
func (g *Network) Connect(from, to string, ratio float64) error {
	src, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("%w: unknown node %s", analyzer.ErrInvalidConfiguration, from)
	}
	dst, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("%w: unknown node %s", analyzer.ErrInvalidConfiguration, to)
	}
	if ratio < 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Errorf("%w: link %s->%s ratio %v", analyzer.ErrInvalidConfiguration, from, to, ratio)
	}
	if from == to {
		return fmt.Errorf("%w: self link on %s", ErrCyclicTopology, from)
	}
	if dst.kind == Source {
		return fmt.Errorf("%w: link into source %s", analyzer.ErrInvalidConfiguration, to)
	}
	for _, l := range src.downstream {
		if l.to == dst {
			return fmt.Errorf("%w: duplicate link %s->%s", analyzer.ErrInvalidConfiguration, from, to)
		}
	}

	l := &link{from: src, to: dst, ratio: ratio}
	src.downstream = append(src.downstream, l)
	dst.upstream = append(dst.upstream, l)
	g.graph.SetEdge(g.graph.NewEdge(simple.Node(g.ids[from]), simple.Node(g.ids[to])))
	return nil
}

// Order returns the nodes in topological order, ties broken by insertion order
func (g *Network) Order() ([]*Node, error) {
	sorted, err := topo.SortStabilized(g.graph, func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	})
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			var members []string
			for _, component := range cycles {
				for _, n := range component {
					members = append(members, g.names[n.ID()])
				}
			}
			sort.Strings(members)
			return nil, fmt.Errorf("%w: %s", ErrCyclicTopology, strings.Join(members, ", "))
		}
		return nil, err
	}
	order := make([]*Node, len(sorted))
	for i, n := range sorted {
		order[i] = g.nodes[g.names[n.ID()]]
	}
	return order, nil
}

// Propagate evaluates every node once, in topological order.
// On a node failure the snapshots of the nodes evaluated so far are returned with a *NodeError.
func (g *Network) Propagate() (map[string]NodeSnapshot, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	for _, n := range order {
		n.reset()
	}

	for _, n := range order {
		if n.kind != Source {
			n.inputRate, n.totalTime, n.totalProfit = upstreamFlow(n)
		}
		if err := n.applyArrival(); err != nil {
			logger.Log.Debugw("propagation stopped", "node", n.id, "inputRate", n.inputRate, "error", err)
			return g.Snapshots(), &NodeError{NodeID: n.id, Err: err}
		}
		n.totalTime += n.timeInSystem
		n.totalProfit += n.profit
		n.evaluated = true
		logger.Log.Debugw("node evaluated", "node", n.id, "kind", n.kind.String(),
			"inputRate", n.inputRate, "outputRate", n.outputRate, "timeInSystem", n.timeInSystem)
	}
	return g.Snapshots(), nil
}

// accumulated input rate and the rate weighted mean of the upstream cumulative time and profit
func upstreamFlow(n *Node) (rate, totalTime, totalProfit float64) {
	for _, l := range n.upstream {
		r := l.from.outputRate * l.ratio
		rate += r
		totalTime += r * l.from.totalTime
		totalProfit += r * l.from.totalProfit
	}
	if rate <= 0 {
		return 0, 0, 0
	}
	return rate, totalTime / rate, totalProfit / rate
}

// Snapshots of all evaluated nodes
func (g *Network) Snapshots() map[string]NodeSnapshot {
	snapshots := make(map[string]NodeSnapshot)
	for id, n := range g.nodes {
		if n.evaluated {
			snapshots[id] = n.snapshot()
		}
	}
	return snapshots
}

// Snapshot of one node, if it was evaluated by the last propagation
func (g *Network) Snapshot(id string) (NodeSnapshot, bool) {
	n, ok := g.nodes[id]
	if !ok || !n.evaluated {
		return NodeSnapshot{}, false
	}
	return n.snapshot(), true
}

func (g *Network) Size() int {
	return len(g.nodes)
}

// Path from a node without upstream links to a node without downstream links
type Path struct {
	Nodes       []string
	TotalTime   float64 // sum of the times in system along the path
	TotalProfit float64 // sum of the profits along the path
}

func (p Path) String() string {
	return fmt.Sprintf("%s, total time: %v, total profit: %v", strings.Join(p.Nodes, " --> "), p.TotalTime, p.TotalProfit)
}

// Paths enumerates every path from a start node to an end node of a propagated network
func (g *Network) Paths() ([]Path, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	for _, n := range order {
		if !n.evaluated {
			return nil, fmt.Errorf("%w: node %s", ErrNotPropagated, n.id)
		}
	}

	type frame struct {
		node *Node
		path Path
	}
	var paths []Path
	for _, start := range order {
		if len(start.upstream) > 0 {
			continue
		}
		stack := []frame{{node: start, path: Path{
			Nodes:       []string{start.id},
			TotalTime:   start.timeInSystem,
			TotalProfit: start.profit,
		}}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(f.node.downstream) == 0 {
				paths = append(paths, f.path)
				continue
			}
			// reversed so that paths come out in link order
			for i := len(f.node.downstream) - 1; i >= 0; i-- {
				next := f.node.downstream[i].to
				nodes := make([]string, len(f.path.Nodes), len(f.path.Nodes)+1)
				copy(nodes, f.path.Nodes)
				stack = append(stack, frame{node: next, path: Path{
					Nodes:       append(nodes, next.id),
					TotalTime:   f.path.TotalTime + next.timeInSystem,
					TotalProfit: f.path.TotalProfit + next.profit,
				}})
			}
		}
	}
	return paths, nil
}
