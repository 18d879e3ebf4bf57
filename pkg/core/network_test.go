package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
	"github.com/llm-d-incubation/qsizer/pkg/config"
)

func newChain(t *testing.T) *Network {
	t.Helper()
	g := NewNetwork()
	require.NoError(t, g.Add(
		NewSource("sensor", 1),
		NewChannel("channel", 4),
		NewCloudServer("cloud", 2, 0.5, 1).WithShape(analyzer.Exponential, nil),
		NewSink("db", 0),
	))
	require.NoError(t, g.Connect("sensor", "channel", 1))
	require.NoError(t, g.Connect("channel", "cloud", 1))
	require.NoError(t, g.Connect("cloud", "db", 1))
	return g
}

func TestNetwork_Chain(t *testing.T) {
	g := newChain(t)
	snapshots, err := g.Propagate()
	require.NoError(t, err)
	require.Len(t, snapshots, 4)

	sensor := snapshots["sensor"]
	assert.Equal(t, 1.0, sensor.InputRate)
	assert.Equal(t, 1.0, sensor.OutputRate)
	assert.Equal(t, 0.0, sensor.TimeInSystem)

	// M/D/1 with lambda = 1, mu = 4
	channel := snapshots["channel"]
	assert.Equal(t, 1.0, channel.InputRate)
	assert.InDelta(t, 0.25, channel.Utilization, 1e-12)
	assert.InDelta(t, 0.25+1.0/24.0, channel.TimeInSystem, 1e-12)
	assert.InDelta(t, 1/(1+channel.TimeInSystem), channel.OutputRate, 1e-12)

	cloud := snapshots["cloud"]
	assert.InDelta(t, channel.OutputRate, cloud.InputRate, 1e-12)
	assert.InDelta(t, 1/(2-cloud.InputRate), cloud.TimeInSystem, 1e-12)
	assert.InDelta(t, cloud.InputRate*1-0.5, cloud.Profit, 1e-12)

	// for a chain the cumulative time is the plain sum
	db := snapshots["db"]
	assert.Equal(t, 0.0, db.TimeInSystem)
	assert.InDelta(t, cloud.OutputRate, db.OutputRate, 1e-12)
	assert.InDelta(t, channel.TimeInSystem+cloud.TimeInSystem, db.TotalTime, 1e-12)
	assert.InDelta(t, cloud.Profit, db.TotalProfit, 1e-12)
	assert.Equal(t, []string{"cloud"}, db.Upstream)
	assert.Empty(t, db.Downstream)

	paths, err := g.Paths()
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"sensor", "channel", "cloud", "db"}, paths[0].Nodes)
	assert.InDelta(t, db.TotalTime, paths[0].TotalTime, 1e-12)
	assert.Contains(t, paths[0].String(), "sensor --> channel --> cloud --> db")
}

func TestNetwork_PropagateIsRepeatable(t *testing.T) {
	g := newChain(t)
	first, err := g.Propagate()
	require.NoError(t, err)
	second, err := g.Propagate()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func newDiamond(t *testing.T) *Network {
	t.Helper()
	g := NewNetwork()
	require.NoError(t, g.Add(
		NewSource("sensor", 10),
		NewBalancer("balancer"),
		NewEdgeDevice("edge", 20, 100, 2, 0.5),
		NewCloudServer("cloud", 40, 5, 0.8),
		NewSink("db", 100),
	))
	require.NoError(t, g.Connect("sensor", "balancer", 1))
	require.NoError(t, g.Connect("balancer", "edge", 0.3))
	require.NoError(t, g.Connect("balancer", "cloud", 0.7))
	require.NoError(t, g.Connect("edge", "db", 1))
	require.NoError(t, g.Connect("cloud", "db", 1))
	return g
}

func TestNetwork_BalancerSplit(t *testing.T) {
	g := newDiamond(t)
	snapshots, err := g.Propagate()
	require.NoError(t, err)

	balancer := snapshots["balancer"]
	assert.Equal(t, 0.0, balancer.TimeInSystem)
	assert.InDelta(t, 10.0, balancer.OutputRate, 1e-12)

	edge := snapshots["edge"]
	cloud := snapshots["cloud"]
	assert.InDelta(t, 3.0, edge.InputRate, 1e-12)
	assert.InDelta(t, 7.0, cloud.InputRate, 1e-12)

	// battery life = B / (rho * mu)
	assert.InDelta(t, 0.15, edge.Utilization, 1e-12)
	assert.InDelta(t, 100.0/3.0, edge.BatteryLife, 1e-9)
	assert.InDelta(t, 3*0.5-2, edge.Profit, 1e-12)
	assert.InDelta(t, 7*0.8-5, cloud.Profit, 1e-12)

	// merge: rate weighted mean of the upstream cumulative values plus own value
	db := snapshots["db"]
	assert.InDelta(t, edge.OutputRate+cloud.OutputRate, db.InputRate, 1e-12)
	wantTime := (edge.OutputRate*edge.TotalTime+cloud.OutputRate*cloud.TotalTime)/db.InputRate + db.TimeInSystem
	assert.InDelta(t, wantTime, db.TotalTime, 1e-12)
	wantProfit := (edge.OutputRate*edge.TotalProfit + cloud.OutputRate*cloud.TotalProfit) / db.InputRate
	assert.InDelta(t, wantProfit, db.TotalProfit, 1e-12)

	paths, err := g.Paths()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, []string{"sensor", "balancer", "edge", "db"}, paths[0].Nodes)
	assert.Equal(t, []string{"sensor", "balancer", "cloud", "db"}, paths[1].Nodes)
	assert.InDelta(t, edge.TimeInSystem+db.TimeInSystem, paths[0].TotalTime, 1e-12)
	assert.InDelta(t, cloud.Profit, paths[1].TotalProfit, 1e-12)
}

func TestNetwork_UnstableNode(t *testing.T) {
	g := NewNetwork()
	require.NoError(t, g.Add(NewSource("sensor", 10), NewChannel("channel", 5), NewSink("db", 0)))
	require.NoError(t, g.Connect("sensor", "channel", 1))
	require.NoError(t, g.Connect("channel", "db", 1))

	snapshots, err := g.Propagate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, analyzer.ErrUnstableSystem))

	var nodeErr *NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, "channel", nodeErr.NodeID)
	assert.Contains(t, err.Error(), "channel")

	// nodes evaluated before the failure remain available
	require.Len(t, snapshots, 1)
	_, ok := g.Snapshot("sensor")
	assert.True(t, ok)
	_, ok = g.Snapshot("channel")
	assert.False(t, ok)
	_, ok = g.Snapshot("missing")
	assert.False(t, ok)

	_, err = g.Paths()
	assert.ErrorIs(t, err, ErrNotPropagated)
}

func TestNetwork_ZeroInput(t *testing.T) {
	g := NewNetwork()
	require.NoError(t, g.Add(NewChannel("idle", 4), NewEdgeDevice("device", 2, 10, 1, 1)))
	require.NoError(t, g.Connect("idle", "device", 1))

	snapshots, err := g.Propagate()
	require.NoError(t, err)
	idle := snapshots["idle"]
	assert.Equal(t, 0.0, idle.InputRate)
	assert.Equal(t, 0.0, idle.OutputRate)
	assert.InDelta(t, 0.25, idle.TimeInSystem, 1e-12)

	device := snapshots["device"]
	assert.True(t, math.IsInf(device.BatteryLife, 1))
	assert.Equal(t, -1.0, device.Profit)
}

func TestNetwork_Topology(t *testing.T) {
	g := NewNetwork()
	require.NoError(t, g.Add(NewSource("s", 1), NewChannel("a", 2), NewChannel("b", 2)))

	assert.ErrorIs(t, g.Add(NewChannel("a", 3)), analyzer.ErrInvalidConfiguration)
	assert.ErrorIs(t, g.Add(NewChannel("c", 0)), analyzer.ErrInvalidConfiguration)
	assert.ErrorIs(t, g.Add(NewSource("s2", -1)), analyzer.ErrInvalidConfiguration)
	assert.ErrorIs(t, g.Add(NewChannel("g", 2).WithShape(analyzer.General, nil)), analyzer.ErrMissingVariance)
	assert.ErrorIs(t, g.Add(nil), analyzer.ErrInvalidConfiguration)

	assert.ErrorIs(t, g.Connect("s", "missing", 1), analyzer.ErrInvalidConfiguration)
	assert.ErrorIs(t, g.Connect("missing", "a", 1), analyzer.ErrInvalidConfiguration)
	assert.ErrorIs(t, g.Connect("a", "s", 1), analyzer.ErrInvalidConfiguration)
	assert.ErrorIs(t, g.Connect("s", "a", -0.5), analyzer.ErrInvalidConfiguration)
	assert.ErrorIs(t, g.Connect("s", "a", math.NaN()), analyzer.ErrInvalidConfiguration)
	assert.ErrorIs(t, g.Connect("a", "a", 1), ErrCyclicTopology)

	require.NoError(t, g.Connect("s", "a", 1))
	assert.ErrorIs(t, g.Connect("s", "a", 1), analyzer.ErrInvalidConfiguration)
	require.NoError(t, g.Connect("a", "b", 1))
	require.NoError(t, g.Connect("b", "a", 1))

	_, err := g.Propagate()
	assert.ErrorIs(t, err, ErrCyclicTopology)
	assert.Contains(t, err.Error(), "a, b")
	_, err = g.Paths()
	assert.ErrorIs(t, err, ErrCyclicTopology)
	assert.Equal(t, 3, g.Size())
}

func TestNetwork_OrderIsStable(t *testing.T) {
	g := NewNetwork()
	require.NoError(t, g.Add(NewSink("z", 0), NewSource("s2", 1), NewSource("s1", 1), NewChannel("c", 5)))
	require.NoError(t, g.Connect("s1", "c", 1))
	require.NoError(t, g.Connect("s2", "c", 1))
	require.NoError(t, g.Connect("c", "z", 1))

	order, err := g.Order()
	require.NoError(t, err)
	ids := make([]string, len(order))
	for i, n := range order {
		ids[i] = n.ID()
	}
	assert.Equal(t, []string{"s2", "s1", "c", "z"}, ids)
}

func TestParseNodeKind(t *testing.T) {
	tests := []struct {
		input string
		want  NodeKind
	}{
		{"sensor", Source},
		{"Source", Source},
		{"datachannel", Channel},
		{"balancer", Balancer},
		{"edge", EdgeDevice},
		{"CloudServer", CloudServer},
		{"database", Sink},
	}
	for _, tt := range tests {
		got, err := ParseNodeKind(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseNodeKind("router")
	assert.ErrorIs(t, err, analyzer.ErrInvalidConfiguration)
	assert.Equal(t, "unknown", NodeKind(42).String())
}

const networkYAML = `
nodes:
  - name: sensor
    kind: sensor
    rate: 10
  - name: lb
    kind: balancer
  - name: edge
    kind: edge
    serviceTime: 0.05
    batteryPerfIndex: 100
    cost: 2
    revenueIndex: 0.5
  - name: cloud
    kind: cloud
    rate: 40
    qs: mg1
    vs: 0.0001
    cost: 5
    revenueIndex: 0.8
  - name: db
    kind: database
links:
  - {from: sensor, to: lb}
  - {from: lb, to: edge, ratio: 0.3}
  - {from: lb, to: cloud, ratio: 0.7}
  - {from: edge, to: db}
  - {from: cloud, to: db}
`

func TestRunNetwork(t *testing.T) {
	spec, err := config.FromDataToSpec[config.NetworkSpec]([]byte(networkYAML), "network.yaml")
	require.NoError(t, err)

	report, err := RunNetwork(spec)
	require.NoError(t, err)
	assert.Empty(t, report.Error)
	require.Len(t, report.Nodes, 5)
	assert.Equal(t, "cloud", report.Nodes[0].Name)
	assert.Len(t, report.Paths, 2)

	for _, n := range report.Nodes {
		switch n.Name {
		case "edge":
			assert.Equal(t, "edge", n.Kind)
			assert.InDelta(t, 3.0, n.InputRate, 1e-12)
			require.NotNil(t, n.BatteryLife)
			assert.InDelta(t, 100.0/3.0, *n.BatteryLife, 1e-9)
		case "cloud":
			assert.InDelta(t, 7.0, n.InputRate, 1e-12)
			assert.Nil(t, n.BatteryLife)
		}
	}
}

func TestRunNetwork_Errors(t *testing.T) {
	spec := &config.NetworkSpec{
		Nodes: []config.NodeSpec{
			{Name: "sensor", Kind: "source", Rate: 10},
			{Name: "channel", Kind: "channel", Rate: 5},
		},
		Links: []config.LinkSpec{{From: "sensor", To: "channel"}},
	}
	report, err := RunNetwork(spec)
	assert.ErrorIs(t, err, analyzer.ErrUnstableSystem)
	require.NotNil(t, report)
	assert.NotEmpty(t, report.Error)
	require.Len(t, report.Nodes, 1)
	assert.Equal(t, "sensor", report.Nodes[0].Name)

	spec.Nodes[1].Notation = "mx1"
	_, err = RunNetwork(spec)
	assert.ErrorIs(t, err, analyzer.ErrInvalidConfiguration)

	spec.Nodes[1].Notation = ""
	spec.Nodes[1].Kind = "router"
	_, err = RunNetwork(spec)
	assert.ErrorIs(t, err, analyzer.ErrInvalidConfiguration)

	_, err = RunNetwork(nil)
	assert.ErrorIs(t, err, analyzer.ErrInvalidConfiguration)
}
