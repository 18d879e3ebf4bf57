package main

import (
	"context"
	"fmt"
	"os"

	"github.com/llm-d-incubation/qsizer/pkg/config"
	"github.com/llm-d-incubation/qsizer/pkg/core"
	"github.com/llm-d-incubation/qsizer/pkg/solver"
)

// size the edge/cloud example with every strategy, then propagate a small sensor network
func main() {
	data := &config.OptimizerData{
		Lambda:      1000,
		RevenuePer:  0.01,
		EdgeShare:   0.3,
		EdgeTime:    200 / config.SecondsPerHour,
		EdgeDistr:   "Determined",
		BatteryPerf: 200,
		EdgeCost:    0.1,
		CloudTime:   100 / config.SecondsPerHour,
		CloudDistr:  "Determined",
		CloudCost:   0.1,
		Pricing:     "Dedicated",
		WaitCrit:    240 / config.SecondsPerHour,
		BatteryCrit: 8,
	}

	for _, name := range solver.StrategyNames() {
		data.Search.Strategy = name
		p, err := solver.FromData(data)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		optimizer, err := solver.NewOptimizerForProblem(p)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		result, err := optimizer.Search(context.Background(), p)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Printf("%v\n%v\n\n", optimizer, &result.Evaluation)
	}

	network := core.NewNetwork()
	nodes := []*core.Node{
		core.NewSource("sensor", 10),
		core.NewChannel("uplink", 40),
		core.NewBalancer("lb"),
		core.NewEdgeDevice("phone", 5, 200, 0.1, 0.02),
		core.NewCloudServer("vm", 30, 0.5, 0.03),
		core.NewSink("db", 0),
	}
	links := []struct {
		from, to string
		ratio    float64
	}{
		{"sensor", "uplink", 1},
		{"uplink", "lb", 1},
		{"lb", "phone", 0.3},
		{"lb", "vm", 0.7},
		{"phone", "db", 1},
		{"vm", "db", 1},
	}
	if err := network.Add(nodes...); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for _, l := range links {
		if err := network.Connect(l.from, l.to, l.ratio); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	snapshots, err := network.Propagate()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for _, n := range nodes {
		if s, ok := snapshots[n.ID()]; ok {
			fmt.Println(s)
		}
	}
	paths, err := network.Paths()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}
