package config

// Input to a single queue evaluation (field names kept short for tabular consumers)
type QueueSpec struct {
	ArrivalRate float64  `json:"ar" yaml:"ar"`                     // arrival rate (requests per time unit)
	ServiceRate float64  `json:"sr,omitempty" yaml:"sr,omitempty"` // service rate of one server (either sr or st)
	ServiceTime float64  `json:"st,omitempty" yaml:"st,omitempty"` // mean service time of one server (either sr or st)
	Servers     int      `json:"sn,omitempty" yaml:"sn,omitempty"` // number of servers (default 1)
	Notation    string   `json:"qs" yaml:"qs"`                     // queue notation: mm1, md1 or mg1
	Variance    *float64 `json:"vs,omitempty" yaml:"vs,omitempty"` // service time variance (mg1 only)
	Pooling     string   `json:"pooling,omitempty" yaml:"pooling,omitempty"`
}

// Output of a single queue evaluation
type QueueResult struct {
	ArrivalRate float64 `json:"ar"`         // arrival rate
	ServiceRate float64 `json:"sr"`         // service rate of one server
	Servers     int     `json:"sn"`         // number of servers
	Notation    string  `json:"qs"`         // queue notation
	WaitTime    float64 `json:"w"`          // mean waiting time (queueing + service)
	QueueTime   float64 `json:"wq"`         // mean time in queue
	Utilization float64 `json:"u"`          // per-server utilization
	QueueLength float64 `json:"lq"`         // mean queue length
	NumInSystem float64 `json:"l"`          // mean number of requests in system
	Throughput  float64 `json:"throughput"` // departure rate
}

// Arrival rate sweep over a queue template
type SweepSpec struct {
	Queue        QueueSpec `json:"queue" yaml:"queue"`
	Start        float64   `json:"start" yaml:"start"`
	Stop         float64   `json:"stop" yaml:"stop"` // exclusive
	Step         float64   `json:"step" yaml:"step"`
	CriticalWait float64   `json:"wcr,omitempty" yaml:"wcr,omitempty"` // optional waiting time limit
}

type SweepResult struct {
	Rows         []QueueResult `json:"rows"`
	CriticalRate *float64      `json:"criticalRate,omitempty"` // largest swept rate with w <= wcr
}

// Edge/cloud sizing problem (external key names kept for compatibility)
type OptimizerData struct {
	Lambda      float64  `json:"lambda" yaml:"lambda"`                       // total arrival rate
	RevenuePer  float64  `json:"r_p" yaml:"r_p"`                             // revenue per request
	EdgeShare   float64  `json:"P_E" yaml:"P_E"`                             // initial share of traffic processed at the edge
	EdgeCount   int      `json:"N_E" yaml:"N_E"`                             // initial number of edge devices
	EdgeTime    float64  `json:"T_E" yaml:"T_E"`                             // mean edge processing time
	EdgeDistr   string   `json:"T_E_distr" yaml:"T_E_distr"`                 // edge processing time distribution
	EdgeVar     *float64 `json:"T_E_var,omitempty" yaml:"T_E_var,omitempty"` // edge processing time variance (General)
	BatteryPerf float64  `json:"B_p" yaml:"B_p"`                             // edge battery performance index
	EdgeCost    float64  `json:"C_E" yaml:"C_E"`                             // cost of one edge device
	CloudCount  int      `json:"N_C" yaml:"N_C"`                             // initial number of cloud servers
	CloudTime   float64  `json:"T_C" yaml:"T_C"`                             // mean cloud processing time
	CloudDistr  string   `json:"T_C_distr" yaml:"T_C_distr"`                 // cloud processing time distribution
	CloudVar    *float64 `json:"T_C_var,omitempty" yaml:"T_C_var,omitempty"` // cloud processing time variance (General)
	CloudCost   float64  `json:"C_C" yaml:"C_C"`                             // cost of one cloud server
	Pricing     string   `json:"C_C_pricing" yaml:"C_C_pricing"`             // Dedicated or On-demand
	WaitCrit    float64  `json:"W_cr" yaml:"W_cr"`                           // critical mean waiting time
	BatteryCrit float64  `json:"T_bat_cr" yaml:"T_bat_cr"`                   // required battery life

	Search SearchSpec `json:"search,omitempty" yaml:"search,omitempty"`
}

// Search options of the optimizer; zero values select defaults
type SearchSpec struct {
	Strategy       string       `json:"strategy,omitempty" yaml:"strategy,omitempty"` // discrete, bisect, pattern, grid, neldermead
	Pooling        string       `json:"pooling,omitempty" yaml:"pooling,omitempty"`   // shared or partitioned
	ShareMin       *float64     `json:"P_E_min,omitempty" yaml:"P_E_min,omitempty"`   // lower bound of edge share (default P_E)
	ShareMax       *float64     `json:"P_E_max,omitempty" yaml:"P_E_max,omitempty"`   // upper bound of edge share (default P_E)
	ShareStep      float64      `json:"P_E_step,omitempty" yaml:"P_E_step,omitempty"` // scan step of edge share
	MinDevices     int          `json:"N_min,omitempty" yaml:"N_min,omitempty"`
	MaxDevices     int          `json:"N_max,omitempty" yaml:"N_max,omitempty"`
	MaxEvaluations int          `json:"maxEvaluations,omitempty" yaml:"maxEvaluations,omitempty"`
	Tolerance      float64      `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Weights        *WeightsSpec `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// Weights of the objective terms
type WeightsSpec struct {
	Cost    float64 `json:"cost" yaml:"cost"`
	Wait    float64 `json:"wait" yaml:"wait"`
	Devices float64 `json:"devices" yaml:"devices"`
}

// Optimal configuration found by the optimizer
type OptimizerResult struct {
	EdgeCount   int     `json:"N_E_opt"`
	CloudCount  int     `json:"N_C_opt"`
	EdgeShare   float64 `json:"P_E_opt"`
	EdgeWait    float64 `json:"W_E"`
	CloudWait   float64 `json:"W_C"`
	Cost        float64 `json:"cost"`
	Profit      float64 `json:"profit"`
	Objective   float64 `json:"objective"`
	Evaluations int     `json:"evaluations"`
	Strategy    string  `json:"strategy"`
}

// Processing network topology
type NetworkSpec struct {
	Nodes []NodeSpec `json:"nodes" yaml:"nodes"`
	Links []LinkSpec `json:"links" yaml:"links"`
}

// Specification of a network node
type NodeSpec struct {
	Name             string   `json:"name" yaml:"name"`
	Kind             string   `json:"kind" yaml:"kind"`                                   // source, channel, balancer, edge, cloud, sink
	Rate             float64  `json:"rate,omitempty" yaml:"rate,omitempty"`               // generation rate (source) or service rate
	ServiceTime      float64  `json:"serviceTime,omitempty" yaml:"serviceTime,omitempty"` // alternative to service rate
	Notation         string   `json:"qs,omitempty" yaml:"qs,omitempty"`                   // queue notation (default md1)
	Variance         *float64 `json:"vs,omitempty" yaml:"vs,omitempty"`
	BatteryPerfIndex float64  `json:"batteryPerfIndex,omitempty" yaml:"batteryPerfIndex,omitempty"`
	Cost             float64  `json:"cost,omitempty" yaml:"cost,omitempty"`
	RevenueIndex     float64  `json:"revenueIndex,omitempty" yaml:"revenueIndex,omitempty"`
}

// Directed link between two nodes
type LinkSpec struct {
	From  string   `json:"from" yaml:"from"`
	To    string   `json:"to" yaml:"to"`
	Ratio *float64 `json:"ratio,omitempty" yaml:"ratio,omitempty"` // share of the upstream output (default 1)
}

// Result of a network propagation
type NetworkReport struct {
	Nodes     []NodeReport `json:"nodes"`
	Paths     []PathReport `json:"paths,omitempty"`
	Error     string       `json:"error,omitempty"`     // set when propagation stopped early
	ErrorType string       `json:"errorType,omitempty"` // class of Error, as in failed responses
}

type NodeReport struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	InputRate    float64  `json:"inputRate"`
	OutputRate   float64  `json:"outputRate"`
	TimeInSystem float64  `json:"timeInSystem"`
	Utilization  float64  `json:"utilization"`
	TotalTime    float64  `json:"totalTime"`
	Profit       float64  `json:"profit"`
	TotalProfit  float64  `json:"totalProfit"`
	BatteryLife  *float64 `json:"batteryLife,omitempty"`
}

type PathReport struct {
	Nodes       []string `json:"nodes"`
	TotalTime   float64  `json:"totalTime"`
	TotalProfit float64  `json:"totalProfit"`
}
