// Package constants provides centralized constant definitions for qsizer.
package constants

// qsizer Output Metrics
// These metric names are used to emit qsizer metrics to Prometheus.
const (
	// QsizerRequestsTotal is a counter of evaluation requests.
	// Labels: operation
	QsizerRequestsTotal = "qsizer_requests_total"

	// QsizerErrorsTotal is a counter of failed evaluation requests.
	// Labels: operation, error_type
	QsizerErrorsTotal = "qsizer_errors_total"

	// QsizerOptimizerEvaluations is a gauge of the model evaluations of the last optimizer run.
	// Labels: strategy
	QsizerOptimizerEvaluations = "qsizer_optimizer_evaluations"

	// QsizerOptimizerDevices is a gauge of the device counts found by the last optimizer run.
	// Labels: strategy, tier
	QsizerOptimizerDevices = "qsizer_optimizer_devices"

	// QsizerOptimizerCost is a gauge of the cost of the last optimal configuration.
	// Labels: strategy
	QsizerOptimizerCost = "qsizer_optimizer_cost"

	// QsizerNetworkNodes is a gauge of the nodes evaluated by the last network propagation.
	QsizerNetworkNodes = "qsizer_network_nodes"
)

// Metric Label Names
const (
	LabelOperation = "operation"
	LabelErrorType = "error_type"
	LabelStrategy  = "strategy"
	LabelTier      = "tier"
)

// Operation label values
const (
	OperationEvaluate = "evaluate"
	OperationSweep    = "sweep"
	OperationOptimize = "optimize"
	OperationNetwork  = "network"
)
