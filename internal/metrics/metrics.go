package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/llm-d-incubation/qsizer/internal/constants"
	"github.com/llm-d-incubation/qsizer/pkg/config"
)

var (
	requestsTotal         *prometheus.CounterVec
	errorsTotal           *prometheus.CounterVec
	optimizerEvaluations  *prometheus.GaugeVec
	optimizerDevices      *prometheus.GaugeVec
	optimizerCost         *prometheus.GaugeVec
	networkNodesEvaluated prometheus.Gauge
)

// InitMetrics registers all custom metrics with the provided registry
func InitMetrics(registry prometheus.Registerer) {
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: constants.QsizerRequestsTotal,
			Help: "Total number of evaluation requests",
		},
		[]string{constants.LabelOperation},
	)
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: constants.QsizerErrorsTotal,
			Help: "Total number of failed evaluation requests",
		},
		[]string{constants.LabelOperation, constants.LabelErrorType},
	)
	optimizerEvaluations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: constants.QsizerOptimizerEvaluations,
			Help: "Model evaluations of the last optimizer run",
		},
		[]string{constants.LabelStrategy},
	)
	optimizerDevices = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: constants.QsizerOptimizerDevices,
			Help: "Device counts of the last optimal configuration",
		},
		[]string{constants.LabelStrategy, constants.LabelTier},
	)
	optimizerCost = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: constants.QsizerOptimizerCost,
			Help: "Cost of the last optimal configuration",
		},
		[]string{constants.LabelStrategy},
	)
	networkNodesEvaluated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: constants.QsizerNetworkNodes,
			Help: "Nodes evaluated by the last network propagation",
		},
	)

	registry.MustRegister(requestsTotal)
	registry.MustRegister(errorsTotal)
	registry.MustRegister(optimizerEvaluations)
	registry.MustRegister(optimizerDevices)
	registry.MustRegister(optimizerCost)
	registry.MustRegister(networkNodesEvaluated)
}

// InitMetricsAndEmitter registers metrics with Prometheus and creates a metrics emitter
func InitMetricsAndEmitter(registry prometheus.Registerer) *MetricsEmitter {
	InitMetrics(registry)
	return NewMetricsEmitter()
}

// MetricsEmitter handles emission of custom metrics
type MetricsEmitter struct{}

// NewMetricsEmitter creates a new metrics emitter
func NewMetricsEmitter() *MetricsEmitter {
	return &MetricsEmitter{}
}

// EmitRequestMetrics counts a request of the given operation
func (m *MetricsEmitter) EmitRequestMetrics(ctx context.Context, operation string) {
	requestsTotal.With(prometheus.Labels{constants.LabelOperation: operation}).Inc()
}

// EmitErrorMetrics counts a failed request
func (m *MetricsEmitter) EmitErrorMetrics(ctx context.Context, operation, errorType string) {
	labels := prometheus.Labels{
		constants.LabelOperation: operation,
		constants.LabelErrorType: errorType,
	}
	errorsTotal.With(labels).Inc()
}

// EmitOptimizerMetrics records the outcome of an optimizer run
func (m *MetricsEmitter) EmitOptimizerMetrics(ctx context.Context, result *config.OptimizerResult) {
	if result == nil {
		return
	}
	strategy := prometheus.Labels{constants.LabelStrategy: result.Strategy}
	optimizerEvaluations.With(strategy).Set(float64(result.Evaluations))
	optimizerCost.With(strategy).Set(result.Cost)
	optimizerDevices.With(prometheus.Labels{constants.LabelStrategy: result.Strategy, constants.LabelTier: "edge"}).
		Set(float64(result.EdgeCount))
	optimizerDevices.With(prometheus.Labels{constants.LabelStrategy: result.Strategy, constants.LabelTier: "cloud"}).
		Set(float64(result.CloudCount))
}

// EmitNetworkMetrics records the size of a network propagation
func (m *MetricsEmitter) EmitNetworkMetrics(ctx context.Context, report *config.NetworkReport) {
	if report == nil {
		return
	}
	networkNodesEvaluated.Set(float64(len(report.Nodes)))
}
