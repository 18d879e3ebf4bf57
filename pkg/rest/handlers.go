package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/llm-d-incubation/qsizer/internal/constants"
	"github.com/llm-d-incubation/qsizer/internal/logger"
	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
	"github.com/llm-d-incubation/qsizer/pkg/config"
	"github.com/llm-d-incubation/qsizer/pkg/core"
	"github.com/llm-d-incubation/qsizer/pkg/solver"
)

// Handlers for REST API calls

func (server *BaseServer) evaluate(c *gin.Context) {
	server.emitter.EmitRequestMetrics(c, constants.OperationEvaluate)
	var spec config.QueueSpec
	if err := c.BindJSON(&spec); err != nil {
		server.emitter.EmitErrorMetrics(c, constants.OperationEvaluate, "bad_request")
		return
	}
	result, err := analyzer.Evaluate(&spec)
	if err != nil {
		server.fail(c, constants.OperationEvaluate, err)
		return
	}
	c.IndentedJSON(http.StatusOK, result)
}

func (server *BaseServer) sweep(c *gin.Context) {
	server.emitter.EmitRequestMetrics(c, constants.OperationSweep)
	var spec config.SweepSpec
	if err := c.BindJSON(&spec); err != nil {
		server.emitter.EmitErrorMetrics(c, constants.OperationSweep, "bad_request")
		return
	}
	result, err := analyzer.RunSweep(&spec)
	if err != nil {
		server.fail(c, constants.OperationSweep, err)
		return
	}
	c.IndentedJSON(http.StatusOK, result)
}

func (server *BaseServer) optimize(c *gin.Context) {
	server.emitter.EmitRequestMetrics(c, constants.OperationOptimize)
	var data config.OptimizerData
	if err := c.BindJSON(&data); err != nil {
		server.emitter.EmitErrorMetrics(c, constants.OperationOptimize, "bad_request")
		return
	}
	result, err := solver.Optimize(c.Request.Context(), &data)
	if err != nil {
		server.fail(c, constants.OperationOptimize, err)
		return
	}
	server.emitter.EmitOptimizerMetrics(c, result)
	c.IndentedJSON(http.StatusOK, result)
}

func (server *BaseServer) network(c *gin.Context) {
	server.emitter.EmitRequestMetrics(c, constants.OperationNetwork)
	var spec config.NetworkSpec
	if err := c.BindJSON(&spec); err != nil {
		server.emitter.EmitErrorMetrics(c, constants.OperationNetwork, "bad_request")
		return
	}
	report, err := core.RunNetwork(&spec)
	server.emitter.EmitNetworkMetrics(c, report)
	if err != nil {
		if report != nil {
			// partial results of the nodes evaluated before the failure
			status, errorType := classify(err)
			server.emitter.EmitErrorMetrics(c, constants.OperationNetwork, errorType)
			report.ErrorType = errorType
			c.IndentedJSON(status, report)
			return
		}
		server.fail(c, constants.OperationNetwork, err)
		return
	}
	c.IndentedJSON(http.StatusOK, report)
}

func health(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

func (server *BaseServer) fail(c *gin.Context, operation string, err error) {
	status, errorType := classify(err)
	server.emitter.EmitErrorMetrics(c, operation, errorType)
	logger.Log.Debugw("request failed", "operation", operation, "errorType", errorType, "error", err)
	c.IndentedJSON(status, gin.H{"message": err.Error(), "type": errorType})
}

// classify maps an error to an HTTP status and a metric label
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, analyzer.ErrMissingVariance):
		return http.StatusBadRequest, "missing_variance"
	case errors.Is(err, analyzer.ErrInvalidConfiguration):
		return http.StatusBadRequest, "invalid_configuration"
	case errors.Is(err, core.ErrCyclicTopology):
		return http.StatusBadRequest, "cyclic_topology"
	case errors.Is(err, analyzer.ErrUnstableSystem):
		return http.StatusUnprocessableEntity, "unstable_system"
	case errors.Is(err, analyzer.ErrTargetUnreachable):
		return http.StatusUnprocessableEntity, "target_unreachable"
	case errors.Is(err, solver.ErrInfeasibleProblem):
		return http.StatusUnprocessableEntity, "infeasible_problem"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
