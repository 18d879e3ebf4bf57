package rest

/**
 * Environment variables
 */

// REST server env names
const RestHostEnvName = "QSIZER_HOST"
const RestPortEnvName = "QSIZER_PORT"

/**
 * Parameters
 */

const DefaultRestHost = "localhost"
const DefaultRestPort = "8080"

// header carrying the request id
const RequestIDHeader = "X-Request-ID"

// API verbs
const (
	EvaluateVerb = "evaluate"
	SweepVerb    = "sweep"
	OptimizeVerb = "optimize"
	NetworkVerb  = "network"
	MetricsVerb  = "metrics"
	HealthVerb   = "healthz"
)
