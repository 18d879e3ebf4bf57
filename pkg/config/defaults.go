package config

/**
 * Parameters
 */

// number of servers when not specified
const DefaultServers = 1

// queue notation of network nodes when not specified
const DefaultNodeNotation = "md1"

// link ratio when not specified
const DefaultLinkRatio = 1.0

// objective penalty added per violated hard constraint
var ConstraintPenalty = 1e6

// bounds on the number of devices of a tier
const DefaultMinDevices = 1
const DefaultMaxDevices = 1000

// scan step of the traffic split ratio
var DefaultShareStep = 0.05

// maximum number of model evaluations of one optimizer run
const DefaultMaxEvaluations = 200000

// convergence tolerance on the traffic split ratio
var DefaultTolerance = 1e-3

// default search strategy
const DefaultStrategy = "discrete"

// seconds per hour, for scripts expressing times in seconds and rates per hour
const SecondsPerHour = 3600.0
