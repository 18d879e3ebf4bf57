package analyzer

import "errors"

var (
	// arrival rate meets or exceeds total service capacity
	ErrUnstableSystem = errors.New("unstable system")
	// non-positive rate or count, unrecognized distribution or notation
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// general service time distribution without variance
	ErrMissingVariance = errors.New("missing service time variance")
	// waiting time target cannot be met within the searched region
	ErrTargetUnreachable = errors.New("target unreachable")
)
