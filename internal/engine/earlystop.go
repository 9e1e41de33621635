package engine

import "sync/atomic"

// EarlyStop is a monotonic false->true signal shared by the Lister, every
// ScanWorker and the ResultAggregator. Once raised it never resets. Run
// creates one per scan and passes it explicitly to every stage rather than
// using a package-level global, so the engine stays embeddable and safe to
// run concurrently in tests.
type EarlyStop struct {
	flag atomic.Bool
}

// NewEarlyStop returns an unset flag.
func NewEarlyStop() *EarlyStop {
	return &EarlyStop{}
}

// Set raises the flag. Safe to call more than once or concurrently.
func (e *EarlyStop) Set() {
	e.flag.Store(true)
}

// IsSet reports whether the flag has been raised.
func (e *EarlyStop) IsSet() bool {
	return e.flag.Load()
}
