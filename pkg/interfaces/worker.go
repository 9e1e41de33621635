// Package interfaces defines common interfaces to avoid circular dependencies
// between internal/worker and its job implementations.
package interfaces

import "context"

// Job represents a unit of work that can be executed by a worker
type Job interface {
	// Execute performs the job and returns an error
	Execute(ctx context.Context) error
}

// Result represents the result of a job execution
type Result struct {
	Job   Job
	Error error
}
