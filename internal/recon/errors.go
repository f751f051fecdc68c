package recon

import "errors"

// Run-level failures. Each aborts a run before any state is written;
// per-candidate failures are logged, tallied, and never surfaced as errors.
var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrProjectNotActive   = errors.New("project is not active")
	ErrRunInProgress      = errors.New("reconciliation already running for project")
	ErrAdapterUnavailable = errors.New("content provider unavailable")
)
