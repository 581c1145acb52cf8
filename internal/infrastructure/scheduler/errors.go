package scheduler

import "errors"

// Submission and execution errors
var (
	ErrSchedulerNotRunning = errors.New("scheduler: not running")
	ErrJobQueueFull        = errors.New("scheduler: job queue full")
	// ErrPartialRun marks a depreciation run where some assets failed and
	// stayed unposted for the period
	ErrPartialRun = errors.New("scheduler: depreciation run left assets unposted")
)
