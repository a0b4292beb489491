package batch

import "errors"

var (
	// ErrMissingDependency is returned when a required service is not wired
	ErrMissingDependency = errors.New("missing batch controller dependency")
	// ErrNoURLs is returned when a batch is started with an empty URL list
	ErrNoURLs = errors.New("batch requires at least one URL")
	// ErrBatchActive is returned when a batch is started while a non-terminal job exists
	ErrBatchActive = errors.New("batch processing already active")
	// ErrNoBatch is returned when no job exists to pause, resume or report on
	ErrNoBatch = errors.New("no batch job exists")
	// ErrNotPaused is returned when resuming a job that is not paused
	ErrNotPaused = errors.New("batch job is not paused")
	// ErrTabLoad is recorded when a background context fails to load in time
	ErrTabLoad = errors.New("tab load failed")
	// ErrPersistence is returned when queue state cannot be written
	ErrPersistence = errors.New("failed to persist batch state")
)
