package analysis

import "errors"

var (
	// ErrMissingDependency is returned when a required service is not wired
	ErrMissingDependency = errors.New("missing orchestrator dependency")
)
