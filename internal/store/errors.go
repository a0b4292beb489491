package store

import "errors"

var (
	// ErrOpenStore is returned when the state directory or document cannot be read
	ErrOpenStore = errors.New("failed to open state store")
	// ErrCorruptState is returned when persisted state fails to decode
	ErrCorruptState = errors.New("corrupt persisted state")
	// ErrWriteState is returned when state cannot be flushed to disk
	ErrWriteState = errors.New("failed to write state")
	// ErrInvalidURL is returned when a result key cannot be derived from a URL
	ErrInvalidURL = errors.New("invalid analysis URL")
)
