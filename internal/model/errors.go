package model

import "errors"

var (
	// ErrMissingAPIKey is returned when no API key is configured
	ErrMissingAPIKey = errors.New("scoring model API key is missing")
	// ErrRequestFailed is returned when the model call fails at the transport level
	ErrRequestFailed = errors.New("scoring model request failed")
	// ErrRequestTimeout is returned when the overall call deadline is exceeded
	ErrRequestTimeout = errors.New("scoring model request timed out")
	// ErrAuthentication is returned on HTTP 401/403; it pauses any active batch
	// so the user can supply a new key instead of failing item after item
	ErrAuthentication = errors.New("scoring model authentication failed")
	// ErrProvider is returned on any other non-success provider status
	ErrProvider = errors.New("scoring model provider error")
	// ErrMalformedResponse is returned when no verdict JSON is recoverable
	ErrMalformedResponse = errors.New("malformed scoring model response")
)
