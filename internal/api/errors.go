package api

import "errors"

var (
	// ErrInvalidRequestBody is returned when the request body cannot be decoded
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrURLRequired is returned when no URL is provided
	ErrURLRequired = errors.New("url required")
	// ErrURLsRequired is returned when a batch request carries no URLs
	ErrURLsRequired = errors.New("at least one url required")
	// ErrAnalysisNotFound is returned when no stored result exists for a URL
	ErrAnalysisNotFound = errors.New("no analysis stored for url")
	// ErrMultipleJSONObjects is returned when the request body contains more than one JSON object
	ErrMultipleJSONObjects = errors.New("request body must contain a single JSON object")
)
