package rdap

import "errors"

var (
	// ErrQueryFailed is returned when an RDAP request fails at the transport level
	ErrQueryFailed = errors.New("RDAP query failed")
	// ErrLookupFailed is the diagnostic recorded when no candidate produces a usable response
	ErrLookupFailed = errors.New("RDAP lookup failed")
)
