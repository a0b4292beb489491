package doh

import "errors"

var (
	// ErrUnknownRecordType is returned when a record type is not in the DNS type registry
	ErrUnknownRecordType = errors.New("unknown DNS record type")
	// ErrQueryFailed is returned when a provider request fails at the transport level
	ErrQueryFailed = errors.New("DNS query failed")
	// ErrUnexpectedStatus is returned when a provider answers with a non-success HTTP status
	ErrUnexpectedStatus = errors.New("unexpected DNS provider status")
)
