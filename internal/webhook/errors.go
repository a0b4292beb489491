package webhook

import "errors"

var (
	// ErrMissingWebhookURL is returned when no endpoint URL is configured
	ErrMissingWebhookURL = errors.New("webhook URL is required")
	// ErrNotificationFailed is returned when a webhook request fails
	ErrNotificationFailed = errors.New("webhook notification failed")
	// ErrUnexpectedStatus is returned when the endpoint returns a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected webhook response status")
)
