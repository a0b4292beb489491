// Package webhook delivers batch completion reports to a user-configured
// HTTP endpoint.
package webhook

import (
	"net/http"
	"time"
)

// defaultRequestTimeout is the default timeout for webhook deliveries
const defaultRequestTimeout = 10 * time.Second

// Client posts batch reports to a configured endpoint
type Client struct {
	endpointURL string
	authToken   string
	httpClient  *http.Client
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for webhook deliveries
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAuth sets a bearer token sent with every delivery
func WithAuth(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// New creates a webhook client for the given endpoint
func New(endpointURL string, opts ...Option) (*Client, error) {
	if endpointURL == "" {
		return nil, ErrMissingWebhookURL
	}

	client := &Client{
		endpointURL: endpointURL,
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}
