package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/theopenlane/httpsling"

	"github.com/NoCodeNode/scamometer/internal/batch"
)

// report is the delivery payload for a finished batch
type report struct {
	// Timestamp is the delivery time in Unix milliseconds
	Timestamp int64 `json:"timestamp"`
	// Completed is the completion time in RFC 3339
	Completed string `json:"completed"`
	// Summary aggregates the item counts
	Summary summary `json:"summary"`
	// Results holds one entry per queued URL
	Results []resultEntry `json:"results"`
}

type summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

type resultEntry struct {
	URL        string            `json:"url"`
	Status     string            `json:"status"`
	Score      *float64          `json:"score"`
	Verdict    *string           `json:"verdict"`
	Reason     *string           `json:"reason"`
	Error      *string           `json:"error"`
	Screenshot *batch.Screenshot `json:"screenshot"`
}

// testPayload is the body sent by Test
type testPayload struct {
	Test      bool   `json:"test"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// buildReport flattens batch results into the delivery payload
func buildReport(results *batch.Results) report {
	now := time.Now()

	r := report{
		Timestamp: now.UnixMilli(),
		Completed: now.Format(time.RFC3339),
		Summary: summary{
			Total:     results.Total,
			Completed: results.Completed,
			Failed:    results.Failed,
			Pending:   results.Pending,
		},
		Results: make([]resultEntry, 0, len(results.Results)),
	}

	for _, item := range results.Results {
		entry := resultEntry{
			URL:        item.URL,
			Status:     string(item.Status),
			Screenshot: item.Screenshot,
		}

		if item.Result != nil {
			entry.Score = &item.Result.Verdict.Scamometer
			entry.Verdict = &item.Result.Verdict.Verdict
			entry.Reason = &item.Result.Verdict.Reason
		}

		if item.Error != "" {
			entry.Error = &item.Error
		}

		r.Results = append(r.Results, entry)
	}

	return r
}

// Notify delivers the batch report. Failures are logged and reported as a
// false return; delivery never blocks batch completion.
func (c *Client) Notify(ctx context.Context, results *batch.Results) bool {
	if _, err := c.send(ctx, buildReport(results)); err != nil {
		log.Warn().Err(err).Str("endpoint", c.endpointURL).Msg("webhook delivery failed")
		return false
	}

	log.Info().Str("endpoint", c.endpointURL).Int("items", results.Total).Msg("webhook notification sent")

	return true
}

// send posts body to the configured endpoint and returns the response status
func (c *Client) send(ctx context.Context, body any) (int, error) {
	opts := []httpsling.Option{
		httpsling.URL(c.endpointURL),
		httpsling.Post(),
		httpsling.JSONBody(body),
		httpsling.WithHTTPClient(c.httpClient),
	}

	if c.authToken != "" {
		opts = append(opts, httpsling.Header(httpsling.HeaderAuthorization, c.authToken))
	}

	requester := httpsling.MustNew(opts...)

	resp, err := requester.SendWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is non-critical

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return resp.StatusCode, nil
}

// TestResult reports the outcome of a configuration probe
type TestResult struct {
	// Success indicates the endpoint accepted the probe
	Success bool `json:"success"`
	// Status is the HTTP status returned, zero when the request never completed
	Status int `json:"status"`
	// Message is a human-readable outcome summary
	Message string `json:"message"`
}

// Test sends a small probe payload so users can verify their endpoint before
// enabling deliveries
func Test(ctx context.Context, endpointURL, auth string, opts ...Option) TestResult {
	if auth != "" {
		opts = append(opts, WithAuth(auth))
	}

	client, err := New(endpointURL, opts...)
	if err != nil {
		return TestResult{Message: err.Error()}
	}

	status, err := client.send(ctx, testPayload{
		Test:      true,
		Timestamp: time.Now().UnixMilli(),
		Message:   "scamometer webhook test",
	})
	if err != nil {
		return TestResult{Status: status, Message: err.Error()}
	}

	return TestResult{Success: true, Status: status, Message: "webhook test successful"}
}
