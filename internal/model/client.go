// Package model invokes the external scoring model with a schema-constrained
// request and defensively parses its verdict, distinguishing authentication
// failures from transient provider errors and malformed output.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theopenlane/httpsling"

	"github.com/NoCodeNode/scamometer/internal/doh"
	"github.com/NoCodeNode/scamometer/internal/rdap"
)

const (
	// defaultEndpoint is the base URL of the scoring model API
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is the model invoked when none is configured
	DefaultModel = "gemini-2.5-flash"
	// defaultCallTimeout bounds the whole scoring call
	defaultCallTimeout = 20 * time.Second

	// MaxContentChars is the scraped-text budget included in a payload
	MaxContentChars = 15000
	// truncationMarker is appended when scraped text exceeds the budget
	truncationMarker = "\n[…truncated…]"

	// maxErrorBodyBytes caps how much of a provider error body is read for diagnostics
	maxErrorBodyBytes = 2048
)

// systemInstruction primes the model as a phishing/scam analyst and pins the
// documented risk thresholds.
const systemInstruction = `You are an expert cybersecurity analyst specializing in phishing and scam detection.

Analyze the provided website data comprehensively:
1. Examine the URL structure for suspicious patterns (typosquatting, unusual TLDs, excessive subdomains)
2. Review DNS and RDAP data for domain age, registration info, and infrastructure anomalies
3. Analyze page content for common scam indicators: urgency tactics, too-good-to-be-true offers, poor grammar, suspicious forms, cryptocurrency schemes, fake login pages, impersonation attempts
4. Check for legitimate business indicators: proper SSL, established domain age, professional content, contact information, privacy policies
5. Consider the technical infrastructure quality and legitimacy

Return a risk score from 0-100 where:
- 0-30: Low risk (legitimate site with good indicators)
- 30-70: Medium risk (some concerns but not clearly malicious)
- 70-100: High risk (strong scam/phishing indicators)

Provide clear, actionable reasoning. List specific positive indicators and red flags found.`

// Payload is the analysis report sent to the scoring model
type Payload struct {
	// FullURL is the complete URL under analysis
	FullURL string `json:"fullUrl"`
	// PastedContent is the scraped page text, truncated to MaxContentChars
	PastedContent string `json:"pastedContent"`
	// TechnicalReport carries the gathered DNS and RDAP evidence
	TechnicalReport TechnicalReport `json:"technicalReport"`
}

// TechnicalReport aggregates resolution evidence for the model
type TechnicalReport struct {
	// Domain is the hostname the evidence was gathered for
	Domain string `json:"domain"`
	// DNS maps record types to their normalized lookup results
	DNS map[string]doh.Result `json:"dnsRawResults"`
	// RDAP is the registration lookup outcome
	RDAP rdap.Result `json:"rdapResolved"`
}

// Verdict is the validated scoring-model response
type Verdict struct {
	// Verdict is the model's one-line judgement
	Verdict string `json:"verdict"`
	// Scamometer is the 0-100 risk score
	Scamometer float64 `json:"scamometer"`
	// Reason is the model's reasoning
	Reason string `json:"reason"`
	// Positives lists indicators of legitimacy
	Positives []string `json:"positives"`
	// Negatives lists red flags
	Negatives []string `json:"negatives"`
}

// RiskLevel buckets a score per the documented verdict thresholds
type RiskLevel string

const (
	// RiskLow covers scores below 30
	RiskLow RiskLevel = "low"
	// RiskMedium covers scores from 30 up to but excluding 70
	RiskMedium RiskLevel = "medium"
	// RiskHigh covers scores of 70 and above
	RiskHigh RiskLevel = "high"
)

// RiskLevel classifies the verdict score: low is <30, medium is <70
func (v Verdict) RiskLevel() RiskLevel {
	switch {
	case v.Scamometer < 30:
		return RiskLow
	case v.Scamometer < 70:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Client calls the scoring model with a fixed output schema
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for model calls
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the overall call timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithEndpoint overrides the model API base URL
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// NewClient creates a scoring client for the given credentials
func NewClient(apiKey, modelName string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if modelName == "" {
		modelName = DefaultModel
	}

	c := &Client{
		endpoint:   defaultEndpoint,
		model:      modelName,
		apiKey:     apiKey,
		timeout:    defaultCallTimeout,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// request types for the generateContent wire format

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   *schema `json:"responseSchema"`
}

type schema struct {
	Type       string             `json:"type"`
	Properties map[string]*schema `json:"properties,omitempty"`
	Items      *schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// responseSchema declares the five required verdict fields the provider is
// expected to enforce
func responseSchema() *schema {
	stringArray := &schema{Type: "ARRAY", Items: &schema{Type: "STRING"}}

	return &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"verdict":    {Type: "STRING"},
			"scamometer": {Type: "NUMBER"},
			"reason":     {Type: "STRING"},
			"positives":  stringArray,
			"negatives":  stringArray,
		},
		Required: []string{"verdict", "scamometer", "reason", "positives", "negatives"},
	}
}

// Score sends the analysis payload to the model and returns its verdict.
// HTTP 401/403 surfaces as ErrAuthentication so callers can pause batch work
// instead of failing item after item.
func (c *Client) Score(ctx context.Context, payload Payload) (Verdict, error) {
	report, err := json.Marshal(payload)
	if err != nil {
		return Verdict{}, fmt.Errorf("encoding payload: %w", err)
	}

	body := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: "Analyze this report: " + string(report)}}},
		},
		SystemInstruction: &content{Role: "system", Parts: []part{{Text: systemInstruction}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema(),
		},
	}

	reqURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requester := httpsling.MustNew(
		httpsling.URL(reqURL),
		httpsling.Post(),
		httpsling.JSONBody(body),
		httpsling.WithHTTPClient(c.httpClient),
	)

	resp, err := requester.SendWithContext(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Verdict{}, fmt.Errorf("%w: %v", ErrRequestTimeout, err)
		}

		return Verdict{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is non-critical

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Verdict{}, fmt.Errorf("%w: status %d", ErrAuthentication, resp.StatusCode)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return Verdict{}, fmt.Errorf("%w: status %d %s", ErrProvider, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return Verdict{}, fmt.Errorf("%w: empty candidates", ErrMalformedResponse)
	}

	return ParseVerdict(genResp.Candidates[0].Content.Parts[0].Text)
}

// ParseVerdict decodes the model's textual output. It first attempts a strict
// parse, then recovers the trailing brace-delimited JSON object if the model
// wrapped it in prose, and finally reports ErrMalformedResponse.
func ParseVerdict(text string) (Verdict, error) {
	var v Verdict
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}

	trimmed := strings.TrimSpace(text)

	if i := strings.Index(trimmed, "{"); i >= 0 && strings.HasSuffix(trimmed, "}") {
		if err := json.Unmarshal([]byte(trimmed[i:]), &v); err == nil {
			return v, nil
		}
	}

	return Verdict{}, fmt.Errorf("%w: no JSON object recoverable", ErrMalformedResponse)
}

// Truncate trims text to the payload budget, appending the truncation marker
// when anything was cut
func Truncate(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	return string(runes[:maxLen]) + truncationMarker
}
