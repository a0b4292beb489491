// Package rdap resolves registration metadata for a hostname or IP literal
// against an RDAP aggregator, walking subdomain candidates from the
// registrable domain up to the full hostname and caching the final outcome.
package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/theopenlane/httpsling"

	"github.com/NoCodeNode/scamometer/internal/cache"
)

const (
	// defaultBaseURL is the RDAP aggregator serving both domain and IP queries
	defaultBaseURL = "https://rdap.org"
	// defaultQueryTimeout bounds a single RDAP request
	defaultQueryTimeout = 12 * time.Second
	// defaultCacheTTL is how long lookup outcomes are reused
	defaultCacheTTL = 24 * time.Hour

	// EndpointIP marks a result resolved via the IP endpoint
	EndpointIP = "ip"
	// EndpointDomain marks a result resolved via the domain endpoint
	EndpointDomain = "domain"
)

var (
	ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	ipv6Pattern = regexp.MustCompile(`^[0-9a-fA-F:]+$`)
)

// Result captures the outcome of an RDAP lookup. A failed lookup is encoded
// as OK:false rather than an error; it degrades into the technical report.
type Result struct {
	// OK reports whether any candidate produced a plausible registration record
	OK bool `json:"ok"`
	// Data is the raw RDAP payload of the accepted response
	Data json.RawMessage `json:"data"`
	// Target is the candidate that matched, or the original host on failure
	Target string `json:"target"`
	// Endpoint identifies which RDAP endpoint answered ("ip" or "domain")
	Endpoint string `json:"endpoint,omitempty"`
	// Error carries a diagnostic when OK is false
	Error string `json:"error,omitempty"`
}

// probe is the subset of an RDAP payload checked for structural plausibility
type probe struct {
	LDHName string            `json:"ldhName"`
	Handle  string            `json:"handle"`
	Events  []json.RawMessage `json:"events"`
}

// Client queries an RDAP aggregator for registration data
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cache      *cache.Cache[Result]
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for RDAP queries
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithBaseURL overrides the RDAP aggregator base URL
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithCacheTTL overrides the TTL applied to cached lookup outcomes
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cache = cache.New[Result](ttl)
		}
	}
}

// NewClient creates an RDAP client against the default aggregator
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		timeout:    defaultQueryTimeout,
		httpClient: &http.Client{Timeout: defaultQueryTimeout},
		cache:      cache.New[Result](defaultCacheTTL),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsIPLiteral reports whether host is an IPv4 dotted-quad or a bare IPv6 form
func IsIPLiteral(host string) bool {
	return ipv4Pattern.MatchString(host) || (strings.Contains(host, ":") && ipv6Pattern.MatchString(host))
}

// Candidates generates the ordered domain candidates for host, starting from
// the two right-most labels and extending one left-hand label at a time up to
// the full hostname. For "a.b.example.com" it yields
// ["example.com", "b.example.com", "a.b.example.com"].
func Candidates(host string) []string {
	if host == "" {
		return nil
	}

	labels := []string{}

	for _, l := range strings.Split(host, ".") {
		if l != "" {
			labels = append(labels, l)
		}
	}

	if len(labels) <= 1 {
		return []string{host}
	}

	cands := []string{}

	start := len(labels) - 2
	if start < 0 {
		start = 0
	}

	for i := start; i >= 0; i-- {
		cand := strings.Join(labels[i:], ".")
		if !lo.Contains(cands, cand) {
			cands = append(cands, cand)
		}
	}

	return cands
}

// Lookup resolves registration data for host. The final outcome, success or
// failure, is cached under the original host key.
func (c *Client) Lookup(ctx context.Context, host string) Result {
	if cached, ok := c.cache.Get(host); ok {
		return cached
	}

	var result Result

	if IsIPLiteral(host) {
		result = c.lookupIP(ctx, host)
	} else {
		result = c.lookupDomain(ctx, host)
	}

	c.cache.Set(host, result)

	return result
}

// lookupIP queries the IP endpoint directly; there are no fallback candidates
func (c *Client) lookupIP(ctx context.Context, host string) Result {
	data, status, err := c.fetch(ctx, "/ip/"+url.PathEscape(host))
	if err != nil {
		return Result{OK: false, Target: host, Error: err.Error()}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return Result{OK: false, Target: host, Error: fmt.Sprintf("RDAP IP status %d", status)}
	}

	return Result{OK: true, Data: data, Target: host, Endpoint: EndpointIP}
}

// lookupDomain walks the candidate list and accepts the first response that
// is both HTTP-success and structurally plausible
func (c *Client) lookupDomain(ctx context.Context, host string) Result {
	var lastErr string

	for _, cand := range Candidates(host) {
		data, status, err := c.fetch(ctx, "/domain/"+url.PathEscape(cand))
		if err != nil {
			lastErr = err.Error()
			continue
		}

		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			lastErr = fmt.Sprintf("RDAP status %d for %s", status, cand)
			continue
		}

		if !plausible(data) {
			lastErr = fmt.Sprintf("RDAP malformed for %s", cand)
			continue
		}

		return Result{OK: true, Data: data, Target: cand, Endpoint: EndpointDomain}
	}

	if lastErr == "" {
		lastErr = ErrLookupFailed.Error()
	}

	log.Debug().Str("host", host).Str("error", lastErr).Msg("RDAP lookup exhausted all candidates")

	return Result{OK: false, Target: host, Error: lastErr}
}

// fetch performs a single RDAP request and returns the raw payload and status
func (c *Client) fetch(ctx context.Context, path string) (json.RawMessage, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requester := httpsling.MustNew(
		httpsling.URL(c.baseURL+path),
		httpsling.Method(http.MethodGet),
		httpsling.WithHTTPClient(c.httpClient),
	)

	var data json.RawMessage

	resp, err := requester.ReceiveWithContext(ctx, &data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is non-critical

	return data, resp.StatusCode, nil
}

// plausible reports whether an RDAP payload looks like a registration record:
// it must carry an ldhName, a handle, or a non-empty events list
func plausible(data json.RawMessage) bool {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return false
	}

	return p.LDHName != "" || p.Handle != "" || len(p.Events) > 0
}
