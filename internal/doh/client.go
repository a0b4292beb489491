// Package doh resolves DNS records over HTTPS using JSON-answering providers,
// querying a primary endpoint with fallback to a secondary one and caching
// raw provider responses per hostname and record type.
package doh

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"
	"github.com/theopenlane/httpsling"

	"github.com/NoCodeNode/scamometer/internal/cache"
)

const (
	// defaultPrimaryURL is the primary DNS-over-HTTPS JSON endpoint
	defaultPrimaryURL = "https://dns.google/resolve"
	// defaultFallbackURL is the secondary endpoint tried when the primary fails
	defaultFallbackURL = "https://cloudflare-dns.com/dns-query"
	// defaultQueryTimeout bounds a single provider request
	defaultQueryTimeout = 12 * time.Second
	// defaultCacheTTL is how long raw provider responses are reused
	defaultCacheTTL = 24 * time.Hour

	// contentTypeDNSJSON is the accept header the Cloudflare endpoint requires
	contentTypeDNSJSON = "application/dns-json"

	// statusNoError is the DNS RCODE for a successful response
	statusNoError = 0
)

// RecordTypes lists the record types gathered for every analysis, in the
// order they appear in the technical report.
var RecordTypes = []string{"A", "AAAA", "CNAME", "MX", "NS", "TXT", "SOA", "SRV", "DNSKEY", "DS", "CAA"}

// Response is the JSON wire format shared by the supported providers
type Response struct {
	// Status is the DNS response code (RCODE); zero means NOERROR
	Status int `json:"Status"`
	// Answer holds the answer-section records, if any
	Answer []Record `json:"Answer,omitempty"`
	// Authority holds the authority-section records, if any
	Authority []Record `json:"Authority,omitempty"`
}

// Record is a single resource record from a provider response
type Record struct {
	// Name is the owner name of the record
	Name string `json:"name"`
	// Type is the numeric record type per the DNS registry
	Type uint16 `json:"type"`
	// TTL is the record time-to-live in seconds
	TTL uint32 `json:"TTL"`
	// Data is the textual record data
	Data string `json:"data"`
}

// Result is the normalized outcome of a lookup for one record type
type Result struct {
	// Type is the record type this result covers
	Type string `json:"type"`
	// OK reports whether the provider answered with RCODE NOERROR
	OK bool `json:"ok"`
	// Records holds the answer section, or the authority section when the
	// answer is empty
	Records []Record `json:"records"`
	// Error carries a diagnostic when OK is false
	Error string `json:"error,omitempty"`
}

// Resolver queries DNS-over-HTTPS providers with failover and caching
type Resolver struct {
	primaryURL  string
	fallbackURL string
	timeout     time.Duration
	httpClient  *http.Client
	cache       *cache.Cache[Response]
}

// Option configures the Resolver
type Option func(*Resolver)

// WithHTTPClient overrides the HTTP client used for provider queries
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithTimeout overrides the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithEndpoints overrides the primary and fallback provider endpoints
func WithEndpoints(primary, fallback string) Option {
	return func(r *Resolver) {
		if primary != "" {
			r.primaryURL = primary
		}

		if fallback != "" {
			r.fallbackURL = fallback
		}
	}
}

// WithCacheTTL overrides the TTL applied to cached provider responses
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.cache = cache.New[Response](ttl)
		}
	}
}

// NewResolver creates a resolver with the default providers and cache
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		primaryURL:  defaultPrimaryURL,
		fallbackURL: defaultFallbackURL,
		timeout:     defaultQueryTimeout,
		httpClient:  &http.Client{Timeout: defaultQueryTimeout},
		cache:       cache.New[Response](defaultCacheTTL),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Lookup returns the raw provider response for host and recordType, serving
// from cache within the TTL window. On a miss it queries the primary
// provider, falling back to the secondary on any failure.
func (r *Resolver) Lookup(ctx context.Context, host, recordType string) (Response, error) {
	if _, ok := dns.StringToType[recordType]; !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownRecordType, recordType)
	}

	key := host + ":" + recordType
	if resp, ok := r.cache.Get(key); ok {
		return resp, nil
	}

	resp, err := r.query(ctx, r.primaryURL, host, recordType, false)
	if err != nil {
		log.Debug().Err(err).Str("host", host).Str("type", recordType).Msg("primary DNS provider failed, trying fallback")

		resp, err = r.query(ctx, r.fallbackURL, host, recordType, true)
	}

	if err != nil {
		return Response{}, err
	}

	r.cache.Set(key, resp)

	return resp, nil
}

// LookupAll gathers every record type for host. Individual failures never
// abort the set; each is captured in its normalized Result.
func (r *Resolver) LookupAll(ctx context.Context, host string) map[string]Result {
	results := make(map[string]Result, len(RecordTypes))

	for _, recordType := range RecordTypes {
		resp, err := r.Lookup(ctx, host, recordType)
		results[recordType] = Normalize(recordType, resp, err)
	}

	return results
}

// query performs a single provider request, bounded by the resolver timeout
func (r *Resolver) query(ctx context.Context, base, host, recordType string, dnsJSON bool) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s?name=%s&type=%s", base, url.QueryEscape(host), recordType)

	reqOpts := []httpsling.Option{
		httpsling.URL(reqURL),
		httpsling.Method(http.MethodGet),
		httpsling.WithHTTPClient(r.httpClient),
	}

	if dnsJSON {
		reqOpts = append(reqOpts, httpsling.Accept(contentTypeDNSJSON))
	}

	requester := httpsling.MustNew(reqOpts...)

	var out Response

	resp, err := requester.ReceiveWithContext(ctx, &out)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is non-critical

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Response{}, fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return out, nil
}

// Normalize converts a raw lookup outcome into the shape recorded in the
// technical report. A transport failure or a non-NOERROR status becomes an
// OK:false result with a diagnostic rather than an error.
func Normalize(recordType string, resp Response, err error) Result {
	if err != nil {
		return Result{Type: recordType, OK: false, Records: []Record{}, Error: err.Error()}
	}

	if resp.Status != statusNoError {
		return Result{Type: recordType, OK: false, Records: []Record{}, Error: fmt.Sprintf("DNS status: %d", resp.Status)}
	}

	records := resp.Answer
	if len(records) == 0 {
		records = resp.Authority
	}

	if records == nil {
		records = []Record{}
	}

	return Result{Type: recordType, OK: true, Records: records}
}
