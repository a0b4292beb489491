package analysis

import (
	"time"

	"github.com/NoCodeNode/scamometer/internal/doh"
	"github.com/NoCodeNode/scamometer/internal/model"
	"github.com/NoCodeNode/scamometer/internal/rdap"
)

// Result is the durable outcome of one URL's analysis, keyed by the
// normalized origin+path of the URL and overwritten on re-analysis.
type Result struct {
	// URL is the analyzed URL as submitted
	URL string `json:"url"`
	// When is the time the analysis completed
	When time.Time `json:"when"`
	// Verdict is the validated scoring-model response
	Verdict model.Verdict `json:"ai"`
	// Raw is the exact payload sent to the model
	Raw model.Payload `json:"raw"`
	// DNS holds the per-type resolution results included in the report
	DNS map[string]doh.Result `json:"dnsResults,omitempty"`
	// RDAP holds the registration lookup outcome
	RDAP *rdap.Result `json:"rdap,omitempty"`
	// Whitelisted marks a short-circuited zero-risk result
	Whitelisted bool `json:"whitelisted,omitempty"`
	// Blacklisted marks a short-circuited max-risk result
	Blacklisted bool `json:"blacklisted,omitempty"`
}

// whitelistedResult builds the canned zero-risk result for a trusted domain
func whitelistedResult(rawURL string) *Result {
	return &Result{
		URL:  rawURL,
		When: time.Now(),
		Verdict: model.Verdict{
			Verdict:    "✓ Whitelisted",
			Scamometer: 0,
			Reason:     "This domain is in your whitelist and is trusted.",
			Positives:  []string{"User whitelisted domain"},
			Negatives:  []string{},
		},
		Raw:         model.Payload{FullURL: rawURL},
		Whitelisted: true,
	}
}

// blacklistedResult builds the canned max-risk result for a blocked domain
func blacklistedResult(rawURL string) *Result {
	return &Result{
		URL:  rawURL,
		When: time.Now(),
		Verdict: model.Verdict{
			Verdict:    "⚠️ Blacklisted",
			Scamometer: 100,
			Reason:     "This domain is in your blacklist and should be avoided.",
			Positives:  []string{},
			Negatives:  []string{"User blacklisted domain"},
		},
		Raw:         model.Payload{FullURL: rawURL},
		Blacklisted: true,
	}
}
