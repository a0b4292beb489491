// Package analysis runs the per-URL scoring pipeline: whitelist/blacklist
// short-circuits, content scrape, DNS and RDAP gathering, model invocation
// and persistence of the final result.
package analysis

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/NoCodeNode/scamometer/internal/model"
)

// Badge color thresholds. These are the signal thresholds for the browser
// badge and are intentionally separate from model.RiskLevel's verdict
// thresholds.
const (
	badgeHighScore   = 75
	badgeMediumScore = 40

	badgeColorHigh   = "#dc2626"
	badgeColorMedium = "#eab308"
	badgeColorLow    = "#16a34a"
)

// BadgeColor returns the badge color for a score: red at 75 and above,
// yellow at 40 and above, green below.
func BadgeColor(score float64) string {
	switch {
	case score >= badgeHighScore:
		return badgeColorHigh
	case score >= badgeMediumScore:
		return badgeColorMedium
	default:
		return badgeColorLow
	}
}

// Config wires the orchestrator's services and collaborators
type Config struct {
	// Results persists analysis outcomes; required
	Results ResultStore
	// Lists supplies the whitelist and blacklist; required
	Lists Lists
	// DNS gathers per-type DNS evidence; required
	DNS DNSResolver
	// RDAP resolves registration metadata; required
	RDAP RDAPResolver
	// Scorer invokes the external model; required
	Scorer Scorer
	// Credentials checks key presence before any network work; optional
	Credentials Credentials
	// Scraper fetches page text; optional
	Scraper Scraper
	// Overlay renders in-page warnings; optional
	Overlay Overlay
	// Observer receives progress milestones; optional
	Observer ProgressObserver
}

// Orchestrator sequences one URL's analysis from list check to persistence
type Orchestrator struct {
	results  ResultStore
	lists    Lists
	dns      DNSResolver
	rdap     RDAPResolver
	scorer   Scorer
	creds    Credentials
	scraper  Scraper
	overlay  Overlay
	observer ProgressObserver
}

// New creates an orchestrator, validating that all required services are set
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Results == nil:
		return nil, fmt.Errorf("%w: Results", ErrMissingDependency)
	case cfg.Lists == nil:
		return nil, fmt.Errorf("%w: Lists", ErrMissingDependency)
	case cfg.DNS == nil:
		return nil, fmt.Errorf("%w: DNS", ErrMissingDependency)
	case cfg.RDAP == nil:
		return nil, fmt.Errorf("%w: RDAP", ErrMissingDependency)
	case cfg.Scorer == nil:
		return nil, fmt.Errorf("%w: Scorer", ErrMissingDependency)
	}

	return &Orchestrator{
		results:  cfg.Results,
		lists:    cfg.Lists,
		dns:      cfg.DNS,
		rdap:     cfg.RDAP,
		scorer:   cfg.Scorer,
		creds:    cfg.Credentials,
		scraper:  cfg.Scraper,
		overlay:  cfg.Overlay,
		observer: cfg.Observer,
	}, nil
}

// Run analyzes a single URL. The whitelist is consulted first, then the
// blacklist, both before any network work: user overrides always win and
// they are cheap. A persisted result is the durable decision point; overlay
// and progress signals after it are side effects only.
func (o *Orchestrator) Run(ctx context.Context, tabID int, rawURL string) (*Result, error) {
	hostname := hostnameOf(rawURL)

	whitelist, err := o.lists.Whitelist()
	if err != nil {
		return nil, fmt.Errorf("loading whitelist: %w", err)
	}

	if containsHost(whitelist, hostname) {
		result := whitelistedResult(rawURL)
		if err := o.results.Put(rawURL, result); err != nil {
			return nil, fmt.Errorf("persisting whitelisted result: %w", err)
		}

		o.progress(tabID, 100, "Whitelisted")

		return result, nil
	}

	blacklist, err := o.lists.Blacklist()
	if err != nil {
		return nil, fmt.Errorf("loading blacklist: %w", err)
	}

	if containsHost(blacklist, hostname) {
		result := blacklistedResult(rawURL)
		if err := o.results.Put(rawURL, result); err != nil {
			return nil, fmt.Errorf("persisting blacklisted result: %w", err)
		}

		if o.overlay != nil {
			o.overlay.ShowOverlay(tabID, result.Verdict.Scamometer)
		}

		o.progress(tabID, 100, "Blacklisted")

		return result, nil
	}

	if o.creds != nil {
		key, err := o.creds.APIKey()
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}

		if key == "" {
			o.progress(tabID, 100, "API key missing")

			return nil, model.ErrMissingAPIKey
		}
	}

	o.progress(tabID, 5, "Scraping content…")

	contentText := ""

	if o.scraper != nil {
		text, err := o.scraper.Scrape(ctx, tabID)
		if err != nil {
			// A stale tab or absent collaborator must not abort analysis
			log.Debug().Err(err).Int("tab", tabID).Msg("scrape failed, continuing with empty content")
		} else {
			contentText = text
		}
	}

	o.progress(tabID, 20, "Fetching DNS/RDAP…")

	dnsResults := o.dns.LookupAll(ctx, hostname)
	rdapResult := o.rdap.Lookup(ctx, hostname)

	o.progress(tabID, 55, "Preparing report…")

	payload := model.Payload{
		FullURL:       rawURL,
		PastedContent: model.Truncate(contentText, model.MaxContentChars),
		TechnicalReport: model.TechnicalReport{
			Domain: hostname,
			DNS:    dnsResults,
			RDAP:   rdapResult,
		},
	}

	o.progress(tabID, 70, "Scoring…")

	verdict, err := o.scorer.Score(ctx, payload)
	if err != nil {
		// AuthenticationError propagates distinctly so the batch controller
		// can pause the job; every other failure fails this URL with no
		// partial result persisted.
		return nil, fmt.Errorf("scoring %s: %w", rawURL, err)
	}

	result := &Result{
		URL:     rawURL,
		When:    time.Now(),
		Verdict: verdict,
		Raw:     payload,
		DNS:     dnsResults,
		RDAP:    &rdapResult,
	}

	if err := o.results.Put(rawURL, result); err != nil {
		return nil, fmt.Errorf("persisting result: %w", err)
	}

	o.progress(tabID, 95, "Applying overlay…")

	if o.overlay != nil {
		o.overlay.ShowOverlay(tabID, verdict.Scamometer)
	}

	o.progress(tabID, 100, "Done")

	return result, nil
}

// progress emits a milestone to the observer, if any
func (o *Orchestrator) progress(tabID, percent int, label string) {
	if o.observer != nil {
		o.observer.Progress(tabID, percent, label)
	}
}

// hostnameOf extracts the hostname from a URL, empty when unparseable
func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return u.Hostname()
}

// containsHost checks list membership by exact hostname equality
func containsHost(list []string, host string) bool {
	return host != "" && lo.Contains(list, host)
}
