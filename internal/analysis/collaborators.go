package analysis

import (
	"context"

	"github.com/NoCodeNode/scamometer/internal/doh"
	"github.com/NoCodeNode/scamometer/internal/model"
	"github.com/NoCodeNode/scamometer/internal/rdap"
)

// The orchestrator reaches the browser side exclusively through the
// collaborator interfaces below. Scraper, Overlay and ProgressObserver are
// optional: a nil or failing implementation never affects control flow.

// Scraper requests the page text from the tab-content collaborator.
// Best-effort; any failure is treated as an empty page.
type Scraper interface {
	Scrape(ctx context.Context, tabID int) (string, error)
}

// Overlay renders in-page signals. Fire-and-forget; failures are ignored.
type Overlay interface {
	ShowOverlay(tabID int, score float64)
}

// ProgressObserver receives coarse percentage milestones. Advisory only.
type ProgressObserver interface {
	Progress(tabID, percent int, label string)
}

// ResultStore persists analysis results keyed by normalized URL
type ResultStore interface {
	Get(rawURL string) (*Result, bool, error)
	Put(rawURL string, result *Result) error
}

// Lists exposes the user-maintained domain lists consulted before any
// network work
type Lists interface {
	Whitelist() ([]string, error)
	Blacklist() ([]string, error)
}

// Credentials exposes the scoring-model configuration
type Credentials interface {
	APIKey() (string, error)
}

// Scorer invokes the external scoring model
type Scorer interface {
	Score(ctx context.Context, payload model.Payload) (model.Verdict, error)
}

// DNSResolver gathers the per-type DNS evidence for a hostname
type DNSResolver interface {
	LookupAll(ctx context.Context, host string) map[string]doh.Result
}

// RDAPResolver resolves registration metadata for a hostname or IP
type RDAPResolver interface {
	Lookup(ctx context.Context, host string) rdap.Result
}
