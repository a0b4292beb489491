package batch

import (
	"context"
	"sync"

	"github.com/NoCodeNode/scamometer/internal/analysis"
)

// Analyzer runs the per-URL analysis pipeline
type Analyzer interface {
	Run(ctx context.Context, tabID int, url string) (*analysis.Result, error)
}

// TabDriver manages the background browser context an item is analyzed in.
// Open returns once the page has loaded; implementations honor the context
// deadline, and a deadline hit fails the item.
type TabDriver interface {
	Open(ctx context.Context, url string) (int, error)
	Close(tabID int) error
}

// Screenshotter captures an artifact for a processed item. Optional and
// best-effort; capture mechanics are the collaborator's concern.
type Screenshotter interface {
	Capture(ctx context.Context, tabID int, url string) (*Screenshot, error)
}

// Notifier delivers the completed result set to an external endpoint.
// Best-effort; a false return is logged and never reverts completion.
type Notifier interface {
	Notify(ctx context.Context, results *Results) bool
}

// Events receives controller signals. Optional; used by presentation layers.
type Events interface {
	// AuthRequired fires when a scoring call hit an authentication failure
	// and the job paused itself awaiting a new key
	AuthRequired()
	// BatchCompleted fires once after the last item reaches a terminal state
	BatchCompleted()
}

// JobStore persists the queue and its progress snapshot
type JobStore interface {
	Load() (*Job, bool, error)
	Save(job *Job) error
	SaveStatus(snapshot *Snapshot) error
}

// LocalTabs is a tab driver for deployments without a browser collaborator.
// It hands out synthetic tab IDs and reports immediate load completion, so
// analyses run against the URL alone.
type LocalTabs struct {
	mu   sync.Mutex
	next int
}

// NewLocalTabs creates a synthetic tab driver
func NewLocalTabs() *LocalTabs {
	return &LocalTabs{}
}

// Open allocates the next synthetic tab ID
func (l *LocalTabs) Open(ctx context.Context, _ string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++

	return l.next, nil
}

// Close is a no-op for synthetic tabs
func (l *LocalTabs) Close(int) error {
	return nil
}
