// Package batch drives the analysis pipeline across a durable queue of URLs,
// one item at a time in submission order, with pause/resume semantics and
// crash recovery backed by persistent state.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/NoCodeNode/scamometer/internal/model"
)

const (
	// defaultCooldown is the pause between items, giving the model API and
	// the previous tab context room to release
	defaultCooldown = 1 * time.Second
	// defaultLoadTimeout bounds how long a tab may take to finish loading
	defaultLoadTimeout = 30 * time.Second
)

// Config wires the controller's services and collaborators
type Config struct {
	// Store persists the queue; required
	Store JobStore
	// Analyzer runs each item's analysis; required
	Analyzer Analyzer
	// Tabs manages background browser contexts; required
	Tabs TabDriver
	// Shots captures per-item artifacts; optional
	Shots Screenshotter
	// Notifier delivers completion webhooks; optional
	Notifier Notifier
	// Events receives controller signals; optional
	Events Events
	// Cooldown overrides the between-item delay
	Cooldown time.Duration
	// LoadTimeout overrides the tab-load bound
	LoadTimeout time.Duration
}

// Controller owns the batch state machine. It is the single writer of the
// persisted queue; there are no ambient globals.
type Controller struct {
	mu sync.Mutex

	store    JobStore
	analyzer Analyzer
	tabs     TabDriver
	shots    Screenshotter
	notifier Notifier
	events   Events

	cooldown    time.Duration
	loadTimeout time.Duration

	job    *Job
	status *Snapshot
	active bool
	cancel context.CancelFunc

	currentTab int
	tabOpen    bool
}

// New creates a controller, recovering any persisted job. An item found in
// processing status was interrupted mid-flight and is requeued as pending;
// the job itself lands in paused so the user decides when to resume.
func New(cfg Config) (*Controller, error) {
	switch {
	case cfg.Store == nil:
		return nil, fmt.Errorf("%w: Store", ErrMissingDependency)
	case cfg.Analyzer == nil:
		return nil, fmt.Errorf("%w: Analyzer", ErrMissingDependency)
	case cfg.Tabs == nil:
		return nil, fmt.Errorf("%w: Tabs", ErrMissingDependency)
	}

	c := &Controller{
		store:       cfg.Store,
		analyzer:    cfg.Analyzer,
		tabs:        cfg.Tabs,
		shots:       cfg.Shots,
		notifier:    cfg.Notifier,
		events:      cfg.Events,
		cooldown:    cfg.Cooldown,
		loadTimeout: cfg.LoadTimeout,
	}

	if c.cooldown <= 0 {
		c.cooldown = defaultCooldown
	}

	if c.loadTimeout <= 0 {
		c.loadTimeout = defaultLoadTimeout
	}

	job, ok, err := cfg.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading persisted batch: %w", err)
	}

	if ok {
		c.job = job
		c.recoverJob()
	}

	return c, nil
}

// recoverJob repairs a job loaded after an abrupt restart
func (c *Controller) recoverJob() {
	changed := false

	for _, item := range c.job.Items {
		if item.Status == StatusProcessing {
			item.Status = StatusPending
			changed = true
		}
	}

	if c.job.Status == JobProcessing {
		c.job.Status = JobPaused
		changed = true
	}

	if changed {
		if err := c.persistLocked(JobPaused, terminalCount(c.job)); err != nil {
			log.Error().Err(err).Str("job", c.job.ID).Msg("failed to persist recovered batch state")
		}

		log.Info().Str("job", c.job.ID).Msg("recovered interrupted batch; paused awaiting resume")
	}
}

// Start creates a new job from urls and begins processing. It fails if a
// non-terminal job already exists.
func (c *Controller) Start(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return ErrNoURLs
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active || (c.job != nil && c.job.Status != JobCompleted) {
		return ErrBatchActive
	}

	items := make([]*Item, len(urls))
	for i, u := range urls {
		items[i] = &Item{URL: u, Index: i, Status: StatusPending}
	}

	c.job = &Job{
		ID:        uuid.NewString(),
		Items:     items,
		Status:    JobProcessing,
		CreatedAt: time.Now(),
	}

	if err := c.persistLocked("initialized", 0); err != nil {
		c.job = nil
		return err
	}

	c.activateLocked(ctx)

	log.Info().Str("job", c.job.ID).Int("urls", len(urls)).Msg("batch processing started")

	return nil
}

// Pause stops the selection loop, cancels any in-flight analysis and closes
// the open background context. Item statuses are untouched; an interrupted
// item reverts to pending so resume retries it.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.job == nil {
		return ErrNoBatch
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.active = false
	c.closeTabLocked()

	if c.job.Status == JobProcessing {
		c.job.Status = JobPaused

		if err := c.persistLocked(JobPaused, terminalCount(c.job)); err != nil {
			return err
		}

		log.Info().Str("job", c.job.ID).Msg("batch processing paused")
	}

	return nil
}

// Resume re-enters the selection loop from the persisted state. Items
// already completed or failed are never reprocessed.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.job == nil {
		return ErrNoBatch
	}

	if c.active {
		return nil
	}

	if c.job.Status != JobPaused {
		return ErrNotPaused
	}

	c.job.Status = JobProcessing

	if err := c.persistLocked(JobProcessing, terminalCount(c.job)); err != nil {
		return err
	}

	c.activateLocked(ctx)

	log.Info().Str("job", c.job.ID).Msg("batch processing resumed")

	return nil
}

// Status returns the latest progress snapshot, or nil when no batch exists
func (c *Controller) Status() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == nil {
		return nil
	}

	snapshot := *c.status

	return &snapshot
}

// Results aggregates the current job's items, or nil when no batch exists
func (c *Controller) Results() *Results {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.job == nil {
		return nil
	}

	return summarize(c.job)
}

// activateLocked marks the controller active and launches the selection loop
func (c *Controller) activateLocked(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.active = true

	go c.loop(runCtx)
}

// loop processes pending items strictly one at a time, in queue order
func (c *Controller) loop(ctx context.Context) {
	for {
		c.mu.Lock()

		if !c.active || c.job == nil {
			c.mu.Unlock()
			return
		}

		item := firstPending(c.job)
		if item == nil {
			c.completeLocked()
			cancel := c.cancel
			c.cancel = nil
			c.mu.Unlock()

			// The webhook still runs on the live run context; release it
			// only once delivery has been attempted.
			c.notifyCompletion(ctx)

			if cancel != nil {
				cancel()
			}

			return
		}

		item.Status = StatusProcessing

		if err := c.persistLocked(JobProcessing, item.Index); err != nil {
			log.Error().Err(err).Msg("failed to persist batch progress; stopping")
			c.active = false
			c.mu.Unlock()

			return
		}

		c.mu.Unlock()

		c.process(ctx, item)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cooldown):
		}
	}
}

// process drives one item through tab open, analysis and screenshot capture
func (c *Controller) process(ctx context.Context, item *Item) {
	tabCtx, cancelTab := context.WithTimeout(ctx, c.loadTimeout)
	tabID, err := c.tabs.Open(tabCtx, item.URL)
	cancelTab()

	if err != nil {
		c.failItem(item, fmt.Errorf("%w: %v", ErrTabLoad, err))
		return
	}

	c.mu.Lock()
	c.currentTab = tabID
	c.tabOpen = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.closeTabLocked()
		c.mu.Unlock()
	}()

	result, err := c.analyzer.Run(ctx, tabID, item.URL)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAuthentication):
			c.pauseForAuth(item)
		case ctx.Err() != nil:
			// Interrupted by Pause; leave the item retryable
			c.revertItem(item)
		default:
			c.failItem(item, err)
		}

		return
	}

	var shot *Screenshot

	if c.shots != nil {
		shot, err = c.shots.Capture(ctx, tabID, item.URL)
		if err != nil {
			log.Debug().Err(err).Str("url", item.URL).Msg("screenshot capture failed")
			shot = nil
		}
	}

	c.mu.Lock()
	item.Status = StatusCompleted
	item.Result = result
	item.Screenshot = shot

	if err := c.persistLocked(JobProcessing, item.Index); err != nil {
		log.Error().Err(err).Str("url", item.URL).Msg("failed to persist item completion")
	}

	c.mu.Unlock()
}

// failItem marks an item terminally failed and records the error
func (c *Controller) failItem(item *Item, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item.Status = StatusFailed
	item.Error = cause.Error()

	log.Warn().Str("url", item.URL).Err(cause).Msg("batch item failed")

	if err := c.persistLocked(JobProcessing, item.Index); err != nil {
		log.Error().Err(err).Str("url", item.URL).Msg("failed to persist item failure")
	}
}

// revertItem returns an interrupted item to the queue
func (c *Controller) revertItem(item *Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item.Status = StatusPending
	item.Error = ""

	if err := c.persistLocked(c.job.Status, terminalCount(c.job)); err != nil {
		log.Error().Err(err).Str("url", item.URL).Msg("failed to persist item revert")
	}
}

// pauseForAuth pauses the whole job on an authentication failure. The item
// reverts to pending so it is retried first once a new key is supplied and
// the job is resumed.
func (c *Controller) pauseForAuth(item *Item) {
	c.mu.Lock()

	item.Status = StatusPending
	item.Error = ""
	c.job.Status = JobPaused
	c.active = false

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if err := c.persistLocked(JobPaused, terminalCount(c.job)); err != nil {
		log.Error().Err(err).Msg("failed to persist auth pause")
	}

	c.mu.Unlock()

	log.Warn().Str("url", item.URL).Msg("scoring authentication failed; batch paused awaiting new key")

	if c.events != nil {
		c.events.AuthRequired()
	}
}

// completeLocked finalizes a job with no pending items left
func (c *Controller) completeLocked() {
	now := time.Now()
	c.job.Status = JobCompleted
	c.job.CompletedAt = &now
	c.active = false

	if err := c.persistLocked(JobCompleted, len(c.job.Items)); err != nil {
		log.Error().Err(err).Str("job", c.job.ID).Msg("failed to persist batch completion")
	}

	log.Info().Str("job", c.job.ID).Int("items", len(c.job.Items)).Msg("batch processing completed")
}

// notifyCompletion fires the webhook and completion event outside the lock.
// Webhook failures are logged and never revert completion.
func (c *Controller) notifyCompletion(ctx context.Context) {
	c.mu.Lock()
	results := summarize(c.job)
	jobID := c.job.ID
	c.mu.Unlock()

	if c.notifier != nil {
		if ok := c.notifier.Notify(ctx, results); !ok {
			log.Warn().Str("job", jobID).Msg("webhook notification failed")
		}
	}

	if c.events != nil {
		c.events.BatchCompleted()
	}
}

// persistLocked writes the job and a fresh status snapshot. Callers hold mu.
func (c *Controller) persistLocked(status JobStatus, current int) error {
	if err := c.store.Save(c.job); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	total := len(c.job.Items)
	percentage := 0

	if total > 0 {
		percentage = current * 100 / total
	}

	c.status = &Snapshot{
		Status:     string(status),
		Current:    current,
		Total:      total,
		Percentage: percentage,
		Timestamp:  time.Now(),
	}

	if err := c.store.SaveStatus(c.status); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return nil
}

// closeTabLocked closes the open background context, if any. Callers hold mu.
func (c *Controller) closeTabLocked() {
	if !c.tabOpen {
		return
	}

	if err := c.tabs.Close(c.currentTab); err != nil {
		log.Debug().Err(err).Int("tab", c.currentTab).Msg("failed to close background tab")
	}

	c.tabOpen = false
	c.currentTab = 0
}
