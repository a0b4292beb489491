package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NoCodeNode/scamometer/internal/analysis"
	"github.com/NoCodeNode/scamometer/internal/model"
)

// memStore persists jobs through a JSON round trip, the way the real store does
type memStore struct {
	mu       sync.Mutex
	raw      []byte
	snapshot *Snapshot
}

func (s *memStore) Load() (*Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raw == nil {
		return nil, false, nil
	}

	var job Job
	if err := json.Unmarshal(s.raw, &job); err != nil {
		return nil, false, err
	}

	return &job, true, nil
}

func (s *memStore) Save(job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()

	return nil
}

func (s *memStore) SaveStatus(snapshot *Snapshot) error {
	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	return nil
}

// scriptedAnalyzer returns per-URL results or errors and records call order
type scriptedAnalyzer struct {
	mu    sync.Mutex
	errs  map[string]error
	calls []string
}

func (a *scriptedAnalyzer) Run(_ context.Context, _ int, url string) (*analysis.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls = append(a.calls, url)

	if err, ok := a.errs[url]; ok && err != nil {
		return nil, err
	}

	return &analysis.Result{URL: url, Verdict: model.Verdict{Scamometer: 12}}, nil
}

func (a *scriptedAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.calls)
}

func (a *scriptedAnalyzer) clearErr(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.errs, url)
}

// chanEvents exposes controller signals as channels for test synchronization
type chanEvents struct {
	auth chan struct{}
	done chan struct{}
}

func newChanEvents() *chanEvents {
	return &chanEvents{auth: make(chan struct{}, 1), done: make(chan struct{}, 1)}
}

func (e *chanEvents) AuthRequired()   { e.auth <- struct{}{} }
func (e *chanEvents) BatchCompleted() { e.done <- struct{}{} }

type recordingNotifier struct {
	mu      sync.Mutex
	results []*Results
}

func (n *recordingNotifier) Notify(_ context.Context, results *Results) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.results = append(n.results, results)

	return true
}

func waitSignal(t *testing.T, ch chan struct{}, what string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func newTestController(t *testing.T, store *memStore, analyzer *scriptedAnalyzer, events Events, notifier Notifier) *Controller {
	t.Helper()

	c, err := New(Config{
		Store:    store,
		Analyzer: analyzer,
		Tabs:     NewLocalTabs(),
		Notifier: notifier,
		Events:   events,
		Cooldown: time.Millisecond,
	})
	require.NoError(t, err)

	return c
}

func TestBatchRunsToCompletion(t *testing.T) {
	store := &memStore{}
	analyzer := &scriptedAnalyzer{}
	events := newChanEvents()
	notifier := &recordingNotifier{}

	c := newTestController(t, store, analyzer, events, notifier)

	require.NoError(t, c.Start(context.Background(), []string{"http://a.test", "http://b.test"}))

	waitSignal(t, events.done, "batch completion")

	results := c.Results()
	require.NotNil(t, results)
	require.Equal(t, 2, results.Total)
	require.Equal(t, 2, results.Completed)
	require.Equal(t, 0, results.Failed)
	require.Equal(t, 0, results.Pending)

	// strict FIFO by original index
	require.Equal(t, []string{"http://a.test", "http://b.test"}, analyzer.calls)

	status := c.Status()
	require.NotNil(t, status)
	require.Equal(t, string(JobCompleted), status.Status)
	require.Equal(t, 100, status.Percentage)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.results, 1)
	require.Equal(t, 2, notifier.results[0].Completed)
}

func TestStartWhileActiveFails(t *testing.T) {
	store := &memStore{}
	// persisted paused job blocks a new batch
	require.NoError(t, store.Save(&Job{
		ID:     "existing",
		Status: JobPaused,
		Items:  []*Item{{URL: "http://a.test", Status: StatusPending}},
	}))

	c := newTestController(t, store, &scriptedAnalyzer{}, nil, nil)

	err := c.Start(context.Background(), []string{"http://b.test"})
	require.ErrorIs(t, err, ErrBatchActive)
}

func TestStartRequiresURLs(t *testing.T) {
	c := newTestController(t, &memStore{}, &scriptedAnalyzer{}, nil, nil)
	require.ErrorIs(t, c.Start(context.Background(), nil), ErrNoURLs)
}

func TestAuthErrorPausesJob(t *testing.T) {
	store := &memStore{}
	analyzer := &scriptedAnalyzer{errs: map[string]error{"http://a.test": model.ErrAuthentication}}
	events := newChanEvents()

	c := newTestController(t, store, analyzer, events, nil)

	require.NoError(t, c.Start(context.Background(), []string{"http://a.test", "http://b.test"}))

	waitSignal(t, events.auth, "auth-required signal")

	// The failing item reverts to pending and nothing beyond index 0 starts.
	results := c.Results()
	require.Equal(t, StatusPending, results.Results[0].Status)
	require.Equal(t, StatusPending, results.Results[1].Status)
	require.Equal(t, []string{"http://a.test"}, analyzer.calls)

	status := c.Status()
	require.Equal(t, string(JobPaused), status.Status)

	// With a working key the same item is retried first.
	analyzer.clearErr("http://a.test")
	require.NoError(t, c.Resume(context.Background()))

	waitSignal(t, events.done, "batch completion after resume")

	results = c.Results()
	require.Equal(t, 2, results.Completed)
	require.Equal(t, "http://a.test", analyzer.calls[1])
}

func TestResumeDoesNotReprocessTerminalItems(t *testing.T) {
	store := &memStore{}
	require.NoError(t, store.Save(&Job{
		ID:     "half-done",
		Status: JobPaused,
		Items: []*Item{
			{URL: "http://done.test", Index: 0, Status: StatusCompleted, Result: &analysis.Result{URL: "http://done.test"}},
			{URL: "http://failed.test", Index: 1, Status: StatusFailed, Error: "boom"},
			{URL: "http://todo.test", Index: 2, Status: StatusPending},
		},
	}))

	analyzer := &scriptedAnalyzer{}
	events := newChanEvents()

	c := newTestController(t, store, analyzer, events, nil)

	before := c.Results()
	require.Equal(t, 1, before.Completed)
	require.Equal(t, 1, before.Failed)

	require.NoError(t, c.Resume(context.Background()))

	waitSignal(t, events.done, "batch completion")

	require.Equal(t, []string{"http://todo.test"}, analyzer.calls)

	after := c.Results()
	require.Equal(t, 2, after.Completed)
	require.Equal(t, 1, after.Failed)
	require.Equal(t, 0, after.Pending)
}

func TestPauseResumeIdempotence(t *testing.T) {
	store := &memStore{}
	require.NoError(t, store.Save(&Job{
		ID:     "idle",
		Status: JobPaused,
		Items: []*Item{
			{URL: "http://done.test", Index: 0, Status: StatusCompleted},
			{URL: "http://failed.test", Index: 1, Status: StatusFailed, Error: "x"},
		},
	}))

	events := newChanEvents()
	c := newTestController(t, store, &scriptedAnalyzer{}, events, nil)

	before := c.Results()

	require.NoError(t, c.Resume(context.Background()))
	waitSignal(t, events.done, "completion of already-terminal queue")
	require.NoError(t, c.Pause()) // pause on a completed job is a no-op

	after := c.Results()
	require.Equal(t, before.Completed, after.Completed)
	require.Equal(t, before.Failed, after.Failed)
}

func TestRecoveryRequeuesProcessingItem(t *testing.T) {
	store := &memStore{}
	require.NoError(t, store.Save(&Job{
		ID:     "interrupted",
		Status: JobProcessing,
		Items: []*Item{
			{URL: "http://done.test", Index: 0, Status: StatusCompleted},
			{URL: "http://stuck.test", Index: 1, Status: StatusProcessing},
			{URL: "http://todo.test", Index: 2, Status: StatusPending},
		},
	}))

	c := newTestController(t, store, &scriptedAnalyzer{}, nil, nil)

	results := c.Results()
	require.Equal(t, StatusPending, results.Results[1].Status, "interrupted item must be requeued")

	// the recovered job waits for an explicit resume
	require.Equal(t, 2, results.Pending)

	reloaded, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, JobPaused, reloaded.Status, "recovered job must persist as paused")
}

func TestGenericFailureIsTerminal(t *testing.T) {
	store := &memStore{}
	analyzer := &scriptedAnalyzer{errs: map[string]error{"http://a.test": errors.New("scrape exploded")}}
	events := newChanEvents()

	c := newTestController(t, store, analyzer, events, nil)

	require.NoError(t, c.Start(context.Background(), []string{"http://a.test", "http://b.test"}))

	waitSignal(t, events.done, "batch completion")

	results := c.Results()
	require.Equal(t, StatusFailed, results.Results[0].Status)
	require.Contains(t, results.Results[0].Error, "scrape exploded")
	require.Equal(t, StatusCompleted, results.Results[1].Status)
}

type failingTabs struct{}

func (failingTabs) Open(context.Context, string) (int, error) {
	return 0, errors.New("navigation timeout")
}

func (failingTabs) Close(int) error { return nil }

func TestTabLoadFailureFailsItem(t *testing.T) {
	store := &memStore{}
	analyzer := &scriptedAnalyzer{}
	events := newChanEvents()

	c, err := New(Config{
		Store:    store,
		Analyzer: analyzer,
		Tabs:     failingTabs{},
		Events:   events,
		Cooldown: time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background(), []string{"http://a.test"}))

	waitSignal(t, events.done, "batch completion")

	results := c.Results()
	require.Equal(t, StatusFailed, results.Results[0].Status)
	require.Contains(t, results.Results[0].Error, "tab load failed")
	require.Equal(t, 0, analyzer.callCount(), "analysis must not run without a loaded tab")
}

type fixedShots struct{}

func (fixedShots) Capture(_ context.Context, _ int, _ string) (*Screenshot, error) {
	return &Screenshot{Hash: "abc123", Filename: "scamometer-abc123.png", Timestamp: time.Now()}, nil
}

func TestScreenshotAttached(t *testing.T) {
	store := &memStore{}
	analyzer := &scriptedAnalyzer{}
	events := newChanEvents()

	c, err := New(Config{
		Store:    store,
		Analyzer: analyzer,
		Tabs:     NewLocalTabs(),
		Shots:    fixedShots{},
		Events:   events,
		Cooldown: time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background(), []string{"http://a.test"}))

	waitSignal(t, events.done, "batch completion")

	results := c.Results()
	require.NotNil(t, results.Results[0].Screenshot)
	require.Equal(t, "abc123", results.Results[0].Screenshot.Hash)
}

func TestNewValidatesDependencies(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrMissingDependency)
}

func TestResultsSnapshotIsolatedFromLiveQueue(t *testing.T) {
	store := &memStore{}
	require.NoError(t, store.Save(&Job{
		ID:     "snapshot",
		Status: JobPaused,
		Items:  []*Item{{URL: "http://a.test", Status: StatusPending}},
	}))

	events := newChanEvents()
	c := newTestController(t, store, &scriptedAnalyzer{}, events, nil)

	before := c.Results()
	require.Equal(t, StatusPending, before.Results[0].Status)

	require.NoError(t, c.Resume(context.Background()))
	waitSignal(t, events.done, "batch completion")

	// the earlier aggregate is a copy; later queue mutation must not reach it
	require.Equal(t, StatusPending, before.Results[0].Status)
	require.Nil(t, before.Results[0].Result)
	require.Equal(t, StatusCompleted, c.Results().Results[0].Status)
}

func TestResultsEncodesSafelyDuringProcessing(t *testing.T) {
	store := &memStore{}
	analyzer := &scriptedAnalyzer{}
	events := newChanEvents()

	c := newTestController(t, store, analyzer, events, nil)

	urls := make([]string, 50)
	for i := range urls {
		urls[i] = fmt.Sprintf("http://site-%d.test", i)
	}

	require.NoError(t, c.Start(context.Background(), urls))

	// poll and serialize the aggregate while the loop is mutating items,
	// the way the status endpoint does
	timeout := time.After(10 * time.Second)

	for {
		select {
		case <-events.done:
			results := c.Results()
			require.Equal(t, 50, results.Completed)

			return
		case <-timeout:
			t.Fatal("timed out waiting for batch completion")
		default:
			if results := c.Results(); results != nil {
				_, err := json.Marshal(results)
				require.NoError(t, err)
			}
		}
	}
}

type contextCaptureNotifier struct {
	mu    sync.Mutex
	ctx   context.Context
	alive bool
}

func (n *contextCaptureNotifier) Notify(ctx context.Context, _ *Results) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.ctx = ctx
	n.alive = ctx.Err() == nil

	return true
}

func TestRunContextReleasedAfterCompletion(t *testing.T) {
	store := &memStore{}
	events := newChanEvents()
	notifier := &contextCaptureNotifier{}

	c := newTestController(t, store, &scriptedAnalyzer{}, events, notifier)

	require.NoError(t, c.Start(context.Background(), []string{"http://a.test"}))
	waitSignal(t, events.done, "batch completion")

	notifier.mu.Lock()
	ctx, alive := notifier.ctx, notifier.alive
	notifier.mu.Unlock()

	require.True(t, alive, "notification must run before the run context is released")
	require.Eventually(t, func() bool { return ctx.Err() != nil }, time.Second, 5*time.Millisecond,
		"run context must be cancelled once the job finishes")
}
