package batch

import (
	"time"

	"github.com/samber/lo"

	"github.com/NoCodeNode/scamometer/internal/analysis"
)

// ItemStatus is the processing state of a single queued URL. Items only move
// forward: pending → processing → completed or failed.
type ItemStatus string

const (
	// StatusPending marks an item not yet picked up
	StatusPending ItemStatus = "pending"
	// StatusProcessing marks the single item currently being analyzed
	StatusProcessing ItemStatus = "processing"
	// StatusCompleted marks an item with a persisted result
	StatusCompleted ItemStatus = "completed"
	// StatusFailed marks an item that terminally failed; failed items are
	// never retried within the same job
	StatusFailed ItemStatus = "failed"
)

// JobStatus is the state of the batch job as a whole
type JobStatus string

const (
	// JobPending marks a job created but not yet started
	JobPending JobStatus = "pending"
	// JobProcessing marks a job whose selection loop is running
	JobProcessing JobStatus = "processing"
	// JobPaused marks a job stopped by the user or an authentication failure
	JobPaused JobStatus = "paused"
	// JobCompleted marks a job with no pending items left
	JobCompleted JobStatus = "completed"
)

// Item is one URL's unit of work within a batch job
type Item struct {
	// URL is the target to analyze
	URL string `json:"url"`
	// Index is the item's original queue position; processing order is FIFO
	// by index and items are never reordered
	Index int `json:"index"`
	// Status is the item's processing state
	Status ItemStatus `json:"status"`
	// Result holds the analysis outcome once completed
	Result *analysis.Result `json:"result"`
	// Error holds the failure message once failed
	Error string `json:"error,omitempty"`
	// Screenshot holds the capture artifact, if one was produced
	Screenshot *Screenshot `json:"screenshot,omitempty"`
}

// Screenshot identifies a capture artifact; production mechanics live with
// the collaborator
type Screenshot struct {
	// Hash is the SHA-256 of the captured image
	Hash string `json:"hash"`
	// Filename is the artifact's download name
	Filename string `json:"filename"`
	// Timestamp is when the capture was taken
	Timestamp time.Time `json:"timestamp"`
}

// Job is the durable batch queue. Exactly one job exists at a time.
type Job struct {
	// ID uniquely identifies the job
	ID string `json:"id"`
	// Items holds the queued URLs in submission order
	Items []*Item `json:"items"`
	// Status is the job-level state
	Status JobStatus `json:"status"`
	// CreatedAt is when the job was submitted
	CreatedAt time.Time `json:"createdAt"`
	// CompletedAt is set once no pending items remain
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Snapshot is the lightweight progress record persisted on every transition
type Snapshot struct {
	// Status is the job state at the time of the snapshot
	Status string `json:"status"`
	// Current is the index being processed, or the terminal count when idle
	Current int `json:"current"`
	// Total is the number of items in the job
	Total int `json:"total"`
	// Percentage is Current over Total, rounded
	Percentage int `json:"percentage"`
	// Timestamp is when the snapshot was taken
	Timestamp time.Time `json:"timestamp"`
}

// Results aggregates a job's items for reporting and webhooks
type Results struct {
	// Total is the number of items in the job
	Total int `json:"total"`
	// Completed counts items with a result
	Completed int `json:"completed"`
	// Failed counts terminally failed items
	Failed int `json:"failed"`
	// Pending counts items not yet processed
	Pending int `json:"pending"`
	// Results holds every item in queue order
	Results []*Item `json:"results"`
}

// summarize builds the Results aggregate for a job. Items are copied so the
// aggregate can be read and serialized after the controller's lock is
// released, while the selection loop keeps mutating the live queue.
func summarize(job *Job) *Results {
	return &Results{
		Total:     len(job.Items),
		Completed: lo.CountBy(job.Items, func(i *Item) bool { return i.Status == StatusCompleted }),
		Failed:    lo.CountBy(job.Items, func(i *Item) bool { return i.Status == StatusFailed }),
		Pending:   lo.CountBy(job.Items, func(i *Item) bool { return i.Status == StatusPending }),
		Results: lo.Map(job.Items, func(i *Item, _ int) *Item {
			item := *i
			return &item
		}),
	}
}

// firstPending returns the lowest-index pending item, or nil
func firstPending(job *Job) *Item {
	for _, item := range job.Items {
		if item.Status == StatusPending {
			return item
		}
	}

	return nil
}

// terminalCount counts completed and failed items
func terminalCount(job *Job) int {
	return lo.CountBy(job.Items, func(i *Item) bool {
		return i.Status == StatusCompleted || i.Status == StatusFailed
	})
}
