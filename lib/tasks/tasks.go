// Package tasks implements the asynchronous scrape-task lifecycle:
// submit, poll status, paginate results, export.
//
// A ScrapeFunc is the pluggable unit of work, everything else is
// site-agnostic. Task state lives in process memory only and is lost
// on restart.
package tasks

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further status transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is one structured result item produced by a ScrapeFunc. Its
// shape is defined entirely by the producing scraper, the task runner
// treats it as an opaque payload.
type Record = map[string]any

type Task struct {
	ID      string `json:"task_id"`
	Scraper string `json:"scraper"`
	// Query is a human-readable summary of the submitted parameters,
	// used to derive export filenames.
	Query string `json:"query,omitempty"`

	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
	// Counters holds scraper-specific progress counters (pages
	// processed, items found, ...). Advisory only, never authoritative
	// for pagination.
	Counters map[string]int64 `json:"counters,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error is set only when Status is failed.
	Error string `json:"error,omitempty"`
	// Results is set only when Status is completed. Order is insertion
	// order as produced by the ScrapeFunc.
	Results []Record `json:"-"`
}

// StatusSnapshot is a Task without its result payload, suitable for
// polling responses.
type StatusSnapshot struct {
	ID      string `json:"task_id"`
	Scraper string `json:"scraper"`
	Query   string `json:"query,omitempty"`

	Status   Status           `json:"status"`
	Progress int              `json:"progress"`
	Message  string           `json:"message,omitempty"`
	Counters map[string]int64 `json:"counters,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error        string `json:"error,omitempty"`
	TotalResults int    `json:"total_results"`
}

func (t Task) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		ID:           t.ID,
		Scraper:      t.Scraper,
		Query:        t.Query,
		Status:       t.Status,
		Progress:     t.Progress,
		Message:      t.Message,
		Counters:     t.Counters,
		CreatedAt:    t.CreatedAt,
		StartedAt:    t.StartedAt,
		CompletedAt:  t.CompletedAt,
		Error:        t.Error,
		TotalResults: len(t.Results),
	}
}
