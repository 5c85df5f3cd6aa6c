package tasks

import (
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Store is the process-wide, in-memory registry of tasks. It is safe
// for concurrent use from multiple goroutines. Nothing is persisted,
// a restart loses all task history.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

func NewStore() *Store {
	return &Store{
		tasks: map[string]*Task{},
	}
}

// Create inserts a new pending task.
func (s *Store) Create(id, scraper, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.tasks[id]
	if exists {
		return ErrTaskExists
	}
	s.tasks[id] = &Task{
		ID:        id,
		Scraper:   scraper,
		Query:     query,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	return nil
}

// Get returns a snapshot copy of the task. The Counters map is cloned
// while the lock is held, progress updates keep writing into the live
// map. The Results slice is shared but immutable once the task is
// terminal.
func (s *Store) Get(id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	snapshot := *task
	snapshot.Counters = maps.Clone(task.Counters)
	return snapshot, nil
}

// Snapshot returns the task's state without its result payload.
func (s *Store) Snapshot(id string) (StatusSnapshot, error) {
	task, err := s.Get(id)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return task.Snapshot(), nil
}

// MarkRunning transitions a pending task to running.
func (s *Store) MarkRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.lookup(id, "mark running")
	if !ok {
		return
	}
	now := time.Now()
	task.Status = StatusRunning
	task.StartedAt = &now
}

// SetProgress merges a progress update pushed by the scrape function.
// Progress never decreases while running, late updates against a
// terminal task are dropped.
func (s *Store) SetProgress(id string, progress int, message string, counters map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.lookup(id, "set progress")
	if !ok {
		return
	}
	if progress > task.Progress && progress <= 100 {
		task.Progress = progress
	}
	if message != "" {
		task.Message = message
	}
	for k, v := range counters {
		if task.Counters == nil {
			task.Counters = map[string]int64{}
		}
		task.Counters[k] = v
	}
}

// MarkCompleted finalizes the task with its result list. An empty list
// is still a completion, a query that legitimately has no results is
// not a failure.
func (s *Store) MarkCompleted(id string, results []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.lookup(id, "mark completed")
	if !ok {
		return
	}
	now := time.Now()
	task.Status = StatusCompleted
	task.Progress = 100
	task.Results = results
	task.CompletedAt = &now
	if task.Message == "" || len(results) == 0 {
		task.Message = completionMessage(len(results))
	}
}

// MarkFailed finalizes the task with a human-readable cause.
func (s *Store) MarkFailed(id string, cause string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.lookup(id, "mark failed")
	if !ok {
		return
	}
	now := time.Now()
	task.Status = StatusFailed
	task.Error = cause
	task.Message = cause
	task.CompletedAt = &now
}

// Clear removes every task matching the predicate and returns the
// count removed. In-flight executions of removed tasks are not
// stopped, their late updates become logged no-ops.
func (s *Store) Clear(pred func(Task) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, task := range s.tasks {
		if pred(*task) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

// lookup must be called with the write lock held.
func (s *Store) lookup(id, op string) (*Task, bool) {
	task, ok := s.tasks[id]
	if !ok {
		slog.Warn("update for unknown task", "op", op, "task_id", id)
		return nil, false
	}
	if task.Status.Terminal() {
		slog.Warn("update for terminal task dropped", "op", op, "task_id", id, "status", task.Status)
		return nil, false
	}
	return task, true
}

func completionMessage(n int) string {
	if n == 0 {
		return "completed with no results"
	}
	return "completed"
}
