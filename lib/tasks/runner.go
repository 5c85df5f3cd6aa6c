package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"scrapehub-backend/lib/telemetry"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("scrapehub.lib.tasks")

// ProgressFunc lets a ScrapeFunc push incremental updates at its own
// cadence. progress is a percentage in [0, 100], counters are merged
// into the task's counter map.
type ProgressFunc func(progress int, message string, counters map[string]int64)

// ScrapeFunc is the pluggable unit of work. Returning an error marks
// the task failed, returning a (possibly empty) record list marks it
// completed. Wrap transient errors with Retryable to opt into the
// runner's bounded retry.
type ScrapeFunc func(ctx context.Context, params map[string]any, progress ProgressFunc) ([]Record, error)

type RunnerOptions struct {
	// MaxAttempts bounds the retry loop around a ScrapeFunc that keeps
	// returning retryable errors. Defaults to 3.
	MaxAttempts int
	// RetryDelay is the fixed delay between attempts. Defaults to 5s.
	RetryDelay time.Duration
}

// Runner schedules scrape functions off the caller's goroutine and
// drives their task records through the store.
type Runner struct {
	store       *Store
	maxAttempts int
	retryDelay  time.Duration
}

func NewRunner(store *Store, opts RunnerOptions) Runner {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second * 5
	}
	return Runner{
		store:       store,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
	}
}

func (r Runner) Store() *Store {
	return r.store
}

// Submit registers a pending task and schedules fn on its own
// goroutine. It returns before scraping begins, the caller never
// blocks on scrape duration.
func (r Runner) Submit(ctx context.Context, scraper, query string, fn ScrapeFunc, params map[string]any) (string, error) {
	id := uuid.NewString()
	err := r.store.Create(id, scraper, query)
	if err != nil {
		return "", err
	}

	// the execution outlives the submitting request, only the trace
	// context is carried over
	go r.execute(context.WithoutCancel(ctx), id, fn, params)

	return id, nil
}

func (r Runner) execute(ctx context.Context, id string, fn ScrapeFunc, params map[string]any) {
	ctx, span := tracer.Start(ctx, "execute")
	defer span.End()
	span.SetAttributes(attribute.String("task_id", id))

	defer func() {
		if recovered := recover(); recovered != nil {
			slog.ErrorContext(
				ctx, "scrape function panicked",
				"task_id", id, "panic", recovered, "stack", string(debug.Stack()),
			)
			r.store.MarkFailed(id, fmt.Sprintf("internal error: %v", recovered))
		}
	}()

	r.store.MarkRunning(id)

	progress := func(pct int, message string, counters map[string]int64) {
		r.store.SetProgress(id, pct, message, counters)
	}

	var results []Record
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			slog.InfoContext(ctx, "retrying scrape", "task_id", id, "attempt", attempt)
		}

		res, err := fn(ctx, params, progress)
		if err != nil {
			if IsRetryable(err) && attempt < r.maxAttempts {
				return err
			}
			return backoff.Permanent(err)
		}
		results = res
		return nil
	}, backoff.WithMaxRetries(
		backoff.NewConstantBackOff(r.retryDelay),
		uint64(r.maxAttempts-1),
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "scrape failed", "task_id", id, "attempts", attempt, "err", err)
		r.store.MarkFailed(id, err.Error())
		return
	}

	slog.InfoContext(ctx, "scrape completed", "task_id", id, "results", len(results))
	r.store.MarkCompleted(id, results)
}
