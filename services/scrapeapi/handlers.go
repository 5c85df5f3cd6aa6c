package scrapeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"scrapehub-backend/lib/tasks"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type errorBody struct {
	Error string `json:"error"`
	// Status carries the task's current status on not-ready errors so
	// the client can decide whether to keep polling.
	Status tasks.Status `json:"status,omitempty"`
}

type submitBody struct {
	TaskID string       `json:"task_id"`
	Status tasks.Status `json:"status"`
}

type clearBody struct {
	ClearedCount int `json:"cleared_count"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Warn("failed to write response body", "err", err)
	}
}

// writeTaskError maps store errors onto the surface contract: unknown
// id is 404, not-ready is 400 with the current status attached.
func writeTaskError(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var notReady tasks.NotReadyError
	switch {
	case errors.Is(err, tasks.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "task not found"})
	case errors.As(err, &notReady):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:  notReady.Error(),
			Status: notReady.Status,
		})
	case errors.Is(err, tasks.ErrNoData):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no data available"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

// resolveScraper looks up the namespace from the url, answering 404
// with a "did you mean" hint when it isn't registered.
func (s Service) resolveScraper(w http.ResponseWriter, r *http.Request) (string, tasks.ScrapeFunc, bool) {
	name := r.PathValue("scraper")
	fn, ok := s.scrapers[name]
	if !ok {
		message := fmt.Sprintf("unknown scraper %q", name)
		if suggestion := s.suggest(name); suggestion != "" {
			message = fmt.Sprintf("unknown scraper %q, did you mean %q?", name, suggestion)
		}
		writeJSON(w, http.StatusNotFound, errorBody{Error: message})
		return "", nil, false
	}
	return name, fn, true
}

func (s Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "Submit")
	defer span.End()

	name, fn, ok := s.resolveScraper(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("scraper", name))

	params := map[string]any{}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read request body"})
		return
	}
	if len(body) > 0 {
		err = json.Unmarshal(body, &params)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "request body must be a json object"})
			return
		}
	}

	id, err := s.runner.Submit(ctx, name, queryLabel(params), fn, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	slog.InfoContext(ctx, "task submitted", "scraper", name, "task_id", id)
	writeJSON(w, http.StatusAccepted, submitBody{
		TaskID: id,
		Status: tasks.StatusPending,
	})
}

func (s Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "GetStatus")
	defer span.End()

	name, _, ok := s.resolveScraper(w, r)
	if !ok {
		return
	}

	snapshot, err := s.store.Snapshot(r.PathValue("id"))
	if err != nil || snapshot.Scraper != name {
		writeTaskError(w, span, tasks.ErrTaskNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s Service) handleResults(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "GetResults")
	defer span.End()

	name, _, ok := s.resolveScraper(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	task, err := s.store.Get(id)
	if err != nil || task.Scraper != name {
		writeTaskError(w, span, tasks.ErrTaskNotFound)
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	result, err := s.store.Page(id, page, pageSize)
	if err != nil {
		writeTaskError(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.Int("page", result.CurrentPage),
		attribute.Int("total_items", result.TotalItems),
	)
	writeJSON(w, http.StatusOK, result)
}

func (s Service) handleDownload(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "Download")
	defer span.End()

	name, _, ok := s.resolveScraper(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	task, err := s.store.Get(id)
	if err != nil || task.Scraper != name {
		writeTaskError(w, span, tasks.ErrTaskNotFound)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	var blob []byte
	var contentType string
	switch format {
	case "json":
		blob, err = s.store.ExportJSON(id)
		contentType = "application/json"
	case "csv":
		blob, err = s.store.ExportCSV(id)
		contentType = "text/csv"
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: fmt.Sprintf("unsupported format %q, expected json or csv", format),
		})
		return
	}
	if err != nil {
		writeTaskError(w, span, err)
		return
	}

	source := task.Query
	if source == "" {
		source = name
	}
	filename := tasks.ExportFilename(source, format, time.Now())

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(blob)
	if err != nil {
		slog.Warn("failed to write export body", "task_id", id, "err", err)
	}
}

func (s Service) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ClearTasks")
	defer span.End()

	name, _, ok := s.resolveScraper(w, r)
	if !ok {
		return
	}

	// pending and running tasks are preserved, clearing never stops
	// in-flight work
	removed := s.store.Clear(func(t tasks.Task) bool {
		return t.Scraper == name && t.Status.Terminal()
	})
	span.SetAttributes(attribute.Int("cleared", removed))
	slog.InfoContext(ctx, "cleared tasks", "scraper", name, "count", removed)
	writeJSON(w, http.StatusOK, clearBody{ClearedCount: removed})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// queryLabel derives a human-readable label from the submitted
// parameters, used for export filenames.
func queryLabel(params map[string]any) string {
	for _, key := range []string{"query", "location", "url"} {
		if v, ok := params[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
