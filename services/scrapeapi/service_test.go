package scrapeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scrapehub-backend/lib/tasks"
	"scrapehub-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T, scrapers map[string]tasks.ScrapeFunc) *httptest.Server {
	t.Helper()
	cleanup := telemetry.SetupForTesting(t, "services/scrapeapi")
	t.Cleanup(cleanup)

	service := NewService(scrapers, Options{
		Runner: tasks.RunnerOptions{
			MaxAttempts: 1,
			RetryDelay:  time.Millisecond,
		},
	})
	mux := http.NewServeMux()
	service.Mount(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, body string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	if out != nil {
		err = json.NewDecoder(res.Body).Decode(out)
		require.NoError(t, err)
	}
	return res
}

func submitTask(t *testing.T, server *httptest.Server, scraper, params string) string {
	t.Helper()
	var body struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	res := doJSON(t, "POST", server.URL+"/api/"+scraper+"/tasks", params, &body)
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	require.Equal(t, "pending", body.Status)
	require.NotEmpty(t, body.TaskID)
	return body.TaskID
}

func awaitStatus(t *testing.T, server *httptest.Server, scraper, id, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		var body struct {
			Status string `json:"status"`
		}
		res := doJSON(t, "GET", fmt.Sprintf("%s/api/%s/tasks/%s", server.URL, scraper, id), "", &body)
		return res.StatusCode == http.StatusOK && body.Status == want
	}, time.Second*5, time.Millisecond*5)
}

func TestLifecycle(t *testing.T) {
	release := make(chan struct{})
	server := setupServer(t, map[string]tasks.ScrapeFunc{
		"amazon": func(ctx context.Context, params map[string]any, progress tasks.ProgressFunc) ([]tasks.Record, error) {
			<-release
			progress(60, "parsing listings", map[string]int64{"pages_processed": 1})
			query, _ := params["query"].(string)
			var records []tasks.Record
			for i := 0; i < 5; i++ {
				records = append(records, tasks.Record{
					"title": fmt.Sprintf("%s %d", query, i),
					"price": float64(10 * i),
				})
			}
			return records, nil
		},
	})

	id := submitTask(t, server, "amazon", `{"query": "bicycle", "max_results": 5}`)

	{
		// results are refused while the task is in flight, surfacing
		// the current status so the client keeps polling
		var body struct {
			Error  string `json:"error"`
			Status string `json:"status"`
		}
		res := doJSON(t, "GET", fmt.Sprintf("%s/api/amazon/tasks/%s/results", server.URL, id), "", &body)
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		require.Contains(t, []string{"pending", "running"}, body.Status)
	}

	close(release)
	awaitStatus(t, server, "amazon", id, "completed")

	{
		var body struct {
			Status       string `json:"status"`
			Progress     int    `json:"progress"`
			TotalResults int    `json:"total_results"`
		}
		doJSON(t, "GET", fmt.Sprintf("%s/api/amazon/tasks/%s", server.URL, id), "", &body)
		require.Equal(t, 100, body.Progress)
		require.Equal(t, 5, body.TotalResults)
	}
	{
		var page struct {
			Results     []map[string]any `json:"results"`
			TotalPages  int              `json:"total_pages"`
			HasNext     bool             `json:"has_next"`
			CurrentPage int              `json:"current_page"`
		}
		res := doJSON(t, "GET", fmt.Sprintf("%s/api/amazon/tasks/%s/results?page=1&page_size=10", server.URL, id), "", &page)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Len(t, page.Results, 5)
		require.Equal(t, 1, page.TotalPages)
		require.False(t, page.HasNext)
		require.Equal(t, "bicycle 0", page.Results[0]["title"])
	}
	{
		// out of range pages clamp instead of erroring
		var page struct {
			Results     []map[string]any `json:"results"`
			CurrentPage int              `json:"current_page"`
		}
		doJSON(t, "GET", fmt.Sprintf("%s/api/amazon/tasks/%s/results?page=999999&page_size=10", server.URL, id), "", &page)
		require.Equal(t, 1, page.CurrentPage)
		require.Len(t, page.Results, 5)
	}
	{
		var export struct {
			TaskID     string           `json:"task_id"`
			TotalCount int              `json:"total_count"`
			Results    []map[string]any `json:"results"`
		}
		res := doJSON(t, "GET", fmt.Sprintf("%s/api/amazon/tasks/%s/download?format=json", server.URL, id), "", &export)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, id, export.TaskID)
		require.Equal(t, 5, export.TotalCount)
		require.Len(t, export.Results, 5)

		disposition := res.Header.Get("Content-Disposition")
		require.Contains(t, disposition, "attachment")
		require.Contains(t, disposition, "bicycle")
		require.Contains(t, disposition, ".json")
	}
	{
		res := doJSON(t, "GET", fmt.Sprintf("%s/api/amazon/tasks/%s/download?format=csv", server.URL, id), "", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, "text/csv", res.Header.Get("Content-Type"))
	}
	{
		var body struct {
			ClearedCount int `json:"cleared_count"`
		}
		res := doJSON(t, "DELETE", server.URL+"/api/amazon/tasks", "", &body)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, 1, body.ClearedCount)

		res = doJSON(t, "GET", fmt.Sprintf("%s/api/amazon/tasks/%s", server.URL, id), "", nil)
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	}
}

func TestFailedTask(t *testing.T) {
	server := setupServer(t, map[string]tasks.ScrapeFunc{
		"zillow": func(ctx context.Context, params map[string]any, progress tasks.ProgressFunc) ([]tasks.Record, error) {
			return nil, errors.New("blocked by anti-bot")
		},
	})

	id := submitTask(t, server, "zillow", `{"location": "seattle"}`)
	awaitStatus(t, server, "zillow", id, "failed")

	var status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	doJSON(t, "GET", fmt.Sprintf("%s/api/zillow/tasks/%s", server.URL, id), "", &status)
	require.Equal(t, "failed", status.Status)
	require.Equal(t, "blocked by anti-bot", status.Error)

	// failed is surfaced as not-ready on the results route
	var body struct {
		Error  string `json:"error"`
		Status string `json:"status"`
	}
	res := doJSON(t, "GET", fmt.Sprintf("%s/api/zillow/tasks/%s/results", server.URL, id), "", &body)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "failed", body.Status)
	require.Contains(t, body.Error, "blocked by anti-bot")
}

func TestEmptyResultTask(t *testing.T) {
	server := setupServer(t, map[string]tasks.ScrapeFunc{
		"producthunt": func(ctx context.Context, params map[string]any, progress tasks.ProgressFunc) ([]tasks.Record, error) {
			return nil, nil
		},
	})

	id := submitTask(t, server, "producthunt", `{"query": "zzznonexistentqueryzzz"}`)
	awaitStatus(t, server, "producthunt", id, "completed")

	var status struct {
		Status       string `json:"status"`
		TotalResults int    `json:"total_results"`
		Error        string `json:"error"`
	}
	doJSON(t, "GET", fmt.Sprintf("%s/api/producthunt/tasks/%s", server.URL, id), "", &status)
	require.Equal(t, "completed", status.Status)
	require.Equal(t, 0, status.TotalResults)
	require.Empty(t, status.Error)

	// csv download of zero records is "no data available"
	res := doJSON(t, "GET", fmt.Sprintf("%s/api/producthunt/tasks/%s/download?format=csv", server.URL, id), "", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	// json download still works
	res = doJSON(t, "GET", fmt.Sprintf("%s/api/producthunt/tasks/%s/download?format=json", server.URL, id), "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestNotFoundBehavior(t *testing.T) {
	noop := func(ctx context.Context, params map[string]any, progress tasks.ProgressFunc) ([]tasks.Record, error) {
		return nil, nil
	}
	server := setupServer(t, map[string]tasks.ScrapeFunc{
		"amazon": noop,
		"maps":   noop,
	})

	{
		res := doJSON(t, "GET", server.URL+"/api/amazon/tasks/unknown-id", "", nil)
		require.Equal(t, http.StatusNotFound, res.StatusCode)

		res = doJSON(t, "GET", server.URL+"/api/amazon/tasks/unknown-id/results", "", nil)
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	}
	{
		// typoed scraper names get a suggestion
		var body struct {
			Error string `json:"error"`
		}
		res := doJSON(t, "POST", server.URL+"/api/amazn/tasks", "{}", &body)
		require.Equal(t, http.StatusNotFound, res.StatusCode)
		require.Contains(t, body.Error, `did you mean "amazon"`)
	}
	{
		// a task submitted under one scraper is invisible under another
		id := submitTask(t, server, "amazon", `{"query": "x"}`)
		awaitStatus(t, server, "amazon", id, "completed")

		res := doJSON(t, "GET", fmt.Sprintf("%s/api/maps/tasks/%s", server.URL, id), "", nil)
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, errors.New("unexpected EOF")
}

func TestSubmitBodyReadError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "services/scrapeapi")
	t.Cleanup(cleanup)

	service := NewService(map[string]tasks.ScrapeFunc{
		"amazon": func(ctx context.Context, params map[string]any, progress tasks.ProgressFunc) ([]tasks.Record, error) {
			return nil, nil
		},
	}, Options{})
	mux := http.NewServeMux()
	service.Mount(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/amazon/tasks", brokenReader{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Error, "failed to read request body")
}

func TestBadRequests(t *testing.T) {
	server := setupServer(t, map[string]tasks.ScrapeFunc{
		"amazon": func(ctx context.Context, params map[string]any, progress tasks.ProgressFunc) ([]tasks.Record, error) {
			return []tasks.Record{{"a": float64(1)}}, nil
		},
	})

	{
		res := doJSON(t, "POST", server.URL+"/api/amazon/tasks", "not json", nil)
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
	}
	{
		id := submitTask(t, server, "amazon", `{}`)
		awaitStatus(t, server, "amazon", id, "completed")

		res := doJSON(t, "GET", fmt.Sprintf("%s/api/amazon/tasks/%s/download?format=xml", server.URL, id), "", nil)
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
	}
}
