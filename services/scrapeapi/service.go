// Package scrapeapi exposes the scrape-task lifecycle over HTTP: one
// namespace per registered scraper, each with submit, status,
// paginated results, download and clear operations.
package scrapeapi

import (
	"net/http"
	"sort"

	"scrapehub-backend/lib/tasks"
	"scrapehub-backend/lib/telemetry"
	"scrapehub-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

var tracer = telemetry.Tracer("scrapehub.services.scrapeapi")

type Options struct {
	Runner tasks.RunnerOptions
}

type Service struct {
	store    *tasks.Store
	runner   tasks.Runner
	scrapers map[string]tasks.ScrapeFunc
	names    []string
}

func NewService(scrapers map[string]tasks.ScrapeFunc, opts Options) Service {
	store := tasks.NewStore()

	names := make([]string, 0, len(scrapers))
	for name := range scrapers {
		names = append(names, name)
	}
	sort.Strings(names)

	return Service{
		store:    store,
		runner:   tasks.NewRunner(store, opts.Runner),
		scrapers: scrapers,
		names:    names,
	}
}

func (s Service) Store() *tasks.Store {
	return s.store
}

func (s Service) Mount(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/{scraper}/tasks", s.handleSubmit)
	mux.HandleFunc("GET /api/{scraper}/tasks/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/{scraper}/tasks/{id}/results", s.handleResults)
	mux.HandleFunc("GET /api/{scraper}/tasks/{id}/download", s.handleDownload)
	mux.HandleFunc("DELETE /api/{scraper}/tasks", s.handleClear)
}

// suggest returns the registered scraper name closest to the given
// one, or "" when nothing is convincingly close.
func (s Service) suggest(name string) string {
	name = textutil.NormalizeName(name)

	var best string
	var bestSimilarity float64
	for _, candidate := range s.names {
		similarity := matchr.JaroWinkler(name, candidate, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = candidate
		}
	}
	if bestSimilarity < 0.8 {
		return ""
	}
	return best
}
