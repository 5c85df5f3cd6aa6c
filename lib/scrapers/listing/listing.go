// Package listing implements a selector-driven product listing
// scraper. All site markup knowledge (item selectors, field
// selectors, pagination) lives in SiteConfig, so one scrape function
// serves every configured site.
package listing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"scrapehub-backend/lib/htmlutil"
	"scrapehub-backend/lib/tasks"
	"scrapehub-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("scrapehub.lib.scrapers.listing")

// FieldConfig extracts one record field from an item node. When Attr
// is empty the node's trimmed text is used.
type FieldConfig struct {
	Selector string `json:"selector"`
	Attr     string `json:"attr,omitempty"`
}

type SiteConfig struct {
	Name string `json:"name"`
	// SearchUrl is a template for the first results page. `{query}`
	// is replaced with the url-escaped query parameter.
	SearchUrl string `json:"search_url"`
	// ItemSelector matches one node per record on a results page.
	ItemSelector string                 `json:"item_selector"`
	Fields       map[string]FieldConfig `json:"fields"`
	// NextPageSelector matches an anchor whose href is the next
	// results page. Empty disables pagination following.
	NextPageSelector string `json:"next_page_selector,omitempty"`
	MaxPages         int    `json:"max_pages,omitempty"`
	MaxResults       int    `json:"max_results,omitempty"`
	// RequestsPerSecond throttles page fetches. Defaults to 2.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
	TimeoutSeconds    int     `json:"timeout_seconds,omitempty"`
}

const defaultMaxPages = 10

// New builds a tasks.ScrapeFunc for the configured site.
//
// Recognized params: "query" (string, required), "max_results"
// (number, optional override of the config bound).
func New(cfg SiteConfig) (tasks.ScrapeFunc, error) {
	if cfg.SearchUrl == "" {
		return nil, fmt.Errorf("site %q: search_url is required", cfg.Name)
	}
	if cfg.ItemSelector == "" {
		return nil, fmt.Errorf("site %q: item_selector is required", cfg.Name)
	}
	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("site %q: at least one field is required", cfg.Name)
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}

	return func(ctx context.Context, params map[string]any, progress tasks.ProgressFunc) ([]tasks.Record, error) {
		return scrape(ctx, cfg, params, progress)
	}, nil
}

func scrape(ctx context.Context, cfg SiteConfig, params map[string]any, progress tasks.ProgressFunc) ([]tasks.Record, error) {
	ctx, span := tracer.Start(ctx, "scrape")
	defer span.End()
	span.SetAttributes(attribute.String("site", cfg.Name))

	query, _ := params["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("missing required parameter: query")
	}

	maxResults := cfg.MaxResults
	if override, ok := params["max_results"].(float64); ok && override > 0 {
		maxResults = int(override)
	}

	client := newClient(cfg)
	pageUrl := strings.ReplaceAll(cfg.SearchUrl, "{query}", url.QueryEscape(query))

	var records []tasks.Record
	for page := 1; page <= cfg.MaxPages && pageUrl != ""; page++ {
		if ctx.Err() != nil {
			break
		}

		progress(
			progressPct(page, cfg.MaxPages),
			fmt.Sprintf("scraping page %d", page),
			map[string]int64{
				"pages_processed": int64(page - 1),
				"items_found":     int64(len(records)),
			},
		)

		doc, err := fetchDocument(ctx, client, pageUrl)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			// results gathered so far are thrown away on purpose, a
			// retried attempt starts from page one again
			return nil, err
		}

		pageRecords := extractRecords(doc, cfg)
		records = append(records, pageRecords...)
		slog.DebugContext(
			ctx, "scraped page",
			"site", cfg.Name, "page", page, "items", len(pageRecords),
		)

		if maxResults > 0 && len(records) >= maxResults {
			records = records[:maxResults]
			break
		}

		pageUrl = nextPageUrl(doc, cfg, pageUrl)
	}

	progress(100, "finished scraping", map[string]int64{
		"items_found": int64(len(records)),
	})
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

func extractRecords(doc *goquery.Document, cfg SiteConfig) []tasks.Record {
	var records []tasks.Record
	doc.Find(cfg.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		record := tasks.Record{}
		empty := true
		for name, field := range cfg.Fields {
			node := item.Find(field.Selector).First()
			var value string
			if field.Attr != "" {
				value = node.AttrOr(field.Attr, "")
			} else {
				value = htmlutil.SelectionText(node)
			}
			if value != "" {
				empty = false
			}
			record[name] = value
		}
		record["scraped_at"] = time.Now().Format(time.RFC3339)
		if !empty {
			records = append(records, record)
		}
	})
	return records
}

func nextPageUrl(doc *goquery.Document, cfg SiteConfig, current string) string {
	if cfg.NextPageSelector == "" {
		return ""
	}
	href, _ := doc.Find(cfg.NextPageSelector).First().Attr("href")
	return htmlutil.ResolveHref(current, href)
}

func progressPct(page, maxPages int) int {
	// capped below 100, only completion sets 100
	pct := (page - 1) * 100 / maxPages
	if pct > 95 {
		pct = 95
	}
	return pct
}

func fetchDocument(ctx context.Context, c *siteClient, pageUrl string) (*goquery.Document, error) {
	body, err := c.getPage(ctx, pageUrl)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}
