package listing

import (
	"context"
	"fmt"
	"time"

	"scrapehub-backend/lib/restyutil"
	"scrapehub-backend/lib/tasks"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var dumpOutput restyutil.DumpOutput

// SetRestyDumpOutput enables request/response dumps for every site
// client created afterwards. Used by the server's verbose mode.
func SetRestyDumpOutput(out restyutil.DumpOutput) {
	dumpOutput = out
}

type siteClient struct {
	http    *resty.Client
	limiter *rate.Limiter
}

func newClient(cfg SiteConfig) *siteClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", browser.Computer())
	client.SetTimeout(timeout)
	restyutil.InstrumentClient(client, tracer, dumpOutput)

	return &siteClient{
		http: client,
		// burst >= 1 so the first request of a task never waits
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *siteClient) getPage(ctx context.Context, pageUrl string) ([]byte, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(pageUrl)
	if err != nil {
		// network failures are usually transient
		return nil, tasks.Retryable(fmt.Errorf("fetch %s: %w", pageUrl, err))
	}

	status := res.StatusCode()
	switch {
	case status == 200:
		return res.Body(), nil
	case status == 429 || status >= 500:
		return nil, tasks.Retryable(fmt.Errorf("fetch %s: status %d", pageUrl, status))
	default:
		return nil, fmt.Errorf("fetch %s: status %d", pageUrl, status)
	}
}
