package main

import (
	"flag"
	"net/http"
	"time"

	"scrapehub-backend/lib/configutil"
	"scrapehub-backend/lib/scrapers/listing"
	"scrapehub-backend/lib/serviceutil"
	"scrapehub-backend/lib/tasks"
	"scrapehub-backend/services/scrapeapi"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RunnerConfig struct {
	MaxAttempts       int `json:"max_attempts"`
	RetryDelaySeconds int `json:"retry_delay_seconds"`
}

type Config struct {
	Port        int                  `json:"port"`
	AccessToken string               `json:"access_token"`
	Runner      RunnerConfig         `json:"runner"`
	Sites       []listing.SiteConfig `json:"sites"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	scrapers := map[string]tasks.ScrapeFunc{}
	for _, site := range cfg.Sites {
		fn, err := listing.New(site)
		if err != nil {
			serviceutil.Fatal("init scraper", err)
		}
		scrapers[site.Name] = fn
	}

	service := scrapeapi.NewService(scrapers, scrapeapi.Options{
		Runner: tasks.RunnerOptions{
			MaxAttempts: cfg.Runner.MaxAttempts,
			RetryDelay:  time.Duration(cfg.Runner.RetryDelaySeconds) * time.Second,
		},
	})

	mux := http.NewServeMux()
	service.Mount(mux)

	handler := serviceutil.VerifyAccessToken(
		cfg.AccessToken,
		otelhttp.NewHandler(mux, "scrapeapi"),
	)

	go serviceutil.StartHttpServer(cfg.Port, handler)
	<-ctx.Done()
}
