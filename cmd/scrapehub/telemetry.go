package main

import (
	"context"
	"log/slog"

	"scrapehub-backend/lib/restyutil"
	"scrapehub-backend/lib/scrapers/listing"
	"scrapehub-backend/lib/serviceutil"
	"scrapehub-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel, err := telemetry.SetupFromEnv(ctx, "scrapehub")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		tel.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return
	}

	listing.SetRestyDumpOutput(
		restyutil.NewFilesystemOutput(".dev/resty/listing"),
	)
}
