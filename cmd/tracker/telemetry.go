package main

import (
	"context"
	"log/slog"

	"electiontracker/internal/components/telemetry"
	"electiontracker/lib/util/serviceutil"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	otel, err := telemetry.SetupFromEnv(ctx, "electiontracker")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		err := otel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()
	telemetry.InstrumentPerfStats(ctx)
}
