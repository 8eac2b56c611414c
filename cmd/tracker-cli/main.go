package main

import (
	"context"
	"log/slog"

	"electiontracker/cmd/tracker-cli/commands"
	"electiontracker/internal/components/telemetry"
)

func main() {
	ctx := context.Background()
	telemetry.InitSlog(true)
	otel, err := telemetry.SetupFromEnv(ctx, "tracker-cli")
	if err != nil {
		slog.Warn("setup telemetry", "err", err)
	}
	defer otel.Shutdown(ctx)

	commands.ExecuteContext(ctx)
}
