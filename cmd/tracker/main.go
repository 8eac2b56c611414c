package main

import (
	"flag"
	"log/slog"

	"electiontracker/internal/api"
	"electiontracker/internal/components/chrono"
	"electiontracker/internal/components/telemetry"
	"electiontracker/internal/config"
	"electiontracker/internal/notify"
	"electiontracker/internal/scrapers/eci"
	"electiontracker/internal/tracker"
	"electiontracker/lib/util/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	initialScrape := flag.Bool("scrape", false, "Trigger a crawl immediately on run.")
	configPath := flag.String("config", "config.json5", "The config file to read.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)
	tel := telemetry.SlogAPI{}

	cfg, err := config.Read(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("load timezone", err)
	}
	cron := chrono.NewStandardCron(tel, clock.Location())

	crawler, err := eci.New(cfg.CrawlerOptions(), clock, tel)
	if err != nil {
		serviceutil.Fatal("init crawler", err)
	}

	var notifiers []tracker.Notifier
	if cfg.Notify.Enabled() {
		notifiers = append(notifiers, notify.NewEmailNotifier(cfg.Notify, tel))
		slog.Info("email notifications enabled", "to", cfg.Notify.To)
	}
	service := tracker.NewService(cfg.ServiceOptions(), crawler, clock, tel, notifiers...)

	err = service.Schedule(cron, cfg.Schedule)
	if err != nil {
		serviceutil.Fatal("schedule crawls", err)
	}
	if *initialScrape {
		slog.Info("crawling on start")
		go service.Refresh(ctx)
	}

	server := api.NewServer(service, tel)
	serviceutil.StartHttpServer(ctx, cfg.Port, server.Routes())

	<-cron.Stop().Done()
	service.Wait()
}
