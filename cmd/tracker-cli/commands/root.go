package commands

import (
	"context"
	"fmt"
	"os"

	"electiontracker/internal/components/chrono"
	"electiontracker/internal/components/telemetry"
	"electiontracker/internal/config"
	"electiontracker/internal/scrapers/eci"

	"github.com/spf13/cobra"
)

var configPath *string

var rootCmd = &cobra.Command{
	Use:   "tracker-cli",
	Short: "tracker-cli is a CLI for checking the results crawler and pushing results to a remote tracker.",
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file to read.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type env struct {
	cfg     config.Config
	clock   chrono.StandardImpl
	crawler *eci.Crawler
	tel     telemetry.API
}

func setup(overrides ...func(opts *eci.Options)) (env, error) {
	cfg, err := config.Read(*configPath)
	if err != nil {
		return env{}, err
	}
	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return env{}, err
	}
	tel := telemetry.SlogAPI{}
	opts := cfg.CrawlerOptions()
	for _, override := range overrides {
		override(&opts)
	}
	crawler, err := eci.New(opts, clock, tel)
	if err != nil {
		return env{}, err
	}
	return env{
		cfg:     cfg,
		clock:   clock,
		crawler: crawler,
		tel:     tel,
	}, nil
}
