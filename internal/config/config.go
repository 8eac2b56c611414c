// Package config holds the configuration shared by the tracker server and
// its CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"electiontracker/internal/aggregate"
	"electiontracker/internal/notify"
	"electiontracker/internal/scrapers/eci"
	"electiontracker/internal/tracker"
	"electiontracker/lib/configutil"
)

const (
	DefaultPageTemplate = "https://results.eci.gov.in/ResultAcGenNov2025/statewiseS04{page}.htm"
	DefaultTotalSeats   = 243
	DefaultSchedule     = "*/5 * * * *"
	DefaultTimezone     = "Asia/Kolkata"
	DefaultPort         = 5000
)

type PushConfig struct {
	// Target is the full url of a remote /api/push-data endpoint.
	Target   string `json:"target"`
	Schedule string `json:"schedule"`
}

type Config struct {
	TotalSeats          int     `json:"total_seats"`
	PageTemplate        string  `json:"page_template"`
	MaxPages            int     `json:"max_pages"`
	MaxGeneratedPage    int     `json:"max_generated_page"`
	FetchTimeoutSeconds int     `json:"fetch_timeout_seconds"`
	RequestsPerSecond   float64 `json:"requests_per_second"`
	CloudflareBypass    bool    `json:"cloudflare_bypass"`

	StaleAfterSeconds int    `json:"stale_after_seconds"`
	HistoryLimit      int    `json:"history_limit"`
	Schedule          string `json:"schedule"`
	Timezone          string `json:"timezone"`
	Port              int    `json:"port"`

	Alliances []aggregate.Alliance `json:"alliances"`
	Push      PushConfig           `json:"push"`
	Notify    notify.SmtpConfig    `json:"notify"`
}

func (c Config) withDefaults() Config {
	if c.TotalSeats <= 0 {
		c.TotalSeats = DefaultTotalSeats
	}
	if c.PageTemplate == "" {
		c.PageTemplate = DefaultPageTemplate
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 20
	}
	// generated pages are the only way past page 1 when the site has no
	// pagination links, 243 seats at ~20 rows a page need 13 of them.
	if c.MaxGeneratedPage <= 0 {
		c.MaxGeneratedPage = c.MaxPages
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = 20
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.StaleAfterSeconds <= 0 {
		c.StaleAfterSeconds = 30
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if len(c.Alliances) == 0 {
		c.Alliances = aggregate.DefaultAlliances()
	}
	if c.Push.Schedule == "" {
		c.Push.Schedule = DefaultSchedule
	}
	return c
}

// Read reads the config file with its local override. A missing file yields
// the defaults.
func Read(name string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", name, err)
	}
	cfg = cfg.withDefaults()
	if _, err := eci.ParsePageTemplate(cfg.PageTemplate); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) CrawlerOptions() eci.Options {
	return eci.Options{
		TotalSeats:        c.TotalSeats,
		PageTemplate:      c.PageTemplate,
		MaxPages:          c.MaxPages,
		MaxGeneratedPage:  c.MaxGeneratedPage,
		FetchTimeout:      time.Duration(c.FetchTimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
	}
}

func (c Config) ServiceOptions() tracker.Options {
	return tracker.Options{
		TotalSeats:   c.TotalSeats,
		StaleAfter:   time.Duration(c.StaleAfterSeconds) * time.Second,
		HistoryLimit: c.HistoryLimit,
		Alliances:    c.Alliances,
	}
}
