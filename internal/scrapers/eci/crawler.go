package eci

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"electiontracker/internal/components/assert"
	"electiontracker/internal/components/chrono"
	"electiontracker/internal/components/telemetry"
	"electiontracker/internal/election"
	"electiontracker/lib/util/restyutil"

	"go.opentelemetry.io/otel/attribute"
)

const (
	report_crawler_crawl             = "crawler.crawl"
	report_crawler_pages_visited     = "crawler.pages-visited"
	report_crawler_pages_failed      = "crawler.pages-failed"
	report_crawler_records_extracted = "crawler.records-extracted"
)

type CrawlerOptions struct {
	TotalSeats int
	// MaxPages is the most pages a single crawl will visit.
	MaxPages int
	Template PageTemplate
	// MaxGeneratedPage is the highest page index synthesized when pagination
	// links cannot be found.
	MaxGeneratedPage int
}

// Crawler drives fetch -> extract -> discover over every results page and
// produces a canonical snapshot.
type Crawler struct {
	opts       CrawlerOptions
	fetcher    Fetcher
	extractor  Extractor
	discoverer Discoverer
	clock      chrono.API
	tel        telemetry.API
}

func NewCrawler(
	opts CrawlerOptions,
	fetcher Fetcher,
	extractor Extractor,
	clock chrono.API,
	tel telemetry.API,
) *Crawler {
	assert.NotNil(fetcher)
	assert.NotNil(extractor)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.Positive(opts.TotalSeats)
	assert.Positive(opts.MaxPages)

	return &Crawler{
		opts:      opts,
		fetcher:   fetcher,
		extractor: extractor,
		discoverer: Discoverer{
			Template:         opts.Template,
			TotalSeats:       opts.TotalSeats,
			MaxGeneratedPage: opts.MaxGeneratedPage,
		},
		clock: clock,
		tel:   telemetry.NewScopedAPI("eci_scraper", tel),
	}
}

type crawlState struct {
	queue   []string
	queued  map[string]struct{}
	visited map[string]struct{}
	records []election.Constituency
	keys    map[string]struct{}
}

func newCrawlState(base string) *crawlState {
	return &crawlState{
		queue:   []string{base},
		queued:  map[string]struct{}{base: {}},
		visited: map[string]struct{}{},
		keys:    map[string]struct{}{},
	}
}

func (s *crawlState) seen(link string) bool {
	_, visited := s.visited[link]
	_, queued := s.queued[link]
	return visited || queued
}

func (s *crawlState) pop() string {
	link := s.queue[0]
	s.queue = s.queue[1:]
	delete(s.queued, link)
	return link
}

func (s *crawlState) enqueue(links []string) {
	for _, link := range links {
		if s.seen(link) {
			continue
		}
		s.queued[link] = struct{}{}
		s.queue = append(s.queue, link)
	}
}

// merge adds records whose identity key is not already present, returning
// how many were added.
func (s *crawlState) merge(records []election.Constituency) int {
	added := 0
	for _, record := range records {
		key := record.Key()
		if _, ok := s.keys[key]; ok {
			continue
		}
		s.keys[key] = struct{}{}
		s.records = append(s.records, record)
		added++
	}
	return added
}

// Crawl never fails: a page that cannot be fetched is skipped, and a crawl
// where no page could be fetched yields election.FallbackSnapshot.
func (c *Crawler) Crawl(ctx context.Context) election.Snapshot {
	ctx, span := tracer.Start(ctx, "Crawl")
	defer span.End()

	base := c.opts.Template.Page(1)
	state := newCrawlState(base)
	fetched := 0
	failed := 0

	for len(state.queue) > 0 && len(state.records) < c.opts.TotalSeats {
		if len(state.visited) >= c.opts.MaxPages {
			c.tel.ReportDebug("page cap reached", c.opts.MaxPages)
			break
		}
		if ctx.Err() != nil {
			c.tel.ReportWarning(report_crawler_crawl, fmt.Errorf("crawl interrupted: %w", ctx.Err()))
			break
		}

		link := state.pop()
		if _, ok := state.visited[link]; ok {
			continue
		}
		state.visited[link] = struct{}{}

		c.tel.ReportDebug("fetching page", link, len(state.records))
		doc, err := c.fetcher.Fetch(ctx, link)
		if err != nil {
			failed++
			c.tel.ReportWarning(report_crawler_crawl, err)
			continue
		}
		fetched++

		added := state.merge(c.extractor.Extract(ctx, doc))
		c.tel.ReportDebug("extracted page", link, added)

		pageUrl, err := url.Parse(link)
		if err != nil {
			c.tel.ReportWarning(report_crawler_crawl, fmt.Errorf("parse page url: %w", err))
			pageUrl = nil
		}
		state.enqueue(c.discoverer.Discover(ctx, doc, pageUrl, state.seen, len(state.records)))
	}

	c.tel.ReportCount(report_crawler_pages_visited, int64(len(state.visited)))
	c.tel.ReportCount(report_crawler_pages_failed, int64(failed))
	c.tel.ReportCount(report_crawler_records_extracted, int64(len(state.records)))
	span.SetAttributes(
		attribute.Int("pages_visited", len(state.visited)),
		attribute.Int("pages_failed", failed),
		attribute.Int("records", len(state.records)),
	)

	now := c.clock.Now()
	if fetched == 0 {
		c.tel.ReportWarning(
			report_crawler_crawl,
			fmt.Errorf("no page could be fetched out of %d, serving fallback snapshot", len(state.visited)),
		)
		return election.FallbackSnapshot(now, c.opts.TotalSeats)
	}
	return election.NewSnapshot(now, state.records, c.opts.TotalSeats)
}

// Options is everything needed to build a production crawler.
type Options struct {
	TotalSeats        int
	PageTemplate      string
	MaxPages          int
	MaxGeneratedPage  int
	FetchTimeout      time.Duration
	RequestsPerSecond float64
	CloudflareBypass  bool
	// DumpDir, when set, receives a copy of every fetched page.
	DumpDir string
}

// New builds a crawler over the live site using Client and TableExtractor.
func New(opts Options, clock chrono.API, tel telemetry.API) (*Crawler, error) {
	template, err := ParsePageTemplate(opts.PageTemplate)
	if err != nil {
		return nil, err
	}
	clientOpts := ClientOptions{
		Timeout:           opts.FetchTimeout,
		RequestsPerSecond: opts.RequestsPerSecond,
		CloudflareBypass:  opts.CloudflareBypass,
		Referer:           RefererFor(template.Page(1)),
	}
	if opts.DumpDir != "" {
		output, err := restyutil.NewDirOutput(opts.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("create dump dir: %w", err)
		}
		clientOpts.Dump = output
	}
	client := NewClient(clientOpts, tel)

	return NewCrawler(CrawlerOptions{
		TotalSeats:       opts.TotalSeats,
		MaxPages:         opts.MaxPages,
		Template:         template,
		MaxGeneratedPage: opts.MaxGeneratedPage,
	}, client, TableExtractor{}, clock, tel), nil
}
