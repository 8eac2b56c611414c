// client.go only knows how to get a results page off the wire, it does not
// know what the page contains.

package eci

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"electiontracker/internal/components/assert"
	"electiontracker/internal/components/telemetry"
	"electiontracker/lib/util/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch = "client.fetch"
)

// Fetcher retrieves one page and parses it.
//
// note: fault injection point
type Fetcher interface {
	Fetch(ctx context.Context, link string) (*goquery.Document, error)
}

type ClientOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRedirects      int
	CloudflareBypass  bool
	// Referer is sent with every request, usually the site root.
	Referer string
	// Dump receives every fetched page when set.
	Dump restyutil.Output
}

// RefererFor returns the site root of a page url.
func RefererFor(link string) string {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host)
}

var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Cache-Control":             "max-age=0",
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("eci_scraper", tel)

	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 20
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}

	httpClient := resty.New()
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeaders(browserHeaders)
	if opts.Referer != "" {
		httpClient.SetHeader("Referer", opts.Referer)
	}
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects))
	httpClient.SetTimeout(opts.Timeout)

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = int(math.Max(1, math.Ceil(opts.RequestsPerSecond)))
	}
	rateLimiter := rate.NewLimiter(limit, burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.Dump(httpClient, opts.Dump)

	return &Client{
		http: httpClient,
		tel:  tel,
	}
}

// Fetch gets a page, any status outside of [200, 400) is an error.
func (c *Client) Fetch(ctx context.Context, link string) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", link, err)
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 400 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", link, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_fetch, fmt.Errorf("parse html: %w", err), link)
		return nil, fmt.Errorf("fetch %s: %w", link, err)
	}
	return doc, nil
}
