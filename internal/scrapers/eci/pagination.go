package eci

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"electiontracker/lib/htmlutil"
	"electiontracker/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const pageToken = "{page}"

var ErrInvalidTemplate = errors.New("page template must be an absolute url containing " + pageToken)

// PageTemplate is the url of a results page with the page index replaced by
// {page}, ex. https://results.eci.gov.in/ResultAcGenNov2025/statewiseS04{page}.htm
type PageTemplate struct {
	raw      string
	filename *regexp.Regexp
	prefix   string
}

func ParsePageTemplate(template string) (PageTemplate, error) {
	if strings.Count(template, pageToken) != 1 {
		return PageTemplate{}, ErrInvalidTemplate
	}
	parsed, err := url.Parse(strings.Replace(template, pageToken, "1", 1))
	if err != nil {
		return PageTemplate{}, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	if !parsed.IsAbs() {
		return PageTemplate{}, ErrInvalidTemplate
	}

	filename := template[strings.LastIndex(template, "/")+1:]
	before, after, found := strings.Cut(filename, pageToken)
	if !found {
		// the token sits in a directory segment, match on it anyway
		before, after = "", ""
	}

	return PageTemplate{
		raw:      template,
		filename: regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(before) + `\d+` + regexp.QuoteMeta(after) + `$`),
		prefix:   strings.ToLower(before),
	}, nil
}

// Page returns the url of the n-th page.
func (t PageTemplate) Page(n int) string {
	return strings.Replace(t.raw, pageToken, strconv.Itoa(n), 1)
}

func (t PageTemplate) String() string {
	return t.raw
}

func (t PageTemplate) matchesFilename(link *url.URL) bool {
	return t.filename.MatchString(path.Base(link.Path))
}

func (t PageTemplate) matchesPrefix(link *url.URL) bool {
	return t.prefix != "" && strings.Contains(strings.ToLower(link.Path), t.prefix)
}

// Discoverer proposes the next pages to crawl.
type Discoverer struct {
	Template         PageTemplate
	TotalSeats       int
	MaxGeneratedPage int
}

// Discover returns candidate urls in document order followed by generated
// ones, without duplicates and without anything `seen` reports.
//
// Generated urls for pages 2..MaxGeneratedPage are added when no anchor
// matched or when recordCount is still below half of TotalSeats.
func (d Discoverer) Discover(
	ctx context.Context,
	doc *goquery.Document,
	pageUrl *url.URL,
	seen func(link string) bool,
	recordCount int,
) []string {
	var candidates []string
	matched := 0

	if doc != nil && pageUrl != nil {
		for _, anchor := range htmlutil.GetAnchors(ctx, pageUrl, doc.Find("a")) {
			link := anchor.Url
			if link.Scheme != "http" && link.Scheme != "https" {
				continue
			}
			numbered := textutil.IsDigits(anchor.Name) && d.Template.matchesPrefix(link)
			if !d.Template.matchesFilename(link) && !numbered {
				continue
			}
			matched++
			candidates = append(candidates, link.String())
		}
	}

	if matched == 0 || recordCount < d.TotalSeats/2 {
		for page := 2; page <= d.MaxGeneratedPage; page++ {
			candidates = append(candidates, d.Template.Page(page))
		}
	}

	out := []string{}
	dedupe := map[string]struct{}{}
	for _, link := range candidates {
		if _, ok := dedupe[link]; ok {
			continue
		}
		dedupe[link] = struct{}{}
		if seen != nil && seen(link) {
			continue
		}
		out = append(out, link)
	}
	return out
}
