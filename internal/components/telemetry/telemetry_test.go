package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("eci_scraper", rec)

	scoped.ReportBroken("client.fetch", "boom")
	scoped.ReportWarning("crawler.crawl")
	scoped.ReportDebug("fetching page", "https://example.com")
	scoped.ReportCount("crawler.pages-visited", 3)

	broken := rec.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "eci_scraper: client.fetch", broken[0].Id)
	require.Equal(t, []any{"boom"}, broken[0].Params)

	warnings := rec.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, "eci_scraper: crawler.crawl", warnings[0].Id)

	debug := rec.Reports("debug")
	require.Len(t, debug, 1)
	require.Equal(t, "eci_scraper: fetching page", debug[0].Id)

	counts := rec.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)
}

func TestNestedScopes(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("inner", NewScopedAPI("outer", rec))
	scoped.ReportWarning("store.replace")

	warnings := rec.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, "outer: inner: store.replace", warnings[0].Id)
}
