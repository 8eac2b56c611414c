package eci

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testTemplate = "https://results.test/ResultAcGenNov2025/statewiseS04{page}.htm"

func mustTemplate(t testing.TB, raw string) PageTemplate {
	template, err := ParsePageTemplate(raw)
	require.NoError(t, err)
	return template
}

func TestParsePageTemplate(t *testing.T) {
	for _, raw := range []string{
		"https://results.test/statewiseS041.htm",
		"statewiseS04{page}.htm",
		"https://results.test/{page}/statewiseS04{page}.htm",
	} {
		_, err := ParsePageTemplate(raw)
		require.ErrorIs(t, err, ErrInvalidTemplate, raw)
	}

	template := mustTemplate(t, testTemplate)
	require.Equal(t, "https://results.test/ResultAcGenNov2025/statewiseS043.htm", template.Page(3))
}

func TestDiscoverAnchors(t *testing.T) {
	template := mustTemplate(t, testTemplate)
	page, err := url.Parse(template.Page(1))
	require.NoError(t, err)

	d := Discoverer{Template: template, TotalSeats: 4, MaxGeneratedPage: 5}
	seen := func(link string) bool { return link == template.Page(1) }

	links := d.Discover(context.Background(), loadFixture(t, "statewise1.html"), page, seen, 3)
	if diff := cmp.Diff([]string{template.Page(2)}, links); diff != "" {
		t.Fatal(diff)
	}
}

func TestDiscoverGeneratesWhenBelowHalf(t *testing.T) {
	template := mustTemplate(t, testTemplate)
	page, err := url.Parse(template.Page(1))
	require.NoError(t, err)

	d := Discoverer{Template: template, TotalSeats: 243, MaxGeneratedPage: 4}
	seen := func(link string) bool { return link == template.Page(1) }

	links := d.Discover(context.Background(), loadFixture(t, "statewise1.html"), page, seen, 3)
	expected := []string{template.Page(2), template.Page(3), template.Page(4)}
	if diff := cmp.Diff(expected, links); diff != "" {
		t.Fatal(diff)
	}
}

func TestDiscoverGeneratesWithoutAnchors(t *testing.T) {
	template := mustTemplate(t, testTemplate)
	page, err := url.Parse(template.Page(1))
	require.NoError(t, err)

	doc := parseHtml(t, `<html><body><a href="other.htm">7</a><a href="mailto:x@y.z">1</a></body></html>`)
	d := Discoverer{Template: template, TotalSeats: 2, MaxGeneratedPage: 3}

	links := d.Discover(context.Background(), doc, page, nil, 2)
	expected := []string{template.Page(2), template.Page(3)}
	if diff := cmp.Diff(expected, links); diff != "" {
		t.Fatal(diff)
	}
}

func TestDiscoverNumberedAnchor(t *testing.T) {
	template := mustTemplate(t, testTemplate)
	page, err := url.Parse(template.Page(1))
	require.NoError(t, err)

	doc := parseHtml(t, `<html><body><a href="statewiseS04-page.htm?p=5"> 5 </a></body></html>`)
	d := Discoverer{Template: template, TotalSeats: 2, MaxGeneratedPage: 20}

	links := d.Discover(context.Background(), doc, page, nil, 2)
	require.Equal(t, []string{"https://results.test/ResultAcGenNov2025/statewiseS04-page.htm?p=5"}, links)
}
