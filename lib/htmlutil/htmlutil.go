package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("electiontracker.lib.htmlutil")

// GetText concatenates every text node under node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText trims the string and collapses every whitespace run into a single space.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CellText returns the cleaned text of a selection without the text of the
// elements matched by `strip` (ex. nested tables or tooltips).
// The original document is not modified.
func CellText(sel *goquery.Selection, strip string) string {
	clone := sel.Clone()
	if strip != "" {
		clone.Find(strip).Remove()
	}
	var text strings.Builder
	for _, n := range clone.Nodes {
		text.WriteString(GetText(n))
	}
	return CleanText(text.String())
}

type Anchor struct {
	Name string
	Url  *url.URL
}

// GetAnchors collects every anchor in sel that has a parsable href, hrefs
// are resolved against base.
func GetAnchors(ctx context.Context, base *url.URL, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	sel.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		link, err := base.Parse(href)
		if err != nil {
			span.RecordError(err)
			return
		}
		link.Fragment = ""

		name := CleanText(s.Text())
		anchors = append(anchors, Anchor{
			Name: name,
			Url:  link,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", link.String()),
		))
	})

	return anchors
}
