package htmlutil

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t testing.TB, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{input: "  Valmiki\n\tNagar  ", expected: "Valmiki Nagar"},
		{input: "", expected: ""},
		{input: "a\u0000b", expected: "ab"},
		{input: "one   two\n\nthree", expected: "one two three"},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, CleanText(test.input))
	}
}

func TestCellTextStripsNested(t *testing.T) {
	doc := mustDoc(t, `<table><tr><td id="cell">
		Janata Dal (United)
		<table><tr><td>nested</td></tr></table>
		<span class="tooltip">hover text</span>
	</td></tr></table>`)

	cell := doc.Find("#cell")
	require.Equal(t, "Janata Dal (United)", CellText(cell, "table, .tooltip"))
	// the source document keeps its nested markup
	require.Equal(t, 1, cell.Find("table").Length())
	require.Contains(t, CellText(cell, ""), "nested")
}

func TestGetAnchors(t *testing.T) {
	doc := mustDoc(t, `<div>
		<a href="statewiseS042.htm"> 2 </a>
		<a href="/abs/page.htm#frag">abs</a>
		<a href="#top">top</a>
		<a>no href</a>
	</div>`)
	base, err := url.Parse("https://results.example.com/Result/statewiseS041.htm")
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), base, doc.Find("a"))
	require.Len(t, anchors, 2)
	require.Equal(t, "2", anchors[0].Name)
	require.Equal(t, "https://results.example.com/Result/statewiseS042.htm", anchors[0].Url.String())
	require.Equal(t, "https://results.example.com/abs/page.htm", anchors[1].Url.String())
}
