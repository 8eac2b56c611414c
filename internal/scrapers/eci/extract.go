package eci

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"electiontracker/internal/election"
	"electiontracker/lib/htmlutil"
	"electiontracker/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("electiontracker.scrapers.eci")

// Extractor turns a results page into records. Table heuristics live behind
// this so they can change without touching the crawl.
type Extractor interface {
	Extract(ctx context.Context, doc *goquery.Document) []election.Constituency
}

const (
	resultTableSelector = "table.table, table.table-striped, table.table-bordered"
	strippedSelector    = "table, .tooltip, .tooltip-icon"
	partyTooltipMarker  = "iParty"

	minTableRows = 10
	rowCells     = 9
)

// TableExtractor reads the statewise results table:
// name | seat | leading candidate | leading party | trailing candidate |
// trailing party | margin | round | status
type TableExtractor struct{}

func (TableExtractor) Extract(ctx context.Context, doc *goquery.Document) []election.Constituency {
	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	table := locateTable(doc)
	if table.Length() == 0 {
		span.SetAttributes(attribute.Bool("table_found", false))
		return nil
	}

	var records []election.Constituency
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		record, ok := parseRow(row.ChildrenFiltered("td, th"))
		if ok {
			records = append(records, record)
		}
	})

	span.SetAttributes(attribute.Int("records", len(records)))
	return records
}

// locateTable prefers a table with a known results class, then the table
// with the most rows (only when above minTableRows), then the first table.
func locateTable(doc *goquery.Document) *goquery.Selection {
	marked := doc.Find(resultTableSelector).First()
	if marked.Length() > 0 {
		return marked
	}

	var largest *goquery.Selection
	maxRows := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr").Length()
		if rows > maxRows && rows > minTableRows {
			maxRows = rows
			largest = table
		}
	})
	if largest != nil {
		return largest
	}

	return doc.Find("table").First()
}

func cellText(cell *goquery.Selection) string {
	return htmlutil.CellText(cell, strippedSelector)
}

// partyName reads a party cell, which may nest a single cell table holding
// the party name followed by tooltip text.
func partyName(cell *goquery.Selection) string {
	nested := cell.Find("table td").First()
	if nested.Length() > 0 {
		text := nested.Text()
		before, _, _ := strings.Cut(text, partyTooltipMarker)
		return htmlutil.CleanText(before)
	}
	return cellText(cell)
}

func acceptName(name string) bool {
	length := utf8.RuneCountInString(name)
	if length < 2 || length >= 50 {
		return false
	}
	return !textutil.ContainsAnyFold(name, "status known", "constituency")
}

func parseRow(cells *goquery.Selection) (election.Constituency, bool) {
	if cells.Length() < rowCells {
		return election.Constituency{}, false
	}

	name := cellText(cells.Eq(0))
	seat := cellText(cells.Eq(1))
	if !acceptName(name) || !textutil.IsDigits(seat) {
		return election.Constituency{}, false
	}
	seatNumber, err := strconv.Atoi(seat)
	if err != nil {
		return election.Constituency{}, false
	}

	record := election.Constituency{
		Name:              name,
		SeatNumber:        seatNumber,
		LeadingCandidate:  cellText(cells.Eq(2)),
		LeadingParty:      partyName(cells.Eq(3)),
		TrailingCandidate: cellText(cells.Eq(4)),
		TrailingParty:     partyName(cells.Eq(5)),
		MarginText:        cellText(cells.Eq(6)),
		Round:             cellText(cells.Eq(7)),
	}
	record.Margin = ParseMargin(record.MarginText)
	if record.LeadingParty == "" {
		record.LeadingParty = election.UnknownParty
	}
	if record.TrailingParty == "" {
		record.TrailingParty = election.UnknownParty
	}
	record.SetStatus(ClassifyStatus(cellText(cells.Eq(8)), record.LeadingCandidate))

	return record, true
}

// ParseMargin parses a locale formatted number like "12,345", anything
// unparseable or negative is 0.
func ParseMargin(text string) int {
	margin, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(text), ",", ""))
	if err != nil || margin < 0 {
		return 0
	}
	return margin
}

type statusRule struct {
	status election.Status
	match  func(statusText, candidate string) bool
}

// statusRules are evaluated in order, the first match wins.
var statusRules = []statusRule{
	{
		status: election.StatusDeclared,
		match: func(statusText, _ string) bool {
			if textutil.ContainsAnyFold(statusText, "won", "declared") {
				return true
			}
			return textutil.ContainsFold(statusText, "result") &&
				!textutil.ContainsFold(statusText, "progress")
		},
	},
	{
		status: election.StatusLeading,
		match: func(statusText, _ string) bool {
			return textutil.ContainsAnyFold(statusText, "result in progress", "leading", "progress")
		},
	},
	{
		status: election.StatusLeading,
		match: func(_, candidate string) bool {
			return candidate != "" && !textutil.ContainsFold(candidate, "leading")
		},
	},
}

// ClassifyStatus derives the record status from the status column and the
// leading candidate column.
func ClassifyStatus(statusText, leadingCandidate string) election.Status {
	for _, rule := range statusRules {
		if rule.match(statusText, leadingCandidate) {
			return rule.status
		}
	}
	return election.StatusPending
}
