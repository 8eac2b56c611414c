package commands

import (
	"fmt"

	"electiontracker/internal/aggregate"
	"electiontracker/internal/election"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func summaryTable(snapshot election.Snapshot) table.Writer {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Crawled at %s", snapshot.Timestamp.Format("2006-01-02 15:04:05 MST")))
	t.AppendHeader(table.Row{"Seats", "Declared", "Leading", "Pending", "Fallback"})
	t.AppendRow(table.Row{
		snapshot.Summary.TotalSeats,
		snapshot.Summary.Declared,
		snapshot.Summary.Leading,
		snapshot.Summary.Pending,
		snapshot.Fallback,
	})
	return t
}

func sampleTable(snapshot election.Snapshot, n int) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Constituency", "Leading", "Party", "Margin", "Status"})
	for _, c := range snapshot.States[:min(n, len(snapshot.States))] {
		t.AppendRow(table.Row{c.SeatNumber, c.Name, c.LeadingCandidate, c.LeadingParty, c.Margin, c.EffectiveStatus()})
	}
	return t
}

func partyTable(report aggregate.PartyReport) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Party", "Won", "Leading", "Trailing", "Won + Leading", "Avg margin"})
	for _, p := range report.Parties {
		t.AppendRow(table.Row{p.Name, p.Declared, p.Leading, p.Trailing, p.SeatsLeading, p.AvgMargin})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return t
}

func allianceTable(report aggregate.AllianceReport) table.Writer {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf(
		"Majority at %d of %d, leading: %s",
		report.Summary.MajorityThreshold,
		report.TotalSeats,
		report.Summary.LeadingAlliance,
	))
	t.AppendHeader(table.Row{"Alliance", "Won", "Leading", "Total", "Projected", "%", "Majority"})
	for _, a := range report.Alliances {
		t.AppendRow(table.Row{
			a.ShortName,
			a.Declared,
			a.Leading,
			a.TotalSeats,
			a.Projection.ProjectedSeats,
			a.Projection.Percentage,
			a.Projection.Majority,
		})
	}
	return t
}

func suggestionTable(suggestions []aggregate.Suggestion) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Unmatched party", "Closest member", "Alliance", "Score"})
	for _, s := range suggestions {
		t.AppendRow(table.Row{s.Party, s.Member, s.AllianceKey, fmt.Sprintf("%.2f", s.Score)})
	}
	return t
}
