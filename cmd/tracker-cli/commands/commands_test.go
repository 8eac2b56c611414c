package commands

import (
	"testing"
	"time"

	"electiontracker/internal/aggregate"
	"electiontracker/internal/election"

	"github.com/stretchr/testify/require"
)

func testSnapshot() election.Snapshot {
	records := []election.Constituency{
		{Name: "Valmiki Nagar", SeatNumber: 1, LeadingCandidate: "A", LeadingParty: "Bharatiya Janata Party", TrailingParty: "Indian National Congress", Margin: 1200},
		{Name: "Ramnagar", SeatNumber: 2, LeadingCandidate: "B", LeadingParty: "Janata Dal (Utd)", TrailingParty: "Rashtriya Janata Dal", Margin: 300},
		{Name: "Narkatiaganj", SeatNumber: 3, LeadingCandidate: "C", LeadingParty: "Jan Suraaj Party", TrailingParty: election.UnknownParty},
	}
	records[0].SetStatus(election.StatusDeclared)
	records[1].SetStatus(election.StatusLeading)
	records[2].SetStatus(election.StatusLeading)
	return election.NewSnapshot(time.Date(2025, 11, 14, 9, 30, 0, 0, time.UTC), records, 3)
}

func TestUnmatchedParties(t *testing.T) {
	report, err := aggregate.AggregateParties(testSnapshot())
	require.NoError(t, err)

	suggestions := unmatchedParties(aggregate.NewRules(aggregate.DefaultAlliances()), report, 0.85)
	require.Len(t, suggestions, 1)
	require.Equal(t, "Janata Dal (Utd)", suggestions[0].Party)
	require.Equal(t, "Janata Dal (United)", suggestions[0].Member)
	require.Equal(t, "NDA", suggestions[0].AllianceKey)
}

func TestTables(t *testing.T) {
	snapshot := testSnapshot()

	summary := summaryTable(snapshot).Render()
	require.Contains(t, summary, "2025-11-14 09:30:00 UTC")

	sample := sampleTable(snapshot, 2).Render()
	require.Contains(t, sample, "Valmiki Nagar")
	require.Contains(t, sample, "Ramnagar")
	require.NotContains(t, sample, "Narkatiaganj")

	alliances, err := aggregate.AggregateAlliances(snapshot, aggregate.DefaultAlliances())
	require.NoError(t, err)
	rendered := allianceTable(alliances).Render()
	require.Contains(t, rendered, "Majority at 2 of 3")
	require.Contains(t, rendered, "NDA")
}
