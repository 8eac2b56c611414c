package aggregate

import (
	"testing"
	"time"

	"electiontracker/internal/election"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	bjp = "Bharatiya Janata Party"
	jdu = "Janata Dal (United)"
	rjd = "Rashtriya Janata Dal"
	inc = "Indian National Congress"
	ind = "Independent"
)

func seat(n int, leadingParty, trailingParty string, status election.Status, margin int) election.Constituency {
	c := election.Constituency{
		Name:             "Seat",
		SeatNumber:       n,
		LeadingCandidate: "Candidate",
		LeadingParty:     leadingParty,
		TrailingParty:    trailingParty,
		Margin:           margin,
	}
	c.SetStatus(status)
	return c
}

var snapshotTime = time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)

func testSnapshot() election.Snapshot {
	return election.NewSnapshot(snapshotTime, []election.Constituency{
		seat(1, bjp, rjd, election.StatusDeclared, 1000),
		seat(2, bjp, inc, election.StatusLeading, 501),
		seat(3, rjd, jdu, election.StatusDeclared, 300),
		seat(4, jdu, bjp, election.StatusLeading, 100),
		seat(5, ind, rjd, election.StatusLeading, 50),
		seat(6, election.UnknownParty, election.UnknownParty, election.StatusPending, 0),
	}, 8)
}

func TestAggregateParties(t *testing.T) {
	report, err := AggregateParties(testSnapshot())
	require.NoError(t, err)
	require.Equal(t, snapshotTime, report.Timestamp)
	require.Equal(t, 8, report.TotalSeats)

	type row struct {
		Name                               string
		Declared, Leading, Trailing, Total int
		SeatsLeading, SeatsContested       int
		AvgMargin                          int
	}
	rows := []row{}
	for _, p := range report.Parties {
		rows = append(rows, row{
			Name:           p.Name,
			Declared:       p.Declared,
			Leading:        p.Leading,
			Trailing:       p.Trailing,
			Total:          p.TotalSeats,
			SeatsLeading:   p.SeatsLeading,
			SeatsContested: p.SeatsContested,
			AvgMargin:      p.AvgMargin,
		})
	}

	expected := []row{
		{Name: bjp, Declared: 1, Leading: 1, Trailing: 1, Total: 3, SeatsLeading: 2, SeatsContested: 3, AvgMargin: 751},
		{Name: ind, Leading: 1, Total: 1, SeatsLeading: 1, SeatsContested: 1, AvgMargin: 50},
		{Name: jdu, Leading: 1, Trailing: 1, Total: 2, SeatsLeading: 1, SeatsContested: 2, AvgMargin: 100},
		{Name: rjd, Declared: 1, Trailing: 2, Total: 3, SeatsLeading: 1, SeatsContested: 3, AvgMargin: 300},
		{Name: inc, Trailing: 1, Total: 1, SeatsContested: 1},
	}
	if diff := cmp.Diff(expected, rows); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, PartySummary{TotalParties: 5, PartiesLeading: 4, PartiesTrailing: 4}, report.Summary)
}

func TestAggregateIsPure(t *testing.T) {
	snapshot := testSnapshot()

	first, err := AggregateParties(snapshot)
	require.NoError(t, err)
	second, err := AggregateParties(snapshot)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(first, second))

	alliancesA, err := AggregateAlliances(snapshot, DefaultAlliances())
	require.NoError(t, err)
	alliancesB, err := AggregateAlliances(snapshot, DefaultAlliances())
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(alliancesA, alliancesB))
}

func TestAggregateEmpty(t *testing.T) {
	_, err := AggregateParties(election.Snapshot{})
	require.ErrorIs(t, err, ErrEmptySnapshot)
	_, err = AggregateAlliances(election.Snapshot{}, DefaultAlliances())
	require.ErrorIs(t, err, ErrEmptySnapshot)
}

func TestAllianceOf(t *testing.T) {
	rules := NewRules(DefaultAlliances())
	cases := []struct {
		party    string
		expected string
	}{
		{party: bjp, expected: "NDA"},
		{party: "Janata Party", expected: "NDA"},
		{party: "Lok Janshakti Party (Ram Vilas) - LJPRV", expected: "NDA"},
		{party: rjd, expected: "MAHAGATHBANDHAN"},
		{party: "Communist Party of India (Marxist)", expected: "MAHAGATHBANDHAN"},
		{party: ind, expected: OthersKey},
		{party: election.UnknownParty, expected: OthersKey},
		{party: "", expected: OthersKey},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, rules.AllianceOf(test.party), test.party)
	}
}

func TestAggregateAlliances(t *testing.T) {
	report, err := AggregateAlliances(testSnapshot(), DefaultAlliances())
	require.NoError(t, err)
	require.Len(t, report.Alliances, 3)

	nda, mgb, others := report.Alliances[0], report.Alliances[1], report.Alliances[2]

	require.Equal(t, "NDA", nda.Key)
	require.Equal(t, 1, nda.Declared)
	require.Equal(t, 2, nda.Leading)
	// seat 3 is RJD over JDU, seat 4 is JDU over BJP and does not count
	require.Equal(t, 1, nda.Trailing)
	require.Equal(t, 3, nda.TotalSeats)
	require.Equal(t, 534, nda.AvgMargin)
	require.Equal(t, []AllianceParty{
		{Name: bjp, Declared: 1, Leading: 1, TotalSeats: 2},
		{Name: jdu, Leading: 1, TotalSeats: 1},
	}, nda.Parties)
	require.Equal(t, Projection{Current: 3, Percentage: 37.5, ProjectedSeats: 3, Majority: false}, nda.Projection)

	require.Equal(t, 1, mgb.Declared)
	require.Equal(t, 0, mgb.Leading)
	// seats 1, 2 and 4 are NDA over MGB, seat 5 is Others over MGB
	require.Equal(t, 3, mgb.Trailing)
	require.Len(t, mgb.Constituencies, 1)

	require.Equal(t, OthersKey, others.Key)
	require.Equal(t, 1, others.Leading)
	// seat 5 and the pending seats 6, 7 and 8
	require.Len(t, others.Constituencies, 4)
	require.Equal(t, 0, others.Trailing)
	require.Equal(t, []AllianceParty{{Name: ind, Leading: 1, TotalSeats: 1}}, others.Parties)

	require.Equal(t, AllianceSummary{
		TotalAlliances:    3,
		LeadingAlliance:   "NDA",
		MajorityThreshold: 4,
	}, report.Summary)
}

func TestProjection(t *testing.T) {
	require.Equal(t, Projection{Current: 122, Percentage: 50.2, ProjectedSeats: 122, Majority: true}, project(122, 243))
	require.Equal(t, Projection{Current: 0, Percentage: 0, ProjectedSeats: 0, Majority: false}, project(0, 243))
	require.Equal(t, 122, MajorityThreshold(243))
	require.Equal(t, 4, MajorityThreshold(8))
}

func TestLeadingAllianceTieKeepsFirst(t *testing.T) {
	snapshot := election.NewSnapshot(snapshotTime, []election.Constituency{
		seat(1, rjd, bjp, election.StatusLeading, 10),
		seat(2, bjp, rjd, election.StatusLeading, 10),
	}, 2)
	report, err := AggregateAlliances(snapshot, DefaultAlliances())
	require.NoError(t, err)
	require.Equal(t, "NDA", report.Summary.LeadingAlliance)
}

func TestNewRulesAppendsOthers(t *testing.T) {
	rules := NewRules([]Alliance{{Key: "UPA", Name: "UPA", Parties: []string{inc}}})
	require.Len(t, rules.Alliances(), 2)
	require.Equal(t, OthersKey, rules.Alliances()[1].Key)
	require.Equal(t, "UPA", rules.AllianceOf(inc))
}

func TestSuggestAlliance(t *testing.T) {
	rules := NewRules(DefaultAlliances())

	suggestion, ok := rules.SuggestAlliance("Bharatiya Janta Prty", 0.85)
	require.True(t, ok)
	require.Equal(t, "NDA", suggestion.AllianceKey)
	require.Equal(t, bjp, suggestion.Member)

	_, ok = rules.SuggestAlliance(bjp, 0.85)
	require.False(t, ok)
	_, ok = rules.SuggestAlliance("Zzz", 0.85)
	require.False(t, ok)
}
