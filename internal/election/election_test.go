package election

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func record(seat int, name string, status Status) Constituency {
	c := Constituency{
		Name:          name,
		SeatNumber:    seat,
		LeadingParty:  "Bharatiya Janata Party",
		TrailingParty: "Rashtriya Janata Dal",
	}
	c.SetStatus(status)
	return c
}

func TestSetStatus(t *testing.T) {
	table := []struct {
		status   Status
		expected [3]int
	}{
		{status: StatusDeclared, expected: [3]int{1, 0, 0}},
		{status: StatusLeading, expected: [3]int{0, 1, 0}},
		{status: StatusPending, expected: [3]int{0, 0, 1}},
		{status: "", expected: [3]int{0, 0, 1}},
	}
	for _, row := range table {
		var c Constituency
		c.SetStatus(row.status)
		require.Equal(t, row.expected, [3]int{c.Declared, c.Leading, c.Pending}, row.status)
		require.Equal(t, 1, c.Declared+c.Leading+c.Pending)
	}
}

func TestEffectiveStatus(t *testing.T) {
	require.Equal(t, StatusLeading, Constituency{Status: StatusLeading, Declared: 1}.EffectiveStatus())
	require.Equal(t, StatusDeclared, Constituency{Declared: 1}.EffectiveStatus())
	require.Equal(t, StatusLeading, Constituency{Leading: 1}.EffectiveStatus())
	require.Equal(t, StatusPending, Constituency{}.EffectiveStatus())
}

func TestKey(t *testing.T) {
	require.Equal(t, "12", Constituency{Name: "Gaya Town", SeatNumber: 12}.Key())
	require.Equal(t, "name:Gaya Town", Constituency{Name: "Gaya Town"}.Key())
}

func TestNormalize(t *testing.T) {
	c := Constituency{Name: "Hilsa", SeatNumber: 3, Margin: -4, Declared: 1}
	c.Normalize()
	require.Equal(t, UnknownParty, c.LeadingParty)
	require.Equal(t, UnknownParty, c.TrailingParty)
	require.Equal(t, 0, c.Margin)
	require.Equal(t, StatusDeclared, c.Status)
	require.Equal(t, 0, c.Pending)
}

func TestCanonicalize(t *testing.T) {
	records := []Constituency{
		record(3, "Ramnagar", StatusLeading),
		record(1, "Valmiki Nagar", StatusDeclared),
		record(3, "Ramnagar Duplicate", StatusDeclared),
		record(9, "Out Of Range", StatusDeclared),
		record(0, "No Seat", StatusDeclared),
		record(2, "X", StatusDeclared),
	}

	out := Canonicalize(records, 5)
	require.Len(t, out, 5)

	names := []string{}
	for i, c := range out {
		require.Equal(t, i+1, c.SeatNumber)
		names = append(names, c.Name)
	}
	expected := []string{"Valmiki Nagar", "Constituency 2", "Ramnagar", "Constituency 4", "Constituency 5"}
	if diff := cmp.Diff(expected, names); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, StatusLeading, out[2].Status)
	require.True(t, out[1].Placeholder)
	require.False(t, out[0].Placeholder)
}

func TestCanonicalizeTruncates(t *testing.T) {
	var records []Constituency
	for i := 1; i <= 10; i++ {
		records = append(records, record(i, fmt.Sprintf("Seat %d", i), StatusDeclared))
	}
	out := Canonicalize(records, 4)
	require.Len(t, out, 4)
	require.Equal(t, "Seat 4", out[3].Name)
}

func TestNewSnapshotInvariants(t *testing.T) {
	now := time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)
	records := []Constituency{
		record(1, "Valmiki Nagar", StatusDeclared),
		record(2, "Ramnagar", StatusLeading),
		record(5, "Bagaha", StatusLeading),
	}

	snapshot := NewSnapshot(now, records, 243)
	require.NoError(t, snapshot.Validate(243))
	require.Equal(t, now, snapshot.Timestamp)
	require.Equal(t, Summary{TotalSeats: 243, Declared: 1, Leading: 2, Pending: 240}, snapshot.Summary)
	require.False(t, snapshot.Fallback)
}

func TestFallbackSnapshot(t *testing.T) {
	snapshot := FallbackSnapshot(time.Now(), 243)
	require.True(t, snapshot.Fallback)
	require.NoError(t, snapshot.Validate(243))
	require.Equal(t, 243, snapshot.Summary.Pending)
	for _, c := range snapshot.States {
		require.True(t, c.Placeholder)
		require.Equal(t, StatusPending, c.Status)
	}
}

func TestValidate(t *testing.T) {
	snapshot := NewSnapshot(time.Now(), nil, 3)
	require.NoError(t, snapshot.Validate(3))
	require.ErrorIs(t, snapshot.Validate(4), ErrInvalidSnapshot)

	broken := snapshot.Clone()
	broken.States[2].SeatNumber = 1
	require.ErrorIs(t, broken.Validate(3), ErrInvalidSnapshot)
	// the original is untouched by edits to the clone
	require.NoError(t, snapshot.Validate(3))
}

func TestSummarizeFloorsPending(t *testing.T) {
	records := []Constituency{
		record(1, "Valmiki Nagar", StatusDeclared),
		record(2, "Ramnagar", StatusDeclared),
		record(3, "Bagaha", StatusLeading),
	}
	require.Equal(t, Summary{TotalSeats: 2, Declared: 2, Leading: 1, Pending: 0}, Summarize(records, 2))
}
