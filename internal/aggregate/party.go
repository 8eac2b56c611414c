// Package aggregate derives per-party and per-alliance rollups from a
// snapshot. Every function here is pure, the same snapshot always yields the
// same report.
package aggregate

import (
	"errors"
	"math"
	"sort"
	"time"

	"electiontracker/internal/election"
)

var ErrEmptySnapshot = errors.New("aggregate: snapshot has no records")

type PartyConstituency struct {
	Name       string          `json:"name"`
	SeatNumber int             `json:"constNo,omitempty"`
	Candidate  string          `json:"candidate"`
	Margin     int             `json:"margin"`
	Status     election.Status `json:"status"`
}

type PartyRollup struct {
	Name     string `json:"name"`
	Declared int    `json:"declared"`
	Leading  int    `json:"leading"`
	Trailing int    `json:"trailing"`
	// TotalSeats is declared + leading + trailing, the number of races the
	// party is involved in at the top two positions.
	TotalSeats int `json:"totalSeats"`
	// SeatsLeading is declared + leading.
	SeatsLeading int `json:"seatsLeading"`
	// SeatsContested counts the seats where the party is first or second.
	SeatsContested int                 `json:"seatsContested"`
	Constituencies []PartyConstituency `json:"constituencies"`
	TotalMargin    int                 `json:"totalMargin"`
	AvgMargin      int                 `json:"avgMargin"`
}

type PartySummary struct {
	TotalParties    int `json:"totalParties"`
	PartiesLeading  int `json:"partiesLeading"`
	PartiesTrailing int `json:"partiesTrailing"`
}

type PartyReport struct {
	Timestamp  time.Time     `json:"timestamp"`
	Parties    []PartyRollup `json:"parties"`
	TotalSeats int           `json:"totalSeats"`
	Summary    PartySummary  `json:"summary"`
}

func knownParty(name string) bool {
	return name != "" && name != election.UnknownParty
}

func averageMargin(total, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(count)))
}

func totalSeatsOf(snapshot election.Snapshot) int {
	if snapshot.Summary.TotalSeats > 0 {
		return snapshot.Summary.TotalSeats
	}
	return len(snapshot.States)
}

// AggregateParties groups records by leading party and counts trailing
// positions by trailing party. The Unknown sentinel is never a party.
func AggregateParties(snapshot election.Snapshot) (PartyReport, error) {
	if snapshot.IsEmpty() {
		return PartyReport{}, ErrEmptySnapshot
	}

	byName := map[string]*PartyRollup{}
	var order []string
	party := func(name string) *PartyRollup {
		p, ok := byName[name]
		if !ok {
			p = &PartyRollup{Name: name, Constituencies: []PartyConstituency{}}
			byName[name] = p
			order = append(order, name)
		}
		return p
	}

	for _, c := range snapshot.States {
		status := c.EffectiveStatus()
		if knownParty(c.LeadingParty) {
			p := party(c.LeadingParty)
			switch status {
			case election.StatusDeclared:
				p.Declared++
			case election.StatusLeading:
				p.Leading++
			}
			p.Constituencies = append(p.Constituencies, PartyConstituency{
				Name:       c.Name,
				SeatNumber: c.SeatNumber,
				Candidate:  c.LeadingCandidate,
				Margin:     c.Margin,
				Status:     status,
			})
			p.TotalMargin += c.Margin
		}
		if knownParty(c.TrailingParty) {
			party(c.TrailingParty).Trailing++
		}
	}

	parties := make([]PartyRollup, 0, len(order))
	summary := PartySummary{}
	for _, name := range order {
		p := byName[name]
		p.SeatsLeading = p.Declared + p.Leading
		p.TotalSeats = p.SeatsLeading + p.Trailing
		p.SeatsContested = len(p.Constituencies) + p.Trailing
		p.AvgMargin = averageMargin(p.TotalMargin, len(p.Constituencies))
		parties = append(parties, *p)

		if p.SeatsLeading > 0 {
			summary.PartiesLeading++
		}
		if p.Trailing > 0 {
			summary.PartiesTrailing++
		}
	}
	summary.TotalParties = len(parties)

	sort.SliceStable(parties, func(i, j int) bool {
		a, b := parties[i], parties[j]
		if a.SeatsLeading != b.SeatsLeading {
			return a.SeatsLeading > b.SeatsLeading
		}
		if a.Leading != b.Leading {
			return a.Leading > b.Leading
		}
		return a.Name < b.Name
	})

	return PartyReport{
		Timestamp:  snapshot.Timestamp,
		Parties:    parties,
		TotalSeats: totalSeatsOf(snapshot),
		Summary:    summary,
	}, nil
}
