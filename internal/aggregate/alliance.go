package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"electiontracker/internal/election"
	"electiontracker/lib/textutil"

	"github.com/antzucaro/matchr"
)

// OthersKey is the catch-all alliance for unknown and unaffiliated parties.
const OthersKey = "OTHERS"

// Alliance is one configured grouping of parties. A party belongs to the
// first alliance with a party name contained in it, or containing it.
type Alliance struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	ShortName string   `json:"short_name"`
	Color     string   `json:"color"`
	Parties   []string `json:"parties"`
}

// DefaultAlliances are the alliances contesting the 2025 Bihar assembly
// election.
func DefaultAlliances() []Alliance {
	return []Alliance{
		{
			Key:       "NDA",
			Name:      "NDA (National Democratic Alliance)",
			ShortName: "NDA",
			Color:     "#FF6B6B",
			Parties: []string{
				"Bharatiya Janata Party",
				"Janata Dal (United)",
				"Lok Janshakti Party (Ram Vilas)",
				"Hindustani Awam Morcha (Secular)",
				"Rashtriya Lok Janata Dal",
				"Vikassheel Insaan Party",
			},
		},
		{
			Key:       "MAHAGATHBANDHAN",
			Name:      "Mahagathbandhan (Grand Alliance)",
			ShortName: "MGB",
			Color:     "#4ECDC4",
			Parties: []string{
				"Rashtriya Janata Dal",
				"Indian National Congress",
				"Communist Party of India (Marxist-Leninist) (Liberation)",
				"Communist Party of India",
				"Communist Party of India (Marxist)",
				"All India Majlis-E-Ittehadul Muslimeen",
			},
		},
		{
			Key:       OthersKey,
			Name:      "Others/Independents",
			ShortName: "Others",
			Color:     "#95A5A6",
			Parties:   []string{},
		},
	}
}

// Rules maps party names to alliances.
type Rules struct {
	alliances []Alliance
}

// NewRules keeps the given order and appends the default Others alliance
// when none is configured.
func NewRules(alliances []Alliance) Rules {
	out := make([]Alliance, 0, len(alliances)+1)
	hasOthers := false
	for _, a := range alliances {
		if a.Key == OthersKey {
			hasOthers = true
		}
		out = append(out, a)
	}
	if !hasOthers {
		defaults := DefaultAlliances()
		out = append(out, defaults[len(defaults)-1])
	}
	return Rules{alliances: out}
}

func (r Rules) Alliances() []Alliance {
	return r.alliances
}

// AllianceOf returns the key of the alliance the party belongs to.
func (r Rules) AllianceOf(party string) string {
	if !knownParty(party) {
		return OthersKey
	}
	for _, a := range r.alliances {
		if a.Key == OthersKey {
			continue
		}
		for _, member := range a.Parties {
			if textutil.MutualContains(party, member) {
				return a.Key
			}
		}
	}
	return OthersKey
}

// Suggestion is the configured party closest to an unmatched party name.
type Suggestion struct {
	Party       string
	AllianceKey string
	Member      string
	Score       float64
}

// SuggestAlliance looks for the configured party most similar to a party
// that currently falls into Others. ok is false when the party is already
// matched or nothing scores at least minScore.
func (r Rules) SuggestAlliance(party string, minScore float64) (Suggestion, bool) {
	if !knownParty(party) || r.AllianceOf(party) != OthersKey {
		return Suggestion{}, false
	}

	best := Suggestion{Party: party}
	normalized := strings.ToLower(party)
	for _, a := range r.alliances {
		for _, member := range a.Parties {
			score := matchr.JaroWinkler(normalized, strings.ToLower(member), false)
			if score > best.Score {
				best.AllianceKey = a.Key
				best.Member = member
				best.Score = score
			}
		}
	}
	if best.Score < minScore {
		return Suggestion{}, false
	}
	return best, true
}

type AllianceParty struct {
	Name     string `json:"name"`
	Declared int    `json:"declared"`
	Leading  int    `json:"leading"`
	// TotalSeats is declared + leading.
	TotalSeats int `json:"totalSeats"`
}

type AllianceConstituency struct {
	Name       string          `json:"name"`
	SeatNumber int             `json:"constNo,omitempty"`
	Party      string          `json:"party"`
	Candidate  string          `json:"candidate"`
	Margin     int             `json:"margin"`
	Status     election.Status `json:"status"`
}

// Projection extrapolates the current tally linearly to the whole house.
type Projection struct {
	Current        int     `json:"current"`
	Percentage     float64 `json:"percentage"`
	ProjectedSeats int     `json:"projectedSeats"`
	Majority       bool    `json:"majority"`
}

type AllianceRollup struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Color     string `json:"color"`

	Declared int `json:"declared"`
	Leading  int `json:"leading"`
	Trailing int `json:"trailing"`
	// TotalSeats is declared + leading.
	TotalSeats int `json:"totalSeats"`

	Parties        []AllianceParty        `json:"parties"`
	Constituencies []AllianceConstituency `json:"constituencies"`
	TotalMargin    int                    `json:"totalMargin"`
	AvgMargin      int                    `json:"avgMargin"`
	Projection     Projection             `json:"projection"`
}

type AllianceSummary struct {
	TotalAlliances int `json:"totalAlliances"`
	// LeadingAlliance is the key of the first alliance with the most
	// declared + leading seats.
	LeadingAlliance   string `json:"leadingAlliance"`
	MajorityThreshold int    `json:"majorityThreshold"`
}

type AllianceReport struct {
	Timestamp  time.Time        `json:"timestamp"`
	Alliances  []AllianceRollup `json:"alliances"`
	TotalSeats int              `json:"totalSeats"`
	Summary    AllianceSummary  `json:"summary"`
}

// MajorityThreshold is the number of seats needed to form a government.
func MajorityThreshold(totalSeats int) int {
	return (totalSeats + 1) / 2
}

func project(current, totalSeats int) Projection {
	if totalSeats <= 0 {
		return Projection{Current: current}
	}
	percentage := float64(current) / float64(totalSeats) * 100
	return Projection{
		Current:        current,
		Percentage:     math.Round(percentage*10) / 10,
		ProjectedSeats: int(math.Round(percentage / 100 * float64(totalSeats))),
		Majority:       float64(current) > float64(totalSeats)/2,
	}
}

// AggregateAlliances attributes every record to the alliance of its leading
// party, and counts a trailing position for the trailing party's alliance
// when it differs from the leading one.
func (r Rules) AggregateAlliances(snapshot election.Snapshot) (AllianceReport, error) {
	if snapshot.IsEmpty() {
		return AllianceReport{}, ErrEmptySnapshot
	}

	rollups := make([]AllianceRollup, len(r.alliances))
	index := make(map[string]int, len(r.alliances))
	parties := make([]map[string]*AllianceParty, len(r.alliances))
	for i, a := range r.alliances {
		rollups[i] = AllianceRollup{
			Key:            a.Key,
			Name:           a.Name,
			ShortName:      a.ShortName,
			Color:          a.Color,
			Parties:        []AllianceParty{},
			Constituencies: []AllianceConstituency{},
		}
		index[a.Key] = i
		parties[i] = map[string]*AllianceParty{}
	}

	for _, c := range snapshot.States {
		status := c.EffectiveStatus()
		leadingIdx := index[r.AllianceOf(c.LeadingParty)]
		trailingIdx := index[r.AllianceOf(c.TrailingParty)]
		leading := &rollups[leadingIdx]

		switch status {
		case election.StatusDeclared:
			leading.Declared++
		case election.StatusLeading:
			leading.Leading++
		}

		if knownParty(c.LeadingParty) {
			p, ok := parties[leadingIdx][c.LeadingParty]
			if !ok {
				p = &AllianceParty{Name: c.LeadingParty}
				parties[leadingIdx][c.LeadingParty] = p
			}
			switch status {
			case election.StatusDeclared:
				p.Declared++
			case election.StatusLeading:
				p.Leading++
			}
		}

		leading.Constituencies = append(leading.Constituencies, AllianceConstituency{
			Name:       c.Name,
			SeatNumber: c.SeatNumber,
			Party:      c.LeadingParty,
			Candidate:  c.LeadingCandidate,
			Margin:     c.Margin,
			Status:     status,
		})
		leading.TotalMargin += c.Margin

		if trailingIdx != leadingIdx {
			rollups[trailingIdx].Trailing++
		}
	}

	totalSeats := totalSeatsOf(snapshot)
	leadingAlliance := ""
	best := -1
	for i := range rollups {
		a := &rollups[i]
		a.TotalSeats = a.Declared + a.Leading
		a.AvgMargin = averageMargin(a.TotalMargin, len(a.Constituencies))
		a.Projection = project(a.TotalSeats, totalSeats)

		for _, p := range parties[i] {
			p.TotalSeats = p.Declared + p.Leading
			a.Parties = append(a.Parties, *p)
		}
		sort.Slice(a.Parties, func(x, y int) bool {
			if a.Parties[x].TotalSeats != a.Parties[y].TotalSeats {
				return a.Parties[x].TotalSeats > a.Parties[y].TotalSeats
			}
			return a.Parties[x].Name < a.Parties[y].Name
		})

		if a.TotalSeats > best {
			best = a.TotalSeats
			leadingAlliance = a.Key
		}
	}

	return AllianceReport{
		Timestamp:  snapshot.Timestamp,
		Alliances:  rollups,
		TotalSeats: totalSeats,
		Summary: AllianceSummary{
			TotalAlliances:    len(rollups),
			LeadingAlliance:   leadingAlliance,
			MajorityThreshold: MajorityThreshold(totalSeats),
		},
	}, nil
}

// AggregateAlliances runs Rules.AggregateAlliances with the given
// alliances.
func AggregateAlliances(snapshot election.Snapshot, alliances []Alliance) (AllianceReport, error) {
	return NewRules(alliances).AggregateAlliances(snapshot)
}
