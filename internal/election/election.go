// Package election holds the result records scraped for one contest and the
// snapshot they are published in.
package election

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

type Status string

const (
	StatusDeclared Status = "Declared"
	StatusLeading  Status = "Leading"
	StatusPending  Status = "Pending"
)

// UnknownParty is the sentinel used whenever a party cell is empty.
const UnknownParty = "Unknown"

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Constituency is one row of the result set.
type Constituency struct {
	Name       string `json:"name"`
	SeatNumber int    `json:"constNo,omitempty"`

	LeadingCandidate  string `json:"leadingCandidate"`
	LeadingParty      string `json:"leadingParty"`
	TrailingCandidate string `json:"trailingCandidate"`
	TrailingParty     string `json:"trailingParty"`

	Margin     int    `json:"margin"`
	MarginText string `json:"marginText,omitempty"`
	Round      string `json:"round"`

	Status   Status `json:"status"`
	Declared int    `json:"declared"`
	Leading  int    `json:"leading"`
	Pending  int    `json:"pending"`

	Placeholder bool `json:"placeholder,omitempty"`
}

// Key is the identity of a record within a snapshot: the seat number when
// present, otherwise the name.
func (c Constituency) Key() string {
	if c.SeatNumber > 0 {
		return strconv.Itoa(c.SeatNumber)
	}
	return "name:" + c.Name
}

// EffectiveStatus returns Status, or the status implied by the counters when
// Status is empty.
func (c Constituency) EffectiveStatus() Status {
	switch {
	case c.Status != "":
		return c.Status
	case c.Declared > 0:
		return StatusDeclared
	case c.Leading > 0:
		return StatusLeading
	default:
		return StatusPending
	}
}

// SetStatus sets the status and the matching {0,1} counters.
func (c *Constituency) SetStatus(status Status) {
	c.Status = status
	c.Declared, c.Leading, c.Pending = 0, 0, 0
	switch status {
	case StatusDeclared:
		c.Declared = 1
	case StatusLeading:
		c.Leading = 1
	default:
		c.Status = StatusPending
		c.Pending = 1
	}
}

// Normalize repairs a record received from outside the scraper so that it
// satisfies the same invariants as an extracted one.
func (c *Constituency) Normalize() {
	if c.LeadingParty == "" {
		c.LeadingParty = UnknownParty
	}
	if c.TrailingParty == "" {
		c.TrailingParty = UnknownParty
	}
	if c.Margin < 0 {
		c.Margin = 0
	}
	c.SetStatus(c.EffectiveStatus())
}

// Placeholder synthesizes the pending record used for a seat no page
// reported.
func Placeholder(seat int) Constituency {
	c := Constituency{
		Name:          fmt.Sprintf("Constituency %d", seat),
		SeatNumber:    seat,
		LeadingParty:  UnknownParty,
		TrailingParty: UnknownParty,
		Placeholder:   true,
	}
	c.SetStatus(StatusPending)
	return c
}

type Summary struct {
	TotalSeats int `json:"totalSeats"`
	Declared   int `json:"declared"`
	Leading    int `json:"leading"`
	Pending    int `json:"pending"`
}

// Summarize counts records by status, pending is whatever is left of
// totalSeats.
func Summarize(records []Constituency, totalSeats int) Summary {
	s := Summary{TotalSeats: totalSeats}
	for _, c := range records {
		switch c.EffectiveStatus() {
		case StatusDeclared:
			s.Declared++
		case StatusLeading:
			s.Leading++
		}
	}
	s.Pending = max(0, totalSeats-s.Declared-s.Leading)
	return s
}

// Canonicalize returns exactly totalSeats records ordered by seat number.
//
// Duplicate keys keep the first record, records with a seat number outside
// [1, totalSeats] are dropped and seats left without a record get a
// Placeholder.
func Canonicalize(records []Constituency, totalSeats int) []Constituency {
	seen := make(map[string]struct{}, len(records))
	bySeat := make(map[int]Constituency, totalSeats)
	for _, c := range records {
		if len(c.Name) < 2 {
			continue
		}
		key := c.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if c.SeatNumber < 1 || c.SeatNumber > totalSeats {
			continue
		}
		bySeat[c.SeatNumber] = c
	}

	out := make([]Constituency, 0, totalSeats)
	for _, c := range bySeat {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeatNumber != out[j].SeatNumber {
			return out[i].SeatNumber < out[j].SeatNumber
		}
		return out[i].Name < out[j].Name
	})

	filled := make([]Constituency, 0, totalSeats)
	next := 0
	for seat := 1; seat <= totalSeats; seat++ {
		if next < len(out) && out[next].SeatNumber == seat {
			filled = append(filled, out[next])
			next++
			continue
		}
		filled = append(filled, Placeholder(seat))
	}
	return filled[:totalSeats]
}

// Snapshot is one complete result set as of Timestamp. A snapshot is never
// modified after construction, readers that need to change it work on Clone.
type Snapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	States    []Constituency `json:"states"`
	Summary   Summary        `json:"summary"`
	// Fallback is set when no page could be fetched and every record is a
	// placeholder.
	Fallback bool `json:"fallback"`
}

// NewSnapshot canonicalizes the records and derives the summary.
func NewSnapshot(timestamp time.Time, records []Constituency, totalSeats int) Snapshot {
	states := Canonicalize(records, totalSeats)
	return Snapshot{
		Timestamp: timestamp,
		States:    states,
		Summary:   Summarize(states, totalSeats),
	}
}

// FallbackSnapshot is the snapshot served when a crawl fetched nothing.
func FallbackSnapshot(timestamp time.Time, totalSeats int) Snapshot {
	snapshot := NewSnapshot(timestamp, nil, totalSeats)
	snapshot.Fallback = true
	return snapshot
}

func (s Snapshot) IsEmpty() bool {
	return len(s.States) == 0
}

func (s Snapshot) Clone() Snapshot {
	if s.States == nil {
		return s
	}
	states := make([]Constituency, len(s.States))
	copy(states, s.States)
	s.States = states
	return s
}

// Validate checks the cardinality and seat number invariants.
func (s Snapshot) Validate(totalSeats int) error {
	if len(s.States) != totalSeats {
		return fmt.Errorf("%w: %d records, expected %d", ErrInvalidSnapshot, len(s.States), totalSeats)
	}
	seen := make(map[int]struct{}, totalSeats)
	for _, c := range s.States {
		if c.SeatNumber < 1 || c.SeatNumber > totalSeats {
			return fmt.Errorf("%w: seat %d of %q out of range", ErrInvalidSnapshot, c.SeatNumber, c.Name)
		}
		if _, ok := seen[c.SeatNumber]; ok {
			return fmt.Errorf("%w: duplicate seat %d", ErrInvalidSnapshot, c.SeatNumber)
		}
		seen[c.SeatNumber] = struct{}{}
	}
	if sum := s.Summary.Declared + s.Summary.Leading + s.Summary.Pending; sum != totalSeats {
		return fmt.Errorf("%w: summary adds up to %d", ErrInvalidSnapshot, sum)
	}
	return nil
}
