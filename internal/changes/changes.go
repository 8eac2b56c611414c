// Package changes detects what moved between two snapshots and keeps a short
// history of it.
package changes

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"electiontracker/internal/election"
)

type Type string

const (
	TypeNew             Type = "new"
	TypeStatusChange    Type = "status_change"
	TypeCandidateChange Type = "candidate_change"
	TypePartyChange     Type = "party_change"
)

const (
	firstUpdateSummary = "Initial data load"
	noChangesSummary   = "No changes detected"
)

// Change is one difference for one seat, only the fields relevant to Type
// are set.
type Change struct {
	Type         Type            `json:"type"`
	Constituency string          `json:"constituency"`
	SeatNumber   int             `json:"constNo,omitempty"`
	Candidate    string          `json:"candidate,omitempty"`
	Party        string          `json:"party,omitempty"`
	Status       election.Status `json:"status,omitempty"`

	OldStatus    election.Status `json:"oldStatus,omitempty"`
	NewStatus    election.Status `json:"newStatus,omitempty"`
	OldCandidate string          `json:"oldCandidate,omitempty"`
	NewCandidate string          `json:"newCandidate,omitempty"`
	OldParty     string          `json:"oldParty,omitempty"`
	NewParty     string          `json:"newParty,omitempty"`
}

type Stats struct {
	StatusChanges     int `json:"statusChanges"`
	CandidateChanges  int `json:"candidateChanges"`
	PartyChanges      int `json:"partyChanges"`
	NewConstituencies int `json:"newConstituencies"`
	TotalChanges      int `json:"totalChanges"`
}

// Event is the outcome of one crawl compared to the one before it.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	IsFirstUpdate bool      `json:"isFirstUpdate"`
	Summary       string    `json:"summary"`
	Changes       []Change  `json:"changes"`
	Stats         Stats     `json:"stats"`
}

// HasChanges is false for the first update and for events without changes.
func (e Event) HasChanges() bool {
	return !e.IsFirstUpdate && len(e.Changes) > 0
}

func (s *Stats) count(change Change) {
	switch change.Type {
	case TypeNew:
		s.NewConstituencies++
	case TypeStatusChange:
		s.StatusChanges++
	case TypeCandidateChange:
		s.CandidateChanges++
	case TypePartyChange:
		s.PartyChanges++
	}
	s.TotalChanges++
}

func plural(n int, noun, suffix string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %s%s", n, noun, suffix)
}

// Summary renders the stats as a sentence, ex. "2 status changes, 1 party change".
func (s Stats) Summary() string {
	var parts []string
	if s.StatusChanges > 0 {
		parts = append(parts, plural(s.StatusChanges, "status change", "s"))
	}
	if s.CandidateChanges > 0 {
		parts = append(parts, plural(s.CandidateChanges, "candidate change", "s"))
	}
	if s.PartyChanges > 0 {
		parts = append(parts, plural(s.PartyChanges, "party change", "s"))
	}
	if s.NewConstituencies > 0 {
		parts = append(parts, plural(s.NewConstituencies, "new result", "s"))
	}
	if len(parts) == 0 {
		return noChangesSummary
	}
	return strings.Join(parts, ", ")
}

// Diff compares current against previous. The status, candidate and party
// checks are independent so one seat can yield up to three changes. The
// event is stamped with the time of the current snapshot.
func Diff(previous, current election.Snapshot) Event {
	if previous.IsEmpty() {
		return Event{
			Timestamp:     current.Timestamp,
			IsFirstUpdate: true,
			Summary:       firstUpdateSummary,
			Changes:       []Change{},
		}
	}

	old := make(map[string]election.Constituency, len(previous.States))
	for _, c := range previous.States {
		old[c.Key()] = c
	}

	changes := []Change{}
	stats := Stats{}
	add := func(change Change) {
		changes = append(changes, change)
		stats.count(change)
	}

	for _, next := range current.States {
		prev, ok := old[next.Key()]
		if !ok {
			add(Change{
				Type:         TypeNew,
				Constituency: next.Name,
				SeatNumber:   next.SeatNumber,
				Candidate:    next.LeadingCandidate,
				Party:        next.LeadingParty,
				Status:       next.EffectiveStatus(),
			})
			continue
		}

		if prevStatus, nextStatus := prev.EffectiveStatus(), next.EffectiveStatus(); prevStatus != nextStatus {
			add(Change{
				Type:         TypeStatusChange,
				Constituency: next.Name,
				SeatNumber:   next.SeatNumber,
				OldStatus:    prevStatus,
				NewStatus:    nextStatus,
				Candidate:    next.LeadingCandidate,
				Party:        next.LeadingParty,
			})
		}
		if prev.LeadingCandidate != next.LeadingCandidate {
			add(Change{
				Type:         TypeCandidateChange,
				Constituency: next.Name,
				SeatNumber:   next.SeatNumber,
				OldCandidate: prev.LeadingCandidate,
				NewCandidate: next.LeadingCandidate,
				Party:        next.LeadingParty,
			})
		}
		if prev.LeadingParty != next.LeadingParty {
			add(Change{
				Type:         TypePartyChange,
				Constituency: next.Name,
				SeatNumber:   next.SeatNumber,
				OldParty:     prev.LeadingParty,
				NewParty:     next.LeadingParty,
				Candidate:    next.LeadingCandidate,
			})
		}
	}

	return Event{
		Timestamp: current.Timestamp,
		Summary:   stats.Summary(),
		Changes:   changes,
		Stats:     stats,
	}
}

const DefaultHistoryLimit = 50

// History is a bounded, most-recent-first list of events. It is safe for
// concurrent use.
type History struct {
	mu     sync.RWMutex
	limit  int
	events []Event
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Record puts the event in front, evicting the oldest ones past the limit.
func (h *History) Record(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	events := make([]Event, 0, min(len(h.events)+1, h.limit))
	events = append(events, event)
	for _, e := range h.events {
		if len(events) == h.limit {
			break
		}
		events = append(events, e)
	}
	h.events = events
}

// Events returns a copy, most recent first.
func (h *History) Events() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}
