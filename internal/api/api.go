// Package api serves the tracker over JSON for the dashboard and for remote
// pushers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"electiontracker/internal/aggregate"
	"electiontracker/internal/changes"
	"electiontracker/internal/components/assert"
	"electiontracker/internal/components/telemetry"
	"electiontracker/internal/election"
	"electiontracker/internal/tracker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	report_api_party_wise    = "api.party-wise"
	report_api_alliance_wise = "api.alliance-wise"
	report_api_push_data     = "api.push-data"
	report_api_write         = "api.write"
)

const maxPushBytes = 10 << 20

// Tracker is the part of tracker.Service the api depends on.
type Tracker interface {
	Results(ctx context.Context, force bool) election.Snapshot
	Parties(ctx context.Context, force bool) (aggregate.PartyReport, error)
	Alliances(ctx context.Context, force bool) (aggregate.AllianceReport, error)
	Constituencies(ctx context.Context) election.Snapshot
	History() []changes.Event
	Ingest(ctx context.Context, pushed election.Snapshot) (election.Snapshot, changes.Event, error)
	TestCrawl(ctx context.Context) election.Snapshot
	Health() tracker.Health
}

type Server struct {
	tracker Tracker
	tel     telemetry.API
}

func NewServer(t Tracker, tel telemetry.API) *Server {
	assert.NotNil(t)
	assert.NotNil(tel)
	return &Server{
		tracker: t,
		tel:     telemetry.NewScopedAPI("api", tel),
	}
}

func allowCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Routes returns the router with every endpoint mounted under /api.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(allowCors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/results", s.results)
		r.Get("/party-wise", s.partyWise)
		r.Get("/alliance-wise", s.allianceWise)
		r.Get("/constituencies", s.constituencies)
		r.Get("/state-wise", s.stateWise)
		r.Get("/refresh-history", s.refreshHistory)
		r.Post("/push-data", s.pushData)
		r.Get("/health", s.health)
		r.Get("/test-scraper", s.testScraper)
	})
	return r
}

func forced(r *http.Request) bool {
	force := r.URL.Query().Get("force")
	return force == "true" || force == "1"
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.tel.ReportWarning(report_api_write, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	res := errorResponse{Error: message}
	if err != nil {
		res.Message = err.Error()
	}
	s.writeJSON(w, status, res)
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.Results(r.Context(), forced(r)))
}

func (s *Server) partyWise(w http.ResponseWriter, r *http.Request) {
	report, err := s.tracker.Parties(r.Context(), forced(r))
	if err != nil {
		s.tel.ReportBroken(report_api_party_wise, err)
		s.writeError(w, http.StatusInternalServerError, "Failed to aggregate party data", err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) allianceWise(w http.ResponseWriter, r *http.Request) {
	report, err := s.tracker.Alliances(r.Context(), forced(r))
	if err != nil {
		s.tel.ReportBroken(report_api_alliance_wise, err)
		s.writeError(w, http.StatusInternalServerError, "Failed to aggregate alliance data", err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

type constituenciesResponse struct {
	Timestamp      time.Time               `json:"timestamp"`
	Constituencies []election.Constituency `json:"constituencies"`
}

func (s *Server) constituencies(w http.ResponseWriter, r *http.Request) {
	snapshot := s.tracker.Constituencies(r.Context())
	s.writeJSON(w, http.StatusOK, constituenciesResponse{
		Timestamp:      snapshot.Timestamp,
		Constituencies: snapshot.States,
	})
}

type stateWiseResponse struct {
	Timestamp time.Time               `json:"timestamp"`
	States    []election.Constituency `json:"states"`
}

func (s *Server) stateWise(w http.ResponseWriter, r *http.Request) {
	snapshot := s.tracker.Constituencies(r.Context())
	s.writeJSON(w, http.StatusOK, stateWiseResponse{
		Timestamp: snapshot.Timestamp,
		States:    snapshot.States,
	})
}

type historyResponse struct {
	History      []changes.Event `json:"history"`
	TotalUpdates int             `json:"totalUpdates"`
}

func (s *Server) refreshHistory(w http.ResponseWriter, r *http.Request) {
	history := s.tracker.History()
	s.writeJSON(w, http.StatusOK, historyResponse{
		History:      history,
		TotalUpdates: len(history),
	})
}

type pushResponse struct {
	Success             bool      `json:"success"`
	Message             string    `json:"message"`
	ConstituenciesCount int       `json:"constituenciesCount"`
	Timestamp           time.Time `json:"timestamp"`
	Changes             string    `json:"changes"`
}

func (s *Server) pushData(w http.ResponseWriter, r *http.Request) {
	var pushed election.Snapshot
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBytes)).Decode(&pushed)
	if err != nil {
		s.tel.ReportWarning(report_api_push_data, fmt.Errorf("decode body: %w", err))
		s.writeError(w, http.StatusBadRequest, "Invalid data format. Expected { states: [], summary: {} }", err)
		return
	}

	snapshot, event, err := s.tracker.Ingest(r.Context(), pushed)
	if errors.Is(err, tracker.ErrEmptyPayload) || errors.Is(err, election.ErrInvalidSnapshot) {
		s.writeError(w, http.StatusBadRequest, "Invalid data format. Expected { states: [], summary: {} }", err)
		return
	}
	if err != nil {
		s.tel.ReportBroken(report_api_push_data, err)
		s.writeError(w, http.StatusInternalServerError, "Failed to process data push", err)
		return
	}

	s.writeJSON(w, http.StatusOK, pushResponse{
		Success:             true,
		Message:             "Data received successfully",
		ConstituenciesCount: len(snapshot.States),
		Timestamp:           snapshot.Timestamp,
		Changes:             event.Summary,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.Health())
}

type sampleRecord struct {
	Name         string          `json:"name"`
	SeatNumber   int             `json:"constNo"`
	Status       election.Status `json:"status"`
	LeadingParty string          `json:"leadingParty"`
	Declared     int             `json:"declared"`
	Leading      int             `json:"leading"`
}

type testScraperResponse struct {
	Success             bool           `json:"success"`
	ConstituenciesFound int            `json:"constituenciesFound"`
	Declared            int            `json:"declared"`
	Leading             int            `json:"leading"`
	Pending             int            `json:"pending"`
	Sample              []sampleRecord `json:"sample"`
	Timestamp           time.Time      `json:"timestamp"`
	HasRealData         bool           `json:"hasRealData"`
	Fallback            bool           `json:"fallback"`
}

// HasRealData reports whether any record carries an actual result.
func HasRealData(snapshot election.Snapshot) bool {
	for _, c := range snapshot.States {
		if c.LeadingParty != "" && c.LeadingParty != election.UnknownParty && c.EffectiveStatus() != election.StatusPending {
			return true
		}
	}
	return false
}

// testScraper crawls without touching the current snapshot.
func (s *Server) testScraper(w http.ResponseWriter, r *http.Request) {
	snapshot := s.tracker.TestCrawl(r.Context())

	sample := []sampleRecord{}
	for _, c := range snapshot.States[:min(5, len(snapshot.States))] {
		sample = append(sample, sampleRecord{
			Name:         c.Name,
			SeatNumber:   c.SeatNumber,
			Status:       c.Status,
			LeadingParty: c.LeadingParty,
			Declared:     c.Declared,
			Leading:      c.Leading,
		})
	}

	s.writeJSON(w, http.StatusOK, testScraperResponse{
		Success:             !snapshot.Fallback,
		ConstituenciesFound: len(snapshot.States),
		Declared:            snapshot.Summary.Declared,
		Leading:             snapshot.Summary.Leading,
		Pending:             snapshot.Summary.Pending,
		Sample:              sample,
		Timestamp:           snapshot.Timestamp,
		HasRealData:         HasRealData(snapshot),
		Fallback:            snapshot.Fallback,
	})
}
