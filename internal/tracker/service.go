package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"electiontracker/internal/aggregate"
	"electiontracker/internal/changes"
	"electiontracker/internal/components/assert"
	"electiontracker/internal/components/chrono"
	"electiontracker/internal/components/telemetry"
	"electiontracker/internal/election"

	"golang.org/x/sync/singleflight"
)

const (
	report_service_refresh = "service.refresh"
	report_service_ingest  = "service.ingest"
	report_service_notify  = "service.notify"
	report_service_history = "service.history-size"
)

var ErrEmptyPayload = errors.New("pushed snapshot has no records")

// Crawler produces a complete snapshot, it never fails.
type Crawler interface {
	Crawl(ctx context.Context) election.Snapshot
}

// Notifier is told about every committed event that contains changes.
type Notifier interface {
	Notify(ctx context.Context, event changes.Event, snapshot election.Snapshot) error
}

type Options struct {
	TotalSeats int
	// StaleAfter is how long a snapshot is served without crawling again.
	StaleAfter   time.Duration
	HistoryLimit int
	Alliances    []aggregate.Alliance
	// NotifyTimeout bounds each notifier call.
	NotifyTimeout time.Duration
}

// Health describes the state of the current snapshot.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	HasData   bool      `json:"hasData"`
	// DataAge is in milliseconds, nil without data.
	DataAge             *int64 `json:"dataAge"`
	ConstituenciesCount int    `json:"constituenciesCount"`
	Fallback            bool   `json:"fallback"`
}

// Service owns the current snapshot and the change history. Crawls are
// deduplicated so at most one is in flight, and every write (crawl or push)
// goes through commit.
type Service struct {
	opts      Options
	crawler   Crawler
	notifiers []Notifier
	rules     aggregate.Rules
	clock     chrono.API
	tel       telemetry.API

	store   *Store
	history *changes.History
	flight  singleflight.Group
	// commitMu serializes diff -> history -> replace.
	commitMu  sync.Mutex
	notifying sync.WaitGroup
}

func NewService(
	opts Options,
	crawler Crawler,
	clock chrono.API,
	tel telemetry.API,
	notifiers ...Notifier,
) *Service {
	assert.NotNil(crawler)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.Positive(opts.TotalSeats)

	if opts.StaleAfter <= 0 {
		opts.StaleAfter = time.Second * 30
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = time.Minute
	}
	alliances := opts.Alliances
	if len(alliances) == 0 {
		alliances = aggregate.DefaultAlliances()
	}

	return &Service{
		opts:      opts,
		crawler:   crawler,
		notifiers: notifiers,
		rules:     aggregate.NewRules(alliances),
		clock:     clock,
		tel:       telemetry.NewScopedAPI("tracker", tel),
		store:     &Store{},
		history:   changes.NewHistory(opts.HistoryLimit),
	}
}

func (s *Service) fresh() bool {
	at, ok := s.store.CommittedAt()
	return ok && s.clock.Now().Sub(at) < s.opts.StaleAfter
}

// Results returns the current snapshot, crawling first when forced or when
// the snapshot was stored more than StaleAfter ago.
func (s *Service) Results(ctx context.Context, force bool) election.Snapshot {
	if !force && s.fresh() {
		snapshot, _ := s.store.Current()
		return snapshot
	}
	return s.Refresh(ctx)
}

// snapshotFor crawls when forced or when nothing was ever fetched, otherwise
// it returns the current snapshot regardless of age.
func (s *Service) snapshotFor(ctx context.Context, force bool) election.Snapshot {
	snapshot, ok := s.store.Current()
	if ok && !force {
		return snapshot
	}
	return s.Refresh(ctx)
}

// Refresh crawls and commits the result. Concurrent callers share a single
// crawl. The crawl is detached from ctx so a caller going away does not
// abort it for the others.
func (s *Service) Refresh(ctx context.Context) election.Snapshot {
	result, _, _ := s.flight.Do("crawl", func() (any, error) {
		crawlCtx := context.WithoutCancel(ctx)
		snapshot := s.crawler.Crawl(crawlCtx)
		committed, _ := s.commit(crawlCtx, snapshot)
		return committed, nil
	})
	return result.(election.Snapshot).Clone()
}

// Ingest commits a snapshot produced elsewhere (ex. a remote pusher). It is
// normalized and canonicalized exactly like a crawled one. A payload made of
// placeholders only is treated as a failed crawl.
func (s *Service) Ingest(ctx context.Context, pushed election.Snapshot) (election.Snapshot, changes.Event, error) {
	if pushed.IsEmpty() {
		return election.Snapshot{}, changes.Event{}, ErrEmptyPayload
	}

	timestamp := pushed.Timestamp
	if timestamp.IsZero() {
		timestamp = s.clock.Now()
	}

	records := make([]election.Constituency, 0, len(pushed.States))
	inRange := 0
	for _, c := range pushed.States {
		if c.Placeholder {
			continue
		}
		c.Normalize()
		records = append(records, c)
		if len(c.Name) >= 2 && c.SeatNumber >= 1 && c.SeatNumber <= s.opts.TotalSeats {
			inRange++
		}
	}

	var snapshot election.Snapshot
	switch {
	case pushed.Fallback || len(records) == 0:
		snapshot = election.FallbackSnapshot(timestamp, s.opts.TotalSeats)
	case inRange == 0:
		err := fmt.Errorf(
			"%w: none of %d records has a seat number in [1, %d]",
			election.ErrInvalidSnapshot, len(records), s.opts.TotalSeats,
		)
		s.tel.ReportWarning(report_service_ingest, err)
		return election.Snapshot{}, changes.Event{}, fmt.Errorf("ingest: %w", err)
	default:
		snapshot = election.NewSnapshot(timestamp, records, s.opts.TotalSeats)
	}

	committed, event := s.commit(ctx, snapshot)
	s.tel.ReportDebug("ingested snapshot", len(pushed.States), event.Summary)
	return committed, event, nil
}

// commit diffs the snapshot against the current one, records the event and
// replaces the current snapshot. A fallback snapshot never replaces real
// data: an event without changes is recorded and the current snapshot is
// returned instead.
func (s *Service) commit(ctx context.Context, snapshot election.Snapshot) (election.Snapshot, changes.Event) {
	s.commitMu.Lock()
	previous, ok := s.store.Current()
	if snapshot.Fallback && ok && !previous.Fallback {
		event := changes.Diff(previous, previous)
		event.Timestamp = snapshot.Timestamp
		s.history.Record(event)
		s.commitMu.Unlock()

		s.tel.ReportWarning(
			report_service_refresh,
			fmt.Errorf("crawl failed, keeping snapshot from %s", previous.Timestamp),
		)
		return previous, event
	}

	event := changes.Diff(previous, snapshot)
	s.history.Record(event)
	s.store.Replace(snapshot, s.clock.Now())
	s.commitMu.Unlock()

	s.tel.ReportDebug("committed snapshot", event.Summary)
	s.tel.ReportCount(report_service_history, int64(s.history.Len()))

	if event.HasChanges() && len(s.notifiers) > 0 {
		s.notifying.Add(1)
		go func() {
			defer s.notifying.Done()
			s.notify(context.WithoutCancel(ctx), event, snapshot)
		}()
	}
	return snapshot, event
}

// notify runs outside of the crawl, every notifier gets at most
// NotifyTimeout.
func (s *Service) notify(ctx context.Context, event changes.Event, snapshot election.Snapshot) {
	for _, n := range s.notifiers {
		notifyCtx, cancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
		err := n.Notify(notifyCtx, event, snapshot)
		cancel()
		if err != nil {
			s.tel.ReportBroken(report_service_notify, err, event.Summary)
		}
	}
}

// Wait blocks until notifications that are already being sent finish.
func (s *Service) Wait() {
	s.notifying.Wait()
}

// Current returns the current snapshot without ever crawling.
func (s *Service) Current() (election.Snapshot, bool) {
	return s.store.Current()
}

// Parties aggregates the snapshot by party, crawling only when forced or
// when there is no data yet.
func (s *Service) Parties(ctx context.Context, force bool) (aggregate.PartyReport, error) {
	return aggregate.AggregateParties(s.snapshotFor(ctx, force))
}

// Alliances aggregates the snapshot by alliance, crawling only when forced
// or when there is no data yet.
func (s *Service) Alliances(ctx context.Context, force bool) (aggregate.AllianceReport, error) {
	return s.rules.AggregateAlliances(s.snapshotFor(ctx, force))
}

// Constituencies returns the records of the current snapshot, crawling when
// there is no data yet.
func (s *Service) Constituencies(ctx context.Context) election.Snapshot {
	return s.snapshotFor(ctx, false)
}

// History returns the recorded change events, most recent first.
func (s *Service) History() []changes.Event {
	return s.history.Events()
}

// TestCrawl runs a crawl without committing it.
func (s *Service) TestCrawl(ctx context.Context) election.Snapshot {
	return s.crawler.Crawl(ctx)
}

func (s *Service) Health() Health {
	now := s.clock.Now()
	health := Health{
		Status:    "ok",
		Timestamp: now,
	}
	snapshot, ok := s.store.Current()
	if !ok {
		return health
	}
	age := now.Sub(snapshot.Timestamp).Milliseconds()
	health.HasData = true
	health.DataAge = &age
	health.ConstituenciesCount = len(snapshot.States)
	health.Fallback = snapshot.Fallback
	return health
}

// Schedule refreshes on the given cron spec.
func (s *Service) Schedule(cron chrono.CronAPI, spec string) error {
	return cron.Cron(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute*10)
		defer cancel()

		snapshot := s.Refresh(ctx)
		s.tel.ReportDebug("scheduled refresh", snapshot.Summary.Declared, snapshot.Summary.Leading)
	})
}
