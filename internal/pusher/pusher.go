// Package pusher crawls locally and relays the snapshot to a remote tracker,
// for when the tracker itself cannot reach the results site.
package pusher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"electiontracker/internal/components/assert"
	"electiontracker/internal/components/chrono"
	"electiontracker/internal/components/telemetry"
	"electiontracker/internal/election"

	"github.com/go-resty/resty/v2"
)

const (
	report_pusher_push = "pusher.push"
)

// ErrFallback is returned when the local crawl fetched nothing, the remote
// tracker is left alone in that case.
var ErrFallback = errors.New("crawl produced a fallback snapshot, not pushing")

type Crawler interface {
	Crawl(ctx context.Context) election.Snapshot
}

// Response is what the remote push endpoint answers.
type Response struct {
	Success             bool      `json:"success"`
	Message             string    `json:"message"`
	ConstituenciesCount int       `json:"constituenciesCount"`
	Timestamp           time.Time `json:"timestamp"`
	Changes             string    `json:"changes"`
}

type Pusher struct {
	target  string
	crawler Crawler
	http    *resty.Client
	tel     telemetry.API
}

// New creates a pusher posting to target, the full url of a push-data
// endpoint.
func New(target string, crawler Crawler, tel telemetry.API) *Pusher {
	assert.NotEmptyStr(target)
	assert.NotNil(crawler)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("pusher", tel)

	client := resty.New()
	client.SetTimeout(time.Second * 30)
	client.SetHeader("Content-Type", "application/json")
	telemetry.InstrumentResty(client, tel)

	return &Pusher{
		target:  target,
		crawler: crawler,
		http:    client,
		tel:     tel,
	}
}

// Send posts an already crawled snapshot.
func (p *Pusher) Send(ctx context.Context, snapshot election.Snapshot) (Response, error) {
	var out Response
	res, err := p.http.R().
		SetContext(ctx).
		SetBody(snapshot).
		SetResult(&out).
		Post(p.target)
	if err != nil {
		return Response{}, fmt.Errorf("push: %w", err)
	}
	if res.IsError() {
		return Response{}, fmt.Errorf("push: unexpected status %s: %s", res.Status(), res.String())
	}
	return out, nil
}

// Push crawls and sends the result.
func (p *Pusher) Push(ctx context.Context) (Response, error) {
	snapshot := p.crawler.Crawl(ctx)
	if snapshot.Fallback {
		p.tel.ReportWarning(report_pusher_push, ErrFallback)
		return Response{}, ErrFallback
	}

	res, err := p.Send(ctx, snapshot)
	if err != nil {
		p.tel.ReportWarning(report_pusher_push, err)
		return Response{}, err
	}
	p.tel.ReportDebug(
		"pushed snapshot",
		len(snapshot.States),
		snapshot.Summary.Declared,
		snapshot.Summary.Leading,
		snapshot.Summary.Pending,
		res.Changes,
	)
	return res, nil
}

// Schedule pushes on the given cron spec.
func (p *Pusher) Schedule(cron chrono.CronAPI, spec string) error {
	return cron.Cron(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute*10)
		defer cancel()
		// failures were already reported by Push
		_, _ = p.Push(ctx)
	})
}
