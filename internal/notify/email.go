// Package notify tells operators about changes between crawls.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"electiontracker/internal/changes"
	"electiontracker/internal/components/assert"
	"electiontracker/internal/components/telemetry"
	"electiontracker/internal/election"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
	// Subject is prefixed to every message subject.
	Subject string `json:"subject"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Host != "" && len(c.To) > 0
}

// EmailNotifier mails the summary and the list of changes of an event.
type EmailNotifier struct {
	config SmtpConfig
	send   func(e *email.Email) error
	tel    telemetry.API
}

func NewEmailNotifier(config SmtpConfig, tel telemetry.API) *EmailNotifier {
	assert.NotNil(tel)
	assert.NotEmptyStr(config.Host)

	port := config.Port
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(config.Host, strconv.Itoa(port))
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	return &EmailNotifier{
		config: config,
		send: func(e *email.Email) error {
			return e.Send(addr, auth)
		},
		tel: telemetry.NewScopedAPI("notify", tel),
	}
}

// ChangeTable renders the changes of an event as a table.
func ChangeTable(event changes.Event) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Seat", "Constituency", "Change", "Before", "After"})
	for _, c := range event.Changes {
		before, after := "", ""
		switch c.Type {
		case changes.TypeNew:
			after = fmt.Sprintf("%s (%s) %s", c.Candidate, c.Party, c.Status)
		case changes.TypeStatusChange:
			before, after = string(c.OldStatus), string(c.NewStatus)
		case changes.TypeCandidateChange:
			before, after = c.OldCandidate, c.NewCandidate
		case changes.TypePartyChange:
			before, after = c.OldParty, c.NewParty
		}
		t.AppendRow(table.Row{c.SeatNumber, c.Constituency, string(c.Type), before, after})
	}
	return t
}

func (n *EmailNotifier) message(event changes.Event, snapshot election.Snapshot) *email.Email {
	subject := event.Summary
	if n.config.Subject != "" {
		subject = fmt.Sprintf("%s: %s", n.config.Subject, event.Summary)
	}
	tally := fmt.Sprintf(
		"%d declared, %d leading, %d pending of %d seats",
		snapshot.Summary.Declared,
		snapshot.Summary.Leading,
		snapshot.Summary.Pending,
		snapshot.Summary.TotalSeats,
	)

	changeTable := ChangeTable(event)

	e := email.NewEmail()
	e.From = n.config.From
	e.To = n.config.To
	e.Subject = subject
	e.Text = []byte(fmt.Sprintf("%s\n%s\n\n%s\n", event.Summary, tally, changeTable.Render()))
	e.HTML = []byte(fmt.Sprintf("<p>%s</p><p>%s</p>%s", event.Summary, tally, changeTable.RenderHTML()))
	return e
}

// Notify gives up when ctx is done, the smtp exchange itself cannot be
// interrupted and finishes in the background.
func (n *EmailNotifier) Notify(ctx context.Context, event changes.Event, snapshot election.Snapshot) error {
	msg := n.message(event, snapshot)
	sent := make(chan error, 1)
	go func() {
		sent <- n.send(msg)
	}()

	var err error
	select {
	case err = <-sent:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("send change notification: %w", err)
	}
	n.tel.ReportDebug("sent change notification", event.Summary, len(n.config.To))
	return nil
}
