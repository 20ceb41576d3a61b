// Package notify publishes run summaries to NATS after each recipe run.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe/models"
)

const (
	connectTimeout = 5 * time.Second
	flushTimeout   = 5 * time.Second
)

// Publisher sends a message on a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSPublisher publishes on a core NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect dials the NATS server at url.
func Connect(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("recreate-skps"),
		nats.Timeout(connectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS notifier connected", logfields.URL(url))
	return &NATSPublisher{conn: conn}, nil
}

// Publish sends data and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	if err := p.conn.FlushTimeout(flushTimeout); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Notifier publishes run summaries. It implements models.RunObserver; only
// OnRunComplete does anything. Publish failures are logged and never fail a run.
type Notifier struct {
	models.NoopObserver
	pub     Publisher
	subject string
}

// New returns a notifier publishing on subject.
func New(pub Publisher, subject string) *Notifier {
	return &Notifier{pub: pub, subject: subject}
}

// Notify publishes the summary of report.
func (n *Notifier) Notify(report *models.RunReport) error {
	data, err := json.Marshal(report.Summary())
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	return n.pub.Publish(n.subject, data)
}

func (n *Notifier) OnRunComplete(report *models.RunReport) {
	if n == nil || n.pub == nil {
		return
	}
	if err := n.Notify(report); err != nil {
		slog.Warn("Run notification failed",
			logfields.RunID(report.RunID),
			slog.String("subject", n.subject),
			logfields.Error(err))
		return
	}
	slog.Debug("Published run summary", logfields.RunID(report.RunID), slog.String("subject", n.subject))
}

// Close releases the underlying publisher.
func (n *Notifier) Close() {
	if n != nil && n.pub != nil {
		n.pub.Close()
	}
}

var _ models.RunObserver = (*Notifier)(nil)
