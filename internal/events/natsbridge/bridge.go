// Package natsbridge forwards bus events to NATS subjects so external
// observers can follow a build as it happens.
package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitecompiler/internal/events"
	"git.home.luguber.info/inful/sitecompiler/internal/logfields"
)

// Publisher is the part of *nats.Conn the bridge needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Envelope is the message body published for every event.
type Envelope struct {
	BuildID   string          `json:"build_id"`
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Bridge publishes each event to "<prefix>.<event name>".
type Bridge struct {
	pub     Publisher
	prefix  string
	buildID string
	logger  *slog.Logger
}

// New creates a bridge. An empty prefix defaults to "sitecompiler".
func New(pub Publisher, prefix, buildID string, logger *slog.Logger) *Bridge {
	if prefix == "" {
		prefix = "sitecompiler"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{pub: pub, prefix: prefix, buildID: buildID, logger: logger}
}

// Attach subscribes the bridge to every event on bus.
func (b *Bridge) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(events.All, b.Handle)
}

// Subject returns the subject an event name is published on.
func (b *Bridge) Subject(event string) string {
	return b.prefix + "." + event
}

// Handle publishes e. Broker failures are logged, never returned, so an
// unreachable observer cannot fail a build.
func (b *Bridge) Handle(_ context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Name(), err)
	}
	data, err := json.Marshal(Envelope{
		BuildID:   b.buildID,
		Event:     e.Name(),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", e.Name(), err)
	}
	if err := b.pub.Publish(b.Subject(e.Name()), data); err != nil {
		b.logger.Warn("Failed to forward event to NATS",
			logfields.Event(e.Name()),
			logfields.BuildID(b.buildID),
			logfields.Error(err))
	}
	return nil
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("sitecompiler"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}
