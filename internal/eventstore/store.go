// Package eventstore journals bus events per build so a build can be
// inspected after the fact.
package eventstore

import (
	"context"
	"time"
)

// Record is one journaled event.
type Record struct {
	ID        int64
	BuildID   string
	Type      string
	Timestamp time.Time
	// Payload is the JSON encoding of the event.
	Payload  []byte
	Metadata map[string]string
}

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error

	// GetByBuildID retrieves all events for a specific build in append order.
	GetByBuildID(ctx context.Context, buildID string) ([]Record, error)

	// GetRange retrieves events within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]Record, error)

	// Builds lists the journaled build IDs, most recent first.
	Builds(ctx context.Context) ([]string, error)

	// Close closes the store and releases resources.
	Close() error
}
