package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/sitecompiler/internal/logfields"
)

// Journal persists published events. eventstore.SQLiteStore satisfies it.
type Journal interface {
	Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error
}

// Handler processes an Event; return error to signal failure.
type Handler func(context.Context, Event) error

// All subscribes a handler to every event name.
const All = "*"

// Subscription identifies a registered handler so it can be removed again.
type Subscription struct {
	event string
	id    uint64
}

type subscriber struct {
	id uint64
	h  Handler
}

// Bus is a synchronous pub/sub event bus. Handlers run on the publishing
// goroutine in subscription order.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscriber
	nextID      uint64

	journal Journal
	buildID string
	logger  *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithJournal persists every event before it is delivered.
func WithJournal(j Journal) Option { return func(b *Bus) { b.journal = j } }

// WithBuildID tags journal entries with id.
func WithBuildID(id string) Option { return func(b *Bus) { b.buildID = id } }

// WithLogger sets the logger used for journal failures.
func WithLogger(l *slog.Logger) Option { return func(b *Bus) { b.logger = l } }

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subscribers: map[string][]subscriber{},
		buildID:     "unknown",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildID returns the build identifier journal entries are tagged with.
func (b *Bus) BuildID() string { return b.buildID }

// Subscribe registers a handler for an event name, or All.
func (b *Bus) Subscribe(event string, h Handler) Subscription {
	if h == nil {
		return Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subscribers[event] = append(b.subscribers[event], subscriber{id: b.nextID, h: h})
	return Subscription{event: event, id: b.nextID}
}

// Unsubscribe removes a handler. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(s Subscription) {
	if s.id == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[s.event]
	for i, sub := range subs {
		if sub.id == s.id {
			b.subscribers[s.event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[s.event]) == 0 {
		delete(b.subscribers, s.event)
	}
}

// Publish delivers an event to all handlers synchronously and stops at the
// first handler error. If a journal is configured the event is persisted
// first; journal failures are logged and never fail the publish.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b.journal != nil {
		b.record(ctx, e)
	}

	b.mu.RLock()
	hs := append([]subscriber(nil), b.subscribers[e.Name()]...)
	hs = append(hs, b.subscribers[All]...)
	b.mu.RUnlock()

	for _, s := range hs {
		if err := s.h(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) record(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		b.logger.Warn("Failed to encode event for journal", logfields.Event(e.Name()), logfields.Error(err))
		return
	}
	if err := b.journal.Append(ctx, b.buildID, e.Name(), payload, nil); err != nil {
		b.logger.Warn("Failed to journal event",
			logfields.BuildID(b.buildID),
			logfields.Event(e.Name()),
			logfields.Error(err))
	}
}
