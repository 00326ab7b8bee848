package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"git.home.luguber.info/inful/sitecompiler/internal/events"
)

// BuildSummary is a read model of one journaled build.
type BuildSummary struct {
	BuildID     string        `json:"build_id"`
	StartedAt   time.Time     `json:"started_at"`
	LastEventAt time.Time     `json:"last_event_at"`
	Duration    time.Duration `json:"duration"`
	Events      int           `json:"events"`

	Compiled  int `json:"compiled"`
	Suspended int `json:"suspended"`
	Filters   int `json:"filters"`
	Failures  int `json:"filter_failures"`

	Written   int `json:"written"`
	Created   int `json:"created"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`

	// Paths lists every path a rep_written event reported, sorted.
	Paths []string `json:"paths,omitempty"`
}

// Summarize folds the journal of buildID into a BuildSummary.
func Summarize(ctx context.Context, store Store, buildID string) (*BuildSummary, error) {
	records, err := store.GetByBuildID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	s := &BuildSummary{BuildID: buildID}
	for _, r := range records {
		if err := s.apply(r); err != nil {
			return nil, err
		}
	}
	sort.Strings(s.Paths)
	if !s.StartedAt.IsZero() {
		s.Duration = s.LastEventAt.Sub(s.StartedAt)
	}
	return s, nil
}

func (s *BuildSummary) apply(r Record) error {
	if s.Events == 0 || r.Timestamp.Before(s.StartedAt) {
		s.StartedAt = r.Timestamp
	}
	if r.Timestamp.After(s.LastEventAt) {
		s.LastEventAt = r.Timestamp
	}
	s.Events++

	switch r.Type {
	case events.NameCompilationEnded:
		s.Compiled++
	case events.NameCompilationSuspended:
		s.Suspended++
	case events.NameFilteringEnded:
		var e events.FilteringEnded
		if err := decode(r, &e); err != nil {
			return err
		}
		s.Filters++
		if e.Failed {
			s.Failures++
		}
	case events.NameRepWritten:
		var e events.RepWritten
		if err := decode(r, &e); err != nil {
			return err
		}
		s.Written++
		switch {
		case e.Created:
			s.Created++
		case e.Modified:
			s.Modified++
		default:
			s.Unchanged++
		}
		s.Paths = append(s.Paths, e.Path)
	}
	return nil
}

func decode(r Record, v any) error {
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return ErrDecodePayloadFailed.
			WithCause(err).
			WithContext("event", r.Type).
			WithContext("event_id", r.ID)
	}
	return nil
}
