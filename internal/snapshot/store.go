// Package snapshot stores the named captures of an item representation's
// content, keyed by (item identifier, rep name, snapshot name).
package snapshot

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

// Built-in snapshot names.
const (
	Raw  = "raw"
	Pre  = "pre"
	Post = "post"
	Last = "last"
)

// Key addresses one stored snapshot.
type Key struct {
	Item     string
	Rep      string
	Snapshot string
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%s]@%s", k.Item, k.Rep, k.Snapshot)
}

// ErrNotFound is returned by Query when nothing was stored under a key. It is
// an expected outcome, not a failure of the store.
var ErrNotFound = errors.NotFoundError("snapshot not stored").Build()

// Store persists snapshot content. Implementations must be safe for
// concurrent use: reads of unrelated keys proceed in parallel and writes to
// the same key are serialized with last-writer-wins semantics.
type Store interface {
	// Set stores or overwrites the content under key.
	Set(ctx context.Context, key Key, c content.Content) error

	// Query retrieves the content under key, or ErrNotFound.
	Query(ctx context.Context, key Key) (content.Content, error)

	// Names lists the snapshot names stored for an item representation, sorted.
	Names(ctx context.Context, item, rep string) ([]string, error)

	// Clear removes every snapshot stored for an item representation.
	Clear(ctx context.Context, item, rep string) error

	// Close releases any resources held by the store.
	Close() error
}

func notFound(key Key) error {
	return ErrNotFound.
		WithContext("item", key.Item).
		WithContext("rep", key.Rep).
		WithContext("snapshot", key.Snapshot)
}

// record is the flattened form durable backends persist.
type record struct {
	Snapshot string `cbor:"1,keyasint"`
	Kind     string `cbor:"2,keyasint"`
	Text     string `cbor:"3,keyasint,omitempty"`
	Path     string `cbor:"4,keyasint,omitempty"`
	Size     int64  `cbor:"5,keyasint,omitempty"`
	ModTime  int64  `cbor:"6,keyasint,omitempty"`
}

func toRecord(name string, c content.Content) (record, error) {
	switch v := c.(type) {
	case content.Text:
		return record{Snapshot: name, Kind: content.KindText.String(), Text: v.String()}, nil
	case content.Binary:
		rec := record{
			Snapshot: name,
			Kind:     content.KindBinary.String(),
			Path:     v.Path(),
			Size:     v.Size(),
		}
		// Zero means unknown; UnixNano is undefined for the zero time.
		if !v.ModTime().IsZero() {
			rec.ModTime = v.ModTime().UnixNano()
		}
		return rec, nil
	default:
		return record{}, fmt.Errorf("unsupported content %T", c)
	}
}

func (r record) content() (content.Content, error) {
	switch r.Kind {
	case content.KindText.String():
		return content.NewText(r.Text), nil
	case content.KindBinary.String():
		var mod time.Time
		if r.ModTime != 0 {
			mod = time.Unix(0, r.ModTime)
		}
		return content.BinaryRef(r.Path, r.Size, mod), nil
	default:
		return nil, fmt.Errorf("unknown content kind %q in snapshot %s", r.Kind, r.Snapshot)
	}
}

// ErrNilContent is returned when Set is called without content.
var ErrNilContent = errors.SnapshotError("cannot store nil content").Build()

func errNilContent(key Key) error {
	return ErrNilContent.WithContext("item", key.Item).WithContext("rep", key.Rep).WithContext("snapshot", key.Snapshot)
}
