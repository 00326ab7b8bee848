package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based event journal.
// Use ":memory:" for in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ErrDatabaseOpenFailed.WithCause(err).WithContext("path", dbPath)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, ErrInitializeSchemaFailed.WithCause(err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_build_id ON events(build_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the journal.
func (s *SQLiteStore) Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return ErrEventAppendFailed.WithCause(err).WithContext("event", eventType)
		}
	}
	if payload == nil {
		payload = []byte{}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (build_id, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		buildID, eventType, time.Now().UnixNano(), payload, metadataJSON,
	)
	if err != nil {
		return ErrEventAppendFailed.WithCause(err).WithContext("event", eventType)
	}
	return nil
}

// GetByBuildID retrieves all events for a specific build.
func (s *SQLiteStore) GetByBuildID(ctx context.Context, buildID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, event_type, timestamp, payload, metadata FROM events WHERE build_id = ? ORDER BY id",
		buildID,
	)
	if err != nil {
		return nil, ErrEventQueryFailed.WithCause(err).WithContext("build_id", buildID)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetRange retrieves events within a time range.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, event_type, timestamp, payload, metadata FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, ErrEventQueryFailed.WithCause(err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Builds lists build IDs ordered by their most recent event.
func (s *SQLiteStore) Builds(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT build_id FROM events GROUP BY build_id ORDER BY MAX(id) DESC",
	)
	if err != nil {
		return nil, ErrEventQueryFailed.WithCause(err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ErrEventQueryFailed.WithCause(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrEventQueryFailed.WithCause(err)
	}
	return ids, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var ts int64
		var metadataJSON []byte

		if err := rows.Scan(&r.ID, &r.BuildID, &r.Type, &ts, &r.Payload, &metadataJSON); err != nil {
			return nil, ErrEventQueryFailed.WithCause(err)
		}
		r.Timestamp = time.Unix(0, ts)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
				return nil, ErrDecodePayloadFailed.WithCause(err).WithContext("event_id", r.ID)
			}
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, ErrEventQueryFailed.WithCause(err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
