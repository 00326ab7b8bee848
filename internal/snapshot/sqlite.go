package snapshot

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists snapshots in an embedded SQLite database so a build
// can diff against the final state of the previous run.
type SQLiteStore struct {
	db *sql.DB
	// writes are serialized here; SQLite would serialize them anyway but
	// this avoids SQLITE_BUSY churn under concurrent reps.
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		item TEXT NOT NULL,
		rep TEXT NOT NULL,
		snapshot TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT,
		path TEXT,
		size INTEGER,
		mod_time INTEGER,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (item, rep, snapshot)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Set(ctx context.Context, key Key, c content.Content) error {
	if c == nil {
		return errNilContent(key)
	}
	rec, err := toRecord(key.Snapshot, c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (item, rep, snapshot, kind, text, path, size, mod_time, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (item, rep, snapshot) DO UPDATE SET
			kind = excluded.kind,
			text = excluded.text,
			path = excluded.path,
			size = excluded.size,
			mod_time = excluded.mod_time,
			updated_at = excluded.updated_at`,
		key.Item, key.Rep, key.Snapshot, rec.Kind, rec.Text, rec.Path, rec.Size, rec.ModTime, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, key Key) (content.Content, error) {
	rec := record{Snapshot: key.Snapshot}
	var text, path sql.NullString
	var size, modTime sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT kind, text, path, size, mod_time FROM snapshots WHERE item = ? AND rep = ? AND snapshot = ?",
		key.Item, key.Rep, key.Snapshot,
	).Scan(&rec.Kind, &text, &path, &size, &modTime)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot %s: %w", key, err)
	}
	rec.Text = text.String
	rec.Path = path.String
	rec.Size = size.Int64
	rec.ModTime = modTime.Int64
	return rec.content()
}

func (s *SQLiteStore) Names(ctx context.Context, item, rep string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT snapshot FROM snapshots WHERE item = ? AND rep = ? ORDER BY snapshot",
		item, rep,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan snapshot name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return names, nil
}

func (s *SQLiteStore) Clear(ctx context.Context, item, rep string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE item = ? AND rep = ?", item, rep); err != nil {
		return fmt.Errorf("clear snapshots of %s[%s]: %w", item, rep, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
