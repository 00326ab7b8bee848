package snapshot

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"git.home.luguber.info/inful/sitecompiler/internal/codec"
	"git.home.luguber.info/inful/sitecompiler/internal/content"
)

const (
	recordExt  = ".cbor"
	tempPrefix = ".snapshot-"
)

// FSStore writes one CBOR record per snapshot below a root directory. Each
// item representation owns a directory named after the BLAKE3 digest of its
// identity, so arbitrary item identifiers never leak into paths.
type FSStore struct {
	root string
	mu   sync.RWMutex
}

// NewFSStore creates root if needed and returns a store rooted there.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot directory %s: %w", root, err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) repDir(item, rep string) string {
	sum := blake3.Sum256([]byte(item + "\x00" + rep))
	return filepath.Join(s.root, hex.EncodeToString(sum[:16]))
}

func (s *FSStore) recordPath(key Key) string {
	return filepath.Join(s.repDir(key.Item, key.Rep), recordName(key.Snapshot))
}

// recordName escapes a snapshot name into a file name. A leading dot is
// escaped so temp files are the only dot files in a rep directory.
func recordName(snapshotName string) string {
	escaped := url.PathEscape(snapshotName)
	if strings.HasPrefix(escaped, ".") {
		escaped = "%2E" + escaped[1:]
	}
	return escaped + recordExt
}

func (s *FSStore) Set(_ context.Context, key Key, c content.Content) error {
	if c == nil {
		return errNilContent(key)
	}
	rec, err := toRecord(key.Snapshot, c)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.repDir(key.Item, key.Rep)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.recordPath(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit snapshot %s: %w", key, err)
	}
	return nil
}

func (s *FSStore) Query(_ context.Context, key Key) (content.Content, error) {
	s.mu.RLock()
	// #nosec G304 -- path is derived from a digest and an escaped name.
	data, err := os.ReadFile(s.recordPath(key))
	s.mu.RUnlock()
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}

	var rec record
	if err := codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return rec.content()
}

func (s *FSStore) Names(_ context.Context, item, rep string) ([]string, error) {
	s.mu.RLock()
	entries, err := os.ReadDir(s.repDir(item, rep))
	s.mu.RUnlock()
	if stderrors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, recordExt) {
			continue
		}
		decoded, err := url.PathUnescape(strings.TrimSuffix(name, recordExt))
		if err != nil {
			continue
		}
		names = append(names, decoded)
	}
	sort.Strings(names)
	return names, nil
}

func (s *FSStore) Clear(_ context.Context, item, rep string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(s.repDir(item, rep)); err != nil {
		return fmt.Errorf("clear snapshots of %s[%s]: %w", item, rep, err)
	}
	return nil
}

func (s *FSStore) Close() error { return nil }
