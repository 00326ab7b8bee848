package snapshot

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendFS     = "fs"
)

// Options selects and configures a store backend.
type Options struct {
	Backend string
	// Path is the database file (sqlite) or root directory (fs).
	Path string
}

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.ConfigError("unknown snapshot store backend").Build()

// Open constructs the store described by opts. An empty backend selects the
// in-memory store.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		path := opts.Path
		if path == "" {
			path = ":memory:"
		} else if path != ":memory:" {
			if err := ensureParent(path); err != nil {
				return nil, err
			}
		}
		return NewSQLiteStore(path)
	case BackendFS:
		if opts.Path == "" {
			return nil, errors.ConfigError("fs snapshot store requires a path").
				WithContext("backend", opts.Backend).
				Build()
		}
		return NewFSStore(opts.Path)
	default:
		return nil, ErrUnknownBackend.WithContext("backend", opts.Backend)
	}
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.FileSystemError("create snapshot database directory").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	return nil
}
