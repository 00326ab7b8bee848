package deptrack

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitecompiler/internal/codec"
)

const graphVersion = 1

type graphFile struct {
	Version int                 `cbor:"1,keyasint"`
	Edges   map[string][]string `cbor:"2,keyasint"`
}

// Save writes the recorded edges to path atomically.
func (t *Tracker) Save(path string) error {
	data, err := codec.Marshal(graphFile{Version: graphVersion, Edges: t.Graph()})
	if err != nil {
		return fmt.Errorf("encode dependency graph: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dependency graph directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".deps-*")
	if err != nil {
		return fmt.Errorf("create temp graph file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write dependency graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close dependency graph: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit dependency graph: %w", err)
	}
	return nil
}

// Load merges the edges stored at path into the tracker. A missing file
// is not an error.
func (t *Tracker) Load(path string) error {
	// #nosec G304 -- path comes from configuration.
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read dependency graph: %w", err)
	}

	var gf graphFile
	if err := codec.Unmarshal(data, &gf); err != nil {
		return fmt.Errorf("decode dependency graph %s: %w", path, err)
	}
	if gf.Version != graphVersion {
		return fmt.Errorf("dependency graph %s has version %d, want %d", path, gf.Version, graphVersion)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for from, deps := range gf.Edges {
		set, ok := t.graph[from]
		if !ok {
			set = map[string]struct{}{}
			t.graph[from] = set
		}
		for _, d := range deps {
			set[d] = struct{}{}
		}
	}
	return nil
}
