package rep

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/events"
	"git.home.luguber.info/inful/sitecompiler/internal/logfields"
	"git.home.luguber.info/inful/sitecompiler/internal/snapshot"
)

// DiffFunc renders a human readable diff between the previous and the new
// text written to path.
type DiffFunc func(path, oldText, newText string) (string, error)

// UnifiedDiff renders a unified diff with three lines of context.
func UnifiedDiff(path, oldText, newText string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	})
}

// Write writes every final snapshot that has a raw path. Last is always
// eligible; snapshots recorded as non-final are skipped. Files whose
// content is already identical are left untouched.
func (r *Rep) Write(ctx context.Context) error {
	r.mu.Lock()
	names := make([]string, 0, len(r.rawPaths))
	for name := range r.rawPaths {
		if final, seen := r.recorded[name]; seen && !final && name != snapshot.Last {
			continue
		}
		names = append(names, name)
	}
	paths := make(map[string]string, len(names))
	for _, name := range names {
		paths[name] = r.rawPaths[name]
	}
	r.mu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		if err := r.writeSnapshot(ctx, name, paths[name]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rep) writeSnapshot(ctx context.Context, name, path string) error {
	c, err := r.lookup(ctx, name)
	if err != nil {
		return err
	}
	if c == nil {
		return r.noSuchSnapshot(name)
	}

	existing, err := os.Stat(path)
	created := stderrors.Is(err, fs.ErrNotExist)
	if err != nil && !created {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if existing != nil && existing.IsDir() {
		return fmt.Errorf("output path %s is a directory", path)
	}

	written := events.RepWritten{
		Item:     r.item.Identifier(),
		Rep:      r.name,
		Snapshot: name,
		Path:     path,
		Created:  created,
	}

	switch v := c.(type) {
	case content.Text:
		data := []byte(v.String())
		var old []byte
		if !created {
			// #nosec G304 -- raw paths are configured by the build.
			old, err = os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read previous output %s: %w", path, err)
			}
			if bytes.Equal(old, data) {
				return r.publishWritten(ctx, written)
			}
			written.Diff = r.renderDiff(path, old, data)
		}
		if err := atomicWrite(path, func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}); err != nil {
			return err
		}

	case content.Binary:
		if !created {
			same, err := sameFile(path, existing.Size(), v)
			if err != nil {
				return err
			}
			if same {
				return r.publishWritten(ctx, written)
			}
		}
		if err := atomicWrite(path, func(w io.Writer) error {
			f, err := v.Open()
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			_, err = io.Copy(w, f)
			return err
		}); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported content %T in snapshot %s", c, name)
	}

	written.Modified = true
	r.logger.Debug("Wrote output",
		logfields.Snapshot(name),
		logfields.Path(path),
		"created", created)
	return r.publishWritten(ctx, written)
}

func (r *Rep) publishWritten(ctx context.Context, e events.RepWritten) error {
	return r.bus.Publish(ctx, e)
}

func (r *Rep) renderDiff(path string, old, data []byte) string {
	if r.diff == nil || !utf8.Valid(old) {
		return ""
	}
	diff, err := r.diff(path, string(old), string(data))
	if err != nil {
		r.logger.Warn("Failed to generate diff", logfields.Path(path), logfields.Error(err))
		return ""
	}
	return diff
}

// sameFile compares the file at path with binary content, first by size
// and then by BLAKE3 digest.
func sameFile(path string, size int64, b content.Binary) (bool, error) {
	info, err := os.Stat(b.Path())
	if err != nil {
		return false, fmt.Errorf("stat binary content %s: %w", b.Path(), err)
	}
	if info.Size() != size {
		return false, nil
	}
	oldSum, err := content.FileChecksum(path)
	if err != nil {
		return false, fmt.Errorf("checksum previous output %s: %w", path, err)
	}
	newSum, err := content.FileChecksum(b.Path())
	if err != nil {
		return false, fmt.Errorf("checksum binary content %s: %w", b.Path(), err)
	}
	return oldSum == newSum, nil
}

// atomicWrite creates the parent directories of path, writes to a temp file
// next to it and renames it into place.
func atomicWrite(path string, fill func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 -- output directories are public
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { // #nosec G302 -- generated site output is world readable
		cleanup()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
