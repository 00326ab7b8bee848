// Package content defines the immutable content values that flow through an
// item representation: either text held in memory or a reference to a binary
// file on disk.
package content

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// Kind distinguishes the two content variants.
type Kind int

const (
	KindText Kind = iota
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Content is a sealed union of Text and Binary. Values are immutable: every
// transformation constructs a new value.
type Content interface {
	Kind() Kind
	// Checksum returns the hex encoded BLAKE3 digest of the content bytes.
	Checksum() (string, error)

	sealed()
}

// Text is textual content.
type Text struct {
	s string
}

// NewText wraps s as textual content.
func NewText(s string) Text { return Text{s: s} }

func (t Text) String() string { return t.s }
func (Text) Kind() Kind       { return KindText }
func (Text) sealed()          {}

func (t Text) Checksum() (string, error) {
	sum := blake3.Sum256([]byte(t.s))
	return hex.EncodeToString(sum[:]), nil
}

// Binary references a file on disk. The file is never loaded fully into
// memory by this package.
type Binary struct {
	path    string
	size    int64
	modTime time.Time
}

// NewBinary stats path and returns a reference to it.
func NewBinary(path string) (Binary, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Binary{}, fmt.Errorf("resolve binary path %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Binary{}, fmt.Errorf("stat binary content %s: %w", abs, err)
	}
	if info.IsDir() {
		return Binary{}, fmt.Errorf("binary content %s is a directory", abs)
	}
	return Binary{path: abs, size: info.Size(), modTime: info.ModTime()}, nil
}

// BinaryRef builds a reference without touching the filesystem. Stores use it
// to restore previously recorded values; the file may no longer exist.
func BinaryRef(path string, size int64, modTime time.Time) Binary {
	return Binary{path: path, size: size, modTime: modTime}
}

func (b Binary) Path() string       { return b.path }
func (b Binary) Size() int64        { return b.size }
func (b Binary) ModTime() time.Time { return b.modTime }
func (Binary) Kind() Kind           { return KindBinary }
func (Binary) sealed()              {}

// Open opens the referenced file for reading.
func (b Binary) Open() (*os.File, error) {
	// #nosec G304 -- binary content paths are produced by the compiler itself.
	return os.Open(b.path)
}

func (b Binary) Checksum() (string, error) {
	return FileChecksum(b.path)
}

// FileChecksum streams path through BLAKE3.
func FileChecksum(path string) (string, error) {
	// #nosec G304 -- callers pass compiler-controlled paths.
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsBinary reports whether c is binary content.
func IsBinary(c Content) bool {
	_, ok := c.(Binary)
	return ok
}

// Describe renders a short, log friendly description of c.
func Describe(c Content) string {
	switch v := c.(type) {
	case Text:
		return fmt.Sprintf("text(%d bytes)", len(v.s))
	case Binary:
		return fmt.Sprintf("binary(%s, %d bytes)", v.path, v.size)
	default:
		return "<nil>"
	}
}
