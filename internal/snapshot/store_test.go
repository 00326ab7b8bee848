package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	ferrors "git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

type storeFactory func(t *testing.T) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			t.Helper()
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			t.Helper()
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
			require.NoError(t, err)
			return s
		},
		"sqlite-memory": func(t *testing.T) Store {
			t.Helper()
			s, err := NewSQLiteStore(":memory:")
			require.NoError(t, err)
			return s
		},
		"fs": func(t *testing.T) Store {
			t.Helper()
			s, err := NewFSStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreConformance(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Run("set and query text", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()
				key := Key{Item: "/about/", Rep: "default", Snapshot: Raw}

				require.NoError(t, s.Set(t.Context(), key, content.NewText("hello")))

				got, err := s.Query(t.Context(), key)
				require.NoError(t, err)
				assert.Equal(t, content.NewText("hello"), got)
			})

			t.Run("overwrite keeps last value", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()
				key := Key{Item: "/a/", Rep: "default", Snapshot: Last}

				require.NoError(t, s.Set(t.Context(), key, content.NewText("one")))
				require.NoError(t, s.Set(t.Context(), key, content.NewText("two")))

				got, err := s.Query(t.Context(), key)
				require.NoError(t, err)
				assert.Equal(t, "two", got.(content.Text).String())
			})

			t.Run("missing key is not found", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()
				key := Key{Item: "/missing/", Rep: "default", Snapshot: "foo"}

				_, err := s.Query(t.Context(), key)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNotFound)
				item, ok := ferrors.ContextString(err, "item")
				require.True(t, ok)
				assert.Equal(t, "/missing/", item)
			})

			t.Run("keys are independent", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				require.NoError(t, s.Set(t.Context(), Key{"/a/", "default", "foo"}, content.NewText("a")))
				require.NoError(t, s.Set(t.Context(), Key{"/a/", "print", "foo"}, content.NewText("b")))
				require.NoError(t, s.Set(t.Context(), Key{"/b/", "default", "foo"}, content.NewText("c")))

				got, err := s.Query(t.Context(), Key{"/a/", "print", "foo"})
				require.NoError(t, err)
				assert.Equal(t, content.NewText("b"), got)

				_, err = s.Query(t.Context(), Key{"/b/", "print", "foo"})
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("names are sorted per rep", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				for _, n := range []string{Last, "qux", Raw, "foo/bar"} {
					require.NoError(t, s.Set(t.Context(), Key{"/a/", "default", n}, content.NewText(n)))
				}
				require.NoError(t, s.Set(t.Context(), Key{"/a/", "other", "zzz"}, content.NewText("x")))

				names, err := s.Names(t.Context(), "/a/", "default")
				require.NoError(t, err)
				assert.Equal(t, []string{"foo/bar", Last, "qux", Raw}, names)

				names, err = s.Names(t.Context(), "/nothing/", "default")
				require.NoError(t, err)
				assert.Empty(t, names)
			})

			t.Run("dot and empty names are listed", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				stored := []string{".draft", Last, "", ".", "..", ".snapshot-x"}
				for _, n := range stored {
					require.NoError(t, s.Set(t.Context(), Key{"/a/", "default", n}, content.NewText("v"+n)))
				}

				names, err := s.Names(t.Context(), "/a/", "default")
				require.NoError(t, err)
				assert.Equal(t, []string{"", ".", "..", ".draft", ".snapshot-x", Last}, names)

				for _, n := range stored {
					got, err := s.Query(t.Context(), Key{"/a/", "default", n})
					require.NoError(t, err, "snapshot %q", n)
					assert.Equal(t, content.NewText("v"+n), got)
				}
			})

			t.Run("zero modification time survives", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()
				key := Key{Item: "/x/", Rep: "default", Snapshot: Last}

				require.NoError(t, s.Set(t.Context(), key, content.BinaryRef("/x.dat", 3, time.Time{})))

				got, err := s.Query(t.Context(), key)
				require.NoError(t, err)
				bin, ok := got.(content.Binary)
				require.True(t, ok)
				assert.True(t, bin.ModTime().IsZero(), "got %v", bin.ModTime())
				assert.Equal(t, int64(3), bin.Size())
			})

			t.Run("binary reference round trip", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				path := filepath.Join(t.TempDir(), "blob.bin")
				require.NoError(t, os.WriteFile(path, []byte{0, 1, 2, 3}, 0o600))
				bin, err := content.NewBinary(path)
				require.NoError(t, err)

				key := Key{Item: "/img/", Rep: "default", Snapshot: Last}
				require.NoError(t, s.Set(t.Context(), key, bin))

				got, err := s.Query(t.Context(), key)
				require.NoError(t, err)
				gotBin, ok := got.(content.Binary)
				require.True(t, ok)
				assert.Equal(t, bin.Path(), gotBin.Path())
				assert.Equal(t, int64(4), gotBin.Size())
				assert.True(t, bin.ModTime().Equal(gotBin.ModTime()))
			})

			t.Run("nil content rejected", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				err := s.Set(t.Context(), Key{"/a/", "default", "x"}, nil)
				assert.ErrorIs(t, err, ErrNilContent)
			})

			t.Run("clear removes only one rep", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				for _, k := range []Key{
					{"/a/", "default", Raw}, {"/a/", "default", Pre},
					{"/a/", "text", Last}, {"/b/", "default", Last},
				} {
					require.NoError(t, s.Set(t.Context(), k, content.NewText(k.String())))
				}
				require.NoError(t, s.Clear(t.Context(), "/a/", "default"))
				require.NoError(t, s.Clear(t.Context(), "/missing/", "default"))

				names, err := s.Names(t.Context(), "/a/", "default")
				require.NoError(t, err)
				assert.Empty(t, names)
				_, err = s.Query(t.Context(), Key{"/a/", "default", Pre})
				assert.ErrorIs(t, err, ErrNotFound)

				got, err := s.Query(t.Context(), Key{"/a/", "text", Last})
				require.NoError(t, err)
				assert.Equal(t, content.NewText("/a/[text]@last"), got)
				_, err = s.Query(t.Context(), Key{"/b/", "default", Last})
				require.NoError(t, err)
			})

			t.Run("concurrent writers", func(t *testing.T) {
				s := factory(t)
				defer func() { _ = s.Close() }()

				var wg sync.WaitGroup
				for i := range 8 {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						key := Key{Item: fmt.Sprintf("/item-%d/", i), Rep: "default", Snapshot: Last}
						for j := range 10 {
							assert.NoError(t, s.Set(t.Context(), key, content.NewText(fmt.Sprintf("%d-%d", i, j))))
						}
					}(i)
				}
				wg.Wait()

				for i := range 8 {
					got, err := s.Query(t.Context(), Key{Item: fmt.Sprintf("/item-%d/", i), Rep: "default", Snapshot: Last})
					require.NoError(t, err)
					assert.Equal(t, fmt.Sprintf("%d-9", i), got.(content.Text).String())
				}
			})
		})
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	key := Key{Item: "/about/", Rep: "default", Snapshot: Last}

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(t.Context(), key, content.NewText("persisted")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Query(t.Context(), key)
	require.NoError(t, err)
	assert.Equal(t, content.NewText("persisted"), got)
}

func TestFSStoreSurvivesReopen(t *testing.T) {
	root := t.TempDir()
	key := Key{Item: "/about/", Rep: "default", Snapshot: "pre"}

	s, err := NewFSStore(root)
	require.NoError(t, err)
	require.NoError(t, s.Set(t.Context(), key, content.NewText("persisted")))

	reopened, err := NewFSStore(root)
	require.NoError(t, err)
	got, err := reopened.Query(t.Context(), key)
	require.NoError(t, err)
	assert.Equal(t, content.NewText("persisted"), got)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    any
		wantErr error
	}{
		{name: "default is memory", opts: Options{}, want: &MemoryStore{}},
		{name: "memory", opts: Options{Backend: BackendMemory}, want: &MemoryStore{}},
		{name: "sqlite without path", opts: Options{Backend: BackendSQLite}, want: &SQLiteStore{}},
		{name: "sqlite file", opts: Options{Backend: BackendSQLite, Path: filepath.Join(t.TempDir(), "nested", "s.db")}, want: &SQLiteStore{}},
		{name: "fs", opts: Options{Backend: BackendFS, Path: t.TempDir()}, want: &FSStore{}},
		{name: "unknown", opts: Options{Backend: "redis"}, wantErr: ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.opts)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			defer func() { _ = s.Close() }()
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestOpenFSRequiresPath(t *testing.T) {
	_, err := Open(Options{Backend: BackendFS})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}
