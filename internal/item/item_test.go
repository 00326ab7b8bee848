package item

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
)

func TestItemAttributesAreCopied(t *testing.T) {
	attrs := map[string]any{"title": "Hello"}
	it := NewText("blah blah", attrs, "/")

	attrs["title"] = "changed"
	got := it.Attributes()
	assert.Equal(t, "Hello", got["title"])

	got["title"] = "mutated"
	v, ok := it.Attribute("title")
	require.True(t, ok)
	assert.Equal(t, "Hello", v)
}

func TestItemNestedAttributesAreCopied(t *testing.T) {
	attrs := map[string]any{
		"meta": map[string]any{"title": "Hello"},
		"tags": []any{"a", map[string]any{"k": "v"}},
	}
	it := NewText("blah", attrs, "/")

	attrs["meta"].(map[string]any)["title"] = "changed before"

	got := it.Attributes()
	got["meta"].(map[string]any)["title"] = "mutated"
	tags := got["tags"].([]any)
	tags[0] = "z"
	tags[1].(map[string]any)["k"] = "mutated"

	meta, ok := it.Attribute("meta")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"title": "Hello"}, meta)
	meta.(map[string]any)["title"] = "via attribute"

	assert.Equal(t, map[string]any{
		"meta": map[string]any{"title": "Hello"},
		"tags": []any{"a", map[string]any{"k": "v"}},
	}, it.Attributes())

	l := NewLayout("{{ yield }}", map[string]any{"nav": []any{"home"}}, "/default/")
	l.Attributes()["nav"].([]any)[0] = "mutated"
	assert.Equal(t, []any{"home"}, l.Attributes()["nav"])
}

func TestItemContentKind(t *testing.T) {
	text := NewText("foo", nil, "/foo/")
	assert.False(t, text.IsBinary())

	bin := New(content.BinaryRef("/a/file/name.dat", 0, time.Time{}), nil, "/")
	assert.True(t, bin.IsBinary())
}

func TestIdentifier(t *testing.T) {
	cases := map[string]string{
		"index.md":          "/",
		"about.md":          "/about/",
		"about/index.html":  "/about/",
		"blog/2024/post.md": "/blog/2024/post/",
		"images/logo.png":   "/images/logo/",
	}
	for rel, want := range cases {
		assert.Equal(t, want, Identifier(rel), rel)
	}
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	write := func(rel, data string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	}
	write("index.md", "---\ntitle: Home\n---\nWelcome\n")
	write("about.md", "About us\n")
	write("images/logo.png", "\x89PNG")
	write(".hidden/secret.md", "nope")

	items, err := LoadDir(root, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "/", items[0].Identifier())
	assert.Equal(t, "Welcome\n", items[0].Content().(content.Text).String())
	title, _ := items[0].Attribute("title")
	assert.Equal(t, "Home", title)

	assert.Equal(t, "/about/", items[1].Identifier())
	assert.Equal(t, "/images/logo/", items[2].Identifier())
	assert.True(t, items[2].IsBinary())
	ext, _ := items[2].Attribute("extension")
	assert.Equal(t, "png", ext)
}

func TestLoadDirRejectsDuplicateIdentifiers(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "about.md"), []byte("a"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "about"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "about", "index.md"), []byte("b"), 0o600))

	_, err := LoadDir(root, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate identifier /about/")
}

func TestLoadLayouts(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "default.html"), []byte(`{{ "blah" }} {{ yield }}`), 0o600))

	layouts, err := LoadLayouts(root)
	require.NoError(t, err)
	require.Len(t, layouts, 1)
	assert.Equal(t, "/default/", layouts[0].Identifier())
	assert.Equal(t, `{{ "blah" }} {{ yield }}`, layouts[0].Content().String())
}
