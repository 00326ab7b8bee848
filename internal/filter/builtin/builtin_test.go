package builtin

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
	"git.home.luguber.info/inful/sitecompiler/internal/frontmatter"
)

func newRegistry(t *testing.T) *filter.Registry {
	t.Helper()
	reg := filter.NewRegistry()
	require.NoError(t, Register(reg))
	return reg
}

func apply(t *testing.T, name string, in content.Content, env *filter.Env) content.Content {
	t.Helper()
	f, err := newRegistry(t).Lookup(name)
	require.NoError(t, err)
	out, err := filter.Apply(t.Context(), name, f, in, env)
	require.NoError(t, err)
	return out
}

func binaryInput(t *testing.T, data []byte) content.Binary {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	bin, err := content.NewBinary(path)
	require.NoError(t, err)
	return bin
}

func outputEnv(t *testing.T) *filter.Env {
	t.Helper()
	return &filter.Env{OutputFilename: filepath.Join(t.TempDir(), "output.bin")}
}

func TestRegisterAll(t *testing.T) {
	reg := newRegistry(t)
	assert.Equal(t, []string{
		NameCopy, NameDigest, NameFingerprint, NameGzip, NameLZ4,
		NameMarkdown, NameRelativize, NameSanitize, NameTemplate, NameZstd,
	}, reg.Names())

	assert.Error(t, Register(reg), "registering twice collides")
}

func TestTemplate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		env  *filter.Env
		want string
	}{
		{
			name: "evaluates actions",
			src:  `{{ "blah" }}`,
			env:  &filter.Env{},
			want: "blah",
		},
		{
			name: "emits template source",
			src:  `{{ printf "%s%s" "{{ \"blah\" }" "}" }}`,
			env:  &filter.Env{},
			want: `{{ "blah" }}`,
		},
		{
			name: "reads assigns",
			src:  `Hello {{ .name }}`,
			env:  &filter.Env{Assigns: map[string]any{"name": "world"}},
			want: "Hello world",
		},
		{
			name: "yield inside layout",
			src:  `{{ "blah" }} {{ yield }}`,
			env:  &filter.Env{Yield: "meh", Layout: "/default/"},
			want: "blah meh",
		},
		{
			name: "reads params",
			src:  `{{ param "title" }}`,
			env:  &filter.Env{Params: map[string]any{"title": "T"}},
			want: "T",
		},
		{
			name: "custom delimiters",
			src:  `[[ "x" ]] {{ kept }}`,
			env:  &filter.Env{Params: map[string]any{"left_delim": "[[", "right_delim": "]]"}},
			want: "x {{ kept }}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := apply(t, NameTemplate, content.NewText(tt.src), tt.env)
			assert.Equal(t, content.NewText(tt.want), out)
		})
	}
}

func TestTemplateErrors(t *testing.T) {
	_, err := Template{}.Run(t.Context(), content.NewText("{{ nope"), &filter.Env{})
	assert.ErrorContains(t, err, "parse template")

	_, err = Template{}.Run(t.Context(), content.NewText("{{ .missing }}"), &filter.Env{
		Assigns: map[string]any{},
		Params:  map[string]any{"missing_key": "error"},
	})
	assert.ErrorContains(t, err, "execute template")
}

func TestMarkdown(t *testing.T) {
	out := apply(t, NameMarkdown, content.NewText("# Title\n\nSome *text*."), &filter.Env{})
	html := out.(content.Text).String()
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<em>text</em>")

	raw := "<div class=\"x\">hi</div>\n"
	safe := apply(t, NameMarkdown, content.NewText(raw), &filter.Env{}).(content.Text).String()
	assert.NotContains(t, safe, "<div")
	unsafe := apply(t, NameMarkdown, content.NewText(raw), &filter.Env{Params: map[string]any{"unsafe": true}}).(content.Text).String()
	assert.Contains(t, unsafe, "<div class=\"x\">hi</div>")
}

func TestSanitize(t *testing.T) {
	src := `<p onclick="evil()">hi <script>alert(1)</script><b>there</b></p>`

	ugc := apply(t, NameSanitize, content.NewText(src), &filter.Env{}).(content.Text).String()
	assert.NotContains(t, ugc, "script")
	assert.NotContains(t, ugc, "onclick")
	assert.Contains(t, ugc, "<b>there</b>")

	strict := apply(t, NameSanitize, content.NewText(src), &filter.Env{Params: map[string]any{"policy": "strict"}}).(content.Text).String()
	assert.Equal(t, "hi there", strict)
}

func TestFingerprint(t *testing.T) {
	src := "---\ntitle: Hello\n---\nbody\n"
	out := apply(t, NameFingerprint, content.NewText(src), &filter.Env{}).(content.Text).String()

	doc, err := frontmatter.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "Hello", doc.Attributes["title"])
	assert.Equal(t, "body\n", doc.Body)
	fp, ok := doc.Attributes["fingerprint"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, fp)

	again := apply(t, NameFingerprint, content.NewText(out), &filter.Env{}).(content.Text).String()
	assert.Equal(t, out, again, "fingerprinting is idempotent")

	changed := apply(t, NameFingerprint, content.NewText("---\ntitle: Hello\n---\nother\n"), &filter.Env{}).(content.Text).String()
	assert.NotEqual(t, out, changed)
}

func TestFingerprintIgnoresVolatileFields(t *testing.T) {
	a, err := ComputeFingerprint(map[string]any{"title": "x"}, "body")
	require.NoError(t, err)
	b, err := ComputeFingerprint(map[string]any{"title": "x", "lastmod": "2024-01-01", "uid": "u"}, "body")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGzip(t *testing.T) {
	payload := bytes.Repeat([]byte("sitecompiler "), 100)
	out := apply(t, NameGzip, binaryInput(t, payload), outputEnv(t)).(content.Binary)

	f, err := out.Open()
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Less(t, out.Size(), int64(len(payload)))
}

func TestZstd(t *testing.T) {
	payload := bytes.Repeat([]byte{1, 2, 3, 4}, 512)
	out := apply(t, NameZstd, binaryInput(t, payload), outputEnv(t)).(content.Binary)

	data, err := os.ReadFile(out.Path())
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	got, err := dec.DecodeAll(data, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = Zstd{}.Run(t.Context(), binaryInput(t, payload), &filter.Env{
		OutputFilename: filepath.Join(t.TempDir(), "x"),
		Params:         map[string]any{"level": "ludicrous"},
	})
	assert.ErrorContains(t, err, "unknown zstd level")
}

func TestLZ4(t *testing.T) {
	text := strings.Repeat("compress me ", 64)
	out := apply(t, NameLZ4, content.NewText(text), outputEnv(t)).(content.Binary)

	f, err := out.Open()
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	got, err := io.ReadAll(lz4.NewReader(f))
	require.NoError(t, err)
	assert.Equal(t, text, string(got))
}

func TestDigestAndCopy(t *testing.T) {
	in := binaryInput(t, []byte("meh"))
	want, err := in.Checksum()
	require.NoError(t, err)

	digest := apply(t, NameDigest, in, &filter.Env{})
	assert.Equal(t, content.NewText(want), digest)

	copied := apply(t, NameCopy, in, outputEnv(t)).(content.Binary)
	assert.NotEqual(t, in.Path(), copied.Path())
	sum, err := copied.Checksum()
	require.NoError(t, err)
	assert.Equal(t, want, sum)
}

func TestBinaryFiltersRejectText(t *testing.T) {
	reg := newRegistry(t)
	for _, name := range []string{NameGzip, NameZstd, NameDigest, NameCopy} {
		f, err := reg.Lookup(name)
		require.NoError(t, err)
		_, err = filter.Apply(t.Context(), name, f, content.NewText("x"), outputEnv(t))
		assert.ErrorIs(t, err, filter.ErrCannotUseBinaryFilter, name)
	}
}

func TestRelativizePaths(t *testing.T) {
	src := `<p><a href="/about/">About</a> <img src="/logo.png" alt="x"> ` +
		`<a href="//cdn.example/x">cdn</a> <a href="https://example.com/">ext</a> <a href="#top">top</a></p>`
	env := &filter.Env{Assigns: map[string]any{"path": "/guide/setup/index.html"}}

	out := apply(t, NameRelativize, content.NewText(src), env)
	assert.Equal(t, `<p><a href="../../about/">About</a> <img src="../../logo.png" alt="x"> `+
		`<a href="//cdn.example/x">cdn</a> <a href="https://example.com/">ext</a> <a href="#top">top</a></p>`,
		out.(content.Text).String())
}

func TestRelativizePathsWithoutPage(t *testing.T) {
	src := `<a href="/x">x</a>`
	out := apply(t, NameRelativize, content.NewText(src), &filter.Env{})
	assert.Equal(t, src, out.(content.Text).String())

	out = apply(t, NameRelativize, content.NewText(src), &filter.Env{Params: map[string]any{"path": "/index.html"}})
	assert.Equal(t, `<a href="x">x</a>`, out.(content.Text).String())
}

func TestRelativePath(t *testing.T) {
	tests := []struct{ from, target, want string }{
		{"/", "/about/", "about/"},
		{"/a/", "/a/", "./"},
		{"/a/b/", "/", "../../"},
		{"/a/b/", "/a/c/d.css", "../c/d.css"},
		{"/a/", "/a/img.png", "img.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relativePath(tt.from, tt.target), "%s -> %s", tt.from, tt.target)
	}
}
