package build

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/deptrack"
	"git.home.luguber.info/inful/sitecompiler/internal/events"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
	"git.home.luguber.info/inful/sitecompiler/internal/filter/builtin"
	"git.home.luguber.info/inful/sitecompiler/internal/item"
)

var errBoom = stderrors.New("boom")

type harness struct {
	t        *testing.T
	out      string
	bus      *events.Bus
	tracker  *deptrack.Tracker
	compiler *Compiler
	names    []string
}

func newHarness(t *testing.T, layouts ...*item.Layout) *harness {
	t.Helper()
	reg := filter.NewRegistry()
	require.NoError(t, builtin.Register(reg))
	require.NoError(t, reg.Register("explode", filter.Func{Sig: filter.TextToText, Fn: func(context.Context, content.Content, *filter.Env) (string, error) {
		return "", errBoom
	}}))

	h := &harness{t: t, out: t.TempDir(), bus: events.NewBus()}
	h.bus.Subscribe(events.NameCompilationSuspended, func(_ context.Context, e events.Event) error {
		h.names = append(h.names, e.Name())
		return nil
	})
	h.tracker = deptrack.New(h.bus)
	h.tracker.Start()
	t.Cleanup(h.tracker.Stop)

	h.compiler = NewCompiler(CompilerOptions{
		Filters:   reg,
		Bus:       h.bus,
		Tracker:   h.tracker,
		Layouts:   layouts,
		OutputDir: h.out,
		TempDir:   t.TempDir(),
	})
	t.Cleanup(func() { _ = h.compiler.Cleanup() })
	return h
}

func (h *harness) run(items []*item.Item, rules ...config.Rule) (*Stats, error) {
	h.t.Helper()
	jobs, err := h.compiler.Plan(items, rules)
	require.NoError(h.t, err)
	return h.compiler.Compile(h.t.Context(), jobs)
}

func (h *harness) read(rel string) string {
	h.t.Helper()
	data, err := os.ReadFile(filepath.Join(h.out, filepath.FromSlash(rel)))
	require.NoError(h.t, err)
	return string(data)
}

func templateRule(pattern string) config.Rule {
	return config.Rule{
		Pattern: pattern,
		Rep:     config.DefaultRep,
		Steps:   []config.Step{{Filter: builtin.NameTemplate}},
		Route:   "{{ .Identifier }}index.html",
	}
}

func TestPlanFirstMatchingRuleWins(t *testing.T) {
	h := newHarness(t)
	items := []*item.Item{
		item.NewText("special", nil, "/special/"),
		item.NewText("plain", nil, "/plain/"),
	}
	special := config.Rule{Pattern: "/special/", Rep: config.DefaultRep, Route: "special.html"}

	jobs, err := h.compiler.Plan(items, []config.Rule{special, templateRule("/**")})
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, filepath.Join(h.out, "special.html"), jobs[0].RawPaths["last"])
	assert.Empty(t, jobs[0].Steps)
	assert.Equal(t, filepath.Join(h.out, "plain", "index.html"), jobs[1].RawPaths["last"])

	path, err := jobs[1].Rep.Path(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, "/plain/index.html", path)
}

func TestPlanOneJobPerRepName(t *testing.T) {
	h := newHarness(t)
	feed := config.Rule{Pattern: "/**", Rep: "feed", Route: "{{ .Identifier }}feed.xml"}

	jobs, err := h.compiler.Plan([]*item.Item{item.NewText("x", nil, "/blog/")}, []config.Rule{templateRule("/**"), feed})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, config.DefaultRep, jobs[0].Rep.Name())
	assert.Equal(t, "feed", jobs[1].Rep.Name())
}

func TestPlanRuleKinds(t *testing.T) {
	h := newHarness(t)
	bin := item.New(content.BinaryRef("/nowhere/logo.png", 3, time.Time{}), map[string]any{"extension": "png"}, "/logo/")
	text := item.NewText("x", nil, "/page/")

	textRule := templateRule("/**")
	textRule.Kind = config.RuleKindText
	binRule := config.Rule{Pattern: "/**", Kind: config.RuleKindBinary, Rep: config.DefaultRep, Route: "{{ .Slug }}.{{ .Extension }}"}

	jobs, err := h.compiler.Plan([]*item.Item{bin, text}, []config.Rule{textRule, binRule})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, filepath.Join(h.out, "logo.png"), jobs[0].RawPaths["last"])
	assert.Equal(t, filepath.Join(h.out, "page", "index.html"), jobs[1].RawPaths["last"])
}

func TestPlanDuplicateRoute(t *testing.T) {
	h := newHarness(t)
	items := []*item.Item{item.NewText("a", nil, "/a/"), item.NewText("b", nil, "/b/")}

	_, err := h.compiler.Plan(items, []config.Rule{{Pattern: "/**", Rep: config.DefaultRep, Route: "same.html"}})
	require.ErrorIs(t, err, ErrDuplicateRoute)
}

func TestPlanInvalidRoute(t *testing.T) {
	h := newHarness(t)
	_, err := h.compiler.Plan([]*item.Item{item.NewText("a", nil, "/a/")},
		[]config.Rule{{Pattern: "/**", Rep: config.DefaultRep, Route: "{{ .Attributes.nope }}"}})
	require.ErrorIs(t, err, ErrInvalidRoute)
}

func TestCompileWritesOutput(t *testing.T) {
	h := newHarness(t)
	stats, err := h.run([]*item.Item{item.NewText(`at {{ .path }} as {{ .rep }}`, nil, "/a/")}, templateRule("/**"))
	require.NoError(t, err)

	assert.Equal(t, &Stats{Reps: 1, Compiled: 1}, stats)
	assert.Equal(t, "at /a/index.html as default", h.read("a/index.html"))
}

func TestCompileAppliesLayout(t *testing.T) {
	h := newHarness(t, item.NewLayout(`<main>{{ yield }}</main>`, nil, "/default/"))
	rule := templateRule("/**")
	rule.Steps = append(rule.Steps, config.Step{Layout: "/default/", Filter: builtin.NameTemplate})

	_, err := h.run([]*item.Item{item.NewText("hello", nil, "/a/")}, rule)
	require.NoError(t, err)
	assert.Equal(t, "<main>hello</main>", h.read("a/index.html"))
}

func TestCompileSuspendsOnUnmetDependency(t *testing.T) {
	h := newHarness(t)
	items := []*item.Item{
		item.NewText(`A sees {{ .site.CompiledContent "/b/" }}`, nil, "/a/"),
		item.NewText("bee", nil, "/b/"),
	}

	stats, err := h.run(items, templateRule("/**"))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Compiled)
	assert.Equal(t, 1, stats.Suspensions)
	assert.Equal(t, []string{events.NameCompilationSuspended}, h.names)
	assert.Equal(t, "A sees bee", h.read("a/index.html"))
	assert.Equal(t, []string{"/b/"}, h.tracker.ObjectsCausingOutdatednessOf("/a/"))
	assert.Empty(t, h.tracker.ObjectsCausingOutdatednessOf("/b/"))
}

func TestCompileReadsPreSnapshotOfLaidOutItem(t *testing.T) {
	h := newHarness(t, item.NewLayout(`<html>{{ yield }}</html>`, nil, "/default/"))
	rule := templateRule("/**")
	rule.Steps = append(rule.Steps, config.Step{Layout: "/default/", Filter: builtin.NameTemplate})
	items := []*item.Item{
		item.NewText(`summary: {{ .site.CompiledContent "/b/" }}`, nil, "/a/"),
		item.NewText("body", nil, "/b/"),
	}

	_, err := h.run(items, rule)
	require.NoError(t, err)
	assert.Equal(t, "<html>summary: body</html>", h.read("a/index.html"))
	assert.Equal(t, "<html>body</html>", h.read("b/index.html"))
}

func TestCompileDependencyCycle(t *testing.T) {
	h := newHarness(t)
	items := []*item.Item{
		item.NewText(`{{ .site.CompiledContent "/b/" }}`, nil, "/a/"),
		item.NewText(`{{ .site.CompiledContent "/a/" }}`, nil, "/b/"),
	}

	_, err := h.run(items, templateRule("/**"))
	require.ErrorIs(t, err, ErrDependencyCycle)
	assert.Contains(t, err.Error(), "/a/[default] waits on /b/[default]")
	assert.Contains(t, err.Error(), "/b/[default] waits on /a/[default]")
}

func TestCompileSelfDependencyIsACycle(t *testing.T) {
	h := newHarness(t)
	_, err := h.run([]*item.Item{item.NewText(`{{ .site.CompiledContent "/a/" }}`, nil, "/a/")}, templateRule("/**"))
	require.ErrorIs(t, err, ErrDependencyCycle)
}

func TestCompileUnknownItem(t *testing.T) {
	h := newHarness(t)
	_, err := h.run([]*item.Item{item.NewText(`{{ .site.CompiledContent "/ghost/" }}`, nil, "/a/")}, templateRule("/**"))
	require.ErrorIs(t, err, ErrCompileFailed)
	require.ErrorIs(t, err, ErrUnknownItem)
}

func TestCompileMissingLayout(t *testing.T) {
	h := newHarness(t)
	rule := templateRule("/**")
	rule.Steps = []config.Step{{Layout: "/missing/", Filter: builtin.NameTemplate}}

	_, err := h.run([]*item.Item{item.NewText("x", nil, "/a/")}, rule)
	require.ErrorIs(t, err, ErrCompileFailed)
	require.ErrorIs(t, err, ErrLayoutNotFound)
	assert.Contains(t, err.Error(), "layout /missing/ via template")
}

func TestCompileFilterFailure(t *testing.T) {
	h := newHarness(t)
	rule := templateRule("/**")
	rule.Steps = append(rule.Steps, config.Step{Filter: "explode"})

	stats, err := h.run([]*item.Item{item.NewText("x", nil, "/a/")}, rule)
	require.ErrorIs(t, err, ErrCompileFailed)
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "step 2 (filter explode)")
	assert.Zero(t, stats.Compiled)
	assert.NoFileExists(t, filepath.Join(h.out, "a", "index.html"))
}

func TestCompileWriteFailureLeavesRepUncompiled(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(filepath.Join(h.out, "a", "index.html"), 0o750))

	jobs, err := h.compiler.Plan([]*item.Item{item.NewText("x", nil, "/a/")}, []config.Rule{templateRule("/**")})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	stats, err := h.compiler.Compile(t.Context(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
	assert.Zero(t, stats.Compiled)
	assert.False(t, jobs[0].Rep.Compiled())
}

func TestCompileCopiesBinaryItems(t *testing.T) {
	h := newHarness(t)
	src := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(src, []byte{0x89, 'P', 'N', 'G'}, 0o600))
	bin, err := content.NewBinary(src)
	require.NoError(t, err)

	rule := config.Rule{Pattern: "/**", Kind: config.RuleKindBinary, Rep: config.DefaultRep, Route: "{{ .Slug }}.{{ .Extension }}"}
	_, err = h.run([]*item.Item{item.New(bin, map[string]any{"extension": "png"}, "/img/logo/")}, rule)
	require.NoError(t, err)
	assert.Equal(t, string([]byte{0x89, 'P', 'N', 'G'}), h.read("img/logo.png"))
}

func TestCompileSnapshotRoutes(t *testing.T) {
	h := newHarness(t)
	rule := config.Rule{
		Pattern: "/**",
		Rep:     config.DefaultRep,
		Steps: []config.Step{
			{Snapshot: "draft", NonFinal: true},
			{Filter: builtin.NameTemplate},
			{Snapshot: "rendered"},
		},
		Route: "{{ .Slug }}.html",
		Routes: map[string]string{
			"draft":    "{{ .Slug }}.draft",
			"rendered": "{{ .Slug }}.rendered",
		},
	}

	_, err := h.run([]*item.Item{item.NewText(`{{ "x" }}`, nil, "/a/")}, rule)
	require.NoError(t, err)
	assert.Equal(t, "x", h.read("a.html"))
	assert.Equal(t, "x", h.read("a.rendered"))
	assert.NoFileExists(t, filepath.Join(h.out, "a.draft"))
}

func TestCompileHonorsCancellation(t *testing.T) {
	h := newHarness(t)
	jobs, err := h.compiler.Plan([]*item.Item{item.NewText("x", nil, "/a/")}, []config.Rule{templateRule("/**")})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = h.compiler.Compile(ctx, jobs)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSiteItems(t *testing.T) {
	h := newHarness(t)
	_, err := h.compiler.Plan([]*item.Item{
		item.NewText("", nil, "/b/"),
		item.NewText("", nil, "/a/"),
	}, []config.Rule{templateRule("/**")})
	require.NoError(t, err)

	site := &Site{ctx: t.Context(), reps: h.compiler.reps}
	assert.Equal(t, []string{"/a/", "/b/"}, site.Items())

	path, err := site.Path("/a/")
	require.NoError(t, err)
	assert.Equal(t, "/a/index.html", path)

	_, err = site.Snapshot("/a/", "feed", "last")
	require.ErrorIs(t, err, ErrUnknownItem)
}
