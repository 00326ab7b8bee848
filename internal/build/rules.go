package build

import (
	"path"
	"regexp"
	"strings"
	"text/template"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
	"git.home.luguber.info/inful/sitecompiler/internal/item"
	"git.home.luguber.info/inful/sitecompiler/internal/snapshot"
)

// Pattern matches item identifiers. "**" spans path segments, "*" and "?"
// stay within one. A trailing slash is optional, so "/blog/*" matches the
// identifier "/blog/post/".
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// CompilePattern translates a rule pattern into a matcher.
func CompilePattern(pattern string) (*Pattern, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
				if i+1 < len(pattern) && pattern[i+1] == '/' {
					i++
					b.WriteString("(?:.*/)?")
				} else {
					b.WriteString(".*")
				}
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	if !strings.HasSuffix(pattern, "/") {
		b.WriteString("/?")
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, err
	}
	return &Pattern{raw: pattern, re: re}, nil
}

// Match reports whether identifier matches the pattern.
func (p *Pattern) Match(identifier string) bool { return p.re.MatchString(identifier) }

func (p *Pattern) String() string { return p.raw }

type compiledRule struct {
	config.Rule
	pattern *Pattern
	routes  map[string]*template.Template
}

func compileRules(rules []config.Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		p, err := CompilePattern(r.Pattern)
		if err != nil {
			return nil, ErrInvalidRoute.WithContext("rule", i).WithContext("pattern", r.Pattern).WithCause(err)
		}
		cr := compiledRule{Rule: r, pattern: p, routes: map[string]*template.Template{}}
		routes := map[string]string{}
		for snap, route := range r.Routes {
			routes[snap] = route
		}
		if r.Route != "" {
			routes[snapshot.Last] = r.Route
		}
		for snap, route := range routes {
			tmpl, err := template.New(snap).Option("missingkey=error").Parse(route)
			if err != nil {
				return nil, ErrInvalidRoute.WithContext("rule", i).WithContext("snapshot", snap).WithCause(err)
			}
			cr.routes[snap] = tmpl
		}
		out = append(out, cr)
	}
	return out, nil
}

func (r compiledRule) matches(it *item.Item) bool {
	switch r.Kind {
	case config.RuleKindText:
		if it.IsBinary() {
			return false
		}
	case config.RuleKindBinary:
		if !it.IsBinary() {
			return false
		}
	}
	return r.pattern.Match(it.Identifier())
}

// RouteData is what route templates are rendered against.
type RouteData struct {
	Identifier string
	// Slug is the identifier without its trailing slash ("" for "/").
	Slug       string
	Extension  string
	Rep        string
	Attributes map[string]any
}

func routeData(it *item.Item, repName string) RouteData {
	ext, _ := it.Attribute("extension")
	extension, _ := ext.(string)
	return RouteData{
		Identifier: it.Identifier(),
		Slug:       strings.TrimSuffix(it.Identifier(), "/"),
		Extension:  extension,
		Rep:        repName,
		Attributes: it.Attributes(),
	}
}

// render returns the public path a route template produces. Public paths
// are slash separated and always absolute.
func render(tmpl *template.Template, data RouteData) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", nil
	}
	return path.Clean("/" + out), nil
}
