package builtin

import (
	"context"
	"path"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
)

// linkAttributes lists the attributes rewritten per element.
var linkAttributes = map[string][]string{
	"a":      {"href"},
	"link":   {"href"},
	"area":   {"href"},
	"img":    {"src"},
	"script": {"src"},
	"source": {"src"},
	"video":  {"src", "poster"},
	"audio":  {"src"},
	"iframe": {"src"},
	"form":   {"action"},
}

// RelativizePaths rewrites root-relative links in HTML so they are relative
// to the page being compiled. The page is the "path" assign, or the "path"
// param when set. Markup that holds no link is passed through byte for byte.
type RelativizePaths struct{}

func (RelativizePaths) Signature() filter.Signature { return filter.TextToText }

func (RelativizePaths) Run(_ context.Context, in content.Content, env *filter.Env) (string, error) {
	src, err := textOf(in)
	if err != nil {
		return "", err
	}
	page := stringParam(env, "path", "")
	if page == "" {
		page, _ = env.Assigns["path"].(string)
	}
	if page == "" {
		return src, nil
	}
	from := page
	if !strings.HasSuffix(from, "/") {
		from = path.Dir(from)
	}

	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := z.Raw()
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}
		tok := z.Token()
		if !relativizeToken(&tok, from) {
			out.Write(raw)
			continue
		}
		out.WriteString(tok.String())
	}
	return out.String(), nil
}

func relativizeToken(tok *html.Token, from string) bool {
	attrs := linkAttributes[tok.Data]
	changed := false
	for i, a := range tok.Attr {
		for _, name := range attrs {
			if a.Key != name || a.Namespace != "" || !rootRelative(a.Val) {
				continue
			}
			tok.Attr[i].Val = relativePath(from, a.Val)
			changed = true
		}
	}
	return changed
}

func rootRelative(link string) bool {
	return strings.HasPrefix(link, "/") && !strings.HasPrefix(link, "//")
}

// relativePath returns target relative to the directory from. Both are
// absolute slash paths; a trailing slash on target is kept.
func relativePath(from, target string) string {
	split := func(p string) []string {
		var parts []string
		for _, s := range strings.Split(p, "/") {
			if s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}
	base, dest := split(from), split(target)
	common := 0
	for common < len(base) && common < len(dest) && base[common] == dest[common] {
		common++
	}

	parts := make([]string, 0, len(base)-common+len(dest)-common)
	for range base[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, dest[common:]...)
	rel := strings.Join(parts, "/")
	if rel == "" {
		rel = "."
	}
	if strings.HasSuffix(target, "/") {
		rel += "/"
	}
	return rel
}
