package builtin

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
)

// Markdown renders CommonMark plus GitHub extensions to HTML.
//
// Params: unsafe (bool) keeps raw HTML blocks; pair it with sanitize.
type Markdown struct {
	safe   goldmark.Markdown
	unsafe goldmark.Markdown
}

func NewMarkdown() Markdown {
	return Markdown{
		safe: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		unsafe: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

func (Markdown) Signature() filter.Signature { return filter.TextToText }

func (m Markdown) Run(_ context.Context, in content.Content, env *filter.Env) (string, error) {
	src, err := textOf(in)
	if err != nil {
		return "", err
	}
	md := m.safe
	if boolParam(env, "unsafe", false) {
		md = m.unsafe
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
