// Package item models the source units a site is compiled from: items, which
// may be textual or binary, and layouts, which are always textual.
package item

import (
	"slices"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
)

// Item is an immutable source unit. It is created once at load time and never
// mutated during compilation; only its representations change.
type Item struct {
	identifier string
	content    content.Content
	attributes map[string]any
}

// New creates an item. The attribute map is copied.
func New(c content.Content, attributes map[string]any, identifier string) *Item {
	return &Item{
		identifier: identifier,
		content:    c,
		attributes: cloneAttributes(attributes),
	}
}

// NewText is shorthand for an item with textual content.
func NewText(text string, attributes map[string]any, identifier string) *Item {
	return New(content.NewText(text), attributes, identifier)
}

func (i *Item) Identifier() string         { return i.identifier }
func (i *Item) Content() content.Content   { return i.content }
func (i *Item) IsBinary() bool             { return content.IsBinary(i.content) }
func (i *Item) Attributes() map[string]any { return cloneAttributes(i.attributes) }

// Attribute returns a copy of a single attribute value.
func (i *Item) Attribute(key string) (any, bool) {
	v, ok := i.attributes[key]
	return cloneValue(v), ok
}

func (i *Item) String() string { return "item " + i.identifier }

// Layout is a textual template applied around a representation's content.
type Layout struct {
	identifier string
	text       string
	attributes map[string]any
}

// NewLayout creates a layout. The attribute map is copied.
func NewLayout(text string, attributes map[string]any, identifier string) *Layout {
	return &Layout{identifier: identifier, text: text, attributes: cloneAttributes(attributes)}
}

func (l *Layout) Identifier() string         { return l.identifier }
func (l *Layout) Content() content.Text      { return content.NewText(l.text) }
func (l *Layout) Attributes() map[string]any { return cloneAttributes(l.attributes) }

func (l *Layout) String() string { return "layout " + l.identifier }

// cloneAttributes deep-copies the maps and slices frontmatter decodes into,
// so callers never share nested values with an item.
func cloneAttributes(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneAttributes(v)
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}
