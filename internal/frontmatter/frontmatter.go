// Package frontmatter splits YAML frontmatter from item sources and renders
// it back deterministically.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnterminated indicates the source opened a frontmatter block but never closed it.
var ErrUnterminated = errors.New("frontmatter opened with --- but never closed")

// Document is an item source split into attributes and body.
type Document struct {
	Attributes map[string]any
	Body       string
	// HasFrontmatter is false when the source did not start with a --- line.
	HasFrontmatter bool
	// Newline is the line ending detected in the source ("\n" or "\r\n").
	Newline string
}

// Parse splits src. Sources without frontmatter yield an empty attribute map
// and the unchanged body.
func Parse(src string) (Document, error) {
	nl := detectNewline(src)
	doc := Document{Attributes: map[string]any{}, Body: src, Newline: nl}

	open := "---" + nl
	if !strings.HasPrefix(src, open) {
		return doc, nil
	}
	rest := src[len(open):]

	var raw string
	switch {
	case strings.HasPrefix(rest, open):
		doc.Body = rest[len(open):]
	default:
		idx := strings.Index(rest, nl+"---"+nl)
		if idx < 0 {
			return Document{}, ErrUnterminated
		}
		raw = rest[:idx+len(nl)]
		doc.Body = rest[idx+len(nl)+len(open):]
	}
	doc.HasFrontmatter = true

	if strings.TrimSpace(raw) == "" {
		return doc, nil
	}
	var attrs map[string]any
	if err := yaml.Unmarshal([]byte(raw), &attrs); err != nil {
		return Document{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	if attrs != nil {
		doc.Attributes = attrs
	}
	return doc, nil
}

// Render reassembles the document. Attribute keys are sorted so identical
// attributes always produce identical bytes.
func Render(doc Document) (string, error) {
	if !doc.HasFrontmatter && len(doc.Attributes) == 0 {
		return doc.Body, nil
	}
	nl := doc.Newline
	if nl == "" {
		nl = "\n"
	}

	var yml []byte
	if len(doc.Attributes) > 0 {
		var err error
		yml, err = MarshalAttributes(doc.Attributes)
		if err != nil {
			return "", err
		}
		if nl != "\n" {
			yml = bytes.ReplaceAll(yml, []byte("\n"), []byte(nl))
		}
	}

	var b strings.Builder
	b.WriteString("---" + nl)
	b.Write(yml)
	b.WriteString("---" + nl)
	b.WriteString(doc.Body)
	return b.String(), nil
}

// MarshalAttributes encodes attrs as YAML with sorted keys and LF newlines.
func MarshalAttributes(attrs map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sortedNode(attrs)); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("render frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render frontmatter: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedNode(m map[string]any) *yaml.Node {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		var val *yaml.Node
		if nested, ok := m[k].(map[string]any); ok {
			val = sortedNode(nested)
		} else {
			val = &yaml.Node{}
			if err := val.Encode(m[k]); err != nil {
				val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(m[k])}
			}
		}
		n.Content = append(n.Content, key, val)
	}
	return n
}

func detectNewline(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 && s[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
