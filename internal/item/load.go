package item

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/frontmatter"
)

// DefaultTextExtensions lists the file extensions loaded as textual content.
var DefaultTextExtensions = []string{
	".css", ".erb", ".htm", ".html", ".js", ".json", ".less", ".markdown", ".md",
	".mkd", ".rss", ".sass", ".scss", ".tmpl", ".txt", ".xhtml", ".xml", ".yaml", ".yml",
}

// LoadOptions controls how a content directory is read.
type LoadOptions struct {
	// TextExtensions overrides DefaultTextExtensions when non-empty.
	TextExtensions []string
}

func (o LoadOptions) isText(path string) bool {
	exts := o.TextExtensions
	if len(exts) == 0 {
		exts = DefaultTextExtensions
	}
	return slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
}

// Identifier derives the item identifier for a file relative to its root:
// "about.md" and "about/index.md" both become "/about/".
func Identifier(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = strings.TrimSuffix(rel, "/index")
	if rel == "index" {
		rel = ""
	}
	if rel == "" {
		return "/"
	}
	return "/" + rel + "/"
}

// LoadFile reads a single source file. Textual files have their YAML
// frontmatter parsed into attributes; binary files are referenced, not read.
// The attributes "filename" and "extension" are always set.
func LoadFile(root, path string, opts LoadOptions) (*Item, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, fmt.Errorf("relative path for %s: %w", path, err)
	}
	attrs := map[string]any{
		"filename":  filepath.ToSlash(rel),
		"extension": strings.TrimPrefix(filepath.Ext(path), "."),
	}

	if !opts.isText(path) {
		bin, err := content.NewBinary(path)
		if err != nil {
			return nil, err
		}
		return New(bin, attrs, Identifier(rel)), nil
	}

	// #nosec G304 -- path comes from walking the configured content root.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := frontmatter.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	for k, v := range doc.Attributes {
		attrs[k] = v
	}
	return NewText(doc.Body, attrs, Identifier(rel)), nil
}

// LoadDir walks root and loads every regular file as an item. Hidden files
// and directories are skipped. Items are returned sorted by identifier.
func LoadDir(root string, opts LoadOptions) ([]*Item, error) {
	var items []*Item
	seen := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		it, err := LoadFile(root, path, opts)
		if err != nil {
			return err
		}
		if prev, dup := seen[it.Identifier()]; dup {
			return fmt.Errorf("duplicate identifier %s for %s and %s", it.Identifier(), prev, path)
		}
		seen[it.Identifier()] = path
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Identifier() < items[j].Identifier() })
	return items, nil
}

// LoadLayouts reads every file under root as a textual layout.
func LoadLayouts(root string) ([]*Layout, error) {
	var layouts []*Layout
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		// #nosec G304 -- path comes from walking the configured layouts root.
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read layout %s: %w", path, err)
		}
		doc, err := frontmatter.Parse(string(raw))
		if err != nil {
			return fmt.Errorf("layout %s: %w", rel, err)
		}
		layouts = append(layouts, NewLayout(doc.Body, doc.Attributes, Identifier(rel)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(layouts, func(i, j int) bool { return layouts[i].Identifier() < layouts[j].Identifier() })
	return layouts, nil
}
