package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
	"git.home.luguber.info/inful/sitecompiler/internal/frontmatter"
)

// Fields that never contribute to the fingerprint.
var fingerprintIgnored = map[string]bool{
	mdfp.FingerprintField: true,
	"lastmod":             true,
	"uid":                 true,
	"aliases":             true,
}

// Fingerprint stamps a content fingerprint into the document's frontmatter.
// Sources without frontmatter gain a block holding only the fingerprint.
type Fingerprint struct{}

func (Fingerprint) Signature() filter.Signature { return filter.TextToText }

func (Fingerprint) Run(_ context.Context, in content.Content, _ *filter.Env) (string, error) {
	src, err := textOf(in)
	if err != nil {
		return "", err
	}
	doc, err := frontmatter.Parse(src)
	if err != nil {
		return "", err
	}

	fp, err := ComputeFingerprint(doc.Attributes, doc.Body)
	if err != nil {
		return "", err
	}
	doc.Attributes[mdfp.FingerprintField] = fp
	doc.HasFrontmatter = true
	return frontmatter.Render(doc)
}

// ComputeFingerprint hashes the attributes (minus volatile fields) together
// with the body.
func ComputeFingerprint(attrs map[string]any, body string) (string, error) {
	hashed := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if fingerprintIgnored[k] {
			continue
		}
		hashed[k] = v
	}

	fm := ""
	if len(hashed) > 0 {
		yml, err := frontmatter.MarshalAttributes(hashed)
		if err != nil {
			return "", fmt.Errorf("serialize attributes for fingerprint: %w", err)
		}
		fm = strings.TrimSuffix(string(yml), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, body), nil
}
