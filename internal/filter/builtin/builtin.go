// Package builtin provides the filters sitecompiler ships with.
package builtin

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
)

// Filter names.
const (
	NameTemplate    = "template"
	NameMarkdown    = "markdown"
	NameSanitize    = "sanitize"
	NameFingerprint = "fingerprint"
	NameGzip        = "gzip"
	NameZstd        = "zstd"
	NameLZ4         = "lz4"
	NameDigest      = "digest"
	NameCopy        = "copy"
	NameRelativize  = "relativize_paths"
)

// Register adds every builtin filter to reg.
func Register(reg *filter.Registry) error {
	filters := map[string]filter.Filter{
		NameTemplate:    Template{},
		NameMarkdown:    NewMarkdown(),
		NameSanitize:    NewSanitize(),
		NameFingerprint: Fingerprint{},
		NameGzip:        Gzip{},
		NameZstd:        Zstd{},
		NameLZ4:         LZ4{},
		NameDigest:      Digest{},
		NameCopy:        Copy{},
		NameRelativize:  RelativizePaths{},
	}
	for name, f := range filters {
		if err := reg.Register(name, f); err != nil {
			return err
		}
	}
	return nil
}

func textOf(in content.Content) (string, error) {
	t, ok := in.(content.Text)
	if !ok {
		return "", fmt.Errorf("expected text content, got %s", content.Describe(in))
	}
	return t.String(), nil
}

func binaryOf(in content.Content) (content.Binary, error) {
	b, ok := in.(content.Binary)
	if !ok {
		return content.Binary{}, fmt.Errorf("expected binary content, got %s", content.Describe(in))
	}
	return b, nil
}

// writeOutput creates env.OutputFilename and hands it to fn. The file is
// removed again if fn fails.
func writeOutput(env *filter.Env, fn func(w io.Writer) error) error {
	if env.OutputFilename == "" {
		return fmt.Errorf("no output filename for binary filter")
	}
	// #nosec G304 -- output filenames are allocated by the rep.
	f, err := os.Create(env.OutputFilename)
	if err != nil {
		return fmt.Errorf("create filter output: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(env.OutputFilename)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(env.OutputFilename)
		return fmt.Errorf("close filter output: %w", err)
	}
	return nil
}

func intParam(env *filter.Env, key string, def int) int {
	switch v := env.Param(key, def).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v) // #nosec G115 -- parameter values are small levels.
	case float64:
		return int(v)
	default:
		return def
	}
}

func stringParam(env *filter.Env, key, def string) string {
	if s, ok := env.Param(key, def).(string); ok {
		return s
	}
	return def
}

func boolParam(env *filter.Env, key string, def bool) bool {
	if b, ok := env.Param(key, def).(bool); ok {
		return b
	}
	return def
}
