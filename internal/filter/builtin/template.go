package builtin

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
)

// Template evaluates its input as a Go text/template. The template data is
// the assigns map; `yield` returns the content a layout wraps and
// `param` reads a filter parameter.
//
// Params: left_delim, right_delim, missing_key ("default" or "error").
type Template struct{}

func (Template) Signature() filter.Signature { return filter.TextToText }

func (Template) Run(_ context.Context, in content.Content, env *filter.Env) (string, error) {
	src, err := textOf(in)
	if err != nil {
		return "", err
	}

	name := env.Layout
	if name == "" {
		name = "content"
	}
	tmpl := template.New(name).
		Delims(stringParam(env, "left_delim", ""), stringParam(env, "right_delim", "")).
		Option("missingkey=" + stringParam(env, "missing_key", "default")).
		Funcs(template.FuncMap{
			"yield": func() string { return env.Yield },
			"param": func(key string) any { return env.Param(key, nil) },
		})
	tmpl, err = tmpl.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, env.Assigns); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return out.String(), nil
}
