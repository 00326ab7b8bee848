package builtin

import (
	"context"

	"github.com/microcosm-cc/bluemonday"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
)

// Sanitize strips unsafe HTML. Params: policy ("ugc" or "strict").
type Sanitize struct {
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func NewSanitize() Sanitize {
	return Sanitize{ugc: bluemonday.UGCPolicy(), strict: bluemonday.StrictPolicy()}
}

func (Sanitize) Signature() filter.Signature { return filter.TextToText }

func (s Sanitize) Run(_ context.Context, in content.Content, env *filter.Env) (string, error) {
	src, err := textOf(in)
	if err != nil {
		return "", err
	}
	if stringParam(env, "policy", "ugc") == "strict" {
		return s.strict.Sanitize(src), nil
	}
	return s.ugc.Sanitize(src), nil
}
