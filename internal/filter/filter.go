// Package filter defines the contract between an item representation and the
// transformations applied to its content, plus the registry filters are looked
// up from by name.
package filter

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

// Type is the content type a filter consumes or produces.
type Type int

const (
	TypeText Type = iota
	TypeBinary
)

func (t Type) String() string {
	if t == TypeBinary {
		return "binary"
	}
	return "text"
}

// Signature declares a filter's input and output types.
type Signature struct {
	In  Type
	Out Type
}

func (s Signature) String() string { return s.In.String() + "->" + s.Out.String() }

var (
	TextToText     = Signature{In: TypeText, Out: TypeText}
	TextToBinary   = Signature{In: TypeText, Out: TypeBinary}
	BinaryToText   = Signature{In: TypeBinary, Out: TypeText}
	BinaryToBinary = Signature{In: TypeBinary, Out: TypeBinary}
)

// Env is everything a filter invocation may read besides its input.
type Env struct {
	// Params are the per-invocation parameters from the rule.
	Params map[string]any
	// Assigns is the opaque map injected by the scheduler. Filters must not
	// mutate it.
	Assigns map[string]any
	// OutputFilename is where a binary-producing filter writes its result.
	OutputFilename string
	// Yield is the content a layout wraps. Empty outside layouts.
	Yield string
	// Layout is the identifier of the layout being applied, if any.
	Layout string
}

// Param returns a parameter value or def when absent.
func (e *Env) Param(key string, def any) any {
	if e == nil || e.Params == nil {
		return def
	}
	if v, ok := e.Params[key]; ok {
		return v
	}
	return def
}

// Filter transforms content. Text-producing filters return the new text;
// binary-producing filters write env.OutputFilename and return "".
type Filter interface {
	Signature() Signature
	Run(ctx context.Context, in content.Content, env *Env) (string, error)
}

// Func adapts a plain function to the Filter interface.
type Func struct {
	Sig Signature
	Fn  func(ctx context.Context, in content.Content, env *Env) (string, error)
}

func (f Func) Signature() Signature { return f.Sig }

func (f Func) Run(ctx context.Context, in content.Content, env *Env) (string, error) {
	return f.Fn(ctx, in, env)
}

var (
	// ErrCannotUseBinaryFilter is returned when a binary-input filter is
	// applied to textual content.
	ErrCannotUseBinaryFilter = errors.FilterError("cannot use binary filter on textual content").Build()

	// ErrCannotUseTextualFilter is returned when a text-input filter is
	// applied to binary content.
	ErrCannotUseTextualFilter = errors.FilterError("cannot use textual filter on binary content").Build()

	// ErrMissingFilterOutput is returned when a binary-producing filter did
	// not write its output file.
	ErrMissingFilterOutput = errors.FilterError("filter did not write its output file").Build()
)

// Apply type-checks in against f, runs it and wraps the result in a new
// content value. Errors returned by the filter itself pass through unchanged.
func Apply(ctx context.Context, name string, f Filter, in content.Content, env *Env) (content.Content, error) {
	if env == nil {
		env = &Env{}
	}
	sig := f.Signature()

	switch in.(type) {
	case content.Text:
		if sig.In == TypeBinary {
			return nil, ErrCannotUseBinaryFilter.WithContext("filter", name)
		}
	case content.Binary:
		if sig.In == TypeText {
			return nil, ErrCannotUseTextualFilter.WithContext("filter", name)
		}
	default:
		return nil, errors.InternalError("unsupported content value").
			WithContext("filter", name).
			WithContext("type", fmt.Sprintf("%T", in)).
			Build()
	}

	out, err := f.Run(ctx, in, env)
	if err != nil {
		return nil, err
	}

	if sig.Out == TypeText {
		return content.NewText(out), nil
	}

	if env.OutputFilename == "" {
		return nil, ErrMissingFilterOutput.WithContext("filter", name)
	}
	if _, err := os.Stat(env.OutputFilename); err != nil {
		return nil, ErrMissingFilterOutput.
			WithContext("filter", name).
			WithContext("path", env.OutputFilename)
	}
	bin, err := content.NewBinary(env.OutputFilename)
	if err != nil {
		return nil, fmt.Errorf("filter %s output: %w", name, err)
	}
	return bin, nil
}
