package builtin

import (
	"context"
	"io"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
)

// Digest replaces binary content with its BLAKE3 hex digest.
type Digest struct{}

func (Digest) Signature() filter.Signature { return filter.BinaryToText }

func (Digest) Run(_ context.Context, in content.Content, _ *filter.Env) (string, error) {
	src, err := binaryOf(in)
	if err != nil {
		return "", err
	}
	return src.Checksum()
}

// Copy duplicates binary content unchanged.
type Copy struct{}

func (Copy) Signature() filter.Signature { return filter.BinaryToBinary }

func (Copy) Run(_ context.Context, in content.Content, env *filter.Env) (string, error) {
	src, err := binaryOf(in)
	if err != nil {
		return "", err
	}
	return "", writeOutput(env, func(w io.Writer) error { return copyFrom(src, w) })
}
