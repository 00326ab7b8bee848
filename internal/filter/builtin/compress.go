package builtin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/filter"
)

// Gzip compresses binary content. Params: level (1-9, default 6).
type Gzip struct{}

func (Gzip) Signature() filter.Signature { return filter.BinaryToBinary }

func (Gzip) Run(_ context.Context, in content.Content, env *filter.Env) (string, error) {
	src, err := binaryOf(in)
	if err != nil {
		return "", err
	}
	level := intParam(env, "level", gzip.DefaultCompression)
	return "", writeOutput(env, func(w io.Writer) error {
		zw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return fmt.Errorf("gzip writer: %w", err)
		}
		if err := copyFrom(src, zw); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	})
}

// Zstd compresses binary content. Params: level ("fastest", "default",
// "better", "best").
type Zstd struct{}

func (Zstd) Signature() filter.Signature { return filter.BinaryToBinary }

func (Zstd) Run(_ context.Context, in content.Content, env *filter.Env) (string, error) {
	src, err := binaryOf(in)
	if err != nil {
		return "", err
	}
	ok, level := zstd.EncoderLevelFromString(stringParam(env, "level", "default"))
	if !ok {
		return "", fmt.Errorf("unknown zstd level %q", stringParam(env, "level", ""))
	}
	return "", writeOutput(env, func(w io.Writer) error {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level))
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		if err := copyFrom(src, zw); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	})
}

// LZ4 writes text content as an LZ4 frame.
type LZ4 struct{}

func (LZ4) Signature() filter.Signature { return filter.TextToBinary }

func (LZ4) Run(_ context.Context, in content.Content, env *filter.Env) (string, error) {
	src, err := textOf(in)
	if err != nil {
		return "", err
	}
	return "", writeOutput(env, func(w io.Writer) error {
		zw := lz4.NewWriter(w)
		if _, err := io.Copy(zw, strings.NewReader(src)); err != nil {
			_ = zw.Close()
			return fmt.Errorf("lz4 compress: %w", err)
		}
		return zw.Close()
	})
}

func copyFrom(src content.Binary, w io.Writer) error {
	f, err := src.Open()
	if err != nil {
		return fmt.Errorf("open binary input: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", src.Path(), err)
	}
	return nil
}
