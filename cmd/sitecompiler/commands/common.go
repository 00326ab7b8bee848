// Package commands implements the sitecompiler command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
)

// Global is shared by every subcommand.
type Global struct {
	Logger  *slog.Logger
	Out     io.Writer
	Context context.Context //nolint:containedctx // kong binds values, not call arguments
}

func (g *Global) ctx() context.Context {
	if g == nil || g.Context == nil {
		return context.Background()
	}
	return g.Context
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitecompiler.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Compile  CompileCmd  `cmd:"" default:"1" help:"Compile every item representation and write the output"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Snapshot SnapshotCmd `cmd:"" help:"Inspect stored snapshots"`
	Deps     DepsCmd     `cmd:"" help:"Show the recorded dependency graph"`
	Filters  FiltersCmd  `cmd:"" help:"List the available filters"`
	History  HistoryCmd  `cmd:"" help:"Summarize journaled builds"`
	Ver      VersionCmd  `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(NewLogger(os.Stderr, level, config.LogFormatText))
	return nil
}

// NewLogger builds the process logger in the configured format.
func NewLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads the configuration named by --config. Relative paths in
// it resolve against the directory holding the file.
func (c *CLI) loadConfig() (*config.Config, string, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, "", err
	}
	return cfg, filepath.Dir(c.Config), nil
}

// resolve makes p relative to base unless it is absolute.
func resolve(base, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
