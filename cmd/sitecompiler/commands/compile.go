package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitecompiler/internal/build"
	"git.home.luguber.info/inful/sitecompiler/internal/logfields"
	"git.home.luguber.info/inful/sitecompiler/internal/metrics"
)

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Output string `short:"o" help:"Override output.directory"`
	NoDiff bool   `name:"no-diff" help:"Do not compute diffs for modified files"`
}

func (c *CompileCmd) Run(g *Global, root *CLI) error {
	cfg, base, err := root.loadConfig()
	if err != nil {
		return err
	}
	if c.Output != "" {
		abs, err := filepath.Abs(c.Output)
		if err != nil {
			return err
		}
		cfg.Output.Directory = abs
	}
	if c.NoDiff {
		cfg.Output.Diff = false
	}

	level := cfg.Monitoring.Logging.Level.Slog()
	if root.Verbose {
		level = slog.LevelDebug
	}
	logger := NewLogger(os.Stderr, level, cfg.Monitoring.Logging.Format)
	slog.SetDefault(logger)

	svc := build.NewService().WithLogger(logger)
	var reg *prom.Registry
	if cfg.Monitoring.MetricsTextfile != "" {
		reg = prom.NewRegistry()
		svc = svc.WithRecorder(metrics.NewPrometheusRecorder(reg))
	}

	res, runErr := svc.Run(g.ctx(), build.Request{Config: cfg, BaseDir: base})

	if reg != nil {
		path := resolve(base, cfg.Monitoring.MetricsTextfile)
		if err := metrics.WriteTextfile(path, reg); err != nil {
			logger.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	out := g.out()
	for _, p := range res.Written {
		_, _ = fmt.Fprintf(out, "wrote %s\n", p)
	}
	_, _ = fmt.Fprintf(out, "%s: %d reps compiled, %d written, %d unchanged in %s\n",
		res.Status, res.Compiled, len(res.Written), res.Unchanged, res.Duration.Round(1e6))
	return nil
}
