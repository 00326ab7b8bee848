package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitecompiler/internal/build"
	"git.home.luguber.info/inful/sitecompiler/internal/eventstore"
	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of builds to show" default:"10"`
	Build string `short:"b" help:"Only show this build"`
	JSON  bool   `help:"Print summaries as JSON"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, base, err := root.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return errors.ConfigError("event journal is disabled").
			WithContext("setting", "journal.enabled").
			Build()
	}
	store, err := build.OpenJournal(resolve(base, cfg.Journal.Path))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ids := []string{h.Build}
	if h.Build == "" {
		if ids, err = store.Builds(g.ctx()); err != nil {
			return err
		}
		if h.Limit > 0 && len(ids) > h.Limit {
			ids = ids[:h.Limit]
		}
	}

	summaries := make([]*eventstore.BuildSummary, 0, len(ids))
	for _, id := range ids {
		s, err := eventstore.Summarize(g.ctx(), store, id)
		if err != nil {
			return err
		}
		summaries = append(summaries, s)
	}

	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tDURATION\tCOMPILED\tSUSPENDED\tCREATED\tMODIFIED\tUNCHANGED")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			s.BuildID, s.StartedAt.Format("2006-01-02 15:04:05"), s.Duration.Round(1e6),
			s.Compiled, s.Suspended, s.Created, s.Modified, s.Unchanged)
	}
	return tw.Flush()
}
