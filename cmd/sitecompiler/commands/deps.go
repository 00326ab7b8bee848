package commands

import (
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitecompiler/internal/deptrack"
	"git.home.luguber.info/inful/sitecompiler/internal/events"
)

// DepsCmd implements the 'deps' command.
type DepsCmd struct {
	Item string `arg:"" optional:"" help:"Only show what this item depends on"`
}

func (d *DepsCmd) Run(g *Global, root *CLI) error {
	cfg, base, err := root.loadConfig()
	if err != nil {
		return err
	}
	tracker := deptrack.New(events.NewBus())
	if err := tracker.Load(resolve(base, cfg.Dependencies.GraphFile)); err != nil {
		return err
	}

	out := g.out()
	if d.Item != "" {
		for _, dep := range tracker.ObjectsCausingOutdatednessOf(d.Item) {
			_, _ = fmt.Fprintln(out, dep)
		}
		return nil
	}

	graph := tracker.Graph()
	items := make([]string, 0, len(graph))
	for it := range graph {
		items = append(items, it)
	}
	sort.Strings(items)
	for _, it := range items {
		_, _ = fmt.Fprintf(out, "%s -> %s\n", it, strings.Join(graph[it], ", "))
	}
	return nil
}
