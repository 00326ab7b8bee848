package commands

import (
	"fmt"
	"io"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
	"git.home.luguber.info/inful/sitecompiler/internal/content"
	"git.home.luguber.info/inful/sitecompiler/internal/snapshot"
)

// SnapshotCmd groups the snapshot inspection commands.
type SnapshotCmd struct {
	List SnapshotListCmd `cmd:"" help:"List the snapshots stored for an item representation"`
	Show SnapshotShowCmd `cmd:"" help:"Print the content of a stored snapshot"`
}

// SnapshotListCmd implements 'snapshot list'.
type SnapshotListCmd struct {
	Item string `arg:"" help:"Item identifier, e.g. /about/"`
	Rep  string `short:"r" help:"Representation name" default:"default"`
}

func (s *SnapshotListCmd) Run(g *Global, root *CLI) error {
	store, err := openStore(root)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	names, err := store.Names(g.ctx(), s.Item, s.Rep)
	if err != nil {
		return err
	}
	out := g.out()
	for _, name := range names {
		c, err := store.Query(g.ctx(), snapshot.Key{Item: s.Item, Rep: s.Rep, Snapshot: name})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "%-12s %s\n", name, content.Describe(c))
	}
	return nil
}

// SnapshotShowCmd implements 'snapshot show'.
type SnapshotShowCmd struct {
	Item     string `arg:"" help:"Item identifier, e.g. /about/"`
	Rep      string `short:"r" help:"Representation name" default:"default"`
	Snapshot string `short:"s" help:"Snapshot name" default:"last"`
}

func (s *SnapshotShowCmd) Run(g *Global, root *CLI) error {
	store, err := openStore(root)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	c, err := store.Query(g.ctx(), snapshot.Key{Item: s.Item, Rep: s.Rep, Snapshot: s.Snapshot})
	if err != nil {
		return err
	}
	switch v := c.(type) {
	case content.Text:
		_, err = io.WriteString(g.out(), v.String())
	default:
		_, err = fmt.Fprintln(g.out(), content.Describe(c))
	}
	return err
}

func openStore(root *CLI) (snapshot.Store, error) {
	cfg, base, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Backend == config.StoreMemory {
		return nil, config.ErrInvalidConfig.
			WithContext("problems", "the memory store keeps nothing between runs").
			WithContext("backend", string(cfg.Store.Backend))
	}
	return snapshot.Open(snapshot.Options{Backend: string(cfg.Store.Backend), Path: resolve(base, cfg.Store.Path)})
}
