package commands

import (
	"fmt"

	"git.home.luguber.info/inful/sitecompiler/internal/filter"
	"git.home.luguber.info/inful/sitecompiler/internal/filter/builtin"
)

// FiltersCmd implements the 'filters' command.
type FiltersCmd struct{}

func (FiltersCmd) Run(g *Global, _ *CLI) error {
	reg := filter.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		return err
	}
	out := g.out()
	for _, name := range reg.Names() {
		f, err := reg.Lookup(name)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "%-12s %s\n", name, f.Signature())
	}
	return nil
}
