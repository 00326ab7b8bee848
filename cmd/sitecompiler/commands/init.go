package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory to write sitecompiler.yaml into"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" {
		path = filepath.Join(i.Output, "sitecompiler.yaml")
	}
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Wrote configuration to %s\n", path)
	return nil
}
