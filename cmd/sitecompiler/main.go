package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitecompiler/cmd/sitecompiler/commands"
	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
	"git.home.luguber.info/inful/sitecompiler/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("sitecompiler"),
		kong.Description("Compile item representations into a static site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := parser.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout, Context: ctx})
	if err != nil {
		cancel()
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
