package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/recreate-skps/cmd/recreate-skps/commands"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := commands.NewGlobal()
	parser := kong.Parse(cli,
		kong.Name("recreate-skps"),
		kong.Description("Rebuild the browser, recapture SKPs and upload them to the SKP bucket."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := parser.Run(global, cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
