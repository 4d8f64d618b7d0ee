// Command gambit is the CLI for the gambit core: check a deck for load
// errors, run it once, or get pointed at gambit serve for anything
// stateful. It holds no business logic of its own — every command just
// wires config.Config, deck.Source, provider.Router, and pkg/engine
// together and reports the result.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/bolt-foundry/gambit/pkg/logging"
)

// CLI defines the command-line interface.
type CLI struct {
	Check CheckCmd `cmd:"" help:"Load a deck and report whether it is valid."`
	Run   RunCmd   `cmd:"" help:"Run a deck once."`
	Init  InitCmd  `cmd:"" help:"Removed; see gambit serve."`

	LogLevel string `help:"Log level (debug, info, warn, error)." default:"warn"`
	LogFile  string `help:"Log file path (empty = stderr)." type:"path"`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("gambit"),
		kong.Description("gambit - agent deck runner"),
		kong.UsageOnError(),
	)

	out := os.Stderr
	if cli.LogFile != "" {
		f, err := logging.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gambit: open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	logging.Init(logging.ParseLevel(cli.LogLevel), out)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
