// Command treesync publishes a directory as a repository
// and pulls repositories into client directories.
//
// Usage:
//
//   treesync [-config FILE] [-v] SUBCOMMAND [ARGS]
//
// Subcommands:
//
//   init -dir DIR -name NAME -url URL [-overwrite]
//   build -dir DIR
//   watch -dir DIR [-settle DURATION]
//   serve -dir DIR [-addr ADDR] [-rebuild DURATION]
//   client -dir DIR -url URL [-overwrite]
//   pull -dir DIR [-cache N] [-n]
//
// The optional config file is JSON;
// see treesync.Config for its fields.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/bobg/subcmd"
	"github.com/charmbracelet/log"

	"github.com/bobg/treesync"
)

type maincmd struct {
	conf   treesync.Config
	logger *log.Logger
}

func main() {
	var (
		config  = flag.String("config", "", "path to JSON config file")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "treesync",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	conf := treesync.DefaultConfig()
	if *config != "" {
		var err error
		conf, err = treesync.LoadConfig(*config)
		if err != nil {
			logger.Fatal("loading config", "err", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := subcmd.Run(ctx, maincmd{conf: conf, logger: logger}, flag.Args())
	if err != nil {
		logger.Fatal(err)
	}
}

func (c maincmd) Subcmds() subcmd.Map {
	return subcmd.Map{
		"init":   flagSubcmd("init", c.init),
		"build":  flagSubcmd("build", c.build),
		"watch":  flagSubcmd("watch", c.watch),
		"serve":  flagSubcmd("serve", c.serve),
		"client": flagSubcmd("client", c.client),
		"pull":   flagSubcmd("pull", c.pull),
	}
}

// flagSubcmd adapts a subcommand that parses its own flags to subcmd.Subcmd.
// With no Params, subcmd.Run passes the raw args through unparsed.
func flagSubcmd(name string, f func(context.Context, *flag.FlagSet, []string) error) subcmd.Subcmd {
	return subcmd.Subcmd{
		F: func(ctx context.Context, args []string) error {
			return f(ctx, flag.NewFlagSet(name, flag.ContinueOnError), args)
		},
	}
}
