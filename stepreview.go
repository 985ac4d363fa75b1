package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/stepreview/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "stepreview",
		Usage:   "AI-powered review of changed BDD step definitions in pull requests",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "stepreview.toml",
			},
		},
		Commands: []*cli.Command{
			cmd.ReviewCommand(),
			cmd.ConfigCommand(),
			cmd.DemoCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
