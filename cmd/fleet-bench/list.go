package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-fleet/internal/workload"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List available examples",
		Action: func(c *cli.Context) error {
			for _, name := range workload.Names() {
				fmt.Fprintln(c.App.Writer, name)
			}
			return nil
		},
	}
}
