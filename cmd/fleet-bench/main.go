// Command fleet-bench times the summation workloads natively and on fleets of
// various sizes, printing one tab-separated line per configuration.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "fleet-bench",
		Usage: "time work-stealing workloads against a plain loop",
		Commands: []*cli.Command{
			runCommand(),
			listCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
