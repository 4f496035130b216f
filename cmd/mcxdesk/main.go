// mcxdesk watches MCX commodity option chains.
package main

import (
	"fmt"
	"os"

	"mcxdesk/internal/cli"
	"mcxdesk/internal/config"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	date    = "unknown"
)

func main() {
	config.LoadEnv()

	cli.Version = version
	cli.BuildDate = date

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
