package main

import (
	"fmt"
	"os"

	"github.com/driftwatch/driftwatch/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "driftwatch:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
