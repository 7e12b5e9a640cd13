package main

import (
	"fmt"
	"os"

	"github.com/St1cky1/taskflow/internal/cli"
)

// задаются через ldflags при сборке
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersionInfo(version, commit)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
