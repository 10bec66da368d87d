package main

import (
	"os"

	"github.com/cozi7266/aieng/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
