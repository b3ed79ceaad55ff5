package main

import (
	"os"

	"github.com/custodia-labs/m365-crawler/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
