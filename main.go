package main

import (
	"os"

	"github.com/sadopc/tinynotes/internal/cli"
)

// Set by -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
