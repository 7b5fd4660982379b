package main

import (
	"os"

	"github.com/memberdesk/memberdesk/internal/cli"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
