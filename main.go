package main

import (
	"os"

	"github.com/pensieve/pensieve-doctor/internal/adapters/inbound/cli"
)

func main() {
	os.Exit(cli.ExitCode(cli.Execute()))
}
