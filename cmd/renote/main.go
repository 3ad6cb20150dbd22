package main

import (
	"fmt"
	"os"

	"github.com/futureCreator/renote/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "renote: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
