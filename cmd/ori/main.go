// Package main provides the ori CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "ori",
		Version: version,
		Usage:   "Check ori files and query the editor features from the shell",
		Commands: []*cli.Command{
			checkCommand(),
			fmtCommand(),
			completeCommand(),
			definitionCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
