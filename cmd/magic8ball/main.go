// Package main provides the CLI for the Magic 8 Ball.
package main

import (
	"os"

	"github.com/leapstack-labs/magic8ball/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
