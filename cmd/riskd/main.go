package main

import (
	"os"

	"github.com/rustyeddy/riskd/cmd/riskd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
