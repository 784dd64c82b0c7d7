package main

import (
	"os"

	"github.com/tormodhaugland/mtg/cmd/mtg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
