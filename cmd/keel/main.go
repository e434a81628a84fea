package main

import (
	"os"

	"github.com/keelfin/keel/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
