package main

import (
	"os"

	"github.com/mingxuan/fishbowl/cmd/fishbowl/commands"
)

// main is the entry point for the fishbowl CLI
// ⭐ 统一 CLI 入口: go run ./cmd/fishbowl [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
