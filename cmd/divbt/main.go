package main

import (
	"os"

	"github.com/wonny/divbt/backend/cmd/divbt/commands"
)

// main is the entry point for the divbt CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/divbt [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
