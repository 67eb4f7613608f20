package main

import (
	"os"

	"github.com/joho/godotenv"

	shelfcmder "github.com/papercomputeco/shelf/cmd/shelf"
)

func main() {
	// Provider API keys may come from a local .env; missing files are fine.
	_ = godotenv.Load()

	cmd := shelfcmder.NewShelfCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
