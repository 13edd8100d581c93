// Package main implements the entry point for the Scribe API server, which
// turns uploaded media files and remote video URLs into transcripts and
// AI-generated summaries behind a polling HTTP API.
package main

import (
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; environment variables and config files
	// still apply.
	_ = godotenv.Load()

	app, err := newApplication()
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
