package main

import (
	"github.com/joho/godotenv"
	"github.com/pricebet/pricebet/cmd"
)

func main() {
	// Best-effort: running without a .env file is fine, configuration
	// falls back to process env and defaults.
	_ = godotenv.Load()

	cmd.Execute()
}
