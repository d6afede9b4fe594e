package main

import (
	"os"

	"github.com/joho/godotenv"

	"sjsage522/keypriceworker/cmd"
	"sjsage522/keypriceworker/logger"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := cmd.Execute(); err != nil {
		logger.Default.Error().Err(err).Msg("keyprice failed")
		os.Exit(cmd.ExitCode(err))
	}
}
