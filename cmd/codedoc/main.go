package main

import (
	"os"

	"codedoc/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: os.Stderr})
		logger.Error("command execution failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
