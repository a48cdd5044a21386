package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/retileup/retileup/cmd"
	"github.com/retileup/retileup/internal/utils"
)

func init() {
	// Load .env file if it exists; RETILEUP_* variables supply run defaults
	if err := godotenv.Load(); err == nil {
		utils.LogDebug("Loaded environment variables from .env file")
	}
}

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
