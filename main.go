package main

import (
	"os"

	"github.com/joho/godotenv"

	"basis-spread-alerts/internal/cli"
)

func main() {
	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		os.Stderr.WriteString("warning: could not load .env file\n")
	}

	cli.Execute()
}
