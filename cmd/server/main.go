package main

import (
	"flag"
	"log/slog"
	"os"

	"zomatoclean/internal/app"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	application, err := app.NewApplication(*configFile)
	if err != nil {
		slog.Error("Failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
