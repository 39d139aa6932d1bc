package main

import (
	"log/slog"
	"os"

	"petrodash/internal/app"
	"petrodash/internal/services"
)

// Set at link time: -ldflags "-X main.version=... -X main.buildTime=... -X main.buildID=..."
var (
	version   string
	buildTime string
	buildID   string
)

func main() {
	application, err := app.NewApplication(app.Options{
		Build: services.BuildInfo{
			Version:   version,
			BuildTime: buildTime,
			BuildID:   buildID,
		},
	})
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
