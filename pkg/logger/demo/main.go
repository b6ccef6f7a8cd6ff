package main

import (
	"log/slog"

	"github.com/soundprediction/sifter/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("sifter colored logger demo")
	log.Debug("Debug message - gray")
	log.Info("Info message - standard color")
	log.Info("Upserted records - green", "count", 42)
	log.Info("Imported tickets.json - green", "duration", "1.8s")
	log.Warn("Warning message - yellow")
	log.Error("Error message - red")
}
