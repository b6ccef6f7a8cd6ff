package logger_test

import (
	"log/slog"
	"os"

	"github.com/soundprediction/sifter/pkg/config"
	"github.com/soundprediction/sifter/pkg/logger"
)

func ExampleNewDefaultLogger() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("resolving fields", "entity", "ticket")
	log.Info("search finished", "entity", "ticket", "count", 3)
	log.Info("Upserted records", "count", 42) // green in a terminal
	log.Warn("unresolved search path skipped", "path", "owner.team")
	log.Error("storage unavailable", "error", "timeout")
}

func ExampleNewHandler() {
	h := logger.NewHandler(config.LogConfig{Level: "info", Format: "json"}, os.Stdout)
	log := slog.New(h)

	log.Info("search finished", "entity", "ticket", "count", 3)
}
