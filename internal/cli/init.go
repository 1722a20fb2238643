// Package cli provides the initialization shared by the server and the
// sync worker binaries.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"gastopro/internal/config"
	"gastopro/internal/log"
)

// LoadEnvFile loads the .env file for local development. Missing files
// are fine; production sets real environment variables.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging for the given component
// at the configured level and installs it as the slog default.
func SetupLogger(component, level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     parseLevel(level),
		Component: component,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it, exiting
// the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
