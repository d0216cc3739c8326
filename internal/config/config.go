// Package config binds process-level environment settings for the canopy
// server. File-based service configuration lives in pkg/config; this package
// covers only what must be resolved before that machinery is up, such as the
// log level used while bootstrapping.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix applied to canopy environment variables.
const EnvPrefix = "CANOPY"

// LogLevel parses the CANOPY_LOG_LEVEL environment variable and returns the
// corresponding slog.Level. Falls back to LOG_LEVEL so generic deployment
// tooling keeps working. Defaults to slog.LevelInfo if neither is set or if
// the value is invalid.
func LogLevel() slog.Level {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")

	// Fall back to the unprefixed variable.
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}
