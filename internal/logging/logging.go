package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Dir is where amandocs.log and its rotations live.
	Dir string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// StderrLevel, when set, also writes records at or above it to stderr.
	StderrLevel string
}

// DefaultConfig returns defaults for CLI commands.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Dir:         DefaultLogDir(),
		MaxSizeMB:   10,
		MaxFiles:    5,
		StderrLevel: "warn",
	}
}

// FilePath is the active log file for cfg.
func (c Config) FilePath() string {
	return PathIn(c.Dir)
}

// Setup opens the rotating log file and returns a JSON logger writing to
// it, plus a cleanup function that flushes and closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultLogDir()
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}

	writer, err := NewRotatingWriter(cfg.FilePath(), cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var handler slog.Handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	if cfg.StderrLevel != "" {
		handler = fanout{
			handler,
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.StderrLevel)}),
		}
	}

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return slog.New(handler), cleanup, nil
}

// SetupDefault runs Setup and installs the logger as the slog default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// SetupServeMode configures logging for the MCP server: file only, since
// stdout carries JSON-RPC and stray output corrupts the stream.
func SetupServeMode(cfg Config) (func(), error) {
	cfg.StderrLevel = ""
	cleanup, err := SetupDefault(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("serve_logging_initialized",
		slog.String("log_file", cfg.FilePath()),
		slog.String("level", cfg.Level))
	return cleanup, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts string level to slog.Level.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
