// Package logging builds the application's zap logger from configuration.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction. Zero values mean console output on
// stderr at info level.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // console or json
	File       string // log file path; empty logs to stderr
	MaxSizeMB  int    // rotation threshold, only used with File
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Setup builds a zap.Logger from the provided configuration and sets it as
// the global logger. The caller should defer logger.Sync().
func Setup(c Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(c.Level) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	var encoder zapcore.Encoder
	if strings.ToLower(c.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	var ws zapcore.WriteSyncer
	if c.File != "" {
		if dir := filepath.Dir(c.File); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    defaultInt(c.MaxSizeMB, 10),
			MaxBackups: defaultInt(c.MaxBackups, 3),
			MaxAge:     defaultInt(c.MaxAgeDays, 14),
			Compress:   c.Compress,
		})
	} else {
		ws = zapcore.AddSync(os.Stderr)
	}

	logger := zap.New(
		zapcore.NewCore(encoder, ws, level),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
