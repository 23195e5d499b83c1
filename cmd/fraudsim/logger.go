package main

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func parseLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

// initLogger builds the root logger. The returned level can be changed while
// the logger is in use.
func initLogger(cfg config.LoggingConfig, override string) (*zap.Logger, zap.AtomicLevel, error) {
	level := cfg.Level
	if override != "" {
		level = override
	}
	atom := parseLevel(level)

	zcfg := zap.NewProductionConfig()
	zcfg.Level = atom
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Format == "console" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	switch cfg.Output {
	case "", "stdout":
		zcfg.OutputPaths = []string{"stdout"}
	case "stderr":
		zcfg.OutputPaths = []string{"stderr"}
	case "file":
		if cfg.OutputPath == "" {
			return nil, atom, fmt.Errorf("logging.output_path is required for file output")
		}
		zcfg.OutputPaths = []string{cfg.OutputPath}
	default:
		return nil, atom, fmt.Errorf("unknown log output: %s", cfg.Output)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, atom, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, atom, nil
}
