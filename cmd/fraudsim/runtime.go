package main

import (
	"context"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/tracing"
	"go.uber.org/zap"
)

// runtime holds the ambient services shared by the generate and serve commands
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	level   zap.AtomicLevel
	metrics *metrics.Collector

	metricsServer *metrics.Server
	tracer        *tracing.TracerProvider
}

// loadConfig reads the config file (defaults when it does not exist), applies
// environment overrides and mutate, then validates the result
func loadConfig(mutate func(*config.Config)) (*config.Config, error) {
	cfg, err := config.LoadOrDefaultWithEnv(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if mutate != nil {
		mutate(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	logger, level, err := initLogger(cfg.Logging, logLevel)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		level:   level,
		metrics: metrics.NewCollector(logger),
	}

	rt.tracer, err = tracing.NewProvider(ctx, tracingFromConfig(cfg), logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if cfg.Metrics.Enabled {
		rt.metricsServer = metrics.NewServer(cfg.Metrics.Address, rt.metrics, logger)
		if err := rt.metricsServer.Start(); err != nil {
			rt.metricsServer = nil
			rt.close()
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	return rt, nil
}

func (rt *runtime) close() {
	if rt.metricsServer != nil {
		if err := rt.metricsServer.Stop(); err != nil {
			rt.logger.Warn("Failed to stop metrics server", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.tracer.Shutdown(ctx); err != nil {
		rt.logger.Warn("Failed to flush traces", zap.Error(err))
	}

	rt.logger.Sync()
}
