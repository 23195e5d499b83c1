package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/api"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/delivery"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/generator"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/sink"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/store"
	"go.uber.org/zap"
)

type serveOptions struct {
	address  string
	seedData bool
	watch    bool
}

func serveCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collection API backed by the in-memory store",
		Long: `Run the CRUD and batch ingestion API for the four collections.

Examples:
  fraudsim serve --address :8000
  fraudsim serve --seed-data --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.address, "address", "", "Listen address; overrides api.address")
	cmd.Flags().BoolVar(&opts.seedData, "seed-data", false, "Generate a dataset into the store before serving")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Hot-reload the config file while serving")

	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := loadConfig(func(c *config.Config) {
		if opts.address != "" {
			c.API.Address = opts.address
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()
	logger := rt.logger

	st := store.NewMemoryStore(logger)

	if opts.seedData {
		if err := seedStore(ctx, rt, st); err != nil {
			return err
		}
	}

	server, err := api.NewServer(cfg.API, st, rt.metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	if err := server.Start(); err != nil {
		return err
	}

	if opts.watch {
		reloadable, err := watchConfig(rt)
		if err != nil {
			logger.Warn("Configuration hot reload disabled", zap.Error(err))
		} else {
			defer reloadable.Stop()
		}
	}

	logger.Info("Serving collections",
		zap.String("address", cfg.API.Address),
		zap.Any("records", st.Stats()))

	<-ctx.Done()
	logger.Info("Shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop API server", zap.Error(err))
	}
	return nil
}

// seedStore generates a dataset and loads it straight into the store
func seedStore(ctx context.Context, rt *runtime, st *store.MemoryStore) error {
	params, err := paramsFromConfig(rt.cfg.Generator)
	if err != nil {
		return err
	}

	gen, err := generator.New(params, rt.logger, generator.WithMetrics(rt.metrics))
	if err != nil {
		return err
	}
	dataset, err := gen.Run(ctx)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	dcfg, err := deliveryFromConfig(rt.cfg.Delivery)
	if err != nil {
		return err
	}
	// Loading into memory is not throttled
	dcfg.RatePerSecond = 0

	report := delivery.New(dcfg, rt.metrics, rt.logger).DeliverDataset(ctx, sink.NewDirectSink(st), dataset)
	inserted, failed := report.Totals()
	rt.logger.Info("Seeded store",
		zap.Int("inserted", inserted),
		zap.Int("failed", failed))
	return nil
}

// watchConfig applies reloaded log levels while the server runs
func watchConfig(rt *runtime) (*config.ReloadableConfig, error) {
	if _, err := os.Stat(configFile); err != nil {
		return nil, err
	}

	reloadable, err := config.NewReloadableConfig(configFile, rt.logger)
	if err != nil {
		return nil, err
	}

	reloadable.OnReload(func(oldConfig, newConfig *config.Config) error {
		if logLevel != "" || oldConfig.Logging.Level == newConfig.Logging.Level {
			return nil
		}
		level := parseLevel(newConfig.Logging.Level)
		rt.level.SetLevel(level.Level())
		rt.logger.Info("Log level changed",
			zap.String("from", oldConfig.Logging.Level),
			zap.String("to", newConfig.Logging.Level))
		return nil
	})
	reloadable.Start()

	return reloadable, nil
}
