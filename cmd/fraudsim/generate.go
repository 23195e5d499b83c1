package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/delivery"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/generator"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/sink"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/store"
	"go.uber.org/zap"
)

type generateOptions struct {
	sink       string
	outputDir  string
	seed       int64
	customers  int
	noDeliver  bool
	jsonOutput bool
}

func generateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a dataset and deliver it to the configured sink",
		Long: `Generate the four fraud scenario collections and deliver them in batches.

Examples:
  fraudsim generate --sink file --output ./out
  fraudsim generate --config prod.yaml --seed 7
  fraudsim generate --sink http --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sink, "sink", "", "Sink to deliver to; overrides delivery.sink")
	cmd.Flags().StringVar(&opts.outputDir, "output", "", "Output directory of the file sink")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed; overrides generator.seed")
	cmd.Flags().IntVar(&opts.customers, "customers", 0, "Population size; overrides generator.customers")
	cmd.Flags().BoolVar(&opts.noDeliver, "no-deliver", false, "Generate and check the dataset without delivering it")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the delivery summary as JSON")

	return cmd
}

func (o *generateOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if o.sink != "" {
		cfg.Delivery.Sink = o.sink
	}
	if o.outputDir != "" {
		cfg.Sinks.File.Directory = o.outputDir
	}
	if cmd.Flags().Changed("seed") {
		cfg.Generator.Seed = o.seed
	}
	if o.customers > 0 {
		cfg.Generator.Customers = o.customers
	}
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	cfg, err := loadConfig(func(c *config.Config) { opts.apply(cmd, c) })
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

	params, err := paramsFromConfig(cfg.Generator)
	if err != nil {
		return err
	}

	// Sink startup errors abort before any generation work
	var target *deliveryTarget
	if !opts.noDeliver {
		target, err = openDeliveryTarget(ctx, rt)
		if err != nil {
			return err
		}
		defer target.close()
	}

	logger.Info("Starting generation",
		zap.String("version", Version),
		zap.String("config", configFile),
		zap.Int("customers", params.Customers),
		zap.Int64("seed", params.Seed))

	gen, err := generator.New(params, logger, generator.WithMetrics(rt.metrics))
	if err != nil {
		return err
	}

	dataset, err := gen.Run(ctx)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if target == nil {
		return printCounts(cmd.OutOrStdout(), dataset)
	}

	report := target.deliver(ctx, dataset)

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printSummary(cmd.OutOrStdout(), report)
}

// deliveryTarget is an opened sink with the deliverer feeding it
type deliveryTarget struct {
	sink      sink.Sink
	deliverer *delivery.Deliverer
	logger    *zap.Logger
}

func openDeliveryTarget(ctx context.Context, rt *runtime) (*deliveryTarget, error) {
	dcfg, err := deliveryFromConfig(rt.cfg.Delivery)
	if err != nil {
		return nil, err
	}

	s, err := sink.New(ctx, rt.cfg, sink.Dependencies{
		Store:   store.NewMemoryStore(rt.logger),
		Metrics: rt.metrics,
		Logger:  rt.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s sink: %w", rt.cfg.Delivery.Sink, err)
	}

	return &deliveryTarget{
		sink:      s,
		deliverer: delivery.New(dcfg, rt.metrics, rt.logger),
		logger:    rt.logger,
	}, nil
}

func (t *deliveryTarget) deliver(ctx context.Context, dataset *generator.Dataset) *delivery.Report {
	report := t.deliverer.DeliverDataset(ctx, t.sink, dataset)

	if rs, ok := t.sink.(*sink.ResilientSink); ok && rs.DLQ() != nil {
		if n, err := rs.DLQ().Count(context.Background()); err == nil && n > 0 {
			t.logger.Warn("Batches left in the dead letter queue", zap.Int64("batches", n))
		}
	}
	return report
}

func (t *deliveryTarget) close() {
	if err := t.sink.Close(); err != nil {
		t.logger.Warn("Failed to close sink", zap.Error(err))
	}
}

func printCounts(w io.Writer, d *generator.Dataset) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tRECORDS")
	for _, c := range model.Collections {
		fmt.Fprintf(tw, "%s\t%d\n", c, d.Counts()[c])
	}
	fmt.Fprintf(tw, "ato customers\t%d\n", len(d.ATOCustomers))
	fmt.Fprintf(tw, "scenario transactions\t%d\n", len(d.ScenarioTxIDs))
	return tw.Flush()
}

func printSummary(w io.Writer, r *delivery.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SINK %s\n", r.Sink)
	fmt.Fprintln(tw, "COLLECTION\tRECORDS\tINSERTED\tFAILED\tBATCHES\tFAILED BATCHES")
	for _, c := range r.Collections {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			c.Collection, c.Records, c.Inserted, c.Failed, len(c.Batches), c.FailedBatches)
	}
	inserted, failed := r.Totals()
	fmt.Fprintf(tw, "total\t\t%d\t%d\t\t\n", inserted, failed)
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, c := range r.Collections {
		for _, b := range c.Batches {
			if !b.OK() {
				fmt.Fprintf(w, "batch %s (%s #%d, %d records) failed: %s\n",
					b.ID, c.Collection, b.Index, b.Size, b.Error)
			}
		}
	}
	return nil
}
