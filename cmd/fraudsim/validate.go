package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and generator parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ValidateAndLoad(configFile)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			params, err := paramsFromConfig(cfg.Generator)
			if err != nil {
				return err
			}
			if err := params.Validate(); err != nil {
				return fmt.Errorf("invalid generator parameters: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (config %s, sink %s, %d customers)\n",
				configFile, cfg.Version, cfg.Delivery.Sink, params.Customers)
			return nil
		},
	}
}
