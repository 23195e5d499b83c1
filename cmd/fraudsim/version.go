package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := config.GetVersionInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "fraudsim %s (config %s)\n", Version, info.ConfigVersion)
		},
	}
}
