package cli

import (
	"github.com/spf13/cobra"

	"quest-board-service/internal/config"
)

const defaultConfigPath = "config/config.yaml"

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := config.Path("")
	if envConfig == "" {
		envConfig = defaultConfigPath
	}

	cmd := &cobra.Command{
		Use:           "quest-board",
		Short:         "Daily quest boards with proof uploads and a gated bonus mission",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&port, "port", "", "port to listen on (overrides server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewSeedCmd(&configPath))
	cmd.AddCommand(NewVerifyCmd(&configPath))
	return cmd
}
