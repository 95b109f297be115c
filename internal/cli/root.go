package cli

import (
	"os"

	"github.com/spf13/cobra"

	"quiz-runner/internal/config"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "quiz-runner",
		Short:        "Timed trigonometry quiz sessions: backend server and terminal client",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewPlayCmd(&configPath))
	cmd.AddCommand(NewTokenCmd(&configPath))
	return cmd
}

// loadConfig requires the file only when --config was given explicitly or via CONFIG_PATH.
func loadConfig(cmd *cobra.Command, path string) (config.Config, error) {
	if cmd.Flags().Changed("config") || os.Getenv("CONFIG_PATH") != "" {
		return config.Load(path)
	}
	return config.LoadOptional(path)
}
