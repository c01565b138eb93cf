package config

import (
	"fmt"

	"github.com/pihole/pihole-api/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load the configuration file and run struct-tag validation over it,
reporting the first validation failure without starting the server.

Examples:
  # Validate the default config file
  pihole-api config validate

  # Validate a specific config file
  pihole-api config validate --config /etc/pihole-api/config.toml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Println("configuration is valid")
	return nil
}
