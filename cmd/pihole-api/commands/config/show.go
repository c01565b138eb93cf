package config

import (
	"os"

	"github.com/pihole/pihole-api/internal/cli/output"
	"github.com/pihole/pihole-api/pkg/config"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the current pihole-api configuration.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show default config as YAML
  pihole-api config show

  # Show as JSON
  pihole-api config show --output json

  # Show specific config file
  pihole-api config show --config /etc/pihole-api/config.toml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
