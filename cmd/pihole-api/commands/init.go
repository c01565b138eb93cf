package commands

import (
	"fmt"
	"os"

	"github.com/pihole/pihole-api/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample pihole-api configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/pihole-api/config.toml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  pihole-api init

  # Initialize with custom path
  pihole-api init --config /etc/pihole-api/config.toml

  # Force overwrite existing config
  pihole-api init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	configPath := configFile
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Set the auth.key (or auth.key_file) used for X-Pi-hole-Authenticate")
	fmt.Println("  3. Start the server with: pihole-api start")
	fmt.Printf("  4. Or specify custom config: pihole-api start --config %s\n", configPath)

	return nil
}
