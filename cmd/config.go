package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dmckenna-gumgum/component-builder/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect component builder configuration",
	Long: `Inspect the resolved configuration and validate configuration files.

Examples:
  component-builder config show                 # Show resolved configuration
  component-builder config show --format json
  component-builder config validate --file prod.yml`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting anything.

This checks value types, port range, host name, allowed origins, model base
URL, temperature range, timeouts and the system prompt path.

Examples:
  component-builder config validate                 # Validate .component-builder.yml
  component-builder config validate --file prod.yml # Validate a specific file`,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the configuration after the file, environment variables, flags
and defaults are applied. The model API key is shown as [exists] or
[missing], never its value.

Examples:
  component-builder config show
  component-builder config show --format json`,
	RunE: runConfigShow,
}

var (
	configFile   string
	configFormat string
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configValidateCmd.Flags().
		StringVarP(&configFile, "file", "f", "", "Configuration file to validate (default: .component-builder.yml)")

	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	targetFile := configFile
	if targetFile == "" {
		targetFile = configName + ".yml"
	}

	if _, err := os.Stat(targetFile); os.IsNotExist(err) {
		return fmt.Errorf("configuration file %s does not exist", targetFile)
	}

	v := viper.New()
	v.SetConfigFile(targetFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	if _, err := config.LoadFrom(v); err != nil {
		return fmt.Errorf("%s: %w", targetFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration %s is valid\n", targetFile)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	return showConfig(cmd, cfg.Redacted(), configFormat)
}

func showConfig(cmd *cobra.Command, cfg *config.Config, format string) error {
	out := cmd.OutOrStdout()

	switch format {
	case "yaml", "yml":
		fmt.Fprintln(out, "# Resolved from all sources (file, env vars, flags, defaults)")
		return writeYAML(out, cfg)
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", format)
	}
}
