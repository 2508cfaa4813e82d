// Package cmd provides the command-line interface for the component builder.
//
// Configuration System:
//
//	Settings are resolved with this precedence:
//	1. Command-line flags (--port, --model, ...)
//	2. Environment variables (COMPONENT_BUILDER_<SECTION>_<OPTION>)
//	3. The config file (--config, COMPONENT_BUILDER_CONFIG_FILE or
//	   .component-builder.yml in the working directory)
//	4. Built-in defaults
//
// The model API key may also come from OPENAI_API_KEY. It is never printed;
// logs and `config show` only report whether it is set.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dmckenna-gumgum/component-builder/internal/config"
	"github.com/dmckenna-gumgum/component-builder/internal/logging"
)

const (
	envPrefix     = "COMPONENT_BUILDER"
	configName    = ".component-builder"
	configFileEnv = envPrefix + "_CONFIG_FILE"
)

// configKeys are bound to environment variables explicitly so viper.Unmarshal
// sees them even when no config file mentions the key.
var configKeys = []string{
	"server.port",
	"server.host",
	"server.allowed_origins",
	"server.environment",
	"server.shutdown_timeout",
	"model.base_url",
	"model.model",
	"model.temperature",
	"model.timeout",
	"model.max_concurrent",
	"prompt.system_prompt_file",
	"prompt.schema_policy",
	"store.path",
	"store.seed_defaults",
	"log.level",
	"log.format",
	"log.dir",
}

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "component-builder",
	Short: "Build UI components by chatting with a language model",
	Long: `component-builder turns natural-language requests into self-contained
UI components (HTML, CSS, JavaScript and editable properties).

It sends the request and the current component to an OpenAI-compatible model,
extracts the component update from the reply, repairs near-JSON payloads,
validates them against a strict schema and merges the properties with the
previous state.

Quick Start:
  component-builder serve                     Start the web builder
  component-builder generate "a pricing card" One-shot generation
  component-builder parse reply.txt           Run the parser on a saved reply
  component-builder config show               Print the resolved configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .component-builder.yml, can also use "+configFileEnv+" env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("model", config.DefaultModel, "model identifier")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("model.model", rootCmd.PersistentFlags().Lookup("model"))
}

// initConfig wires viper to the config file and the environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(configFileEnv); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(configName)
	}

	bindEnv()

	// A missing or unreadable file falls back to env and defaults.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func bindEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, key := range configKeys {
		viper.BindEnv(key)
	}
	viper.BindEnv("model.api_key", envPrefix+"_MODEL_API_KEY", "OPENAI_API_KEY")
}

// newLogger builds the process logger from cfg. When a log directory is set,
// entries also go to a dated file; the returned closer releases it.
func newLogger(cfg *config.Config, out io.Writer) (logging.Logger, func() error, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	logCfg := &logging.LoggerConfig{Level: level, Format: cfg.Log.Format, Output: out}
	console := logging.NewLogger(logCfg)
	if cfg.Log.Dir == "" {
		return console, func() error { return nil }, nil
	}

	file, err := logging.NewFileLogger(logCfg, cfg.Log.Dir)
	if err != nil {
		return nil, nil, err
	}

	return logging.NewMultiLogger(console, file), file.Close, nil
}

// loadConfig resolves the configuration and builds the logger for a command.
func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return cfg, logger, closeLog, nil
}
