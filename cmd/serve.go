package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dmckenna-gumgum/component-builder/internal/config"
	"github.com/dmckenna-gumgum/component-builder/internal/services"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the component builder web server",
	Long: `Start the HTTP server that backs the browser builder.

It serves the builder page, the generate endpoint, the saved component API,
sandboxed previews and a websocket for live updates. The server stops on
SIGINT or SIGTERM after draining in-flight requests.

Examples:
  component-builder serve
  component-builder serve --port 8080 --store ./components.json
  OPENAI_API_KEY=sk-... component-builder serve --prompt ./system.md`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to serve on")
	serveCmd.Flags().String("host", config.DefaultHost, "Host to bind to")
	serveCmd.Flags().String("store", "", "JSON file for saved components (in-memory when empty)")
	serveCmd.Flags().String("prompt", "", "System prompt override file, reloaded on change")
	AddFlagValidation(serveCmd, "port", ValidatePort)

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("store.path", serveCmd.Flags().Lookup("store"))
	viper.BindPFlag("prompt.system_prompt_file", serveCmd.Flags().Lookup("prompt"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Model.APIKey == "" {
		logger.Warn(cmd.Context(), nil, "Model API key is not set; generate requests will fail",
			"api_key", "[missing]")
	}

	service := services.NewServeService(cfg, logger)
	_, err = service.Serve(cmd.Context(), services.ServeOptions{HandleSignals: true})
	return err
}
