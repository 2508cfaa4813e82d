package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmckenna-gumgum/component-builder/internal/protocol"
	"github.com/dmckenna-gumgum/component-builder/internal/renderer"
	"github.com/dmckenna-gumgum/component-builder/internal/services"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/dmckenna-gumgum/component-builder/internal/validation"
)

var (
	generateFlags      *StandardFlags
	generatePromptFile string
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:     "generate [prompt...]",
	Aliases: []string{"g"},
	Short:   "Send one request to the model and print the result",
	Long: `Send a single builder request to the model and print the protocol result.

The result is a conversation reply, a validated component update merged with
the current component, or an error. The command exits non-zero on errors.

Examples:
  component-builder generate "a weather card with a unit toggle"
  component-builder generate --current @card.json "make the title larger"
  component-builder generate --prompt-file request.txt -o json`,
	RunE: runGenerateCommand,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateFlags = AddStandardFlags(generateCmd, "component", "output")
	generateCmd.Flags().StringVar(&generatePromptFile, "prompt-file", "", "Read the request from a file (- for stdin)")
}

func runGenerateCommand(cmd *cobra.Command, args []string) error {
	if err := generateFlags.ValidateFlags(); err != nil {
		return err
	}

	text, err := requestText(args, generatePromptFile)
	if err != nil {
		return err
	}
	current, err := generateFlags.ParseCurrent()
	if err != nil {
		return err
	}

	cfg, logger, closeLog, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	generator, err := services.NewGenerator(cfg, logger)
	if err != nil {
		return err
	}

	result := generator.Generate(cmd.Context(), types.GenerateRequest{
		Prompt:           text,
		CurrentComponent: current,
	})
	return printResult(cmd, generateFlags, result)
}

// requestText joins the positional words, or reads the prompt file.
func requestText(args []string, promptFile string) (string, error) {
	if promptFile != "" {
		if len(args) > 0 {
			return "", fmt.Errorf("cannot combine --prompt-file with a prompt argument")
		}
		data, err := readInput(promptFile)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file %s: %w", promptFile, err)
		}
		return validation.SanitizeInput(string(data)), nil
	}

	text := validation.SanitizeInput(strings.Join(args, " "))
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("a prompt is required")
	}
	return text, nil
}

// printResult writes the result and turns error results into a command error.
func printResult(cmd *cobra.Command, flags *StandardFlags, result types.Result) error {
	if flags.OutputFormat != "text" {
		renderer.Attach(&result)
	}

	err := flags.Print(cmd.OutOrStdout(), result, func() string {
		return protocol.Summary(result)
	})
	if err != nil {
		return err
	}

	if result.Type == types.ResultError {
		if result.Err != nil {
			return result.Err
		}
		return fmt.Errorf("%s", result.Message)
	}
	return nil
}
