package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmckenna-gumgum/component-builder/internal/protocol"
)

var (
	parseFlags       *StandardFlags
	parsePayloadOnly bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <reply-file>",
	Short: "Run the reply parser on a saved model reply",
	Long: `Run marker extraction, payload repair, schema validation and property
merging on a model reply saved to a file, without calling the model.

Use - to read the reply from stdin. With --payload-only the repaired strict
JSON payload is printed instead of the result.

Examples:
  component-builder parse reply.txt
  component-builder parse --current @card.json reply.txt -o json
  pbpaste | component-builder parse --payload-only -`,
	Args: cobra.ExactArgs(1),
	RunE: runParseCommand,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseFlags = AddStandardFlags(parseCmd, "component", "output")
	parseCmd.Flags().BoolVar(&parsePayloadOnly, "payload-only", false, "Print the repaired JSON payload only")
}

func runParseCommand(cmd *cobra.Command, args []string) error {
	if err := parseFlags.ValidateFlags(); err != nil {
		return err
	}

	data, err := readInput(args[0])
	if err != nil {
		return fmt.Errorf("failed to read reply %s: %w", args[0], err)
	}
	reply := string(data)

	if parsePayloadOnly {
		ex, ok := protocol.Extract(reply)
		if !ok {
			return fmt.Errorf("no %s ... %s block found", protocol.OpenMarker, protocol.CloseMarker)
		}
		text, err := protocol.Normalize(ex.Payload)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}

	current, err := parseFlags.ParseCurrent()
	if err != nil {
		return err
	}

	return printResult(cmd, parseFlags, protocol.Dispatch(reply, current))
}
