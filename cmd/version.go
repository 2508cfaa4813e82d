package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmckenna-gumgum/component-builder/internal/version"
)

var (
	versionFormat   string
	versionShort    bool
	versionDetailed bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version, commit, build time, Go version and platform.

Examples:
  component-builder version
  component-builder version --detailed
  component-builder version --format json`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.GetBuildInfo()
	out := cmd.OutOrStdout()

	if versionFormat == "text" {
		switch {
		case versionShort:
			fmt.Fprintln(out, info.Short())
		case versionDetailed:
			fmt.Fprintln(out, info.Detailed())
		default:
			fmt.Fprintf(out, "%s %s\n", version.Name, info.Short())
		}
		return nil
	}

	if err := ValidateFormat(versionFormat); err != nil {
		return err
	}
	flags := &StandardFlags{OutputFormat: versionFormat}
	return flags.Print(out, info, info.Short)
}
