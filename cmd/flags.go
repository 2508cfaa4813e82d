package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Component flags
	Current     string `flag:"current,c" desc:"Current component state (JSON or @file.json)"`
	CurrentFile string `flag:"current-file" desc:"Current component state file (JSON)"`

	// Output flags
	OutputFormat string `flag:"output,o" desc:"Output format (text|json|yaml)" default:"text"`
	Quiet        bool   `flag:"quiet,q" desc:"Suppress output" default:"false"`
}

var validFormats = []string{"text", "json", "yaml"}

// AddStandardFlags adds standard flags to a command
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "component":
			addComponentFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		}
	}

	return flags
}

func addComponentFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.Current, "current", "c", "", "Current component state (JSON or @file.json)")
	cmd.Flags().StringVar(&flags.CurrentFile, "current-file", "", "Current component state file (JSON)")
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", "text", "Output format (text|json|yaml)")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress output")
	AddFlagValidation(cmd, "output", ValidateFormat)
}

// ParseCurrent reads the current component state, supporting inline JSON,
// @file references and --current-file. It returns nil when none is given.
func (f *StandardFlags) ParseCurrent() (*types.CurrentComponent, error) {
	var (
		data   []byte
		source string
	)

	switch {
	case f.CurrentFile != "":
		source = f.CurrentFile
	case strings.HasPrefix(f.Current, "@"):
		source = strings.TrimPrefix(f.Current, "@")
	case f.Current != "":
		data = []byte(f.Current)
		source = "--current"
	default:
		return nil, nil
	}

	if data == nil {
		var err error
		data, err = readInput(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read current component %s: %w", source, err)
		}
	}

	var current types.CurrentComponent
	if err := json.Unmarshal(data, &current); err != nil {
		return nil, fmt.Errorf("invalid JSON in current component %s: %w", source, err)
	}

	return &current, nil
}

// ValidateFlags validates flag combinations and values
func (f *StandardFlags) ValidateFlags() error {
	if f.Current != "" && f.CurrentFile != "" {
		return fmt.Errorf("cannot specify both --current and --current-file")
	}

	return ValidateFormat(f.OutputFormat)
}

// Print writes v in the selected format. text calls textFn.
func (f *StandardFlags) Print(w io.Writer, v interface{}, textFn func() string) error {
	if f.Quiet {
		return nil
	}

	switch f.OutputFormat {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		// round-trip through JSON so json tags and RawMessage values apply
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		return writeYAML(w, generic)
	default:
		_, err := fmt.Fprintln(w, textFn())
		return err
	}
}

func writeYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort checks a port flag value.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateFormat checks an output format flag value.
func ValidateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %s, must be one of: %s",
		format, strings.Join(validFormats, ", "))
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
