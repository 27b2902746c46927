package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds the persistent flags shared by every command.
type RootOptions struct {
	Verbose bool
	Format  string
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the baboon CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "baboon",
		Short: "Baboon - topic-driven action coordination",
		Long: `Baboon coordinates application tasks through topics: ordered permission
sequences granted by an external Petri-net primitive.

The CLI validates and compiles topic specs, runs conformance scenarios
against the reference monitor, and inspects recorded execution traces.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return ConfigureLogging(cmd.ErrOrStderr(), opts.Verbose)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	for _, sub := range []func(*RootOptions) *cobra.Command{
		NewValidateCommand,
		NewCompileCommand,
		NewTestCommand,
		NewTraceCommand,
		NewDiffCommand,
	} {
		cmd.AddCommand(sub(opts))
	}

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
