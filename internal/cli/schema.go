package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// SchemaReport summarizes a validated schema for structured output.
type SchemaReport struct {
	Files    int      `json:"files" yaml:"files"`
	Entities []string `json:"entities" yaml:"entities"`
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Work with entity schema declarations",
	}
	cmd.AddCommand(newSchemaValidateCommand(opts))
	return cmd
}

func newSchemaValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Compile the CUE declarations in a directory and report the entity types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			result, err := LoadSchema(args[0])
			if err != nil {
				formatter.Failure(err.Error())
				return WrapExitError(ExitFailure, "schema validation failed", err)
			}

			names := result.Schema.Names()
			sort.Strings(names)
			report := SchemaReport{Files: result.FileCount, Entities: names}

			if opts.Format == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "OK: %d file(s), %d entity type(s)\n", report.Files, len(names))
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", strings.Join(names, ", "))
				return nil
			}
			return formatter.Success(report)
		},
	}
}
