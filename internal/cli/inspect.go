package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lumascope/entgraph/internal/document"
	"github.com/lumascope/entgraph/internal/record"
)

// NewInspectCommand creates the inspect command: list the documents in a
// store, or dump one document's serialized record.
func NewInspectCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <db> [uuid]",
		Short: "Inspect a document store",
		Long: `With only a database path, lists the stored documents.
With a document uuid, dumps the document's full serialized record.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
			}

			store, err := document.Open(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening store", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return listDocuments(cmd, opts, store)
			}
			return dumpDocument(cmd, opts, store, args[1])
		},
	}
}

func listDocuments(cmd *cobra.Command, opts *RootOptions, store *document.Store) error {
	infos, err := store.List(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "listing documents", err)
	}
	if opts.Format == "text" {
		if len(infos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no documents")
			return nil
		}
		for _, info := range infos {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s  %d item(s)  %s\n",
				info.UUID, info.Title, info.Items, info.Modified)
		}
		return nil
	}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(infos)
}

func dumpDocument(cmd *cobra.Command, opts *RootOptions, store *document.Store, idArg string) error {
	id, err := uuid.Parse(idArg)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid document uuid: %s", idArg))
	}
	rec, err := store.LoadRecord(cmd.Context(), id)
	if err != nil {
		return WrapExitError(ExitFailure, "loading document", err)
	}

	switch opts.Format {
	case "yaml":
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any(rec))
	default:
		// Canonical JSON for both "json" and "text": stable output is
		// the point of inspecting a record.
		data, err := record.MarshalCanonical(rec)
		if err != nil {
			return WrapExitError(ExitFailure, "encoding document", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
}
