package commands

import (
	"fmt"

	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/leapstack-labs/fetchsql/internal/suggest"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
	"github.com/spf13/cobra"
)

// CompleteOptions holds options for the complete command.
type CompleteOptions struct {
	Offset   int
	Language string
}

// completeResult is the JSON shape of the complete command.
type completeResult struct {
	Kind    string             `json:"kind"`
	Context completion.Context `json:"context"`
	Items   []suggest.Item     `json:"items"`
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand() *cobra.Command {
	opts := &CompleteOptions{}

	cmd := &cobra.Command{
		Use:   "complete [file]",
		Short: "Show completion suggestions at a cursor offset",
		Long: `Detect the completion context at a byte offset and list suggestions.

Entity and attribute names come from the configured metadata catalog
(metadata.catalog or metadata.sqlite). Without --offset the cursor is
at the end of the document.`,
		Example: `  # Suggestions at the end of a partial query
  echo -n "SELECT name FROM " | fetchsql complete

  # Suggestions at byte 7 of a file
  fetchsql complete query.sql --offset 7 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, sourceArg(args), opts)
		},
	}

	cmd.Flags().IntVar(&opts.Offset, "offset", -1, "Cursor byte offset (default: end of document)")
	cmd.Flags().StringVar(&opts.Language, "language", "auto", "Input language (auto|sql|fetchxml)")

	return cmd
}

func runComplete(cmd *cobra.Command, path string, opts *CompleteOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	lang, ok := completion.ParseLanguage(opts.Language)
	if !ok {
		return fmt.Errorf("invalid --language %q: want auto, sql or fetchxml", opts.Language)
	}
	text, err := readSource(cmd, path)
	if err != nil {
		return err
	}

	offset := opts.Offset
	if offset < 0 {
		offset = len(text)
	}
	if offset > len(text) {
		return fmt.Errorf("offset %d is past the end of the document (%d bytes)", offset, len(text))
	}

	c := completion.DetectAs(lang, text, offset)
	items, err := suggest.Suggest(cmd.Context(), cmdCtx.Metadata, c)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if items == nil {
			items = []suggest.Item{}
		}
		return r.JSON(completeResult{Kind: c.Kind.String(), Context: c, Items: items})
	}

	header := fmt.Sprintf("Context: %s", c.Kind)
	if c.Entity != "" {
		header += " (" + c.Entity + ")"
	}
	r.Header(2, header)
	if len(items) == 0 {
		r.Muted("No suggestions")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Label, string(it.Kind), it.Detail})
	}
	r.Table([]string{"Label", "Kind", "Detail"}, rows)
	return nil
}
