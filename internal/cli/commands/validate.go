package commands

import (
	"fmt"

	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
	"github.com/spf13/cobra"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Language string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a SQL or FetchXML document",
		Long: `Check a document without translating it.

FetchXML is validated against the FetchXML schema. SQL is parsed and
checked for a FetchXML equivalent. The command exits with status 1 when
the document has errors; warnings alone do not fail it.`,
		Example: `  # Validate a FetchXML query
  fetchsql validate query.xml

  # Validate SQL from stdin as JSON
  cat query.sql | fetchsql validate --language sql -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, sourceArg(args), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Language, "language", "auto", "Input language (auto|sql|fetchxml)")

	return cmd
}

func runValidate(cmd *cobra.Command, path string, opts *ValidateOptions) error {
	cmdCtx, err := NewCommandContextWithoutMetadata(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	lang, ok := completion.ParseLanguage(opts.Language)
	if !ok {
		return fmt.Errorf("invalid --language %q: want auto, sql or fetchxml", opts.Language)
	}
	text, err := readSource(cmd, path)
	if err != nil {
		return err
	}
	if lang == completion.Auto {
		lang = convert.Language(path, text)
	}

	res, err := convert.Validate(text, lang, cmdCtx.TranspileOpts...)
	if err != nil {
		return fmt.Errorf("%s: %w", displayName(path), err)
	}

	switch {
	case r.EffectiveMode() == output.ModeJSON:
		if res.Diagnostics == nil {
			res.Diagnostics = []convert.Diagnostic{}
		}
		if err := r.JSON(res); err != nil {
			return err
		}
	case len(res.Diagnostics) == 0:
		r.Success(fmt.Sprintf("%s is valid %s", displayName(path), res.From))
	default:
		r.Header(2, fmt.Sprintf("%s (%d problems)", displayName(path), len(res.Diagnostics)))
		diagnosticTable(r, res.Diagnostics)
	}

	if res.HasErrors() {
		return fmt.Errorf("validation failed")
	}
	return nil
}
