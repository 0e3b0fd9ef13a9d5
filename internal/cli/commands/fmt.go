package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/spf13/cobra"
)

// FmtOptions holds options for the fmt command.
type FmtOptions struct {
	Write bool
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand() *cobra.Command {
	opts := &FmtOptions{}

	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Reformat a SQL statement",
		Long: `Parse a SQL statement and print it in canonical layout: upper-case
keywords, one clause per line and one item per line.`,
		Example: `  # Print the formatted query
  fetchsql fmt query.sql

  # Rewrite the file in place
  fetchsql fmt -w query.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd, sourceArg(args), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Write the result back to the file")

	return cmd
}

func runFmt(cmd *cobra.Command, path string, opts *FmtOptions) error {
	cmdCtx, err := NewCommandContextWithoutMetadata(cmd)
	if err != nil {
		return err
	}

	if opts.Write && path == stdinName {
		return fmt.Errorf("--write needs a file argument")
	}
	text, err := readSource(cmd, path)
	if err != nil {
		return err
	}

	formatted, err := convert.Format(text)
	if err != nil {
		return fmt.Errorf("%s: %w", displayName(path), err)
	}

	if opts.Write {
		if formatted == text {
			cmdCtx.Logger.Debug("already formatted", "file", path)
			return nil
		}
		if err := os.WriteFile(path, []byte(formatted), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		cmdCtx.Renderer.Success("Formatted " + path)
		return nil
	}

	cmdCtx.Renderer.Println(strings.TrimRight(formatted, "\n"))
	return nil
}
