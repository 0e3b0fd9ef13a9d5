package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/pkg/completion"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// TranslateOptions holds options for the translate command.
type TranslateOptions struct {
	To     string
	OutDir string
	Jobs   int
}

// translation is the outcome for one source.
type translation struct {
	Path   string          `json:"path"`
	Dest   string          `json:"output_path,omitempty"`
	Result *convert.Result `json:"result"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand() *cobra.Command {
	opts := &TranslateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [files...]",
		Short: "Translate SQL to FetchXML or FetchXML to SQL",
		Long: `Translate documents between SQL and FetchXML.

The direction follows --to, or else each file's extension (.sql, .xml,
.fetchxml), or else its content: input starting with '<' is FetchXML.
Without files (or with "-") the document is read from stdin.

Warnings and errors are printed to stderr. The command fails when any
document could not be translated.`,
		Example: `  # Translate a query
  fetchsql translate accounts.sql

  # Translate from stdin
  echo "SELECT name FROM account" | fetchsql translate

  # Translate many files in parallel into a directory
  fetchsql translate queries/*.xml --to sql --out-dir build/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "auto", "Target syntax (auto|sql|fetchxml)")
	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "Write each translation into this directory")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "Files translated in parallel (default: number of CPUs)")

	_ = cmd.RegisterFlagCompletionFunc("to", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "sql", "fetchxml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runTranslate(cmd *cobra.Command, args []string, opts *TranslateOptions) error {
	cmdCtx, err := NewCommandContextWithoutMetadata(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	to, ok := completion.ParseLanguage(opts.To)
	if !ok {
		return fmt.Errorf("invalid --to %q: want auto, sql or fetchxml", opts.To)
	}
	if len(args) == 0 {
		args = []string{stdinName}
	}
	if opts.OutDir != "" {
		for _, a := range args {
			if a == stdinName {
				return fmt.Errorf("--out-dir needs file arguments, not stdin")
			}
		}
		if err := os.MkdirAll(opts.OutDir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	results := make([]translation, len(args))
	eg, ctx := errgroup.WithContext(cmd.Context())
	eg.SetLimit(jobs)

	for i, path := range args {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := readSource(cmd, path)
			if err != nil {
				return err
			}
			res, err := convert.Translate(text, inputLanguage(to, path, text), cmdCtx.TranspileOpts...)
			if err != nil {
				return fmt.Errorf("%s: %w", displayName(path), err)
			}
			results[i] = translation{Path: path, Result: res}

			if opts.OutDir != "" && !res.HasErrors() {
				dest := outputPath(opts.OutDir, path, res.To)
				if err := os.WriteFile(dest, []byte(withNewline(res.Output)), 0o600); err != nil {
					return fmt.Errorf("failed to write %s: %w", dest, err)
				}
				results[i].Dest = dest
			}
			cmdCtx.Logger.Debug("translated", "file", path, "from", res.From, "to", res.To, "diagnostics", len(res.Diagnostics))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	failed := renderTranslations(r, results, opts.OutDir != "")
	if failed > 0 {
		return fmt.Errorf("%d of %d translations failed", failed, len(results))
	}
	return nil
}

// renderTranslations prints results in argument order and returns how many
// had errors.
func renderTranslations(r *output.Renderer, results []translation, wrote bool) int {
	failed := 0
	for _, t := range results {
		if t.Result.HasErrors() {
			failed++
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		_ = r.JSON(results)
		return failed
	}

	for _, t := range results {
		printDiagnostics(r, t.Path, t.Result.Diagnostics)

		switch {
		case wrote:
			if t.Result.HasErrors() {
				r.StatusLine(t.Path, "failed", "")
			} else {
				r.StatusLine(t.Path, "ok", t.Dest)
			}
		case len(results) == 1:
			if t.Result.Output != "" {
				r.Println(strings.TrimRight(t.Result.Output, "\n"))
			}
		default:
			r.Header(2, displayName(t.Path))
			if t.Result.Output != "" {
				r.Code(codeLang(t.Result.To), t.Result.Output)
			}
			r.Println()
		}
	}
	return failed
}

// inputLanguage returns the language of a source given the target syntax.
func inputLanguage(to completion.Language, path, text string) completion.Language {
	switch to {
	case completion.SQL:
		return completion.FetchXML
	case completion.FetchXML:
		return completion.SQL
	}
	return convert.Language(path, text)
}

// outputPath names the translation of path inside dir.
func outputPath(dir, path, to string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ext := ".sql"
	if to == completion.FetchXML.String() {
		ext = ".xml"
	}
	return filepath.Join(dir, base+ext)
}

// codeLang is the code fence language of a syntax.
func codeLang(syntax string) string {
	if syntax == completion.FetchXML.String() {
		return "xml"
	}
	return "sql"
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
