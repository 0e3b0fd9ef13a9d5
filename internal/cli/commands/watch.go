package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/internal/watch"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <files...>",
		Short: "Re-translate files on every save",
		Long: `Translate each file once, then again every time it is saved, printing
the preview and its diagnostics. Rapid successive saves are debounced
(watch.debounce).`,
		Example: `  fetchsql watch accounts.sql
  fetchsql watch query.xml --debounce 500ms`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args)
		},
	}

	cmd.Flags().Duration("debounce", 0, "Delay after the last change before translating (default: 150ms)")

	return cmd
}

func runWatch(cmd *cobra.Command, paths []string) error {
	cmdCtx, err := NewCommandContextWithoutMetadata(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	show := func(_ context.Context, path string) {
		text, err := readSource(cmd, path)
		if err != nil {
			r.Error(err.Error())
			return
		}
		res, err := convert.Translate(text, convert.Language(path, text), cmdCtx.TranspileOpts...)
		if err != nil {
			r.Error(fmt.Sprintf("%s: %v", path, err))
			return
		}

		r.Header(2, fmt.Sprintf("%s → %s  %s", path, res.To, time.Now().Format(time.TimeOnly)))
		printDiagnostics(r, path, res.Diagnostics)
		if res.Output != "" {
			r.Code(codeLang(res.To), res.Output)
		}
		r.Println()
	}

	for _, path := range paths {
		show(cmd.Context(), path)
	}

	w := watch.New(paths, cmdCtx.Cfg.Watch.Debounce, show, cmdCtx.Logger)
	r.Muted(fmt.Sprintf("Watching %d file(s), press Ctrl+C to stop", len(paths)))
	return w.Run(cmd.Context())
}
