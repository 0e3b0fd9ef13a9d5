package commands

import (
	"github.com/leapstack-labs/fetchsql/internal/preview"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Watch []string
}

// NewServeCommand creates the serve command.
func NewServeCommand(version string) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the preview HTTP API",
		Long: `Start a local HTTP server exposing translation as a JSON API:

  POST /api/v1/fetchxml   {"sql": "..."}        SQL to FetchXML
  POST /api/v1/sql        {"fetchxml": "..."}   FetchXML to SQL
  POST /api/v1/validate   {"text": "...", "language": "auto"}
  POST /api/v1/complete   {"text": "...", "offset": 12}
  GET  /api/v1/events     live previews of --watch files (server-sent events)
  GET  /healthz`,
		Example: `  # Serve on the configured address (serve.addr)
  fetchsql serve

  # Serve on another port and stream previews of two files
  fetchsql serve --addr 127.0.0.1:9000 --watch a.sql --watch b.xml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, version, opts)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: 127.0.0.1:8765)")
	cmd.Flags().StringArrayVar(&opts.Watch, "watch", nil, "File to translate on every save (repeatable)")
	cmd.Flags().Duration("debounce", 0, "Delay after the last change before translating (default: 150ms)")

	return cmd
}

func runServe(cmd *cobra.Command, version string, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	server := preview.NewServer(preview.Config{
		Addr:      cmdCtx.Cfg.Serve.Addr,
		Metadata:  cmdCtx.Metadata,
		Transpile: cmdCtx.TranspileOpts,
		Watch:     opts.Watch,
		Debounce:  cmdCtx.Cfg.Watch.Debounce,
		Logger:    cmdCtx.Logger,
		Version:   version,
	})

	cmdCtx.Renderer.Println("Serving on http://" + cmdCtx.Cfg.Serve.Addr)
	cmdCtx.Renderer.Muted("Press Ctrl+C to stop")

	return server.Serve(cmd.Context())
}
