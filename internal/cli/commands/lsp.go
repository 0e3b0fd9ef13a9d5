package commands

import (
	"os"

	"github.com/leapstack-labs/fetchsql/internal/lsp"
	"github.com/spf13/cobra"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC. It publishes
diagnostics for SQL and FetchXML documents, answers completion requests
from the configured metadata catalog and serves live previews of the
other syntax through the fetchsql/preview request.`,
		Example: `  # Start LSP server (usually called by an editor)
  fetchsql lsp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd, version)
		},
	}

	return cmd
}

func runLSP(cmd *cobra.Command, version string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	server := lsp.NewServerWithLogger(os.Stdin, os.Stdout, lsp.Options{
		Metadata:  cmdCtx.Metadata,
		Transpile: cmdCtx.TranspileOpts,
		Version:   version,
	}, cmdCtx.Logger)
	return server.Run(cmd.Context())
}
