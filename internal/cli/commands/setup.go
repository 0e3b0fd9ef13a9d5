package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/fetchsql/internal/cli/config"
	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/leapstack-labs/fetchsql/internal/metadata"
	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/leapstack-labs/fetchsql/pkg/transpile"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg           *config.Config
	Logger        *slog.Logger
	Metadata      core.MetadataProvider
	Renderer      *output.Renderer
	TranspileOpts []transpile.Option
}

// NewCommandContext creates a CommandContext with the configured metadata
// provider open. Returns the context and a cleanup function that must be
// called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, err := NewCommandContextWithoutMetadata(cmd)
	if err != nil {
		return nil, nil, err
	}

	provider, closer, err := metadata.Open(cmd.Context(), metadata.Options{
		Catalog: cmdCtx.Cfg.Metadata.Catalog,
		SQLite:  cmdCtx.Cfg.Metadata.SQLite,
	}, cmdCtx.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	cmdCtx.Metadata = provider

	cleanup := func() {
		if err := closer(); err != nil {
			cmdCtx.Logger.Debug("failed to close metadata", "error", err)
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutMetadata creates a CommandContext without a
// metadata provider. Useful for commands that only translate.
func NewCommandContextWithoutMetadata(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	opts, err := cfg.TranspileOptions()
	if err != nil {
		return nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:           cfg,
		Logger:        logger,
		Renderer:      r,
		TranspileOpts: opts,
	}, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise the defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// stdinName is the file argument that reads standard input.
const stdinName = "-"

// readSource returns the contents of path, or of the command's input when
// path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == stdinName {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a command argument
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// sourceArg returns the single file argument, or "-" when there is none.
func sourceArg(args []string) string {
	if len(args) == 0 {
		return stdinName
	}
	return args[0]
}
