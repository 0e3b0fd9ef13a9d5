package commands

import (
	"fmt"
	"runtime"

	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display fetchsql version and build information.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info.GoVersion = runtime.Version()
			if getConfig().OutputFormat == string(output.ModeJSON) {
				return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeJSON).JSON(info)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "fetchsql v%s\n", info.Version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "commit %s, built %s with %s\n", info.Commit, info.BuildDate, info.GoVersion)
			return nil
		},
	}
}
