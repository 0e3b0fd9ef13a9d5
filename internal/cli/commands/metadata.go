package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/fetchsql/internal/cli/output"
	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/spf13/cobra"
)

// NewMetadataCommand creates the metadata command and its subcommands.
func NewMetadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Inspect the configured entity catalog",
		Long: `List the entities and attributes completion draws on.

Metadata comes from metadata.sqlite when set, otherwise from the YAML
catalog at metadata.catalog.`,
	}

	cmd.AddCommand(newMetadataEntitiesCommand())
	cmd.AddCommand(newMetadataAttributesCommand())

	return cmd
}

func newMetadataEntitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "entities",
		Short:   "List entities",
		Example: `  fetchsql metadata entities --catalog crm.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMetadataEntities(cmd)
		},
	}
}

func newMetadataAttributesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "attributes <entity>",
		Short:   "List the attributes of an entity",
		Example: `  fetchsql metadata attributes account -o json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadataAttributes(cmd, args[0])
		},
	}
}

func runMetadataEntities(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	entities, err := cmdCtx.Metadata.ListEntities(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list entities: %w", err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		if entities == nil {
			entities = []core.Entity{}
		}
		return r.JSON(entities)
	}

	r.Header(1, fmt.Sprintf("Entities (%d total)", len(entities)))
	if len(entities) == 0 {
		r.Muted("No metadata configured")
		return nil
	}
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, []string{e.LogicalName, e.DisplayName, e.PrimaryKey})
	}
	r.Table([]string{"Name", "Display Name", "Primary Key"}, rows)
	return nil
}

func runMetadataAttributes(cmd *cobra.Command, entity string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	attrs, err := cmdCtx.Metadata.ListAttributes(cmd.Context(), entity)
	if errors.Is(err, core.ErrUnknownEntity) {
		return fmt.Errorf("entity %q is not in the catalog", entity)
	}
	if err != nil {
		return fmt.Errorf("failed to list attributes: %w", err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		if attrs == nil {
			attrs = []core.Attribute{}
		}
		return r.JSON(attrs)
	}

	r.Header(1, fmt.Sprintf("%s (%d attributes)", entity, len(attrs)))
	rows := make([][]string, 0, len(attrs))
	for _, a := range attrs {
		rows = append(rows, []string{a.LogicalName, a.DisplayName, a.Type})
	}
	r.Table([]string{"Name", "Display Name", "Type"}, rows)
	return nil
}
