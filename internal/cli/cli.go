// Package cli holds the catalogctl commands. They run the same import and
// export pipeline as the HTTP API, directly against the database.
package cli

import (
	"context"

	"catalog-service/internal/services"
	"github.com/spf13/cobra"
)

// Pipeline is the service set a command needs.
type Pipeline struct {
	Import *services.ImportService
	Export *services.ExportService
}

// Factory builds the pipeline on first use. The returned func releases its
// connections.
type Factory func(ctx context.Context) (*Pipeline, func(), error)

// NewRootCommand creates the catalogctl command tree.
func NewRootCommand(factory Factory) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Import and export catalog products",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(ImportCommand(factory))
	root.AddCommand(ExportCommand(factory))
	return root
}
