package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"catalog-service/internal/filters"
	"catalog-service/internal/services"
	"catalog-service/internal/transfer"
	"github.com/spf13/cobra"
)

// ExportCommand creates the export command
func ExportCommand(factory Factory) *cobra.Command {
	var (
		tenantID   string
		format     string
		out        string
		attributes string
		q          services.ListQuery
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export products as JSON, XML or CSV",
		Long: `Export the products matching the listing filters.

--out may name a file or an existing directory; a directory receives the
generated products_export_<timestamp> file. Without --out the export is
written to stdout.

Examples:
  catalogctl export --tenant acme --format csv --out ./exports
  catalogctl export --tenant acme --status active --attributes '{"color":["red","blue"]}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := transfer.ParseFormat(format)
			if err != nil {
				return err
			}
			if q.Attributes, err = filters.ParseAttributeParam(attributes); err != nil {
				return err
			}

			pipeline, release, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			result, err := pipeline.Export.Export(cmd.Context(), tenantID, f, q)
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(result.File.Body)
				return err
			}
			path := out
			if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
				path = filepath.Join(out, result.File.Filename)
			}
			if err := os.WriteFile(path, result.File.Body, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d of %d products to %s\n", result.Rows, result.Total, path)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&tenantID, "tenant", "", "Tenant ID (required)")
	flags.StringVar(&format, "format", "json", "Output format: json, xml or csv")
	flags.StringVar(&out, "out", "", "Output file or directory (default stdout)")
	flags.StringVar(&attributes, "attributes", "", "Attribute filters as a JSON object")
	flags.IntVar(&q.Page, "page", 1, "Page number")
	flags.IntVar(&q.Limit, "limit", 0, "Page size (default from EXPORT_DEFAULT_LIMIT)")
	flags.StringVar(&q.SortBy, "sort-by", "", "createdAt, updatedAt, sku, name, type or status")
	flags.StringVar(&q.SortOrder, "sort-order", "", "asc or desc")
	flags.StringVar(&q.Structural.Type, "type", "", "Product type")
	flags.StringVar(&q.Structural.Status, "status", "", "Product status")
	flags.StringVar(&q.Structural.CategoryID, "category", "", "Category ID")
	flags.StringVar(&q.Structural.AssignedTo, "assigned-to", "", "Assignee")
	flags.StringVar(&q.Structural.Search, "search", "", "SKU substring")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
