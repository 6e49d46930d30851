package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"catalog-service/internal/services"
	"github.com/spf13/cobra"
)

// DefaultActor is recorded as the creator of products imported from the CLI.
const DefaultActor = "catalogctl"

// ImportCommand creates the import command
func ImportCommand(factory Factory) *cobra.Command {
	var (
		tenantID string
		file     string
		actor    string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert products from a JSON, XML or CSV file",
		Long: `Upsert products by SKU from a JSON, XML or CSV file.

Each valid record is committed in its own transaction. The report lists
created and updated counts, commit failures and records that failed
validation.

Examples:
  catalogctl import --tenant acme --file products.csv
  catalogctl import --tenant acme --file export.json --actor migration`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			pipeline, release, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			report, err := pipeline.Import.Import(cmd.Context(), tenantID, actor, filepath.Base(file), data)
			var validationErr *services.ValidationFailedError
			if errors.As(err, &validationErr) {
				_ = writeJSON(cmd.OutOrStdout(), validationErr.Errors)
				return err
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (required)")
	cmd.Flags().StringVar(&file, "file", "", "Path of the file to import (required)")
	cmd.Flags().StringVar(&actor, "actor", DefaultActor, "User recorded as creator and updater")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
