package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gubevu/invoicing/internal/documents"
	"github.com/gubevu/invoicing/internal/export"
)

func newExportCommand(rt *runtime) *cobra.Command {
	var format, output, docType string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export documents as CSV or XLSX",
		Example: `  gubevu export > documents.csv
  gubevu export --format xlsx --output documents.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var write func(io.Writer, []documents.Document) error
			switch format {
			case "csv":
				write = export.WriteDocumentsCSV
			case "xlsx":
				if output == "" {
					return fmt.Errorf("xlsx export needs --output")
				}
				write = export.WriteDocumentsXLSX
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			filter := documents.TypeFilter(docType)
			switch filter {
			case documents.FilterAll, documents.FilterInvoices, documents.FilterQuotes:
			default:
				return fmt.Errorf("unknown type %q", docType)
			}

			services, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			docs, err := services.Documents.ListByStatus(cmd.Context(), documents.StatusAll, filter)
			if err != nil {
				return err
			}

			if output == "" {
				return write(cmd.OutOrStdout(), docs)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := write(f, docs); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d documents to %s\n", len(docs), output)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (stdout for csv when empty)")
	cmd.Flags().StringVar(&docType, "type", string(documents.FilterAll), "invoice, quote or all")
	return cmd
}
