package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gubevu/invoicing/internal/documents"
)

func newListCommand(rt *runtime) *cobra.Command {
	var status, docType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices and quotes",
		Example: `  gubevu list
  gubevu list --type quote
  gubevu list --status paid --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := documents.Status(status)
			if st != documents.StatusAll && !st.Valid() {
				return fmt.Errorf("unknown status %q", status)
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
			docs, err := services.Documents.ListByStatus(cmd.Context(), st, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rt.jsonOut {
				return rt.printJSON(out, docs)
			}
			return writeTable(out, docs)
		},
	}
	cmd.Flags().StringVar(&status, "status", string(documents.StatusAll), "draft, sent, paid, outstanding, converted or all")
	cmd.Flags().StringVar(&docType, "type", string(documents.FilterAll), "invoice, quote or all")
	return cmd
}

func writeTable(w io.Writer, docs []documents.Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tCLIENT\tTOTAL")
	for _, doc := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			doc.ID, doc.Type, doc.Status, doc.Client.Name, documents.FormatCurrency(doc.Totals.Total))
	}
	return tw.Flush()
}

func newShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := services.Documents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%w: %s", documents.ErrNotFound, args[0])
			}
			out := cmd.OutOrStdout()
			if rt.jsonOut {
				return rt.printJSON(out, doc)
			}
			return writeDocument(out, *doc)
		},
	}
}

func writeDocument(w io.Writer, doc documents.Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", doc.ID)
	if doc.Number != "" {
		fmt.Fprintf(tw, "Number:\t%s\n", doc.Number)
	}
	fmt.Fprintf(tw, "Type:\t%s\n", doc.Type)
	fmt.Fprintf(tw, "Status:\t%s\n", doc.Status)
	fmt.Fprintf(tw, "Client:\t%s\n", doc.Client.Name)
	if doc.IssueDate != "" {
		fmt.Fprintf(tw, "Issued:\t%s\n", doc.IssueDate)
	}
	if doc.DueDate != "" {
		fmt.Fprintf(tw, "Due:\t%s\n", doc.DueDate)
	}
	if doc.OriginalQuoteID != "" {
		fmt.Fprintf(tw, "From quote:\t%s\n", doc.OriginalQuoteID)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "DESCRIPTION\tQTY\tPRICE\tTOTAL")
	for _, it := range doc.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			it.Description, it.Quantity.String(), documents.FormatCurrency(it.UnitPrice), documents.FormatCurrency(it.Total))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Subtotal:\t%s\n", documents.FormatCurrency(doc.Totals.Subtotal))
	fmt.Fprintf(tw, "VAT (15%%):\t%s\n", documents.FormatCurrency(doc.Totals.TaxAmount))
	fmt.Fprintf(tw, "Total:\t%s\n", documents.FormatCurrency(doc.Totals.Total))
	return tw.Flush()
}

func newStatusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change the status of a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := services.Documents.UpdateStatus(cmd.Context(), args[0], documents.Status(args[1]))
			if err != nil {
				return err
			}
			if rt.jsonOut {
				return rt.printJSON(cmd.OutOrStdout(), doc)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", doc.ID, doc.Status)
			return err
		},
	}
}

func newDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a document",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := services.Documents.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}

func newConvertCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <quote-id>",
		Short: "Convert a quote into a draft invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			conv, err := services.Documents.ConvertQuote(cmd.Context(), args[0])
			if err != nil {
				if conv.InvoiceID != "" {
					return fmt.Errorf("invoice %s created but quote not marked converted: %w", conv.InvoiceID, err)
				}
				return err
			}
			if rt.jsonOut {
				return rt.printJSON(cmd.OutOrStdout(), conv)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "quote %s converted to invoice %s\n", conv.QuoteID, conv.InvoiceID)
			return err
		},
	}
}

func newStatsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise documents by type and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := services.Documents.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rt.jsonOut {
				return rt.printJSON(out, stats)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Total\t%d\n", stats.Total)
			fmt.Fprintf(tw, "Invoices\t%d\n", stats.Invoices)
			fmt.Fprintf(tw, "Quotes\t%d\n", stats.Quotes)
			fmt.Fprintf(tw, "Draft\t%d\n", stats.Drafts)
			fmt.Fprintf(tw, "Sent\t%d\n", stats.Sent)
			fmt.Fprintf(tw, "Paid\t%d\n", stats.Paid)
			fmt.Fprintf(tw, "Outstanding\t%d\n", stats.Outstanding)
			return tw.Flush()
		},
	}
}
