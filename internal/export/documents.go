// Package export renders document collections as spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gubevu/invoicing/internal/documents"
)

// SheetName is the worksheet written by WriteDocumentsXLSX.
const SheetName = "Documents"

var header = []string{
	"ID", "Number", "Type", "Status", "Client", "Email",
	"Issue Date", "Due Date", "Subtotal", "VAT", "Total", "Created",
}

func row(doc documents.Document) []string {
	created := ""
	if !doc.CreatedAt.IsZero() {
		created = doc.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		doc.ID,
		doc.Number,
		string(doc.Type),
		string(doc.Status),
		doc.Client.Name,
		doc.Client.Email,
		doc.IssueDate,
		doc.DueDate,
		doc.Totals.Subtotal.StringFixed(2),
		doc.Totals.TaxAmount.StringFixed(2),
		doc.Totals.Total.StringFixed(2),
		created,
	}
}

// WriteDocumentsCSV serialises docs with one row per document.
func WriteDocumentsCSV(w io.Writer, docs []documents.Document) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, doc := range docs {
		if err := writer.Write(row(doc)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDocumentsXLSX writes docs to a single-sheet workbook. Amount columns
// are stored as numbers so spreadsheet formulas work on them.
func WriteDocumentsXLSX(w io.Writer, docs []documents.Document) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	for col, title := range header {
		if err := setCell(f, col+1, 1, title); err != nil {
			return err
		}
	}
	for i, doc := range docs {
		r := i + 2
		for col, value := range row(doc) {
			var cell any = value
			switch col {
			case 8:
				cell = doc.Totals.Subtotal.Round(2).InexactFloat64()
			case 9:
				cell = doc.Totals.TaxAmount.Round(2).InexactFloat64()
			case 10:
				cell = doc.Totals.Total.Round(2).InexactFloat64()
			}
			if err := setCell(f, col+1, r, cell); err != nil {
				return err
			}
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, r int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, r)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("export: set %s: %w", cell, err)
	}
	return nil
}
