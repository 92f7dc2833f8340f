package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gubevu/invoicing/internal/documents"
)

func sampleDocs() []documents.Document {
	return []documents.Document{
		{
			ID:     "INV-1700000000000-0001",
			Number: "INV-2510001",
			Type:   documents.TypeInvoice,
			Status: documents.StatusPaid,
			Client: documents.Client{Name: "Thandi", Email: "t@example.co.za"},
			Totals: documents.Totals{
				Subtotal:  decimal.RequireFromString("250"),
				TaxAmount: decimal.RequireFromString("37.5"),
				Total:     decimal.RequireFromString("287.5"),
			},
			IssueDate: "2025-10-01",
			DueDate:   "2025-10-31",
			CreatedAt: time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC),
		},
		{ID: "QUO-1700000000001-0002", Type: documents.TypeQuote, Status: documents.StatusDraft},
	}
}

func TestWriteDocumentsCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteDocumentsCSV(buf, sampleDocs()))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{
		"INV-1700000000000-0001", "INV-2510001", "invoice", "paid", "Thandi", "t@example.co.za",
		"2025-10-01", "2025-10-31", "250.00", "37.50", "287.50", "2025-10-01T08:00:00Z",
	}, records[1])
	assert.Equal(t, "0.00", records[2][10])
	assert.Empty(t, records[2][11])
}

func TestWriteDocumentsCSVEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteDocumentsCSV(buf, nil))
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteDocumentsXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteDocumentsXLSX(buf, sampleDocs()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Thandi", rows[1][4])
	assert.Equal(t, "287.5", rows[1][10])
	assert.Equal(t, "quote", rows[2][2])
}
