// Package documents implements the invoice/quote core: the totals engine, the
// identifier generator and the Document Store persisted through a key-value
// collaborator.
package documents

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType discriminates invoices from quotes.
type DocumentType string

const (
	TypeInvoice DocumentType = "invoice"
	TypeQuote   DocumentType = "quote"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSent        Status = "sent"
	StatusPaid        Status = "paid"
	StatusOutstanding Status = "outstanding"
	StatusConverted   Status = "converted"

	// StatusAll is a filter sentinel and is never stored.
	StatusAll Status = "all"
)

// Valid reports whether s is a storable status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOutstanding, StatusConverted:
		return true
	}
	return false
}

// TypeFilter narrows listings by document type.
type TypeFilter string

const (
	FilterInvoices TypeFilter = "invoice"
	FilterQuotes   TypeFilter = "quote"
	FilterAll      TypeFilter = "all"
)

func (f TypeFilter) matches(t DocumentType) bool {
	switch f {
	case FilterInvoices:
		return t != TypeQuote
	case FilterQuotes:
		return t == TypeQuote
	}
	return true
}

// Client is a snapshot of the customer copied into each document.
type Client struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// LineItem is one priced entry. Subtotal, TaxAmount and Total are derived and
// recomputed by the totals engine.
type LineItem struct {
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    decimal.Decimal `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	Total       decimal.Decimal `json:"total"`
}

// Totals aggregates the derived line item fields.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
}

// Breakdown pairs Totals with the line items they were computed from.
type Breakdown struct {
	Totals
	Items []LineItem `json:"items"`
}

// Document is a persisted invoice or quote.
type Document struct {
	ID              string       `json:"id"`
	Type            DocumentType `json:"type" validate:"required,oneof=invoice quote"`
	Status          Status       `json:"status" validate:"required,oneof=draft sent paid outstanding converted"`
	Number          string       `json:"number,omitempty"`
	Client          Client       `json:"client"`
	Items           []LineItem   `json:"items"`
	Totals          Totals       `json:"totals"`
	IssueDate       string       `json:"issueDate,omitempty"`
	DueDate         string       `json:"dueDate,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	ModifiedAt      time.Time    `json:"modifiedAt"`
	PaidAt          *time.Time   `json:"paidAt,omitempty"`
	SentAt          *time.Time   `json:"sentAt,omitempty"`
	OriginalQuoteID string       `json:"originalQuoteId,omitempty"`
}

// Conversion reports the outcome of ConvertQuote.
type Conversion struct {
	QuoteID   string   `json:"quoteId"`
	InvoiceID string   `json:"invoiceId"`
	Invoice   Document `json:"invoice"`
}

// Stats summarises the collection. Per-status counts cover invoices only.
type Stats struct {
	Total       int `json:"total"`
	Invoices    int `json:"invoices"`
	Quotes      int `json:"quotes"`
	Drafts      int `json:"drafts"`
	Sent        int `json:"sent"`
	Paid        int `json:"paid"`
	Outstanding int `json:"outstanding"`
}
