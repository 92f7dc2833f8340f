// Package drafts holds in-progress, multi-step document composition in a
// session-scoped store, separate from the persisted collection.
package drafts

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gubevu/invoicing/internal/documents"
	"github.com/gubevu/invoicing/internal/storage"
)

const (
	// SessionKeyPrefix prefixes the per-session draft key.
	SessionKeyPrefix = "gubevu_session_data"
	// DefaultNotes is printed on documents composed without notes.
	DefaultNotes = "Thank you for your business!\nPayment due within 30 days."
	// PaymentTerms is the gap between issue and due date.
	PaymentTerms = 30 * 24 * time.Hour
)

var (
	// ErrSessionRequired is returned for an empty session id.
	ErrSessionRequired = errors.New("drafts: session id required")
	// ErrIncomplete is returned when a draft lacks a client name or items.
	ErrIncomplete = errors.New("drafts: complete client information and add at least one item")
	// ErrItemIndex is returned when removing an item that does not exist.
	ErrItemIndex = errors.New("drafts: item index out of range")
)

// Draft is the form data collected across the composition steps.
type Draft struct {
	InvoiceID string                 `json:"invoiceId,omitempty"`
	Type      documents.DocumentType `json:"invoiceType,omitempty"`
	Status    documents.Status       `json:"status,omitempty"`
	Client    documents.Client       `json:"client"`
	Items     []documents.LineItem   `json:"items"`
	Notes     string                 `json:"notes,omitempty"`
	Fields    map[string]string      `json:"fields,omitempty"`
}

// Manager loads, edits and commits drafts.
type Manager struct {
	kv     storage.Store
	docs   *documents.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewManager constructs a Manager. kv should be the session-scoped store.
func NewManager(kv storage.Store, docs *documents.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{kv: kv, docs: docs, logger: logger, now: time.Now}
}

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Load returns the draft for sid. Missing or unreadable data yields an empty draft.
func (m *Manager) Load(ctx context.Context, sid string) (Draft, error) {
	key, err := sessionKey(sid)
	if err != nil {
		return Draft{}, err
	}
	raw, ok, err := m.kv.Get(ctx, key)
	if err != nil {
		return Draft{}, fmt.Errorf("drafts: load: %w", err)
	}
	if !ok || raw == "" {
		return Draft{}, nil
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		m.logger.Warn("draft unreadable, starting over", slog.String("session", sid), slog.Any("error", err))
		return Draft{}, nil
	}
	return d, nil
}

// Save replaces the draft for sid.
func (m *Manager) Save(ctx context.Context, sid string, d Draft) error {
	key, err := sessionKey(sid)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("drafts: encode: %w", err)
	}
	if err := m.kv.Set(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("drafts: save: %w", err)
	}
	return nil
}

// Merge folds submitted form fields into the existing draft. Known field
// names map onto the draft; anything else is kept in Fields.
func (m *Manager) Merge(ctx context.Context, sid string, fields map[string]string) (Draft, error) {
	d, err := m.Load(ctx, sid)
	if err != nil {
		return Draft{}, err
	}
	for name, value := range fields {
		switch name {
		case "clientName":
			d.Client.Name = value
		case "clientAddress":
			d.Client.Address = value
		case "clientPhone":
			d.Client.Phone = value
		case "clientEmail":
			d.Client.Email = value
		case "invoiceId":
			d.InvoiceID = value
		case "invoiceType":
			d.Type = documents.DocumentType(value)
		case "status":
			d.Status = documents.Status(value)
		case "notes":
			d.Notes = value
		default:
			if d.Fields == nil {
				d.Fields = make(map[string]string)
			}
			d.Fields[name] = value
		}
	}
	return d, m.Save(ctx, sid, d)
}

// AddItem appends a line item with its totals computed.
func (m *Manager) AddItem(ctx context.Context, sid string, item documents.LineItem) (Draft, error) {
	d, err := m.Load(ctx, sid)
	if err != nil {
		return Draft{}, err
	}
	d.Items = append(d.Items, documents.ComputeLineItemTotals([]documents.LineItem{item})...)
	return d, m.Save(ctx, sid, d)
}

// RemoveItem drops the item at index.
func (m *Manager) RemoveItem(ctx context.Context, sid string, index int) (Draft, error) {
	d, err := m.Load(ctx, sid)
	if err != nil {
		return Draft{}, err
	}
	if index < 0 || index >= len(d.Items) {
		return d, fmt.Errorf("%w: %d", ErrItemIndex, index)
	}
	d.Items = append(d.Items[:index], d.Items[index+1:]...)
	return d, m.Save(ctx, sid, d)
}

// Clear discards the draft for sid.
func (m *Manager) Clear(ctx context.Context, sid string) error {
	key, err := sessionKey(sid)
	if err != nil {
		return err
	}
	if err := m.kv.Remove(ctx, key); err != nil {
		return fmt.Errorf("drafts: clear: %w", err)
	}
	return nil
}

// Preview assembles the document the draft would produce without saving it.
func (m *Manager) Preview(ctx context.Context, sid string) (documents.Document, error) {
	d, err := m.Load(ctx, sid)
	if err != nil {
		return documents.Document{}, err
	}
	if strings.TrimSpace(d.Client.Name) == "" || len(d.Items) == 0 {
		return documents.Document{}, ErrIncomplete
	}
	if err := documents.ValidateClient(d.Client); err != nil {
		return documents.Document{}, err
	}

	docType := d.Type
	if docType == "" {
		docType = documents.TypeInvoice
	}
	status := d.Status
	if status == "" {
		status = documents.StatusDraft
	}
	id := d.InvoiceID
	if id == "" {
		id = m.docs.IDs().Generate(documents.PrefixFor(docType))
	}
	notes := d.Notes
	if notes == "" {
		notes = DefaultNotes
	}
	today := m.now()
	breakdown := documents.ComputeOverallTotals(d.Items)

	return documents.Document{
		ID:        id,
		Type:      docType,
		Status:    status,
		Client:    d.Client,
		Items:     breakdown.Items,
		Totals:    breakdown.Totals,
		IssueDate: today.Format(time.DateOnly),
		DueDate:   today.Add(PaymentTerms).Format(time.DateOnly),
		Notes:     notes,
	}, nil
}

// Commit saves the previewed document and clears the session on success.
func (m *Manager) Commit(ctx context.Context, sid string) (documents.Document, error) {
	doc, err := m.Preview(ctx, sid)
	if err != nil {
		return documents.Document{}, err
	}
	saved, err := m.docs.Save(ctx, doc)
	if err != nil {
		return documents.Document{}, err
	}
	if err := m.Clear(ctx, sid); err != nil {
		m.logger.Warn("clear committed draft", slog.String("session", sid), slog.Any("error", err))
	}
	return saved, nil
}

func sessionKey(sid string) (string, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return "", ErrSessionRequired
	}
	return SessionKeyPrefix + ":" + sid, nil
}
