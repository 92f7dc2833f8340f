package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gubevu/invoicing/internal/storage"
)

// CollectionKey is the well-known key holding the serialised collection.
const CollectionKey = "gubevu_invoices"

var errUnchanged = errors.New("documents: collection unchanged")

// StoreConfig carries optional collaborators for Store.
type StoreConfig struct {
	// Key overrides CollectionKey.
	Key    string
	Logger *slog.Logger
	// Locker serialises read-modify-write cycles. Defaults to an in-process lock.
	Locker storage.Locker
	// Sequencer assigns document numbers on first save. Nil disables numbering.
	Sequencer *Sequencer
	IDs       *IDGenerator
	// Observe receives the outcome of every public operation.
	Observe func(op string, err error)
}

// Store performs CRUD and lifecycle operations on the persisted collection.
// Every operation reads the whole collection and mutations write it back.
type Store struct {
	kv        storage.Store
	key       string
	logger    *slog.Logger
	locker    storage.Locker
	sequencer *Sequencer
	ids       *IDGenerator
	validate  *validator.Validate
	observe   func(op string, err error)
	now       func() time.Time
}

// NewStore constructs a Store over kv.
func NewStore(kv storage.Store, cfg StoreConfig) *Store {
	s := &Store{
		kv:        kv,
		key:       cfg.Key,
		logger:    cfg.Logger,
		locker:    cfg.Locker,
		sequencer: cfg.Sequencer,
		ids:       cfg.IDs,
		validate:  defaultValidator,
		observe:   cfg.Observe,
		now:       time.Now,
	}
	if s.key == "" {
		s.key = CollectionKey
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.locker == nil {
		s.locker = storage.NewLocalLocker()
	}
	if s.ids == nil {
		s.ids = NewIDGenerator()
	}
	return s
}

// IDs exposes the identifier generator shared with collaborators.
func (s *Store) IDs() *IDGenerator {
	return s.ids
}

func (s *Store) record(op string, err *error) {
	if s.observe != nil {
		s.observe(op, *err)
	}
}

// Save inserts doc or replaces the record with the same ID in place. It
// assigns an ID, CreatedAt and (when enabled) a document number if missing,
// refreshes ModifiedAt and recomputes the line item totals.
func (s *Store) Save(ctx context.Context, doc Document) (saved Document, err error) {
	defer s.record("save", &err)

	if doc.Type == "" {
		doc.Type = TypeInvoice
	}
	if doc.Status == "" {
		doc.Status = StatusDraft
	}
	if err := validateDocument(s.validate, doc); err != nil {
		return Document{}, err
	}

	var commit func(context.Context) error
	err = s.mutate(ctx, func(docs []Document) ([]Document, error) {
		var err error
		docs, doc, commit, err = s.place(ctx, docs, doc)
		return docs, err
	}, pending(&commit))
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// place fills the server-side fields of doc and inserts it into docs, or
// replaces the record with the same ID. A replacement without a number keeps
// the stored one. The returned commit is non-nil when a fresh number was
// reserved and must run once the collection is written.
func (s *Store) place(ctx context.Context, docs []Document, doc Document) ([]Document, Document, func(context.Context) error, error) {
	now := s.now().UTC()
	if doc.ID == "" {
		doc.ID = s.uniqueID(docs, doc.Type)
	}
	idx := indexOf(docs, doc.ID)
	if doc.CreatedAt.IsZero() {
		if idx >= 0 && !docs[idx].CreatedAt.IsZero() {
			doc.CreatedAt = docs[idx].CreatedAt
		} else {
			doc.CreatedAt = now
		}
	}
	doc.ModifiedAt = now
	if doc.Number == "" && idx >= 0 {
		doc.Number = docs[idx].Number
	}
	var commit func(context.Context) error
	if doc.Number == "" && s.sequencer != nil {
		number, c, err := s.sequencer.reserve(ctx, doc.Type)
		if err != nil {
			return nil, Document{}, nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		doc.Number, commit = number, c
	}
	breakdown := ComputeOverallTotals(doc.Items)
	doc.Items = breakdown.Items
	doc.Totals = breakdown.Totals

	if idx >= 0 {
		docs[idx] = doc
	} else {
		docs = append(docs, doc)
	}
	return docs, doc, commit, nil
}

// Get returns the document with id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (_ *Document, err error) {
	defer s.record("get", &err)
	docs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if idx := indexOf(docs, id); idx >= 0 {
		doc := docs[idx]
		return &doc, nil
	}
	return nil, nil
}

// List returns the whole collection in insertion order.
func (s *Store) List(ctx context.Context) (_ []Document, err error) {
	defer s.record("list", &err)
	return s.load(ctx)
}

// ListByStatus filters by exact status and document type. StatusAll skips
// the status match; the type filter always applies.
func (s *Store) ListByStatus(ctx context.Context, status Status, filter TypeFilter) (_ []Document, err error) {
	defer s.record("list_by_status", &err)
	docs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if !filter.matches(doc.Type) {
			continue
		}
		if status != StatusAll && doc.Status != status {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

// UpdateStatus sets the status of id. PaidAt and SentAt are stamped the first
// time the document becomes paid or sent and are never cleared.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) (updated Document, err error) {
	defer s.record("update_status", &err)
	if !status.Valid() {
		return Document{}, fmt.Errorf("%w: status %q", ErrInvalidDocument, status)
	}
	err = s.mutate(ctx, func(docs []Document) ([]Document, error) {
		idx := indexOf(docs, id)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		now := s.now().UTC()
		doc := &docs[idx]
		doc.Status = status
		doc.ModifiedAt = now
		switch status {
		case StatusPaid:
			if doc.PaidAt == nil {
				doc.PaidAt = &now
			}
		case StatusSent:
			if doc.SentAt == nil {
				doc.SentAt = &now
			}
		}
		updated = *doc
		return docs, nil
	})
	if err != nil {
		return Document{}, err
	}
	return updated, nil
}

// Delete removes id permanently. Deleting an absent id succeeds.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	defer s.record("delete", &err)
	return s.mutate(ctx, func(docs []Document) ([]Document, error) {
		idx := indexOf(docs, id)
		if idx < 0 {
			return nil, errUnchanged
		}
		return append(docs[:idx], docs[idx+1:]...), nil
	})
}

// ConvertQuote creates a draft invoice from the quote and marks the quote
// converted. The quote lookup and the invoice insert share one locked cycle;
// the status change is a second write. If that fails the new invoice is kept
// and the error is returned alongside it. Converting a quote again yields
// another invoice.
func (s *Store) ConvertQuote(ctx context.Context, quoteID string) (conv Conversion, err error) {
	defer s.record("convert_quote", &err)

	var (
		invoice Document
		commit  func(context.Context) error
	)
	err = s.mutate(ctx, func(docs []Document) ([]Document, error) {
		idx := indexOf(docs, quoteID)
		if idx < 0 || docs[idx].Type != TypeQuote {
			return nil, fmt.Errorf("%w: quote %s", ErrNotFound, quoteID)
		}
		quote := docs[idx]
		items := make([]LineItem, len(quote.Items))
		copy(items, quote.Items)
		var err error
		docs, invoice, commit, err = s.place(ctx, docs, Document{
			Type:            TypeInvoice,
			Status:          StatusDraft,
			Client:          quote.Client,
			Items:           items,
			IssueDate:       quote.IssueDate,
			DueDate:         quote.DueDate,
			Notes:           quote.Notes,
			OriginalQuoteID: quoteID,
		})
		return docs, err
	}, pending(&commit))
	if err != nil {
		return Conversion{}, err
	}
	conv = Conversion{QuoteID: quoteID, InvoiceID: invoice.ID, Invoice: invoice}

	if _, err := s.UpdateStatus(ctx, quoteID, StatusConverted); err != nil {
		s.logger.Error("mark quote converted",
			slog.String("quote_id", quoteID),
			slog.String("invoice_id", invoice.ID),
			slog.Any("error", err))
		return conv, fmt.Errorf("mark quote converted: %w", err)
	}
	return conv, nil
}

// Stats counts documents by type and invoices by status.
func (s *Store) Stats(ctx context.Context) (stats Stats, err error) {
	defer s.record("stats", &err)
	docs, err := s.load(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.Total = len(docs)
	for _, doc := range docs {
		if doc.Type == TypeQuote {
			stats.Quotes++
			continue
		}
		stats.Invoices++
		switch doc.Status {
		case StatusDraft:
			stats.Drafts++
		case StatusSent:
			stats.Sent++
		case StatusPaid:
			stats.Paid++
		case StatusOutstanding:
			stats.Outstanding++
		}
	}
	return stats, nil
}

// load reads the collection. An unreadable payload is treated as empty so the
// application stays usable after corruption.
func (s *Store) load(ctx context.Context) ([]Document, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: read collection: %w", ErrPersistence, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Document{}, nil
	}
	var docs []Document
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		s.logger.Warn("stored collection unreadable, treating as empty",
			slog.String("key", s.key),
			slog.Any("error", err))
		return []Document{}, nil
	}
	if docs == nil {
		return []Document{}, nil
	}
	for i := range docs {
		if docs[i].Type == "" {
			docs[i].Type = TypeInvoice
		}
	}
	return docs, nil
}

func (s *Store) write(ctx context.Context, docs []Document) error {
	payload, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("%w: encode collection: %w", ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, s.key, string(payload)); err != nil {
		return fmt.Errorf("%w: write collection: %w", ErrPersistence, err)
	}
	return nil
}

// mutate runs one locked read-modify-write cycle. fn returning errUnchanged
// skips the write and reports success. after hooks run only once the write
// has landed, still under the lock; their failures are logged because the
// collection is already persisted.
func (s *Store) mutate(ctx context.Context, fn func([]Document) ([]Document, error), after ...func(context.Context) error) error {
	unlock, err := s.locker.Lock(ctx, s.key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release collection lock", slog.Any("error", err))
		}
	}()

	docs, err := s.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(docs)
	if err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if err := s.write(ctx, next); err != nil {
		return err
	}
	for _, hook := range after {
		if err := hook(ctx); err != nil {
			s.logger.Warn("post-write step failed", slog.String("key", s.key), slog.Any("error", err))
		}
	}
	return nil
}

// pending defers to a commit assigned inside a mutation.
func pending(commit *func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if *commit == nil {
			return nil
		}
		return (*commit)(ctx)
	}
}

func (s *Store) uniqueID(docs []Document, t DocumentType) string {
	for {
		id := s.ids.Generate(PrefixFor(t))
		if indexOf(docs, id) < 0 {
			return id
		}
	}
}

func indexOf(docs []Document, id string) int {
	for i := range docs {
		if docs[i].ID == id {
			return i
		}
	}
	return -1
}
