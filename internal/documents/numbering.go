package documents

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gubevu/invoicing/internal/storage"
)

const (
	invoiceCounterKey = "invoiceCount"
	quoteCounterKey   = "quoteCount"
)

// Sequencer issues human-facing document numbers such as INV-2510007 from
// per-type counters kept in the key-value store.
type Sequencer struct {
	kv  storage.Store
	now func() time.Time
}

// NewSequencer constructs a Sequencer over kv.
func NewSequencer(kv storage.Store) *Sequencer {
	return &Sequencer{kv: kv, now: time.Now}
}

// Next increments the counter for t and formats PREFIX-YYMMNNN. Callers
// serialise access; the store does so under its write lock.
func (s *Sequencer) Next(ctx context.Context, t DocumentType) (string, error) {
	number, commit, err := s.reserve(ctx, t)
	if err != nil {
		return "", err
	}
	if err := commit(ctx); err != nil {
		return "", err
	}
	return number, nil
}

// reserve formats the next number for t without touching the counter. The
// returned commit persists the increment and must run before the lock is
// released.
func (s *Sequencer) reserve(ctx context.Context, t DocumentType) (string, func(context.Context) error, error) {
	key := invoiceCounterKey
	if t == TypeQuote {
		key = quoteCounterKey
	}
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", key, err)
	}
	count := 0
	if ok {
		// An unparseable counter restarts from zero.
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			count = n
		}
	}
	count++
	commit := func(ctx context.Context) error {
		if err := s.kv.Set(ctx, key, strconv.Itoa(count)); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		return nil
	}
	return fmt.Sprintf("%s-%s%03d", PrefixFor(t), s.now().Format("0601"), count), commit, nil
}
