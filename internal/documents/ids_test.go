package documents

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubevu/invoicing/internal/storage"
)

func TestIDGeneratorFormat(t *testing.T) {
	gen := NewIDGenerator()
	id := gen.Generate(PrefixQuote)
	assert.Regexp(t, regexp.MustCompile(`^QUO-\d{13}-\d{4,}$`), id)
}

func TestIDGeneratorSameTickSameRandomDoesNotCollide(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	gen := &IDGenerator{
		now:    func() time.Time { return fixed },
		random: func() int { return 7 },
	}
	first := gen.Generate(PrefixInvoice)
	second := gen.Generate(PrefixInvoice)

	assert.Equal(t, "INV-1700000000000-0007", first)
	assert.Equal(t, "INV-1700000000000-1007", second)
}

func TestIDGeneratorConcurrentUnique(t *testing.T) {
	gen := NewIDGenerator()
	const workers, perWorker = 8, 250

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := gen.Generate(PrefixInvoice)
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestPrefixFor(t *testing.T) {
	assert.Equal(t, "INV", PrefixFor(TypeInvoice))
	assert.Equal(t, "QUO", PrefixFor(TypeQuote))
	assert.Equal(t, "INV", PrefixFor(""))
}

func TestSequencerNext(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore(storage.Options{})
	seq := NewSequencer(kv)
	seq.now = func() time.Time { return time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC) }

	first, err := seq.Next(ctx, TypeInvoice)
	require.NoError(t, err)
	second, err := seq.Next(ctx, TypeInvoice)
	require.NoError(t, err)
	quote, err := seq.Next(ctx, TypeQuote)
	require.NoError(t, err)

	assert.Equal(t, "INV-2510001", first)
	assert.Equal(t, "INV-2510002", second)
	assert.Equal(t, "QUO-2510001", quote)

	raw, ok, err := kv.Get(ctx, "invoiceCount")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", raw)
}

func TestSequencerRecoversFromGarbageCounter(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore(storage.Options{})
	require.NoError(t, kv.Set(ctx, "quoteCount", "NaN"))
	seq := NewSequencer(kv)
	seq.now = func() time.Time { return time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC) }

	number, err := seq.Next(ctx, TypeQuote)
	require.NoError(t, err)
	assert.Equal(t, "QUO-2601001", number)
}
