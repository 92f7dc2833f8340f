package documents

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	PrefixInvoice = "INV"
	PrefixQuote   = "QUO"
)

// PrefixFor returns the identifier prefix for a document type.
func PrefixFor(t DocumentType) string {
	if t == TypeQuote {
		return PrefixQuote
	}
	return PrefixInvoice
}

// IDGenerator builds identifiers of the form PREFIX-<unix ms>-<seq><rand>.
// The per-millisecond sequence keeps identifiers from one generator unique;
// the random suffix separates generators in different processes.
type IDGenerator struct {
	mu     sync.Mutex
	now    func() time.Time
	random func() int
	lastMS int64
	seq    int
}

// NewIDGenerator constructs a generator using the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		now:    time.Now,
		random: func() int { return rand.IntN(1000) },
	}
}

// Generate returns a fresh identifier. It never fails.
func (g *IDGenerator) Generate(prefix string) string {
	g.mu.Lock()
	ms := g.now().UnixMilli()
	if ms == g.lastMS {
		g.seq++
	} else {
		g.lastMS = ms
		g.seq = 0
	}
	seq := g.seq
	g.mu.Unlock()
	return fmt.Sprintf("%s-%d-%d%03d", prefix, ms, seq, g.random())
}
