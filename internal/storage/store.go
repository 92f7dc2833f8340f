// Package storage provides the key-value persistence collaborator used by the
// invoicing core: a namespaced, size-bounded string store with synchronous
// get/set/remove and no transactions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrQuotaExceeded is returned when a value is larger than the configured quota.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Store is a string key-value store scoped to one namespace.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Options configures a Store implementation.
type Options struct {
	// Namespace prefixes every key, mirroring per-origin scoping.
	Namespace string
	// MaxValueBytes bounds a single value. Zero disables the check.
	MaxValueBytes int
	// TTL expires values after the given duration where the backend supports it.
	TTL time.Duration
}

func (o Options) scopedKey(key string) string {
	if o.Namespace == "" {
		return key
	}
	return o.Namespace + ":" + key
}

func (o Options) checkQuota(key, value string) error {
	if o.MaxValueBytes > 0 && len(value) > o.MaxValueBytes {
		return fmt.Errorf("%w: %s needs %d bytes, limit %d", ErrQuotaExceeded, key, len(value), o.MaxValueBytes)
	}
	return nil
}
