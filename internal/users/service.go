// Package users keeps the display name of the person operating the app.
// There is no authentication; the name is shown on screens and documents.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/gubevu/invoicing/internal/storage"
)

const (
	// CurrentUserKey is the store key holding the display name.
	CurrentUserKey = "gubevu_current_user"
	// DefaultName is returned when no user has been set.
	DefaultName = "User"
)

// Service reads and writes the current display name.
type Service struct {
	kv storage.Store
}

// NewService builds Service instance.
func NewService(kv storage.Store) *Service {
	return &Service{kv: kv}
}

// SetCurrent stores name as the current user.
func (s *Service) SetCurrent(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.Clear(ctx)
	}
	if err := s.kv.Set(ctx, CurrentUserKey, name); err != nil {
		return fmt.Errorf("users: set current: %w", err)
	}
	return nil
}

// Current returns the stored name or DefaultName.
func (s *Service) Current(ctx context.Context) (string, error) {
	name, ok, err := s.kv.Get(ctx, CurrentUserKey)
	if err != nil {
		return DefaultName, fmt.Errorf("users: get current: %w", err)
	}
	if !ok || name == "" {
		return DefaultName, nil
	}
	return name, nil
}

// Clear forgets the current user (logout).
func (s *Service) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, CurrentUserKey); err != nil {
		return fmt.Errorf("users: clear current: %w", err)
	}
	return nil
}
