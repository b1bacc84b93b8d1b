package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"zaakiyah/internal/core"
)

// Store is an in-memory LedgerAppender for local development and tests.
type Store struct {
	mu    sync.Mutex
	items []core.Donation
}

func New() *Store {
	return &Store{}
}

// Append stores the donation and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, d core.Donation) (string, error) {
	if d.ID == "" {
		return "", errors.New("donation id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, d)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []core.Donation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Donation(nil), s.items...)
}
