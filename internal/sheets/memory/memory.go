// Package memory is the in-memory BackupAppender used by tests and by
// worker runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"gastopro/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New() *Store {
	return &Store{}
}

// AppendTransaction records the transaction and returns a synthetic
// row reference.
func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Appended returns a copy of everything appended so far.
func (s *Store) Appended() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...)
}
