// Package draft holds the client's working copy of the schema document.
// The held document is never handed out by reference: every read returns an
// independent snapshot, so the atomic swap in ApplyReconciled is the only
// synchronization the document needs.
package draft

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-schemabuild/pkg/schema"
)

// Store owns a single SchemaDocument. The zero value is not usable; call New.
type Store struct {
	mu  sync.RWMutex
	doc schema.SchemaDocument
}

// New returns a store seeded with an empty document.
func New() *Store {
	return &Store{doc: schema.NewDocument("")}
}

// Load replaces the held document wholesale, bypassing reconciliation. Used
// after a successful fetch from the backing store.
func (s *Store) Load(doc schema.SchemaDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
}

// Snapshot returns a deep copy of the present state. Mutating the returned
// document never affects the store.
func (s *Store) Snapshot() schema.SchemaDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// ApplyReconciled atomically swaps in doc, provided it passes validation.
// On failure the prior state is left intact and the violation is returned.
func (s *Store) ApplyReconciled(doc schema.SchemaDocument) error {
	if v := schema.Validate(doc); v != nil {
		return fmt.Errorf("draft: invalid document: %w", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
	return nil
}
