package persistence

import (
	"context"
	"sync"

	"github.com/custdesk/backend/internal/domain/customer"
	"github.com/custdesk/backend/internal/domain/shared"
)

// MemoryCustomerStore implements customer.Store in process memory.
// Contents live for the lifetime of the process.
type MemoryCustomerStore struct {
	mu        sync.RWMutex
	records   []customer.Record
	publisher shared.EventPublisher
}

// NewMemoryCustomerStore creates an empty store. publisher may be nil.
func NewMemoryCustomerStore(publisher shared.EventPublisher) *MemoryCustomerStore {
	return &MemoryCustomerStore{
		records:   make([]customer.Record, 0),
		publisher: publisher,
	}
}

// Add appends a copy of record
func (s *MemoryCustomerStore) Add(ctx context.Context, record customer.Record) error {
	stored := record.Clone()

	s.mu.Lock()
	s.records = append(s.records, stored)
	s.mu.Unlock()

	return s.publish(ctx, customer.NewCustomerAddedEvent(stored))
}

// Edit replaces the first record whose TaxID matches
func (s *MemoryCustomerStore) Edit(ctx context.Context, record customer.Record) (bool, error) {
	stored := record.Clone()

	s.mu.Lock()
	idx := s.indexOf(record.TaxID)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.records[idx] = stored
	s.mu.Unlock()

	return true, s.publish(ctx, customer.NewCustomerEditedEvent(stored))
}

// Delete removes every record with taxID
func (s *MemoryCustomerStore) Delete(ctx context.Context, taxID string) (int, error) {
	s.mu.Lock()
	kept := make([]customer.Record, 0, len(s.records))
	for _, r := range s.records {
		if r.TaxID != taxID {
			kept = append(kept, r)
		}
	}
	removed := len(s.records) - len(kept)
	s.records = kept
	s.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	return removed, s.publish(ctx, customer.NewCustomerDeletedEvent(taxID, removed))
}

// List returns copies of all records in insertion order
func (s *MemoryCustomerStore) List(ctx context.Context) ([]customer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]customer.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out, nil
}

// FindByTaxID returns a copy of the first record with taxID
func (s *MemoryCustomerStore) FindByTaxID(ctx context.Context, taxID string) (*customer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(taxID)
	if idx < 0 {
		return nil, shared.ErrNotFound
	}
	r := s.records[idx].Clone()
	return &r, nil
}

// Count returns the number of stored records
func (s *MemoryCustomerStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// indexOf must be called with s.mu held
func (s *MemoryCustomerStore) indexOf(taxID string) int {
	for i := range s.records {
		if s.records[i].TaxID == taxID {
			return i
		}
	}
	return -1
}

func (s *MemoryCustomerStore) publish(ctx context.Context, event shared.DomainEvent) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, event)
}

var _ customer.Store = (*MemoryCustomerStore)(nil)
