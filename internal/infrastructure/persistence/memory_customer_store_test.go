package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/custdesk/backend/internal/domain/customer"
	"github.com/custdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func newRecord(taxID, name string) customer.Record {
	r := customer.NewRecord()
	r.TaxID = taxID
	r.FullName = name
	r.Addresses[0].City = "Mumbai"
	return r
}

func TestMemoryCustomerStore_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("appends in order", func(t *testing.T) {
		store := NewMemoryCustomerStore(nil)

		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "A")))
		require.NoError(t, store.Add(ctx, newRecord("BBBBB0000B", "B")))

		list, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "A", list[0].FullName)
		assert.Equal(t, "B", list[1].FullName)
	})

	t.Run("keeps duplicate tax ids", func(t *testing.T) {
		store := NewMemoryCustomerStore(nil)

		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "first")))
		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "second")))

		assert.Equal(t, 2, store.Count())
	})

	t.Run("stores a detached copy", func(t *testing.T) {
		store := NewMemoryCustomerStore(nil)
		r := newRecord("AAAAA0000A", "A")
		require.NoError(t, store.Add(ctx, r))

		r.Addresses[0].City = "Pune"
		list, _ := store.List(ctx)
		list[0].FullName = "changed"

		again, _ := store.List(ctx)
		assert.Equal(t, "Mumbai", again[0].Addresses[0].City)
		assert.Equal(t, "A", again[0].FullName)
	})
}

func TestMemoryCustomerStore_Edit(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the first match", func(t *testing.T) {
		store := NewMemoryCustomerStore(nil)
		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "one")))
		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "two")))

		ok, err := store.Edit(ctx, newRecord("AAAAA0000A", "edited"))

		require.NoError(t, err)
		assert.True(t, ok)
		list, _ := store.List(ctx)
		assert.Equal(t, "edited", list[0].FullName)
		assert.Equal(t, "two", list[1].FullName)
	})

	t.Run("miss leaves the store unchanged", func(t *testing.T) {
		pub := &recordingPublisher{}
		store := NewMemoryCustomerStore(pub)
		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "one")))
		before, _ := store.List(ctx)

		ok, err := store.Edit(ctx, newRecord("ZZZZZ9999Z", "ghost"))

		require.NoError(t, err)
		assert.False(t, ok)
		after, _ := store.List(ctx)
		assert.Equal(t, before, after)
		assert.Equal(t, []string{customer.EventTypeCustomerAdded}, pub.types())
	})
}

func TestMemoryCustomerStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes every match", func(t *testing.T) {
		store := NewMemoryCustomerStore(nil)
		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "one")))
		require.NoError(t, store.Add(ctx, newRecord("BBBBB0000B", "keep")))
		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "two")))

		removed, err := store.Delete(ctx, "AAAAA0000A")

		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		list, _ := store.List(ctx)
		require.Len(t, list, 1)
		assert.Equal(t, "keep", list[0].FullName)
	})

	t.Run("is idempotent", func(t *testing.T) {
		pub := &recordingPublisher{}
		store := NewMemoryCustomerStore(pub)
		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "one")))

		_, err := store.Delete(ctx, "AAAAA0000A")
		require.NoError(t, err)
		removed, err := store.Delete(ctx, "AAAAA0000A")

		require.NoError(t, err)
		assert.Zero(t, removed)
		assert.Zero(t, store.Count())
		assert.Equal(t, []string{
			customer.EventTypeCustomerAdded,
			customer.EventTypeCustomerDeleted,
		}, pub.types())
	})

	t.Run("missing tax id is a no-op", func(t *testing.T) {
		store := NewMemoryCustomerStore(nil)
		require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "one")))

		removed, err := store.Delete(ctx, "NOPE")

		require.NoError(t, err)
		assert.Zero(t, removed)
		assert.Equal(t, 1, store.Count())
	})
}

func TestMemoryCustomerStore_FindByTaxID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCustomerStore(nil)
	require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "one")))

	t.Run("found", func(t *testing.T) {
		r, err := store.FindByTaxID(ctx, "AAAAA0000A")
		require.NoError(t, err)
		assert.Equal(t, "one", r.FullName)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.FindByTaxID(ctx, "BBBBB0000B")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestMemoryCustomerStore_Events(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	store := NewMemoryCustomerStore(pub)

	require.NoError(t, store.Add(ctx, newRecord("AAAAA0000A", "one")))
	_, err := store.Edit(ctx, newRecord("AAAAA0000A", "two"))
	require.NoError(t, err)
	_, err = store.Delete(ctx, "AAAAA0000A")
	require.NoError(t, err)

	assert.Equal(t, []string{
		customer.EventTypeCustomerAdded,
		customer.EventTypeCustomerEdited,
		customer.EventTypeCustomerDeleted,
	}, pub.types())
	assert.Equal(t, "AAAAA0000A", pub.events[2].AggregateID())
}

func TestMemoryCustomerStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCustomerStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Add(ctx, newRecord("AAAAA0000A", "x"))
			_, _ = store.List(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Count())
}
