package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/custdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", "ABCDE1234F"),
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers to matching handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler("TestEvent")
		bus.Subscribe(handler)

		event := newTestEvent("TestEvent")
		require.NoError(t, bus.Publish(context.Background(), event))

		require.Len(t, handler.getHandled(), 1)
		assert.Equal(t, event, handler.getHandled()[0])
	})

	t.Run("skips handlers for other types", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler("Other")
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("TestEvent")))

		assert.Empty(t, handler.getHandled())
	})

	t.Run("wildcard handler receives everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler()
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("B")))

		assert.Len(t, handler.getHandled(), 2)
	})

	t.Run("failing handler does not block others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := newTestHandler("TestEvent")
		failing.err = errors.New("failed")
		panicking := newTestHandler("TestEvent")
		panicking.panics = true
		ok := newTestHandler("TestEvent")
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(ok)

		err := bus.Publish(context.Background(), newTestEvent("TestEvent"))

		assert.NoError(t, err)
		assert.Len(t, failing.getHandled(), 1)
		assert.Len(t, ok.getHandled(), 1)
	})

	t.Run("stopped bus drops events until restarted", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		handler := newTestHandler()
		bus.Subscribe(handler)
		ctx := context.Background()

		require.NoError(t, bus.Stop(ctx))
		require.NoError(t, bus.Publish(ctx, newTestEvent("A")))
		assert.Empty(t, handler.getHandled())

		require.NoError(t, bus.Start(ctx))
		require.NoError(t, bus.Publish(ctx, newTestEvent("A")))
		assert.Len(t, handler.getHandled(), 1)
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("TestEvent")))

	assert.Empty(t, handler.getHandled())
}

func TestHandlerRegistry(t *testing.T) {
	t.Run("orders type handlers before wildcard", func(t *testing.T) {
		r := NewHandlerRegistry()
		wild := newTestHandler()
		typed := newTestHandler("A")
		r.Register(wild)
		r.Register(typed, "A")

		handlers := r.GetHandlers("A")

		require.Len(t, handlers, 2)
		assert.Same(t, typed, handlers[0])
		assert.Same(t, wild, handlers[1])
	})

	t.Run("counts distinct handlers", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		r.Register(h, "A", "B")
		r.Register(newTestHandler())

		assert.Equal(t, 2, r.Count())

		r.Unregister(h)
		assert.Equal(t, 1, r.Count())
		assert.Len(t, r.GetHandlers("A"), 1)
	})

	t.Run("handler func", func(t *testing.T) {
		var got string
		h := NewHandlerFunc(func(ctx context.Context, e shared.DomainEvent) error {
			got = e.EventType()
			return nil
		}, "A")
		r := NewHandlerRegistry()
		r.Register(h, h.EventTypes()...)

		for _, handler := range r.GetHandlers("A") {
			require.NoError(t, handler.Handle(context.Background(), newTestEvent("A")))
		}

		assert.Equal(t, "A", got)
		r.Unregister(h)
		assert.Zero(t, r.Count())
	})
}
