package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	customerapp "github.com/custdesk/backend/internal/application/customer"
	"github.com/custdesk/backend/internal/domain/customer"
	"github.com/custdesk/backend/internal/domain/shared"
	"github.com/custdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SSE event names
const (
	SSEEventConnected        = "connected"
	SSEEventCustomersChanged = "customers_changed"
	SSEEventHeartbeat        = "heartbeat"
)

// SSEClient represents a connected SSE client
type SSEClient struct {
	ID       string
	Chan     chan SSEMessage
	Done     chan struct{}
	doneOnce sync.Once
}

func (c *SSEClient) close() {
	c.doneOnce.Do(func() { close(c.Done) })
}

// SSEMessage represents a message to be sent to SSE clients
type SSEMessage struct {
	Event string `json:"event"`
	Data  string `json:"data"`
	ID    string `json:"id,omitempty"`
}

// CustomersChangedEvent is the payload of a customers_changed message: the
// mutation that happened and the list as it stands afterwards
type CustomersChangedEvent struct {
	Cause     string                         `json:"cause"`
	TaxID     string                         `json:"tax_id"`
	Customers []customerapp.CustomerListItem `json:"customers"`
}

// CustomerStreamHandler pushes the customer list to SSE clients after every
// store mutation, so list views refresh without polling
type CustomerStreamHandler struct {
	BaseHandler
	list       *customerapp.ListPresenter
	subscriber shared.EventSubscriber
	logger     *zap.Logger
	clients    sync.Map // map[string]*SSEClient
	ctx        context.Context
	cancel     context.CancelFunc
	heartbeat  time.Duration
	bufferSize int
	maxClients int
	started    bool
	startMu    sync.Mutex
	sequence   atomic.Uint64
	// publishMu orders snapshot, sequence and broadcast so the last
	// message a client sees reflects the latest store state
	publishMu sync.Mutex
}

// CustomerStreamOption is a functional option for configuring the handler
type CustomerStreamOption func(*CustomerStreamHandler)

// WithSSELogger sets the logger for the handler
func WithSSELogger(logger *zap.Logger) CustomerStreamOption {
	return func(h *CustomerStreamHandler) {
		h.logger = logger
	}
}

// WithSSEHeartbeat sets the heartbeat interval
func WithSSEHeartbeat(interval time.Duration) CustomerStreamOption {
	return func(h *CustomerStreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithSSEClientBuffer sets how many messages may queue per client before
// new ones are dropped for it
func WithSSEClientBuffer(size int) CustomerStreamOption {
	return func(h *CustomerStreamHandler) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

// WithSSEMaxClients sets the maximum number of concurrent SSE clients
func WithSSEMaxClients(max int) CustomerStreamOption {
	return func(h *CustomerStreamHandler) {
		h.maxClients = max
	}
}

// NewCustomerStreamHandler creates a new SSE handler for customer list updates
func NewCustomerStreamHandler(list *customerapp.ListPresenter, subscriber shared.EventSubscriber, opts ...CustomerStreamOption) *CustomerStreamHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &CustomerStreamHandler{
		list:       list,
		subscriber: subscriber,
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
		heartbeat:  30 * time.Second,
		bufferSize: 16,
		maxClients: 1000,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// EventTypes implements shared.EventHandler
func (h *CustomerStreamHandler) EventTypes() []string {
	return []string{
		customer.EventTypeCustomerAdded,
		customer.EventTypeCustomerEdited,
		customer.EventTypeCustomerDeleted,
	}
}

// Handle implements shared.EventHandler. It broadcasts the current list to
// every connected client.
func (h *CustomerStreamHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.GetClientCount() == 0 {
		return nil
	}

	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	items, err := h.list.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list customers for SSE: %w", err)
	}

	data, err := json.Marshal(CustomersChangedEvent{
		Cause:     event.EventType(),
		TaxID:     event.AggregateID(),
		Customers: items,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal SSE event: %w", err)
	}

	h.broadcast(SSEMessage{
		Event: SSEEventCustomersChanged,
		Data:  string(data),
		ID:    strconv.FormatUint(h.sequence.Add(1), 10),
	})
	return nil
}

// Start subscribes to store events and begins sending heartbeats
func (h *CustomerStreamHandler) Start() error {
	h.startMu.Lock()
	defer h.startMu.Unlock()

	if h.started {
		return fmt.Errorf("SSE handler already started")
	}

	h.subscriber.Subscribe(h)
	go h.sendHeartbeats()

	h.started = true
	h.logger.Info("Customer SSE handler started")
	return nil
}

// Stop unsubscribes and disconnects every client
func (h *CustomerStreamHandler) Stop() {
	h.startMu.Lock()
	if h.started {
		h.subscriber.Unsubscribe(h)
	}
	h.startMu.Unlock()

	h.cancel()

	h.clients.Range(func(_, value any) bool {
		if client, ok := value.(*SSEClient); ok {
			client.close()
		}
		return true
	})

	h.logger.Info("Customer SSE handler stopped")
}

// broadcast sends a message to all connected clients without blocking
func (h *CustomerStreamHandler) broadcast(msg SSEMessage) {
	h.clients.Range(func(_, value any) bool {
		client, ok := value.(*SSEClient)
		if !ok {
			return true
		}

		select {
		case client.Chan <- msg:
		default:
			h.logger.Warn("Client channel full, dropping message",
				zap.String("client_id", client.ID),
				zap.String("event", msg.Event))
		}
		return true
	})
}

func (h *CustomerStreamHandler) sendHeartbeats() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.broadcast(SSEMessage{
				Event: SSEEventHeartbeat,
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
		}
	}
}

// Stream godoc
// @ID           streamCustomers
// @Summary      Subscribe to customer list updates via SSE
// @Description  Sends the current list on connect, then a customers_changed event after every add, edit or delete
// @Tags         customers
// @Produce      text/event-stream
// @Success      200 {string} string "SSE stream"
// @Failure      503 {object} ErrorResponse
// @Router       /customers/stream [get]
func (h *CustomerStreamHandler) Stream(c *gin.Context) {
	if h.maxClients > 0 && h.GetClientCount() >= h.maxClients {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeLimitReached, "Maximum number of SSE connections reached")
		return
	}

	items, err := h.list.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	snapshot, err := json.Marshal(CustomersChangedEvent{Customers: items})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	client := &SSEClient{
		ID:   uuid.New().String(),
		Chan: make(chan SSEMessage, h.bufferSize),
		Done: make(chan struct{}),
	}
	h.clients.Store(client.ID, client)
	defer h.clients.Delete(client.ID)

	h.logger.Info("SSE client connected", zap.String("client_id", client.ID))

	h.sendEvent(c.Writer, SSEMessage{
		Event: SSEEventConnected,
		Data:  fmt.Sprintf(`{"client_id":%q,"timestamp":%d}`, client.ID, time.Now().Unix()),
	})
	h.sendEvent(c.Writer, SSEMessage{Event: SSEEventCustomersChanged, Data: string(snapshot)})
	c.Writer.Flush()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			h.logger.Info("SSE client disconnected", zap.String("client_id", client.ID))
			return
		case <-client.Done:
			return
		case <-h.ctx.Done():
			return
		case msg := <-client.Chan:
			h.sendEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

// sendEvent writes an SSE event to the response writer
func (h *CustomerStreamHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

// GetClientCount returns the number of connected SSE clients
func (h *CustomerStreamHandler) GetClientCount() int {
	count := 0
	h.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
