package customer

import "github.com/custdesk/backend/internal/domain/shared"

// AggregateType is the aggregate type name for customer events
const AggregateType = "Customer"

// Event type constants for customers
const (
	EventTypeCustomerAdded   = "CustomerAdded"
	EventTypeCustomerEdited  = "CustomerEdited"
	EventTypeCustomerDeleted = "CustomerDeleted"
)

// CustomerAddedEvent is raised when a record is appended to the store
type CustomerAddedEvent struct {
	shared.BaseDomainEvent
	Record Record `json:"record"`
}

// NewCustomerAddedEvent creates a new CustomerAddedEvent
func NewCustomerAddedEvent(record Record) *CustomerAddedEvent {
	return &CustomerAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerAdded, AggregateType, record.TaxID),
		Record:          record.Clone(),
	}
}

// CustomerEditedEvent is raised when a stored record is replaced
type CustomerEditedEvent struct {
	shared.BaseDomainEvent
	Record Record `json:"record"`
}

// NewCustomerEditedEvent creates a new CustomerEditedEvent
func NewCustomerEditedEvent(record Record) *CustomerEditedEvent {
	return &CustomerEditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerEdited, AggregateType, record.TaxID),
		Record:          record.Clone(),
	}
}

// CustomerDeletedEvent is raised when records are removed by tax ID
type CustomerDeletedEvent struct {
	shared.BaseDomainEvent
	TaxID   string `json:"tax_id"`
	Removed int    `json:"removed"`
}

// NewCustomerDeletedEvent creates a new CustomerDeletedEvent
func NewCustomerDeletedEvent(taxID string, removed int) *CustomerDeletedEvent {
	return &CustomerDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerDeleted, AggregateType, taxID),
		TaxID:           taxID,
		Removed:         removed,
	}
}
