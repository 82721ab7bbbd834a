package customer

import (
	"context"

	"github.com/custdesk/backend/internal/domain/customer"
)

// ListPresenter shows the store's current contents and relays edit and
// delete intents. It keeps no state of its own.
type ListPresenter struct {
	store customer.Store
}

// NewListPresenter creates a ListPresenter
func NewListPresenter(store customer.Store) *ListPresenter {
	return &ListPresenter{store: store}
}

// List returns one row per stored record in insertion order
func (p *ListPresenter) List(ctx context.Context) ([]CustomerListItem, error) {
	records, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return ToCustomerListItems(records), nil
}

// Get returns the first stored record with taxID
func (p *ListPresenter) Get(ctx context.Context, taxID string) (*customer.Record, error) {
	return p.store.FindByTaxID(ctx, taxID)
}

// SelectForEdit hands the stored record with taxID to form, switching it to edit mode
func (p *ListPresenter) SelectForEdit(ctx context.Context, form *FormController, taxID string) error {
	record, err := p.store.FindByTaxID(ctx, taxID)
	if err != nil {
		return err
	}
	return form.Select(record)
}

// Delete removes every stored record with taxID. Deleting an absent tax ID is a no-op.
func (p *ListPresenter) Delete(ctx context.Context, taxID string) (int, error) {
	return p.store.Delete(ctx, taxID)
}
