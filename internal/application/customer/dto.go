package customer

import "github.com/custdesk/backend/internal/domain/customer"

// DraftSnapshot is a point-in-time copy of a form's state
type DraftSnapshot struct {
	Mode          Mode            `json:"mode"`
	SelectedTaxID string          `json:"selected_tax_id,omitempty"`
	Generation    uint64          `json:"generation"`
	Record        customer.Record `json:"record"`
	Pending       int             `json:"pending_enrichments"`
}

// SubmitResult describes what a submit did to the store
type SubmitResult struct {
	Mode  Mode   `json:"mode"`
	TaxID string `json:"tax_id"`
	// Saved is false when an edit found no stored record with the tax ID
	Saved bool `json:"saved"`
}

// CustomerListItem is one row of the customer list
type CustomerListItem struct {
	TaxID        string `json:"tax_id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number"`
	AddressCount int    `json:"address_count"`
}

// ToCustomerListItem projects a record onto a list row
func ToCustomerListItem(r customer.Record) CustomerListItem {
	return CustomerListItem{
		TaxID:        r.TaxID,
		FullName:     r.FullName,
		Email:        r.Email,
		MobileNumber: r.MobileNumber,
		AddressCount: len(r.Addresses),
	}
}

// ToCustomerListItems projects records in order
func ToCustomerListItems(records []customer.Record) []CustomerListItem {
	items := make([]CustomerListItem, len(records))
	for i, r := range records {
		items[i] = ToCustomerListItem(r)
	}
	return items
}
