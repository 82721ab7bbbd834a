package customer

import "context"

// Store holds the authoritative list of customer records.
// Records go in and come out as deep copies.
type Store interface {
	// Add appends record. Duplicate tax IDs are allowed.
	Add(ctx context.Context, record Record) error

	// Edit replaces the first record with the same TaxID.
	// Returns false and changes nothing when no record matches.
	Edit(ctx context.Context, record Record) (bool, error)

	// Delete removes every record with the given tax ID and returns how many went.
	Delete(ctx context.Context, taxID string) (int, error)

	// List returns all records in insertion order
	List(ctx context.Context) ([]Record, error)

	// FindByTaxID returns the first record with the given tax ID
	FindByTaxID(ctx context.Context, taxID string) (*Record, error)
}
